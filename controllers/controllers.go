package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"cropadvisor/database"
	"cropadvisor/models"
	"cropadvisor/services"
)

// DistrictSource lists the districts known for a state
type DistrictSource interface {
	Districts(state string) []string
}

// StatusReporter is implemented by every service shown on /health
type StatusReporter interface {
	GetStatus() map[string]interface{}
}

// Dependencies are the services the HTTP handlers use. Knowledge, History
// and Discord may be nil.
type Dependencies struct {
	Advisor   services.Advisor
	Chatbot   *services.Chatbot
	Districts DistrictSource
	Knowledge *services.KnowledgeService
	History   database.HistoryStore
	Discord   *services.DiscordService
	Status    map[string]StatusReporter
}

// Controller handles all HTTP endpoints
type Controller struct {
	advisor        services.Advisor
	chatbot        *services.Chatbot
	districts      DistrictSource
	knowledge      *services.KnowledgeService
	history        database.HistoryStore
	discordService *services.DiscordService
	status         map[string]StatusReporter
	startTime      time.Time
}

// NewController creates a new controller instance
func NewController(deps Dependencies) *Controller {
	return &Controller{
		advisor:        deps.Advisor,
		chatbot:        deps.Chatbot,
		districts:      deps.Districts,
		knowledge:      deps.Knowledge,
		history:        deps.History,
		discordService: deps.Discord,
		status:         deps.Status,
		startTime:      time.Now(),
	}
}

// RegisterRoutes attaches every endpoint to r
func (c *Controller) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", c.IndexHandler).Methods(http.MethodGet)
	r.HandleFunc("/health", c.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/states/", c.StatesHandler).Methods(http.MethodGet)
	r.HandleFunc("/months/", c.MonthsHandler).Methods(http.MethodGet)
	r.HandleFunc("/districts/{state}", c.DistrictsHandler).Methods(http.MethodGet)
	r.HandleFunc("/predict/", c.PredictHandler).Methods(http.MethodPost)
	r.HandleFunc("/chatbot/", c.ChatHandler).Methods(http.MethodPost)
	r.HandleFunc("/chatbot/{session_id}", c.EndChatHandler).Methods(http.MethodDelete)
	r.HandleFunc("/tips", c.TipsHandler).Methods(http.MethodGet)
	r.HandleFunc("/history", c.HistoryHandler).Methods(http.MethodGet)
}

// StartServices starts all background services (Discord bot, etc.)
func (c *Controller) StartServices(enableDiscord bool) error {
	switch {
	case c.discordService == nil || !enableDiscord:
		log.Printf("Discord service disabled")
	case !c.discordService.IsEnabled():
		log.Printf("Discord service requested but not properly configured (missing DISCORD_BOT_TOKEN)")
	default:
		if err := c.discordService.Start(); err != nil {
			log.Printf("Failed to start Discord service: %v", err)
			return err
		}
	}
	return nil
}

// StopServices stops all background services
func (c *Controller) StopServices() error {
	if c.discordService != nil {
		return c.discordService.Stop()
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeErrorResponse(w, status, models.ErrorResponse{Detail: message}, message)
}

func writeErrorResponse(w http.ResponseWriter, status int, resp models.ErrorResponse, message string) {
	resp.BaseResponse = models.BaseResponse{
		Status:    models.StatusError,
		Error:     message,
		Timestamp: time.Now(),
	}
	writeJSON(w, status, resp)
}

// writeAdvisoryError maps validation failures to 400 and everything else to 500.
// Validation responses carry the field-level reason in detail.
func writeAdvisoryError(w http.ResponseWriter, err error) {
	var resp models.ErrorResponse
	var chatErr *services.ChatError
	if errors.As(err, &chatErr) {
		resp.SessionID = chatErr.SessionID
	}

	var advErr *services.AdvisoryError
	if !errors.As(err, &advErr) {
		log.Printf("Unexpected error: %v", err)
		resp.Detail = "Internal server error"
		writeErrorResponse(w, http.StatusInternalServerError, resp, resp.Detail)
		return
	}

	resp.Detail = advErr.Reason
	if advErr.Kind == services.ErrValidation {
		if advErr.Err != nil {
			resp.Detail = advErr.Err.Error()
		}
		writeErrorResponse(w, http.StatusBadRequest, resp, advErr.Reason)
		return
	}
	log.Printf("Advisory failed (%s): %v", advErr.Kind, err)
	writeErrorResponse(w, http.StatusInternalServerError, resp, advErr.Reason)
}
