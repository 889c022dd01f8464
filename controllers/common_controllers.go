package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"cropadvisor/models"
)

var endpoints = []string{
	"GET /", "GET /health", "GET /states/", "GET /months/", "GET /districts/{state}",
	"POST /predict/", "POST /chatbot/", "DELETE /chatbot/{session_id}", "GET /tips", "GET /history",
}

// IndexHandler describes the API
func (c *Controller) IndexHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Crop Advisory API is running",
		"endpoints": endpoints,
	})
}

// HealthHandler provides a health check endpoint
func (c *Controller) HealthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"uptime":    time.Since(c.startTime).String(),
		"timestamp": time.Now(),
	}
	for name, reporter := range c.status {
		health[name] = reporter.GetStatus()
	}
	if c.chatbot != nil {
		health["chatbot"] = c.chatbot.GetStatus()
	}
	if c.discordService != nil {
		health["discord"] = c.discordService.GetStatus()
	}
	if c.history != nil {
		health["history"] = map[string]interface{}{"backend": c.history.Backend()}
	}

	writeJSON(w, http.StatusOK, health)
}

// StatesHandler lists the states the chat intake accepts
func (c *Controller) StatesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.StatesResponse{States: models.KnownStates})
}

// MonthsHandler lists the month codes
func (c *Controller) MonthsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.MonthsResponse{Months: models.Months})
}

// DistrictsHandler lists districts with rainfall data for a state
func (c *Controller) DistrictsHandler(w http.ResponseWriter, r *http.Request) {
	state := strings.ToUpper(strings.TrimSpace(mux.Vars(r)["state"]))

	districts := c.districts.Districts(state)
	if len(districts) == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("No districts found for state %s", state))
		return
	}

	writeJSON(w, http.StatusOK, models.DistrictsResponse{State: state, Districts: districts})
}
