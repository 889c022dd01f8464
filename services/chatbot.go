package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"cropadvisor/models"
)

// Advisor runs a complete prediction request
type Advisor interface {
	Run(ctx context.Context, req models.PredictRequest) (*models.PredictResponse, error)
}

// Chatbot drives the intake conversation and hands completed sessions to the advisor
type Chatbot struct {
	startTime time.Time
	sessions  *SessionStore
	advisor   Advisor
	knowledge *KnowledgeService
}

// NewChatbot creates a new chatbot instance. knowledge may be nil.
func NewChatbot(sessions *SessionStore, advisor Advisor, knowledge *KnowledgeService) *Chatbot {
	log.Printf("Chatbot initialized (knowledge base: %v)", knowledge != nil && knowledge.IsEnabled())

	return &Chatbot{
		startTime: time.Now(),
		sessions:  sessions,
		advisor:   advisor,
		knowledge: knowledge,
	}
}

// ProcessMessage runs one chat turn. When the turn completes intake, the
// collected data is run through the advisor and the top crop is returned.
// Advisor failures come back wrapped in a *ChatError. A validation failure
// restarts the conversation; any other failure is retried on the next message.
func (c *Chatbot) ProcessMessage(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	lang := MatchLanguage(req.Language)

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	// The store lock is released before any prediction runs.
	session, reply := c.sessions.Apply(sessionID, lang, Advance(message))

	resp := &models.ChatResponse{
		BaseResponse: models.BaseResponse{
			Status:    models.StatusSuccess,
			Timestamp: time.Now(),
		},
		Message:       reply.Message,
		SessionID:     sessionID,
		Stage:         session.Stage.Name(),
		RequiresInput: reply.RequiresInput,
		InputType:     reply.InputType,
		Options:       reply.Options,
	}

	switch {
	case reply.Ready:
		data := session.Stage.Collected()
		prediction, err := c.advisor.Run(ctx, data.PredictRequest(lang))
		if err != nil {
			log.Printf("Chatbot: prediction for session %s failed: %v", sessionID, err)
			if IsValidation(err) {
				c.sessions.Close(sessionID)
			}
			return nil, &ChatError{SessionID: sessionID, Err: err}
		}
		c.sessions.Update(sessionID, markDelivered)

		top := prediction.TopPredictions[0]
		resp.Message = RecommendationMessage(lang, top, prediction.RiskLevel, data.District)
		resp.NextStep = NextStepMessage(lang)
		resp.CropRecommendation = &top
		resp.RequiresInput = true
		resp.InputType = models.InputText

	case session.Stage.Name() == models.StageProvidingRecommendation && c.knowledge != nil && message != "":
		if tip, ok := c.knowledge.BestTip(ctx, message); ok {
			resp.Message = tip.Content
			resp.NextStep = reply.Message
			resp.Tips = []models.TipDocument{tip}
		}
	}

	log.Printf("Chatbot: session %s now at %s", sessionID, resp.Stage)
	return resp, nil
}

func markDelivered(s ChatSession) (ChatSession, Reply) {
	if stage, ok := s.Stage.(RecommendationStage); ok {
		stage.Delivered = true
		s.Stage = stage
	}
	return s, Reply{}
}

// EndSession discards a conversation
func (c *Chatbot) EndSession(sessionID string) bool {
	return c.sessions.Close(sessionID)
}

// GetStatus returns the current status of the chatbot
func (c *Chatbot) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"status":   "active",
		"uptime":   time.Since(c.startTime).String(),
		"sessions": c.sessions.GetStatus(),
	}

	status["capabilities"] = []string{
		"guided_intake",
		"crop_prediction",
		"multilingual",
	}
	if c.knowledge != nil && c.knowledge.IsEnabled() {
		status["capabilities"] = append(status["capabilities"].([]string), "crop_tips")
	}

	return status
}
