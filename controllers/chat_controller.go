package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"cropadvisor/models"
)

// ChatHandler processes one chat turn
func (c *Controller) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	if req.Language == "" {
		req.Language = r.Header.Get("Accept-Language")
	}

	resp, err := c.chatbot.ProcessMessage(r.Context(), req)
	if err != nil {
		writeAdvisoryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// EndChatHandler discards a chat session
func (c *Controller) EndChatHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]
	if !c.chatbot.EndSession(sessionID) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     models.StatusSuccess,
		"session_id": sessionID,
		"timestamp":  time.Now(),
	})
}
