package controllers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"cropadvisor/models"
)

// HistoryHandler lists recent advisories, newest first
func (c *Controller) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	if c.history == nil {
		writeError(w, http.StatusServiceUnavailable, "Advisory history is disabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}

	records, err := c.history.Recent(r.Context(), limit)
	if err != nil {
		log.Printf("History query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to read advisory history")
		return
	}

	writeJSON(w, http.StatusOK, models.HistoryResponse{
		BaseResponse: models.BaseResponse{
			Status:    models.StatusSuccess,
			Timestamp: time.Now(),
		},
		Backend: c.history.Backend(),
		Records: records,
	})
}
