package controllers

import (
	"net/http"
	"strconv"
	"strings"
)

// TipsHandler searches the crop tips knowledge base
func (c *Controller) TipsHandler(w http.ResponseWriter, r *http.Request) {
	if c.knowledge == nil || !c.knowledge.IsEnabled() {
		writeError(w, http.StatusServiceUnavailable, "Knowledge base is not available")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "Query cannot be empty")
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

	resp, err := c.knowledge.Query(r.Context(), query, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
