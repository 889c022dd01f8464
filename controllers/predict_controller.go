package controllers

import (
	"encoding/json"
	"net/http"

	"cropadvisor/models"
)

// PredictHandler runs one advisory for a location and optional soil values
func (c *Controller) PredictHandler(w http.ResponseWriter, r *http.Request) {
	var req models.PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	if req.Language == "" {
		req.Language = r.Header.Get("Accept-Language")
	}

	resp, err := c.advisor.Run(r.Context(), req)
	if err != nil {
		writeAdvisoryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
