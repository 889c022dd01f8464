package models

import "time"

// AdvisoryRecord is one completed advisory kept in the history store
type AdvisoryRecord struct {
	CreatedAt        time.Time `json:"created_at"`
	State            string    `json:"state"`
	District         string    `json:"district"`
	Month            string    `json:"month"`
	Language         Language  `json:"language"`
	TopCrop          string    `json:"top_crop"`
	Confidence       float64   `json:"confidence"`
	RiskLevel        RiskLevel `json:"risk_level"`
	Rainfall         float64   `json:"rainfall"`
	RainfallDegraded bool      `json:"rainfall_fallback"`
	Temperature      float64   `json:"temperature"`
	Humidity         float64   `json:"humidity"`
}

// NewAdvisoryRecord summarises a successful prediction
func NewAdvisoryRecord(req PredictRequest, resp *PredictResponse) AdvisoryRecord {
	rec := AdvisoryRecord{
		CreatedAt:        resp.Timestamp,
		State:            req.State,
		District:         req.District,
		Month:            req.Month,
		Language:         resp.Language,
		RiskLevel:        resp.RiskLevel,
		Rainfall:         resp.Rainfall,
		RainfallDegraded: resp.RainfallDegraded,
		Temperature:      resp.Temperature,
		Humidity:         resp.Humidity,
	}
	if len(resp.TopPredictions) > 0 {
		rec.TopCrop = resp.TopPredictions[0].Crop
		rec.Confidence = resp.TopPredictions[0].Confidence
	}
	return rec
}

// HistoryResponse lists recent advisories
type HistoryResponse struct {
	BaseResponse
	Backend string           `json:"backend"`
	Records []AdvisoryRecord `json:"records"`
}
