package models

import "time"

// TipDocument represents a knowledge base chunk returned for a query
type TipDocument struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Source   string   `json:"source"`
	Metadata Metadata `json:"metadata,omitempty"`
	Score    float64  `json:"score,omitempty"` // Similarity score
}

// TipsResponse represents the response from the knowledge base
type TipsResponse struct {
	BaseResponse
	Documents []TipDocument `json:"documents"`
	Query     string        `json:"query"`
	Total     int           `json:"total"`
}

// KnowledgeStatus describes the knowledge base for health output
type KnowledgeStatus struct {
	Enabled        bool      `json:"enabled"`
	DataPath       string    `json:"data_path"`
	CollectionName string    `json:"collection_name"`
	Embedding      string    `json:"embedding"`
	DocumentCount  int       `json:"document_count"`
	SupportedTypes []string  `json:"supported_file_types"`
	IndexedAt      time.Time `json:"indexed_at,omitempty"`
}
