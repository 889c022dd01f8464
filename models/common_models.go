package models

import "time"

// Response status constants
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// BaseRequest represents common request fields
type BaseRequest struct {
	SessionID string    `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// BaseResponse represents common response fields
type BaseResponse struct {
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is written for every failed request. Detail repeats Error
// unless a more specific reason is known. SessionID is set when a chat turn
// failed.
type ErrorResponse struct {
	BaseResponse
	Detail    string `json:"detail"`
	SessionID string `json:"session_id,omitempty"`
}

// Metadata represents generic metadata
type Metadata map[string]interface{}

// Language is one of the supported advisory languages.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
	LanguageMarathi Language = "mr"
)

// SupportedLanguages lists languages in preference order; English is the fallback.
var SupportedLanguages = []Language{LanguageEnglish, LanguageHindi, LanguageMarathi}

// Months are the accepted month codes, in calendar order.
var Months = []string{
	"JAN", "FEB", "MAR", "APR", "MAY", "JUN",
	"JUL", "AUG", "SEP", "OCT", "NOV", "DEC",
}

// KnownStates are the canonical state names accepted by the chat intake.
var KnownStates = []string{
	"MAHARASHTRA", "KARNATAKA", "TAMIL NADU", "PUNJAB", "HARYANA",
	"UTTAR PRADESH", "MADHYA PRADESH", "RAJASTHAN", "WEST BENGAL",
	"ANDHRA PRADESH", "TELANGANA", "BIHAR", "GUJRAT", "UTTARANCHAL",
	"HIMACHAL", "ORISSA", "ASSAM",
}

// IsValidMonth reports whether m is exactly one of the month codes.
func IsValidMonth(m string) bool {
	for _, month := range Months {
		if month == m {
			return true
		}
	}
	return false
}

var seasons = map[string]map[Language]string{
	"JAN": {LanguageEnglish: "Winter", LanguageHindi: "सर्दी", LanguageMarathi: "हिवाळा"},
	"FEB": {LanguageEnglish: "Winter", LanguageHindi: "सर्दी", LanguageMarathi: "हिवाळा"},
	"MAR": {LanguageEnglish: "Spring", LanguageHindi: "वसंत", LanguageMarathi: "वसंत"},
	"APR": {LanguageEnglish: "Summer", LanguageHindi: "गर्मी", LanguageMarathi: "उन्हाळा"},
	"MAY": {LanguageEnglish: "Summer", LanguageHindi: "गर्मी", LanguageMarathi: "उन्हाळा"},
	"JUN": {LanguageEnglish: "Monsoon", LanguageHindi: "मानसून", LanguageMarathi: "पावसाळा"},
	"JUL": {LanguageEnglish: "Monsoon", LanguageHindi: "मानसून", LanguageMarathi: "पावसाळा"},
	"AUG": {LanguageEnglish: "Monsoon", LanguageHindi: "मानसून", LanguageMarathi: "पावसाळा"},
	"SEP": {LanguageEnglish: "Post-Monsoon", LanguageHindi: "मानसून के बाद", LanguageMarathi: "पावसाळ्यानंतर"},
	"OCT": {LanguageEnglish: "Post-Monsoon", LanguageHindi: "मानसून के बाद", LanguageMarathi: "पावसाळ्यानंतर"},
	"NOV": {LanguageEnglish: "Autumn", LanguageHindi: "शरद", LanguageMarathi: "शरद"},
	"DEC": {LanguageEnglish: "Winter", LanguageHindi: "सर्दी", LanguageMarathi: "हिवाळा"},
}

// SeasonName returns the season for a month code, or "Unknown".
func SeasonName(month string, lang Language) string {
	byLang, ok := seasons[month]
	if !ok {
		return "Unknown"
	}
	if name, ok := byLang[lang]; ok {
		return name
	}
	return byLang[LanguageEnglish]
}
