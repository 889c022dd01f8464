package models

import "strings"

// WeatherReading is fetched fresh for every prediction
type WeatherReading struct {
	Temperature float64 `json:"temperature"` // °C
	Humidity    float64 `json:"humidity"`    // %
}

// Resolved wraps a best-effort lookup. Degraded is set when Value is a
// documented fallback rather than real data.
type Resolved[T any] struct {
	Value    T
	Degraded bool
	Reason   string
}

// FeatureCount is the classifier input width
const FeatureCount = 7

// FeatureVector is ordered nitrogen, phosphorous, potassium, temperature,
// humidity, ph, rainfall. The classifier depends on this order.
type FeatureVector [FeatureCount]float64

// NewFeatureVector builds the classifier input in its fixed order
func NewFeatureVector(soil SoilSample, weather WeatherReading, rainfall float64) FeatureVector {
	return FeatureVector{
		soil.Nitrogen,
		soil.Phosphorous,
		soil.Potassium,
		weather.Temperature,
		weather.Humidity,
		soil.PH,
		rainfall,
	}
}

// CropPrediction is one ranked class with its confidence in [0,100]
type CropPrediction struct {
	Crop       string  `json:"crop"`
	Confidence float64 `json:"confidence"`
}

// PredictionResult is sorted by descending confidence
type PredictionResult []CropPrediction

// RiskLevel is the qualitative weather risk label
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low Risk"
	RiskMedium RiskLevel = "Medium Risk"
	RiskHigh   RiskLevel = "High Risk"
)

// Bucket returns the template key for the level, e.g. "medium_risk".
func (l RiskLevel) Bucket() string {
	return strings.ReplaceAll(strings.ToLower(string(l)), " ", "_")
}

// RiskAssessment is the risk level plus one factor per weather input,
// always ordered rainfall, temperature, humidity.
type RiskAssessment struct {
	Level   RiskLevel `json:"level"`
	Factors []string  `json:"factors"`
}

// PredictRequest is the direct prediction input
type PredictRequest struct {
	State    string `json:"state"`
	District string `json:"district"`
	Month    string `json:"month"`
	PartialSoil
	Language      string `json:"language,omitempty"`
	UseAutoValues *bool  `json:"use_auto_values,omitempty"`
}

// AutoValues reports whether missing soil fields may be filled from
// district defaults. Defaults to true.
func (r PredictRequest) AutoValues() bool {
	if r.UseAutoValues == nil {
		return true
	}
	return *r.UseAutoValues
}

// PredictResponse is the full advisory result
type PredictResponse struct {
	BaseResponse
	TopPredictions   PredictionResult `json:"top_predictions"`
	RiskLevel        RiskLevel        `json:"risk_level"`
	RiskFactors      []string         `json:"risk_factors"`
	Rainfall         float64          `json:"rainfall"`
	RainfallDegraded bool             `json:"rainfall_fallback,omitempty"`
	Temperature      float64          `json:"temperature"`
	Humidity         float64          `json:"humidity"`
	AdvisoryMessage  string           `json:"advisory_message"`
	SoilValuesUsed   SoilSample       `json:"soil_values_used"`
	Season           string           `json:"season"`
	Language         Language         `json:"language"`
}

// StatesResponse lists known states
type StatesResponse struct {
	States []string `json:"states"`
}

// MonthsResponse lists month codes
type MonthsResponse struct {
	Months []string `json:"months"`
}

// DistrictsResponse lists districts for one state
type DistrictsResponse struct {
	State     string   `json:"state"`
	Districts []string `json:"districts"`
}
