package models

// ChatRequest represents an incoming chat turn
type ChatRequest struct {
	BaseRequest
	Message  string `json:"message"`
	Language string `json:"language,omitempty"`
}

// ChatResponse represents the chatbot's reply to one turn
type ChatResponse struct {
	BaseResponse
	Message            string          `json:"message"`
	SessionID          string          `json:"session_id"`
	Stage              StageName       `json:"stage"`
	NextStep           string          `json:"next_step,omitempty"`
	RequiresInput      bool            `json:"requires_input"`
	InputType          string          `json:"input_type,omitempty"` // "text", "select" or "number"
	Options            []string        `json:"options,omitempty"`
	CropRecommendation *CropPrediction `json:"crop_recommendation,omitempty"`
	Tips               []TipDocument   `json:"tips,omitempty"`
}

// StageName identifies a conversation stage
type StageName string

const (
	StageStart                   StageName = "START"
	StageAskState                StageName = "ASK_STATE"
	StageAskDistrict             StageName = "ASK_DISTRICT"
	StageAskMonth                StageName = "ASK_MONTH"
	StageAskUseSoil              StageName = "ASK_USE_SOIL"
	StageAskNitrogen             StageName = "ASK_NITROGEN"
	StageAskPhosphorous          StageName = "ASK_PHOSPHOROUS"
	StageAskPotassium            StageName = "ASK_POTASSIUM"
	StageAskPH                   StageName = "ASK_PH"
	StageProvidingRecommendation StageName = "PROVIDING_RECOMMENDATION"
)

// Input types for chat replies
const (
	InputText   = "text"
	InputSelect = "select"
	InputNumber = "number"
)

// CollectedData is what the chat intake has gathered so far
type CollectedData struct {
	State    string `json:"state,omitempty"`
	District string `json:"district,omitempty"`
	Month    string `json:"month,omitempty"`
	PartialSoil
	UseAutoValues bool `json:"use_auto_values"`
}

// PredictRequest converts the collected data into a direct prediction request
func (d CollectedData) PredictRequest(lang Language) PredictRequest {
	auto := d.UseAutoValues
	return PredictRequest{
		State:         d.State,
		District:      d.District,
		Month:         d.Month,
		PartialSoil:   d.PartialSoil,
		Language:      string(lang),
		UseAutoValues: &auto,
	}
}
