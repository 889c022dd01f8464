package services

import (
	"fmt"
	"strconv"
	"strings"

	"cropadvisor/models"
)

// Chat message keys
const (
	msgWelcome        = "welcome"
	msgInvalidState   = "invalid_state"
	msgAskDistrict    = "ask_district"
	msgAskMonth       = "ask_month"
	msgInvalidMonth   = "invalid_month"
	msgAskUseSoil     = "ask_use_soil"
	msgAskNitrogen    = "ask_nitrogen"
	msgAskPhosphorous = "ask_phosphorous"
	msgAskPotassium   = "ask_potassium"
	msgAskPH          = "ask_ph"
	msgInvalidNumber  = "invalid_number"
	msgInvalidPH      = "invalid_ph"
	msgOutOfRange     = "out_of_range"
	msgProcessing     = "processing"
	msgFollowUp       = "follow_up"
	msgRecommendation = "recommendation"
	msgNextStep       = "next_step"
)

// English is complete; other languages fall back to it per key.
var chatMessages = map[models.Language]map[string]string{
	models.LanguageEnglish: {
		msgWelcome:        "Hello! 👋 I'm your Crop Advisory Assistant. I'll help you find the best crop to grow. Let's start! What state are you in?",
		msgInvalidState:   "I couldn't find that state. Please choose from: Maharashtra, Karnataka, Tamil Nadu, etc.",
		msgAskDistrict:    "Great! Now, which district in %s?",
		msgAskMonth:       "Perfect! Which month are you planning to grow the crop? (e.g., JAN, FEB, MAR, etc)",
		msgInvalidMonth:   "Please choose a valid month (JAN, FEB, etc)",
		msgAskUseSoil:     "Do you have your own soil test values (Nitrogen, Phosphorous, Potassium, pH)? Or should I use default values?",
		msgAskNitrogen:    "What is the Nitrogen content in your soil? (0-140)",
		msgAskPhosphorous: "What is the Phosphorous content? (0-145)",
		msgAskPotassium:   "What is the Potassium content? (0-205)",
		msgAskPH:          "What is the pH value? (0-14)",
		msgInvalidNumber:  "Please enter a valid number",
		msgInvalidPH:      "Please enter a valid pH value",
		msgOutOfRange:     "Please enter a value between 0 and %g",
		msgProcessing:     "Processing your data...",
		msgFollowUp:       "How can I help you further?",
		msgRecommendation: "Based on your information, I recommend %s with %s%% confidence! 🌾",
		msgNextStep:       "Would you like to know the risk level or fertilizer requirements?",
		"low_risk":        "The risk level is low - this is a great choice for %s!",
		"medium_risk":     "The risk level is moderate - you'll need to monitor conditions.",
		"high_risk":       "The risk level is high - careful management will be needed.",
	},
	models.LanguageHindi: {
		msgWelcome:        "नमस्ते! 👋 मैं आपका फसल सलाहकार हूँ। मैं आपको सही फसल उगाने में मदद करूँगा। चलिए शुरू करते हैं! आप किस राज्य में हैं?",
		msgAskDistrict:    "ठीक है! अब %s में आपका जिला कौन सा है?",
		msgAskMonth:       "बढ़िया! आप किस महीने में फसल उगाना चाहते हैं?",
		msgAskUseSoil:     "क्या आपके पास अपनी मिट्टी परीक्षण मान हैं?",
		msgRecommendation: "आपकी जानकारी के आधार पर, मैं %s की सिफारिश करता हूं %s%% आत्मविश्वास के साथ! 🌾",
	},
	models.LanguageMarathi: {
		msgWelcome:        "नमस्कार! 👋 मी तुमचा पिक सल्लागार आहे. चला सुरुवात करूयात! तुम कोणत्या राज्यात आहात?",
		msgAskDistrict:    "बरोबर! %s मध्ये तुमचा जिल्हा कोणता?",
		msgAskMonth:       "किस महिन्यात तुम पीक घ्यायचा?",
		msgRecommendation: "तुमच्या माहितीच्या आधारे, मी %s ची शिफारस करतो %s%% आत्मविश्वास सह! 🌾",
	},
}

// SoilChoiceOptions are offered at ASK_USE_SOIL
var SoilChoiceOptions = []string{"Yes, I have values", "No, use defaults"}

func chatText(lang models.Language, key string, args ...interface{}) string {
	text, ok := chatMessages[lang][key]
	if !ok {
		text = chatMessages[models.LanguageEnglish][key]
	}
	if len(args) == 0 {
		return text
	}
	return fmt.Sprintf(text, args...)
}

// Reply is the engine's answer to one message
type Reply struct {
	Message       string
	RequiresInput bool
	InputType     string
	Options       []string
	// Ready is set on the turn that completes intake
	Ready bool
}

func textReply(message string) Reply {
	return Reply{Message: message, RequiresInput: true, InputType: models.InputText}
}

func numberReply(message string) Reply {
	return Reply{Message: message, RequiresInput: true, InputType: models.InputNumber}
}

func selectReply(message string, options []string) Reply {
	return Reply{Message: message, RequiresInput: true, InputType: models.InputSelect, Options: options}
}

// Stage is one state of the intake conversation. Each variant holds exactly
// what has been collected by the time it is reached.
type Stage interface {
	Name() models.StageName
	// Next is a pure transition on one user message
	Next(message string, lang models.Language) (Stage, Reply)
	Collected() models.CollectedData
}

// Location is what ASK_STATE, ASK_DISTRICT and ASK_MONTH collect
type Location struct {
	State    string
	District string
	Month    string
}

func (l Location) data() models.CollectedData {
	return models.CollectedData{State: l.State, District: l.District, Month: l.Month}
}

type StartStage struct{}

type AskStateStage struct{}

type AskDistrictStage struct {
	State string
}

type AskMonthStage struct {
	State    string
	District string
}

type AskUseSoilStage struct {
	Location Location
}

type AskNitrogenStage struct {
	Location Location
}

type AskPhosphorousStage struct {
	Location Location
	Nitrogen float64
}

type AskPotassiumStage struct {
	Location    Location
	Nitrogen    float64
	Phosphorous float64
}

type AskPHStage struct {
	Location    Location
	Nitrogen    float64
	Phosphorous float64
	Potassium   float64
}

// RecommendationStage is terminal: intake is done and Data is final.
// Delivered is set once a recommendation has been returned for Data.
type RecommendationStage struct {
	Data      models.CollectedData
	Delivered bool
}

func (StartStage) Name() models.StageName          { return models.StageStart }
func (AskStateStage) Name() models.StageName       { return models.StageAskState }
func (AskDistrictStage) Name() models.StageName    { return models.StageAskDistrict }
func (AskMonthStage) Name() models.StageName       { return models.StageAskMonth }
func (AskUseSoilStage) Name() models.StageName     { return models.StageAskUseSoil }
func (AskNitrogenStage) Name() models.StageName    { return models.StageAskNitrogen }
func (AskPhosphorousStage) Name() models.StageName { return models.StageAskPhosphorous }
func (AskPotassiumStage) Name() models.StageName   { return models.StageAskPotassium }
func (AskPHStage) Name() models.StageName          { return models.StageAskPH }
func (RecommendationStage) Name() models.StageName { return models.StageProvidingRecommendation }

func (StartStage) Collected() models.CollectedData    { return models.CollectedData{} }
func (AskStateStage) Collected() models.CollectedData { return models.CollectedData{} }
func (s AskDistrictStage) Collected() models.CollectedData {
	return models.CollectedData{State: s.State}
}
func (s AskMonthStage) Collected() models.CollectedData {
	return models.CollectedData{State: s.State, District: s.District}
}
func (s AskUseSoilStage) Collected() models.CollectedData  { return s.Location.data() }
func (s AskNitrogenStage) Collected() models.CollectedData { return s.Location.data() }
func (s AskPhosphorousStage) Collected() models.CollectedData {
	d := s.Location.data()
	d.Nitrogen = models.Float(s.Nitrogen)
	return d
}
func (s AskPotassiumStage) Collected() models.CollectedData {
	d := s.Location.data()
	d.Nitrogen = models.Float(s.Nitrogen)
	d.Phosphorous = models.Float(s.Phosphorous)
	return d
}
func (s AskPHStage) Collected() models.CollectedData {
	d := s.Location.data()
	d.Nitrogen = models.Float(s.Nitrogen)
	d.Phosphorous = models.Float(s.Phosphorous)
	d.Potassium = models.Float(s.Potassium)
	return d
}
func (s RecommendationStage) Collected() models.CollectedData { return s.Data }

// Next ignores the message and greets the user
func (s StartStage) Next(_ string, lang models.Language) (Stage, Reply) {
	return AskStateStage{}, textReply(chatText(lang, msgWelcome))
}

// Next accepts any input that is a prefix of a known state and records the
// full state name.
func (s AskStateStage) Next(message string, lang models.Language) (Stage, Reply) {
	state, ok := MatchState(normalizeInput(message))
	if !ok {
		return s, textReply(chatText(lang, msgInvalidState))
	}
	return AskDistrictStage{State: state}, textReply(chatText(lang, msgAskDistrict, state))
}

func (s AskDistrictStage) Next(message string, lang models.Language) (Stage, Reply) {
	district := normalizeInput(message)
	if district == "" {
		return s, textReply(chatText(lang, msgAskDistrict, s.State))
	}
	return AskMonthStage{State: s.State, District: district}, selectReply(chatText(lang, msgAskMonth), models.Months)
}

func (s AskMonthStage) Next(message string, lang models.Language) (Stage, Reply) {
	month := normalizeInput(message)
	if !models.IsValidMonth(month) {
		return s, selectReply(chatText(lang, msgInvalidMonth), models.Months)
	}
	next := AskUseSoilStage{Location: Location{State: s.State, District: s.District, Month: month}}
	return next, selectReply(chatText(lang, msgAskUseSoil), SoilChoiceOptions)
}

// Next skips straight to the recommendation when the user declines to give
// soil values.
func (s AskUseSoilStage) Next(message string, lang models.Language) (Stage, Reply) {
	lower := strings.ToLower(message)
	if strings.Contains(lower, "no") || strings.Contains(lower, "default") {
		data := s.Location.data()
		data.UseAutoValues = true
		return RecommendationStage{Data: data}, Reply{Message: chatText(lang, msgProcessing), Ready: true}
	}
	return AskNitrogenStage{Location: s.Location}, numberReply(chatText(lang, msgAskNitrogen))
}

func (s AskNitrogenStage) Next(message string, lang models.Language) (Stage, Reply) {
	v, ok := parseNumber(message)
	if !ok {
		return s, numberReply(chatText(lang, msgInvalidNumber))
	}
	if !inSoilRange(v, models.NitrogenMax) {
		return s, numberReply(chatText(lang, msgOutOfRange, models.NitrogenMax))
	}
	return AskPhosphorousStage{Location: s.Location, Nitrogen: v}, numberReply(chatText(lang, msgAskPhosphorous))
}

func (s AskPhosphorousStage) Next(message string, lang models.Language) (Stage, Reply) {
	v, ok := parseNumber(message)
	if !ok {
		return s, numberReply(chatText(lang, msgInvalidNumber))
	}
	if !inSoilRange(v, models.PhosphorousMax) {
		return s, numberReply(chatText(lang, msgOutOfRange, models.PhosphorousMax))
	}
	next := AskPotassiumStage{Location: s.Location, Nitrogen: s.Nitrogen, Phosphorous: v}
	return next, numberReply(chatText(lang, msgAskPotassium))
}

func (s AskPotassiumStage) Next(message string, lang models.Language) (Stage, Reply) {
	v, ok := parseNumber(message)
	if !ok {
		return s, numberReply(chatText(lang, msgInvalidNumber))
	}
	if !inSoilRange(v, models.PotassiumMax) {
		return s, numberReply(chatText(lang, msgOutOfRange, models.PotassiumMax))
	}
	next := AskPHStage{Location: s.Location, Nitrogen: s.Nitrogen, Phosphorous: s.Phosphorous, Potassium: v}
	return next, numberReply(chatText(lang, msgAskPH))
}

func (s AskPHStage) Next(message string, lang models.Language) (Stage, Reply) {
	v, ok := parseNumber(message)
	if !ok {
		return s, numberReply(chatText(lang, msgInvalidPH))
	}
	if !inSoilRange(v, models.PHMax) {
		return s, numberReply(chatText(lang, msgOutOfRange, models.PHMax))
	}
	data := s.Collected()
	data.PH = models.Float(v)
	data.UseAutoValues = true
	return RecommendationStage{Data: data}, Reply{Message: chatText(lang, msgProcessing), Ready: true}
}

// Next keeps the conversation terminal; a finished session never restarts.
// Until a recommendation has been delivered every message retries it.
func (s RecommendationStage) Next(_ string, lang models.Language) (Stage, Reply) {
	if !s.Delivered {
		return s, Reply{Message: chatText(lang, msgProcessing), Ready: true}
	}
	return s, textReply(chatText(lang, msgFollowUp))
}

// MatchState returns the first known state that input is a prefix of.
// Matching is case-sensitive on the already uppercased input.
func MatchState(input string) (string, bool) {
	if input == "" {
		return "", false
	}
	for _, state := range models.KnownStates {
		if strings.HasPrefix(state, input) {
			return state, true
		}
	}
	return "", false
}

func inSoilRange(v, max float64) bool {
	return v >= 0 && v <= max
}

func normalizeInput(message string) string {
	return strings.ToUpper(strings.TrimSpace(message))
}

func parseNumber(message string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(message), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// RecommendationMessage is the localized sentence embedding the top crop,
// followed by the risk note for the district.
func RecommendationMessage(lang models.Language, top models.CropPrediction, level models.RiskLevel, district string) string {
	confidence := strconv.FormatFloat(top.Confidence, 'f', -1, 64)
	message := chatText(lang, msgRecommendation, top.Crop, confidence)

	switch level {
	case models.RiskLow:
		message += "\n" + chatText(lang, level.Bucket(), district)
	case models.RiskMedium, models.RiskHigh:
		message += "\n" + chatText(lang, level.Bucket())
	}
	return message
}

// NextStepMessage is the follow-up prompt sent after a recommendation
func NextStepMessage(lang models.Language) string {
	return chatText(lang, msgNextStep)
}
