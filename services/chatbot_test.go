package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cropadvisor/models"
)

type fakeAdvisor struct {
	calls int
	req   models.PredictRequest
	err   error
}

func (f *fakeAdvisor) Run(ctx context.Context, req models.PredictRequest) (*models.PredictResponse, error) {
	f.calls++
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.PredictResponse{
		TopPredictions: models.PredictionResult{{Crop: "rice", Confidence: 64.5}, {Crop: "jute", Confidence: 20}},
		RiskLevel:      models.RiskMedium,
	}, nil
}

func chat(t *testing.T, bot *Chatbot, session, lang string, messages ...string) *models.ChatResponse {
	t.Helper()
	var resp *models.ChatResponse
	for _, msg := range messages {
		var err error
		resp, err = bot.ProcessMessage(context.Background(), models.ChatRequest{
			BaseRequest: models.BaseRequest{SessionID: session},
			Message:     msg,
			Language:    lang,
		})
		if err != nil {
			t.Fatalf("ProcessMessage(%q) error = %v", msg, err)
		}
	}
	return resp
}

func TestChatbotAutoSoilHandoff(t *testing.T) {
	advisor := &fakeAdvisor{}
	bot := NewChatbot(NewSessionStore(time.Minute), advisor, nil)

	resp := chat(t, bot, "s1", "en", "hello", "MAHA", "PUNE", "JUN")
	if resp.Stage != models.StageAskUseSoil || resp.InputType != models.InputSelect {
		t.Fatalf("before handoff: %+v", resp)
	}
	if advisor.calls != 0 {
		t.Fatalf("advisor called before intake completed")
	}

	resp = chat(t, bot, "s1", "en", "no thanks")
	if advisor.calls != 1 {
		t.Fatalf("advisor calls = %d, want 1", advisor.calls)
	}
	if advisor.req.State != "MAHARASHTRA" || advisor.req.District != "PUNE" || advisor.req.Month != "JUN" {
		t.Errorf("advisor request = %+v", advisor.req)
	}
	if !advisor.req.AutoValues() || advisor.req.PartialSoil.Nitrogen != nil {
		t.Errorf("advisor request soil = %+v auto=%v", advisor.req.PartialSoil, advisor.req.AutoValues())
	}
	if resp.CropRecommendation == nil || resp.CropRecommendation.Crop != "rice" {
		t.Fatalf("CropRecommendation = %+v", resp.CropRecommendation)
	}
	if !strings.Contains(resp.Message, "I recommend rice with 64.5% confidence") {
		t.Errorf("Message = %q", resp.Message)
	}
	if resp.NextStep != "Would you like to know the risk level or fertilizer requirements?" {
		t.Errorf("NextStep = %q", resp.NextStep)
	}
	if resp.Stage != models.StageProvidingRecommendation {
		t.Errorf("Stage = %s", resp.Stage)
	}

	resp = chat(t, bot, "s1", "en", "what next?")
	if advisor.calls != 1 {
		t.Error("terminal session triggered another prediction")
	}
	if resp.Message != "How can I help you further?" {
		t.Errorf("terminal reply = %q", resp.Message)
	}
}

func TestChatbotManualSoilHandoff(t *testing.T) {
	advisor := &fakeAdvisor{}
	bot := NewChatbot(NewSessionStore(time.Minute), advisor, nil)

	chat(t, bot, "s1", "hi", "namaste", "KARNATAKA", "MYSORE", "OCT", "yes", "80", "40", "30", "6.8")

	want := models.SoilSample{Nitrogen: 80, Phosphorous: 40, Potassium: 30, PH: 6.8}
	got, err := advisor.req.PartialSoil.Complete()
	if err != nil || got != want {
		t.Errorf("advisor soil = %+v (%v), want %+v", got, err, want)
	}
	if advisor.req.Language != "hi" {
		t.Errorf("advisor language = %q, want hi", advisor.req.Language)
	}
}

func TestChatbotGeneratesSessionID(t *testing.T) {
	bot := NewChatbot(NewSessionStore(time.Minute), &fakeAdvisor{}, nil)

	resp := chat(t, bot, "", "en", "hello")
	if resp.SessionID == "" {
		t.Fatal("SessionID is empty")
	}
	if resp.Stage != models.StageAskState {
		t.Errorf("Stage = %s", resp.Stage)
	}

	next := chat(t, bot, resp.SessionID, "en", "PUNJAB")
	if next.Stage != models.StageAskDistrict {
		t.Errorf("continued session Stage = %s", next.Stage)
	}
}

func TestChatbotPropagatesAdvisorError(t *testing.T) {
	advisor := &fakeAdvisor{err: &AdvisoryError{Kind: ErrUpstream, Reason: "Weather data unavailable", Err: errors.New("timeout")}}
	bot := NewChatbot(NewSessionStore(time.Minute), advisor, nil)

	chat(t, bot, "s1", "en", "hello", "ASSAM", "KAMRUP", "MAR")
	_, err := bot.ProcessMessage(context.Background(), models.ChatRequest{
		BaseRequest: models.BaseRequest{SessionID: "s1"},
		Message:     "default",
	})
	var advErr *AdvisoryError
	if !errors.As(err, &advErr) || advErr.Kind != ErrUpstream {
		t.Errorf("ProcessMessage() error = %v, want upstream AdvisoryError", err)
	}
	var chatErr *ChatError
	if !errors.As(err, &chatErr) || chatErr.SessionID != "s1" {
		t.Errorf("ProcessMessage() error = %#v, want ChatError for s1", err)
	}
}

func TestChatbotRetriesAfterUpstreamFailure(t *testing.T) {
	advisor := &fakeAdvisor{err: &AdvisoryError{Kind: ErrUpstream, Reason: "Weather data unavailable", Err: errors.New("timeout")}}
	bot := NewChatbot(NewSessionStore(time.Minute), advisor, nil)

	chat(t, bot, "s1", "en", "hello", "ASSAM", "KAMRUP", "MAR")
	if _, err := bot.ProcessMessage(context.Background(), models.ChatRequest{
		BaseRequest: models.BaseRequest{SessionID: "s1"},
		Message:     "default",
	}); err == nil {
		t.Fatal("handoff succeeded with a failing advisor")
	}

	advisor.err = nil
	resp := chat(t, bot, "s1", "en", "100")
	if advisor.calls != 2 {
		t.Errorf("advisor calls = %d, want 2", advisor.calls)
	}
	if resp.CropRecommendation == nil || resp.CropRecommendation.Crop != "rice" {
		t.Fatalf("retry CropRecommendation = %+v", resp.CropRecommendation)
	}
	if advisor.req.District != "KAMRUP" {
		t.Errorf("retry request = %+v", advisor.req)
	}

	resp = chat(t, bot, "s1", "en", "thanks")
	if advisor.calls != 2 || resp.Message != "How can I help you further?" {
		t.Errorf("after delivery: calls=%d message=%q", advisor.calls, resp.Message)
	}
}

func TestChatbotRestartsAfterValidationFailure(t *testing.T) {
	advisor := &fakeAdvisor{err: &AdvisoryError{Kind: ErrValidation, Reason: "Soil values are out of valid range"}}
	bot := NewChatbot(NewSessionStore(time.Minute), advisor, nil)

	chat(t, bot, "s1", "en", "hello", "PUNJAB", "LUDHIANA", "NOV", "yes", "90", "40", "30")
	_, err := bot.ProcessMessage(context.Background(), models.ChatRequest{
		BaseRequest: models.BaseRequest{SessionID: "s1"},
		Message:     "6.5",
	})
	if !IsValidation(err) {
		t.Fatalf("ProcessMessage() error = %v, want validation", err)
	}

	resp := chat(t, bot, "s1", "en", "hello")
	if resp.Stage != models.StageAskState {
		t.Errorf("Stage = %s, want a fresh conversation", resp.Stage)
	}
}

func TestChatbotRepromptsOutOfRangeSoil(t *testing.T) {
	advisor := &fakeAdvisor{}
	bot := NewChatbot(NewSessionStore(time.Minute), advisor, nil)

	resp := chat(t, bot, "s1", "en", "hello", "PUNJAB", "LUDHIANA", "NOV", "yes", "500")
	if resp.Stage != models.StageAskNitrogen || resp.Message != "Please enter a value between 0 and 140" {
		t.Errorf("out of range nitrogen reply = %+v", resp)
	}

	chat(t, bot, "s1", "en", "100", "40", "30", "6.5")
	if advisor.calls != 1 {
		t.Fatalf("advisor calls = %d, want 1", advisor.calls)
	}
	if n := advisor.req.PartialSoil.Nitrogen; n == nil || *n != 100 {
		t.Errorf("nitrogen = %v, want 100", n)
	}
}

func TestChatbotEndSession(t *testing.T) {
	bot := NewChatbot(NewSessionStore(time.Minute), &fakeAdvisor{}, nil)
	chat(t, bot, "s1", "en", "hello", "BIHAR")

	if !bot.EndSession("s1") {
		t.Fatal("EndSession() = false")
	}
	resp := chat(t, bot, "s1", "en", "hello")
	if resp.Stage != models.StageAskState {
		t.Errorf("Stage after EndSession = %s, want a fresh session", resp.Stage)
	}
}

func TestChatbotTipsAfterRecommendation(t *testing.T) {
	k := newTestKnowledge(t, map[string]string{
		"fertilizer.md": "Apply nitrogen fertilizer in split doses.",
		"rice.md":       "Rice paddy fields need standing water.",
	})
	bot := NewChatbot(NewSessionStore(time.Minute), &fakeAdvisor{}, k)

	chat(t, bot, "s1", "en", "hello", "MAHA", "PUNE", "JUN", "no")
	resp := chat(t, bot, "s1", "en", "how much fertilizer should I apply")
	if len(resp.Tips) != 1 || !strings.Contains(resp.Message, "fertilizer") {
		t.Errorf("tip reply = %+v", resp)
	}
	if resp.NextStep != "How can I help you further?" {
		t.Errorf("NextStep = %q", resp.NextStep)
	}
}
