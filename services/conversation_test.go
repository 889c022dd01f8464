package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"cropadvisor/models"
)

func TestConversationAutoSoilScript(t *testing.T) {
	var stage Stage = StartStage{}
	lang := models.LanguageEnglish

	steps := []struct {
		message   string
		wantStage models.StageName
		wantReady bool
	}{
		{"hello", models.StageAskState, false},
		{"MAHA", models.StageAskDistrict, false},
		{"PUNE", models.StageAskMonth, false},
		{"XYZ", models.StageAskMonth, false},
		{"JUN", models.StageAskUseSoil, false},
		{"no thanks", models.StageProvidingRecommendation, true},
	}

	for _, step := range steps {
		var reply Reply
		stage, reply = stage.Next(step.message, lang)
		if stage.Name() != step.wantStage {
			t.Fatalf("after %q stage = %s, want %s", step.message, stage.Name(), step.wantStage)
		}
		if reply.Ready != step.wantReady {
			t.Errorf("after %q Ready = %v, want %v", step.message, reply.Ready, step.wantReady)
		}
	}

	data := stage.Collected()
	if data.State != "MAHARASHTRA" || data.District != "PUNE" || data.Month != "JUN" {
		t.Errorf("Collected() = %+v", data)
	}
	if !data.UseAutoValues {
		t.Error("UseAutoValues = false, want true")
	}
	if data.Nitrogen != nil || data.Phosphorous != nil || data.Potassium != nil || data.PH != nil {
		t.Errorf("soil fields set on auto path: %+v", data.PartialSoil)
	}
}

func TestConversationPrompts(t *testing.T) {
	lang := models.LanguageEnglish

	next, reply := StartStage{}.Next("anything", lang)
	if next.Name() != models.StageAskState || !strings.Contains(reply.Message, "What state are you in?") {
		t.Errorf("START reply = %q", reply.Message)
	}

	_, reply = AskStateStage{}.Next("maha", lang)
	if reply.Message != "Great! Now, which district in MAHARASHTRA?" {
		t.Errorf("ASK_STATE reply = %q", reply.Message)
	}

	_, reply = AskMonthStage{State: "MAHARASHTRA", District: "PUNE"}.Next("jun", lang)
	if reply.InputType != models.InputSelect || len(reply.Options) != len(SoilChoiceOptions) {
		t.Errorf("ASK_MONTH reply = %+v", reply)
	}

	_, reply = AskMonthStage{}.Next("June", lang)
	if reply.Message != "Please choose a valid month (JAN, FEB, etc)" || len(reply.Options) != 12 {
		t.Errorf("invalid month reply = %+v", reply)
	}
}

func TestConversationUnknownState(t *testing.T) {
	stage := AskStateStage{}

	for _, input := range []string{"ATLANTIS", "", "   ", "MAHARASHTRAX"} {
		next, reply := stage.Next(input, models.LanguageEnglish)
		if next.Name() != models.StageAskState {
			t.Errorf("Next(%q) stage = %s, want ASK_STATE", input, next.Name())
		}
		if !strings.HasPrefix(reply.Message, "I couldn't find that state") {
			t.Errorf("Next(%q) reply = %q", input, reply.Message)
		}
	}
}

func TestMatchStatePrefixRule(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"MAHARASHTRA", "MAHARASHTRA", true},
		{"MAHA", "MAHARASHTRA", true},
		{"M", "MAHARASHTRA", true},
		{"TAMIL", "TAMIL NADU", true},
		{"UTTAR", "UTTAR PRADESH", true},
		{"UTTARA", "UTTARANCHAL", true},
		{"maha", "", false},
		{"NADU", "", false},
	}

	for _, tt := range tests {
		got, ok := MatchState(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("MatchState(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestConversationManualSoil(t *testing.T) {
	var stage Stage = AskUseSoilStage{Location: Location{State: "MAHARASHTRA", District: "PUNE", Month: "JUN"}}
	lang := models.LanguageEnglish

	steps := []struct {
		message   string
		wantStage models.StageName
		wantMsg   string
	}{
		{"yes", models.StageAskNitrogen, "What is the Nitrogen content in your soil? (0-140)"},
		{"lots", models.StageAskNitrogen, "Please enter a valid number"},
		{"500", models.StageAskNitrogen, "Please enter a value between 0 and 140"},
		{"-1", models.StageAskNitrogen, "Please enter a value between 0 and 140"},
		{"90", models.StageAskPhosphorous, "What is the Phosphorous content? (0-145)"},
		{"146", models.StageAskPhosphorous, "Please enter a value between 0 and 145"},
		{" 42.5 ", models.StageAskPotassium, "What is the Potassium content? (0-205)"},
		{"", models.StageAskPotassium, "Please enter a valid number"},
		{"205.5", models.StageAskPotassium, "Please enter a value between 0 and 205"},
		{"43", models.StageAskPH, "What is the pH value? (0-14)"},
		{"acidic", models.StageAskPH, "Please enter a valid pH value"},
		{"14.2", models.StageAskPH, "Please enter a value between 0 and 14"},
		{"6.5", models.StageProvidingRecommendation, "Processing your data..."},
	}

	var reply Reply
	for _, step := range steps {
		stage, reply = stage.Next(step.message, lang)
		if stage.Name() != step.wantStage {
			t.Fatalf("after %q stage = %s, want %s", step.message, stage.Name(), step.wantStage)
		}
		if reply.Message != step.wantMsg {
			t.Errorf("after %q message = %q, want %q", step.message, reply.Message, step.wantMsg)
		}
	}
	if !reply.Ready {
		t.Error("final reply not ready")
	}

	data := stage.Collected()
	soil, err := data.PartialSoil.Complete()
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	want := models.SoilSample{Nitrogen: 90, Phosphorous: 42.5, Potassium: 43, PH: 6.5}
	if soil != want {
		t.Errorf("collected soil = %+v, want %+v", soil, want)
	}
}

func TestConversationUseSoilMatching(t *testing.T) {
	stage := AskUseSoilStage{Location: Location{State: "PUNJAB", District: "LUDHIANA", Month: "NOV"}}

	tests := []struct {
		message string
		want    models.StageName
	}{
		{"No, use defaults", models.StageProvidingRecommendation},
		{"NO", models.StageProvidingRecommendation},
		{"use DEFAULT please", models.StageProvidingRecommendation},
		{"I have them", models.StageAskNitrogen},
		{"Yes, I have values", models.StageAskNitrogen},
		{"sure", models.StageAskNitrogen},
	}

	for _, tt := range tests {
		next, _ := stage.Next(tt.message, models.LanguageEnglish)
		if next.Name() != tt.want {
			t.Errorf("Next(%q) = %s, want %s", tt.message, next.Name(), tt.want)
		}
	}
}

func TestRecommendationStageRetriesUntilDelivered(t *testing.T) {
	stage := RecommendationStage{Data: models.CollectedData{State: "MAHARASHTRA", District: "PUNE", Month: "JUN"}}

	next, reply := stage.Next("anything", models.LanguageEnglish)
	if !reply.Ready {
		t.Error("undelivered recommendation did not retry")
	}
	if next.Collected() != stage.Data {
		t.Errorf("retry data = %+v, want %+v", next.Collected(), stage.Data)
	}
}

func TestRecommendationStageIsTerminal(t *testing.T) {
	stage := RecommendationStage{Data: models.CollectedData{State: "MAHARASHTRA"}, Delivered: true}

	next, reply := stage.Next("hello", models.LanguageEnglish)
	if next.Name() != models.StageProvidingRecommendation {
		t.Errorf("stage = %s, want terminal", next.Name())
	}
	if reply.Ready {
		t.Error("terminal stage signalled ready again")
	}
	if reply.Message != "How can I help you further?" {
		t.Errorf("reply = %q", reply.Message)
	}
}

func TestChatTextFallsBackPerKey(t *testing.T) {
	hi := chatText(models.LanguageHindi, msgAskDistrict, "PUNE")
	if !strings.Contains(hi, "PUNE") || strings.Contains(hi, "which district") {
		t.Errorf("Hindi ask_district = %q", hi)
	}
	if got := chatText(models.LanguageHindi, msgAskNitrogen); got != chatMessages[models.LanguageEnglish][msgAskNitrogen] {
		t.Errorf("Hindi ask_nitrogen = %q, want English fallback", got)
	}
}

func TestRecommendationMessage(t *testing.T) {
	top := models.CropPrediction{Crop: "rice", Confidence: 87.25}

	got := RecommendationMessage(models.LanguageEnglish, top, models.RiskLow, "PUNE")
	want := "Based on your information, I recommend rice with 87.25% confidence! 🌾\nThe risk level is low - this is a great choice for PUNE!"
	if got != want {
		t.Errorf("RecommendationMessage() = %q, want %q", got, want)
	}

	mr := RecommendationMessage(models.LanguageMarathi, top, models.RiskHigh, "PUNE")
	if !strings.Contains(mr, "rice") || !strings.Contains(mr, "87.25%") || !strings.Contains(mr, "risk level is high") {
		t.Errorf("Marathi RecommendationMessage() = %q", mr)
	}
}

func TestSessionStoreApply(t *testing.T) {
	store := NewSessionStore(time.Minute)

	session, reply := store.Apply("s1", models.LanguageEnglish, Advance("hello"))
	if session.Stage.Name() != models.StageAskState {
		t.Errorf("stage = %s, want ASK_STATE", session.Stage.Name())
	}
	if !strings.Contains(reply.Message, "state") {
		t.Errorf("reply = %q", reply.Message)
	}

	session, _ = store.Apply("s1", models.LanguageEnglish, Advance("maha"))
	if session.Stage.Collected().State != "MAHARASHTRA" {
		t.Errorf("state = %q", session.Stage.Collected().State)
	}

	other, _ := store.Apply("s2", models.LanguageHindi, Advance("hello"))
	if other.Stage.Name() != models.StageAskState || other.Language != models.LanguageHindi {
		t.Errorf("second session = %+v", other)
	}
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}
}

func TestSessionStoreExpiry(t *testing.T) {
	store := NewSessionStore(10 * time.Minute)
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Apply("s1", models.LanguageEnglish, Advance("hello"))
	store.Apply("s1", models.LanguageEnglish, Advance("PUNJAB"))
	store.Apply("s2", models.LanguageEnglish, Advance("hello"))

	now = now.Add(5 * time.Minute)
	store.Apply("s2", models.LanguageEnglish, Advance("KARNATAKA"))

	now = now.Add(6 * time.Minute)
	if _, ok := store.Get("s1"); ok {
		t.Error("Get(s1) found an expired session")
	}
	if _, ok := store.Get("s2"); !ok {
		t.Error("Get(s2) missing a live session")
	}

	session, _ := store.Apply("s1", models.LanguageEnglish, Advance("hello"))
	if session.Stage.Name() != models.StageAskState {
		t.Errorf("expired session resumed at %s, want a fresh start", session.Stage.Name())
	}

	now = now.Add(11 * time.Minute)
	if n := store.Sweep(); n != 2 {
		t.Errorf("Sweep() = %d, want 2", n)
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}

func TestSessionStoreClose(t *testing.T) {
	store := NewSessionStore(0)
	store.Apply("s1", models.LanguageEnglish, Advance("hello"))

	if !store.Close("s1") {
		t.Error("Close(s1) = false, want true")
	}
	if store.Close("s1") {
		t.Error("second Close(s1) = true, want false")
	}
	session, _ := store.Apply("s1", models.LanguageEnglish, Advance("hello"))
	if session.Stage.Name() != models.StageAskState {
		t.Errorf("closed session resumed at %s", session.Stage.Name())
	}
}

func TestSessionStoreConcurrentSessions(t *testing.T) {
	store := NewSessionStore(time.Minute)
	script := []string{"hi", "KARNATAKA", "MYSORE", "OCT", "default"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for _, msg := range script {
				store.Apply(id, models.LanguageEnglish, Advance(msg))
			}
		}(fmt.Sprintf("session-%d", i))
	}
	wg.Wait()

	if store.Len() != 50 {
		t.Fatalf("Len() = %d, want 50", store.Len())
	}
	for i := 0; i < 50; i++ {
		session, ok := store.Get(fmt.Sprintf("session-%d", i))
		if !ok || session.Stage.Name() != models.StageProvidingRecommendation {
			t.Errorf("session-%d = %+v", i, session)
		}
	}
}

func TestSessionStoreRunStopsOnCancel(t *testing.T) {
	store := NewSessionStore(time.Millisecond)
	store.Apply("s1", models.LanguageEnglish, Advance("hello"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for store.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("sweeper never removed the expired session")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
