package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"cropadvisor/database"
	"cropadvisor/models"
	"cropadvisor/services"
)

type stubAdvisor struct {
	err  error
	last models.PredictRequest
}

func (s *stubAdvisor) Run(ctx context.Context, req models.PredictRequest) (*models.PredictResponse, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.PredictResponse{
		BaseResponse:   models.BaseResponse{Status: models.StatusSuccess},
		TopPredictions: models.PredictionResult{{Crop: "cotton", Confidence: 55.5}},
		RiskLevel:      models.RiskLow,
		Language:       models.Language(req.Language),
	}, nil
}

type stubDistricts map[string][]string

func (s stubDistricts) Districts(state string) []string { return s[state] }

func newTestServer(advisor *stubAdvisor, history database.HistoryStore) *mux.Router {
	chatbot := services.NewChatbot(services.NewSessionStore(time.Minute), advisor, nil)
	c := NewController(Dependencies{
		Advisor:   advisor,
		Chatbot:   chatbot,
		Districts: stubDistricts{"MAHARASHTRA": {"NASHIK", "PUNE"}},
		History:   history,
	})
	r := mux.NewRouter()
	c.RegisterRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp
}

func TestPredictHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		err        error
		wantStatus int
		wantDetail string
	}{
		{
			name:       "success",
			body:       map[string]interface{}{"state": "MAHARASHTRA", "district": "PUNE", "month": "JUN"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "malformed json",
			body:       "{not json",
			wantStatus: http.StatusBadRequest,
			wantDetail: "Invalid JSON format",
		},
		{
			name:       "validation",
			body:       map[string]interface{}{"state": "MAHARASHTRA"},
			err:        &services.AdvisoryError{Kind: services.ErrValidation, Reason: "State, district, and month are mandatory"},
			wantStatus: http.StatusBadRequest,
			wantDetail: "State, district, and month are mandatory",
		},
		{
			name:       "upstream",
			body:       map[string]interface{}{"state": "MAHARASHTRA", "district": "PUNE", "month": "JUN"},
			err:        &services.AdvisoryError{Kind: services.ErrUpstream, Reason: "Weather data unavailable", Err: errors.New("401")},
			wantStatus: http.StatusInternalServerError,
			wantDetail: "Weather data unavailable",
		},
		{
			name:       "unexpected",
			body:       map[string]interface{}{"state": "MAHARASHTRA", "district": "PUNE", "month": "JUN"},
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantDetail: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&stubAdvisor{err: tt.err}, nil)
			rec := do(t, srv, http.MethodPost, "/predict/", tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantDetail == "" {
				var resp models.PredictResponse
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatal(err)
				}
				if len(resp.TopPredictions) != 1 || resp.TopPredictions[0].Crop != "cotton" {
					t.Errorf("TopPredictions = %+v", resp.TopPredictions)
				}
				return
			}
			errResp := decodeError(t, rec)
			if errResp.Detail != tt.wantDetail || errResp.Error != tt.wantDetail || errResp.Status != models.StatusError {
				t.Errorf("error body = %+v, want detail %q", errResp, tt.wantDetail)
			}
		})
	}
}

func TestPredictHandlerUsesAcceptLanguage(t *testing.T) {
	advisor := &stubAdvisor{}
	srv := newTestServer(advisor, nil)

	req := httptest.NewRequest(http.MethodPost, "/predict/", bytes.NewBufferString(`{"state":"KARNATAKA","district":"MYSORE","month":"OCT"}`))
	req.Header.Set("Accept-Language", "mr-IN,mr;q=0.9")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if advisor.last.Language != "mr-IN,mr;q=0.9" {
		t.Errorf("advisor language = %q", advisor.last.Language)
	}
}

func TestChatHandlerConversation(t *testing.T) {
	srv := newTestServer(&stubAdvisor{}, nil)

	rec := do(t, srv, http.MethodPost, "/chatbot/", models.ChatRequest{Message: "hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var first models.ChatResponse
	if err := json.NewDecoder(rec.Body).Decode(&first); err != nil {
		t.Fatal(err)
	}
	if first.SessionID == "" || first.Stage != models.StageAskState {
		t.Fatalf("first reply = %+v", first)
	}

	var last models.ChatResponse
	for _, msg := range []string{"MAHA", "PUNE", "JUN", "no"} {
		rec := do(t, srv, http.MethodPost, "/chatbot/", models.ChatRequest{
			BaseRequest: models.BaseRequest{SessionID: first.SessionID},
			Message:     msg,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("message %q status = %d", msg, rec.Code)
		}
		last = models.ChatResponse{}
		if err := json.NewDecoder(rec.Body).Decode(&last); err != nil {
			t.Fatal(err)
		}
	}
	if last.CropRecommendation == nil || last.CropRecommendation.Crop != "cotton" {
		t.Errorf("CropRecommendation = %+v", last.CropRecommendation)
	}

	rec = do(t, srv, http.MethodDelete, "/chatbot/"+first.SessionID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("DELETE status = %d", rec.Code)
	}
	rec = do(t, srv, http.MethodDelete, "/chatbot/"+first.SessionID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second DELETE status = %d, want 404", rec.Code)
	}
}

func chatTurns(t *testing.T, srv http.Handler, session string, messages ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rec *httptest.ResponseRecorder
	for _, msg := range messages {
		rec = do(t, srv, http.MethodPost, "/chatbot/", models.ChatRequest{
			BaseRequest: models.BaseRequest{SessionID: session},
			Message:     msg,
		})
		if rec.Code != http.StatusOK {
			return rec
		}
	}
	return rec
}

func TestChatHandlerAdvisorFailure(t *testing.T) {
	fieldErr := &models.ValidationError{Field: "ph", Value: "15", Message: "ph must be between 0 and 14, got 15"}
	advisor := &stubAdvisor{err: &services.AdvisoryError{Kind: services.ErrValidation, Reason: "Soil values are out of valid range", Err: fieldErr}}
	srv := newTestServer(advisor, nil)

	rec := chatTurns(t, srv, "web-1", "hi", "PUNJAB", "LUDHIANA", "APR", "yes", "90", "40", "30", "6.5")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("final status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
	errResp := decodeError(t, rec)
	if errResp.Error != "Soil values are out of valid range" {
		t.Errorf("error = %q", errResp.Error)
	}
	if errResp.Detail != "ph must be between 0 and 14, got 15" {
		t.Errorf("detail = %q", errResp.Detail)
	}
	if errResp.SessionID != "web-1" {
		t.Errorf("session_id = %q, want web-1", errResp.SessionID)
	}

	// the failed conversation starts over
	var resp models.ChatResponse
	rec = chatTurns(t, srv, "web-1", "hello")
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Stage != models.StageAskState {
		t.Errorf("stage after validation failure = %s, want ASK_STATE", resp.Stage)
	}
}

func TestChatHandlerRetriesAfterUpstreamFailure(t *testing.T) {
	advisor := &stubAdvisor{err: &services.AdvisoryError{Kind: services.ErrUpstream, Reason: "Weather data unavailable", Err: errors.New("timeout")}}
	srv := newTestServer(advisor, nil)

	rec := chatTurns(t, srv, "", "hi")
	var first models.ChatResponse
	if err := json.NewDecoder(rec.Body).Decode(&first); err != nil {
		t.Fatal(err)
	}

	rec = chatTurns(t, srv, first.SessionID, "MAHA", "PUNE", "JUN", "no")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if errResp := decodeError(t, rec); errResp.SessionID != first.SessionID || errResp.Detail != "Weather data unavailable" {
		t.Errorf("error body = %+v", errResp)
	}

	advisor.err = nil
	rec = chatTurns(t, srv, first.SessionID, "try again")
	var resp models.ChatResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.CropRecommendation == nil || resp.CropRecommendation.Crop != "cotton" {
		t.Errorf("retry CropRecommendation = %+v", resp.CropRecommendation)
	}
	if advisor.last.State != "MAHARASHTRA" || advisor.last.District != "PUNE" {
		t.Errorf("retry request = %+v", advisor.last)
	}
}

func TestPredictHandlerValidationDetail(t *testing.T) {
	fieldErr := &models.ValidationError{Field: "nitrogen", Value: "500", Message: "nitrogen must be between 0 and 140, got 500"}
	srv := newTestServer(&stubAdvisor{err: &services.AdvisoryError{Kind: services.ErrValidation, Reason: "Soil values are out of valid range", Err: fieldErr}}, nil)

	rec := do(t, srv, http.MethodPost, "/predict/", map[string]interface{}{
		"state": "MAHARASHTRA", "district": "PUNE", "month": "JUN", "nitrogen": 500,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	errResp := decodeError(t, rec)
	if errResp.Error != "Soil values are out of valid range" || errResp.Detail != fieldErr.Message {
		t.Errorf("error body = %+v", errResp)
	}
	if errResp.SessionID != "" {
		t.Errorf("predict error carries session_id %q", errResp.SessionID)
	}
}

func TestUtilityEndpoints(t *testing.T) {
	srv := newTestServer(&stubAdvisor{}, nil)

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/", http.StatusOK},
		{"/health", http.StatusOK},
		{"/states/", http.StatusOK},
		{"/months/", http.StatusOK},
		{"/districts/maharashtra", http.StatusOK},
		{"/districts/ATLANTIS", http.StatusNotFound},
		{"/tips?q=rice", http.StatusServiceUnavailable},
		{"/history", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		rec := do(t, srv, http.MethodGet, tt.path, nil)
		if rec.Code != tt.wantStatus {
			t.Errorf("GET %s status = %d, want %d", tt.path, rec.Code, tt.wantStatus)
		}
	}

	rec := do(t, srv, http.MethodGet, "/districts/maharashtra", nil)
	var districts models.DistrictsResponse
	if err := json.NewDecoder(rec.Body).Decode(&districts); err != nil {
		t.Fatal(err)
	}
	if districts.State != "MAHARASHTRA" || len(districts.Districts) != 2 {
		t.Errorf("districts = %+v", districts)
	}

	rec = do(t, srv, http.MethodGet, "/months/", nil)
	var months models.MonthsResponse
	if err := json.NewDecoder(rec.Body).Decode(&months); err != nil {
		t.Fatal(err)
	}
	if len(months.Months) != 12 || months.Months[0] != "JAN" {
		t.Errorf("months = %v", months.Months)
	}
}

func TestHistoryHandler(t *testing.T) {
	store := database.NewMemoryStore(10)
	for _, d := range []string{"PUNE", "NASHIK", "SATARA"} {
		store.Record(context.Background(), models.AdvisoryRecord{State: "MAHARASHTRA", District: d, TopCrop: "rice"})
	}
	srv := newTestServer(&stubAdvisor{}, store)

	rec := do(t, srv, http.MethodGet, "/history?limit=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp models.HistoryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Backend != database.BackendMemory || len(resp.Records) != 2 || resp.Records[0].District != "SATARA" {
		t.Errorf("history = %+v", resp)
	}

	if rec := do(t, srv, http.MethodGet, "/history?limit=abc", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

type stubReporter map[string]interface{}

func (s stubReporter) GetStatus() map[string]interface{} { return s }

func TestHealthHandlerReportsComponents(t *testing.T) {
	advisor := &stubAdvisor{}
	c := NewController(Dependencies{
		Advisor:   advisor,
		Chatbot:   services.NewChatbot(services.NewSessionStore(time.Minute), advisor, nil),
		Districts: stubDistricts{},
		Status: map[string]StatusReporter{
			"knowledge": stubReporter{"status": "active"},
			"embedding": stubReporter{"provider": "local"},
		},
	})
	r := mux.NewRouter()
	c.RegisterRoutes(r)

	rec := do(t, r, http.MethodGet, "/health", nil)
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&raw); err != nil {
		t.Fatal(err)
	}
	health := make(map[string]map[string]interface{})
	for _, name := range []string{"knowledge", "embedding", "chatbot"} {
		var component map[string]interface{}
		if err := json.Unmarshal(raw[name], &component); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		health[name] = component
	}
	if health["knowledge"]["status"] != "active" || health["embedding"]["provider"] != "local" {
		t.Errorf("health = %v", health)
	}
	if _, ok := health["chatbot"]["initialized"]; ok {
		t.Error("chatbot status still reports initialized")
	}
}
