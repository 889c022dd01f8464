package services

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"cropadvisor/models"
)

// TopPredictions is how many crops a pipeline run returns
const TopPredictions = 3

// AfterRunTimeout bounds recording and publishing of one advisory
const AfterRunTimeout = 5 * time.Second

// SoilSource resolves default soil values for a district
type SoilSource interface {
	DefaultSoil(district string) models.Resolved[models.SoilSample]
}

// WeatherSource fetches live weather
type WeatherSource interface {
	FetchWeather(ctx context.Context, district, state string) (models.WeatherReading, error)
}

// RainfallSource resolves normal rainfall for a district and month
type RainfallSource interface {
	Rainfall(state, district, month string) models.Resolved[float64]
}

// CropPredictor ranks crops for a complete set of conditions
type CropPredictor interface {
	Predict(soil models.SoilSample, weather models.WeatherReading, rainfall float64, topN int) (models.PredictionResult, error)
}

// AdvisoryRecorder stores completed advisories
type AdvisoryRecorder interface {
	Record(ctx context.Context, rec models.AdvisoryRecord) error
}

// AdvisoryNotifier announces completed advisories
type AdvisoryNotifier interface {
	Publish(ctx context.Context, rec models.AdvisoryRecord) error
}

// AdvisoryPipeline runs one prediction request end to end
type AdvisoryPipeline struct {
	soil      SoilSource
	weather   WeatherSource
	rainfall  RainfallSource
	predictor CropPredictor
	composer  *AdvisoryComposer
	recorder  AdvisoryRecorder
	notifier  AdvisoryNotifier
	now       func() time.Time
	pending   sync.WaitGroup
}

// NewAdvisoryPipeline creates a pipeline over its data sources and predictor
func NewAdvisoryPipeline(soil SoilSource, weather WeatherSource, rainfall RainfallSource, predictor CropPredictor) *AdvisoryPipeline {
	return &AdvisoryPipeline{
		soil:      soil,
		weather:   weather,
		rainfall:  rainfall,
		predictor: predictor,
		composer:  NewAdvisoryComposer(),
		now:       time.Now,
	}
}

// WithHistory records every successful advisory. Recording failures are logged only.
func (p *AdvisoryPipeline) WithHistory(r AdvisoryRecorder) *AdvisoryPipeline {
	p.recorder = r
	return p
}

// WithEvents publishes every successful advisory. Publish failures are logged only.
func (p *AdvisoryPipeline) WithEvents(n AdvisoryNotifier) *AdvisoryPipeline {
	p.notifier = n
	return p
}

// Run validates the request, resolves soil, weather and rainfall, ranks
// crops, assesses risk and composes the advisory. Every failure is an
// *AdvisoryError and no partial result is returned with it.
func (p *AdvisoryPipeline) Run(ctx context.Context, req models.PredictRequest) (*models.PredictResponse, error) {
	req.State = normalizeInput(req.State)
	req.District = normalizeInput(req.District)
	req.Month = normalizeInput(req.Month)

	if req.State == "" || req.District == "" || req.Month == "" {
		return nil, validationError("State, district, and month are mandatory", nil)
	}
	if !models.IsValidMonth(req.Month) {
		return nil, validationError("Month must be in format: JAN, FEB, MAR, ... DEC", nil)
	}

	partial := req.PartialSoil
	if req.AutoValues() && partial.Missing() {
		defaults := p.soil.DefaultSoil(req.District)
		partial = partial.FillFrom(defaults.Value)
	}
	soil, err := partial.Complete()
	if err != nil {
		return nil, validationError("Soil values are incomplete", err)
	}
	if err := soil.Validate(); err != nil {
		return nil, validationError("Soil values are out of valid range", err)
	}

	weather, err := p.weather.FetchWeather(ctx, req.District, req.State)
	if err != nil {
		return nil, &AdvisoryError{Kind: ErrUpstream, Reason: "Weather data unavailable", Err: err}
	}
	rainfall := p.rainfall.Rainfall(req.State, req.District, req.Month)

	predictions, err := p.predictor.Predict(soil, weather, rainfall.Value, TopPredictions)
	if err != nil {
		return nil, &AdvisoryError{Kind: ErrInference, Reason: "Prediction failed", Err: err}
	}
	if len(predictions) == 0 {
		return nil, &AdvisoryError{Kind: ErrInference, Reason: "Prediction failed", Err: errors.New("classifier returned no crops")}
	}
	for i := range predictions {
		predictions[i].Confidence = math.Round(predictions[i].Confidence*100) / 100
	}

	risk := AssessRisk(rainfall.Value, weather.Temperature, weather.Humidity)
	lang := MatchLanguage(req.Language)

	resp := &models.PredictResponse{
		BaseResponse: models.BaseResponse{
			Status:    models.StatusSuccess,
			Timestamp: p.now(),
		},
		TopPredictions:   predictions,
		RiskLevel:        risk.Level,
		RiskFactors:      risk.Factors,
		Rainfall:         rainfall.Value,
		RainfallDegraded: rainfall.Degraded,
		Temperature:      weather.Temperature,
		Humidity:         weather.Humidity,
		AdvisoryMessage:  p.composer.Compose(predictions[0].Crop, req.District, req.Month, risk.Level, lang),
		SoilValuesUsed:   soil,
		Season:           models.SeasonName(req.Month, lang),
		Language:         lang,
	}

	log.Printf("Pipeline: %s/%s %s -> %s (%.2f%%, %s)", req.State, req.District, req.Month,
		predictions[0].Crop, predictions[0].Confidence, strings.ToLower(string(risk.Level)))

	p.afterRun(ctx, models.NewAdvisoryRecord(req, resp))
	return resp, nil
}

// Wait blocks until every advisory handed to history and events has been
// processed.
func (p *AdvisoryPipeline) Wait() {
	p.pending.Wait()
}

// afterRun records and publishes in the background. The request context only
// contributes its values; cancellation is replaced by AfterRunTimeout.
func (p *AdvisoryPipeline) afterRun(ctx context.Context, rec models.AdvisoryRecord) {
	if p.recorder == nil && p.notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), AfterRunTimeout)
	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		defer cancel()
		p.deliver(ctx, rec)
	}()
}

func (p *AdvisoryPipeline) deliver(ctx context.Context, rec models.AdvisoryRecord) {
	if p.recorder != nil {
		if err := p.recorder.Record(ctx, rec); err != nil {
			log.Printf("Pipeline: failed to record advisory: %v", err)
		}
	}
	if p.notifier != nil {
		if err := p.notifier.Publish(ctx, rec); err != nil {
			log.Printf("Pipeline: failed to publish advisory: %v", err)
		}
	}
}
