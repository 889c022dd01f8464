package cmd

import (
	"context"
	"log"

	"cropadvisor/controllers"
	"cropadvisor/database"
	"cropadvisor/services"
	"cropadvisor/utils"
)

// app holds the services shared by the serve, predict and chat commands
type app struct {
	cfg       *utils.Config
	predictor *services.PredictorService
	weather   *services.WeatherService
	soil      *services.SoilService
	rainfall  *services.RainfallService
	pipeline  *services.AdvisoryPipeline
	history   database.HistoryStore
	events    *services.EventPublisher
	knowledge *services.KnowledgeService
	sessions  *services.SessionStore
	chatbot   *services.Chatbot
}

type appOptions struct {
	knowledge bool
	events    bool
}

// newApp builds the advisory stack. A missing classifier or weather key is
// fatal; history, events and the knowledge base degrade to disabled.
func newApp(ctx context.Context, cfg *utils.Config, opts appOptions) (*app, error) {
	a := &app{cfg: cfg}

	var err error
	if a.predictor, err = services.NewPredictorService(cfg.ModelDir); err != nil {
		return nil, err
	}
	if a.weather, err = services.NewWeatherService(cfg.WeatherAPIKey, cfg.WeatherBaseURL, cfg.WeatherTimeout); err != nil {
		return nil, err
	}
	if a.soil, err = services.NewSoilService(cfg.SoilPath); err != nil {
		return nil, err
	}
	a.rainfall = services.NewRainfallService(cfg.RainfallPath)
	a.pipeline = services.NewAdvisoryPipeline(a.soil, a.weather, a.rainfall, a.predictor)

	a.history, err = database.Open(ctx, database.Config{
		Backend:            cfg.HistoryBackend,
		SQLitePath:         cfg.SQLitePath,
		PostgresURL:        cfg.PostgresURL,
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUser:     cfg.ClickHouseUser,
		ClickHousePassword: cfg.ClickHousePassword,
	})
	if err != nil {
		log.Printf("History disabled: %v", err)
	} else if a.history != nil {
		a.pipeline.WithHistory(a.history)
	}

	if opts.events && cfg.MQTTBroker != "" {
		a.events, err = services.NewEventPublisher(services.EventConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
			Topic:    cfg.MQTTTopic,
		})
		if err != nil {
			log.Printf("Advisory events disabled: %v", err)
		} else {
			a.pipeline.WithEvents(a.events)
		}
	}

	if opts.knowledge {
		a.knowledge = newKnowledge(ctx, cfg)
	}

	a.sessions = services.NewSessionStore(cfg.SessionTTL)
	a.chatbot = services.NewChatbot(a.sessions, a.pipeline, a.knowledge)
	return a, nil
}

func newKnowledge(ctx context.Context, cfg *utils.Config) *services.KnowledgeService {
	embedder, err := services.NewEmbeddingService(cfg.EmbeddingProvider, cfg.OllamaHost, cfg.OllamaModel)
	if err != nil {
		log.Printf("Knowledge base disabled: %v", err)
		return nil
	}
	knowledge := services.NewKnowledgeService(cfg.KnowledgeDir, cfg.KnowledgeCollection, embedder)
	if err := knowledge.Initialize(); err != nil {
		log.Printf("Knowledge base disabled: %v", err)
		return nil
	}
	if err := knowledge.IndexDocuments(ctx); err != nil {
		log.Printf("Knowledge base indexing failed: %v", err)
	}
	return knowledge
}

// statusReporters lists the components shown on /health
func (a *app) statusReporters() map[string]controllers.StatusReporter {
	reporters := map[string]controllers.StatusReporter{
		"predictor": a.predictor,
		"weather":   a.weather,
		"soil":      a.soil,
		"rainfall":  a.rainfall,
	}
	if a.events != nil {
		reporters["events"] = a.events
	}
	if a.knowledge != nil {
		reporters["knowledge"] = a.knowledge
		if embedder := a.knowledge.Embedder(); embedder != nil {
			reporters["embedding"] = embedder
		}
	}
	return reporters
}

func (a *app) close() {
	a.pipeline.Wait()
	if a.events != nil {
		a.events.Close()
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			log.Printf("Failed to close history: %v", err)
		}
	}
}
