package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"cropadvisor/models"
)

// DefaultAdvisoryTopic is the topic pattern advisories are published to
const DefaultAdvisoryTopic = "advisory/{state}/{district}"

// EventConfig holds MQTT publisher configuration
type EventConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string // e.g. "advisory/{state}/{district}"
}

// EventPublisher announces completed advisories on an MQTT broker
type EventPublisher struct {
	client    mqtt.Client
	config    EventConfig
	published atomic.Int64
}

// NewEventPublisher connects to the broker
func NewEventPublisher(config EventConfig) (*EventPublisher, error) {
	if config.Broker == "" {
		return nil, fmt.Errorf("mqtt broker is required")
	}
	if config.ClientID == "" {
		config.ClientID = "cropadvisor"
	}
	if config.Topic == "" {
		config.Topic = DefaultAdvisoryTopic
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("Events: connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Printf("Events: connected to broker %s", config.Broker)
	return &EventPublisher{client: client, config: config}, nil
}

// Publish sends one advisory record with QoS 1
func (p *EventPublisher) Publish(ctx context.Context, rec models.AdvisoryRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal advisory: %w", err)
	}

	topic := formatAdvisoryTopic(p.config.Topic, rec.State, rec.District)
	token := p.client.Publish(topic, 1, false, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish advisory: %w", err)
	}

	p.published.Add(1)
	log.Printf("Events: published advisory for %s/%s to %s", rec.State, rec.District, topic)
	return nil
}

// Close disconnects from the broker
func (p *EventPublisher) Close() {
	p.client.Disconnect(250)
}

// GetStatus returns the status of the event publisher
func (p *EventPublisher) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"broker":    p.config.Broker,
		"topic":     p.config.Topic,
		"published": p.published.Load(),
	}
	if p.client.IsConnected() {
		status["status"] = "connected"
	} else {
		status["status"] = "disconnected"
	}
	return status
}

var topicSegmentReplacer = strings.NewReplacer(" ", "_", "/", "_", "+", "", "#", "")

// formatAdvisoryTopic fills the {state} and {district} placeholders
func formatAdvisoryTopic(pattern, state, district string) string {
	segment := func(s string) string {
		s = topicSegmentReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
		if s == "" {
			return "unknown"
		}
		return s
	}
	topic := strings.ReplaceAll(pattern, "{state}", segment(state))
	return strings.ReplaceAll(topic, "{district}", segment(district))
}
