package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"cropadvisor/models"
)

// DefaultWeatherURL is the OpenWeatherMap current weather endpoint
const DefaultWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// openWeatherResponse is the subset of the OpenWeatherMap body we read
type openWeatherResponse struct {
	Main struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Message string `json:"message"`
}

// WeatherService fetches live temperature and humidity
type WeatherService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewWeatherService creates a new weather service instance. The API key is
// required; an empty baseURL selects OpenWeatherMap.
func NewWeatherService(apiKey, baseURL string, timeout time.Duration) (*WeatherService, error) {
	if apiKey == "" {
		return nil, errors.New("OPENWEATHER_API_KEY not set")
	}
	if baseURL == "" {
		baseURL = DefaultWeatherURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &WeatherService{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// FetchWeather queries the provider by "district, state", or district alone
// when state is empty. It is attempted once; any failure is returned.
func (s *WeatherService) FetchWeather(ctx context.Context, district, state string) (models.WeatherReading, error) {
	query := district
	if state != "" {
		query = fmt.Sprintf("%s, %s", district, state)
	}

	params := url.Values{}
	params.Add("q", query)
	params.Add("appid", s.apiKey)
	params.Add("units", "metric")

	requestURL := fmt.Sprintf("%s?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return models.WeatherReading{}, fmt.Errorf("failed to create weather request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "CropAdvisor/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return models.WeatherReading{}, fmt.Errorf("weather API connection error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.WeatherReading{}, fmt.Errorf("failed to read weather response: %w", err)
	}

	var owResp openWeatherResponse
	parseErr := json.Unmarshal(body, &owResp)

	if resp.StatusCode != http.StatusOK {
		message := "Unknown error"
		if parseErr == nil && owResp.Message != "" {
			message = owResp.Message
		}
		return models.WeatherReading{}, fmt.Errorf("weather API error %d for %s: %s", resp.StatusCode, district, message)
	}

	if parseErr != nil {
		return models.WeatherReading{}, fmt.Errorf("invalid response format from weather API: %w", parseErr)
	}
	if owResp.Main.Temp == nil || owResp.Main.Humidity == nil {
		return models.WeatherReading{}, errors.New("invalid response format from weather API: missing main.temp or main.humidity")
	}

	log.Printf("Weather: fetched %s", query)
	return models.WeatherReading{
		Temperature: *owResp.Main.Temp,
		Humidity:    *owResp.Main.Humidity,
	}, nil
}

// GetStatus returns the status of the weather service
func (s *WeatherService) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"status":   "enabled",
		"base_url": s.baseURL,
		"timeout":  s.httpClient.Timeout.String(),
	}

	// Mask API key for security
	if len(s.apiKey) > 8 {
		status["api_key"] = s.apiKey[:4] + "..." + s.apiKey[len(s.apiKey)-4:]
	} else {
		status["api_key"] = "***"
	}

	return status
}
