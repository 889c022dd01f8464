package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadConfigDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg := LoadConfig(v)

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.WeatherTimeout != 5*time.Second {
		t.Errorf("WeatherTimeout = %v, want 5s", cfg.WeatherTimeout)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v, want 30m", cfg.SessionTTL)
	}
	if cfg.HistoryBackend != "sqlite" || cfg.SQLitePath != "data/history.db" {
		t.Errorf("history = %q %q", cfg.HistoryBackend, cfg.SQLitePath)
	}
	if cfg.MQTTTopic != "advisory/{state}/{district}" {
		t.Errorf("MQTTTopic = %q", cfg.MQTTTopic)
	}
	if got := len(cfg.AllowedOrigins()); got != 2 {
		t.Errorf("len(AllowedOrigins()) = %d, want 2", got)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("OPENWEATHER_API_KEY", "abc123")
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_TTL", "10m")
	t.Setenv("HISTORY_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/crops")
	t.Setenv("FRONTEND_URL", "https://crops.example.org")

	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	cfg := LoadConfig(v)

	if cfg.WeatherAPIKey != "abc123" {
		t.Errorf("WeatherAPIKey = %q", cfg.WeatherAPIKey)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.SessionTTL != 10*time.Minute {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.HistoryBackend != "postgres" || cfg.PostgresURL != "postgres://localhost/crops" {
		t.Errorf("history = %q %q", cfg.HistoryBackend, cfg.PostgresURL)
	}
	origins := cfg.AllowedOrigins()
	if origins[len(origins)-1] != "https://crops.example.org" {
		t.Errorf("AllowedOrigins() = %v", origins)
	}
}

func TestLoadEnvKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "CROPADVISOR_TEST_NEW=from-file\nCROPADVISOR_TEST_SET=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CROPADVISOR_TEST_SET", "from-env")
	t.Cleanup(func() { os.Unsetenv("CROPADVISOR_TEST_NEW") })

	if err := LoadEnv(path); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if got := os.Getenv("CROPADVISOR_TEST_NEW"); got != "from-file" {
		t.Errorf("CROPADVISOR_TEST_NEW = %q", got)
	}
	if got := os.Getenv("CROPADVISOR_TEST_SET"); got != "from-env" {
		t.Errorf("CROPADVISOR_TEST_SET = %q, want existing value kept", got)
	}

	if err := LoadEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("LoadEnv(missing) error = %v", err)
	}
}
