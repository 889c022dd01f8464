package utils

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the typed runtime configuration
type Config struct {
	Port        string
	FrontendURL string

	WeatherAPIKey  string
	WeatherBaseURL string
	WeatherTimeout time.Duration

	ModelDir     string
	RainfallPath string
	SoilPath     string

	SessionTTL    time.Duration
	SweepInterval time.Duration

	DiscordEnabled  bool
	DiscordToken    string
	DiscordPrefix   string
	DiscordLanguage string

	KnowledgeDir        string
	KnowledgeCollection string
	EmbeddingProvider   string
	OllamaHost          string
	OllamaModel         string

	HistoryBackend     string
	SQLitePath         string
	PostgresURL        string
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string

	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string
	MQTTTopic    string
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("frontend_url", "")

	v.SetDefault("weather.base_url", "https://api.openweathermap.org/data/2.5/weather")
	v.SetDefault("weather.timeout", 5*time.Second)

	v.SetDefault("model.dir", "model")
	v.SetDefault("data.rainfall", "data/rainfall_in_india_1901-2015.csv")
	v.SetDefault("data.soil", "")

	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("session.sweep_interval", time.Minute)

	v.SetDefault("discord.enabled", true)
	v.SetDefault("discord.prefix", "!crop ")
	v.SetDefault("discord.language", "en")

	v.SetDefault("knowledge.dir", "data/tips")
	v.SetDefault("knowledge.collection", "crop_tips")
	v.SetDefault("knowledge.embedding", "local")
	v.SetDefault("knowledge.ollama_model", "nomic-embed-text")

	v.SetDefault("history.backend", "sqlite")
	v.SetDefault("history.sqlite_path", "data/history.db")
	v.SetDefault("history.clickhouse_database", "default")
	v.SetDefault("history.clickhouse_user", "default")

	v.SetDefault("mqtt.client_id", "cropadvisor")
	v.SetDefault("mqtt.topic", "advisory/{state}/{district}")
}

// BindEnv maps nested keys to environment variables, so weather.api_key
// reads WEATHER_API_KEY. The names used by existing deployments are bound
// explicitly.
func BindEnv(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("port", "PORT")
	v.BindEnv("frontend_url", "FRONTEND_URL")
	v.BindEnv("weather.api_key", "OPENWEATHER_API_KEY", "WEATHER_API_KEY")
	v.BindEnv("discord.token", "DISCORD_BOT_TOKEN")
	v.BindEnv("discord.prefix", "DISCORD_COMMAND_PREFIX")
	v.BindEnv("knowledge.ollama_host", "OLLAMA_HOST")
	v.BindEnv("history.postgres_url", "DATABASE_URL", "HISTORY_POSTGRES_URL")
	v.BindEnv("mqtt.broker", "MQTT_BROKER")
}

// LoadConfig reads a Config out of v
func LoadConfig(v *viper.Viper) *Config {
	return &Config{
		Port:        v.GetString("port"),
		FrontendURL: v.GetString("frontend_url"),

		WeatherAPIKey:  v.GetString("weather.api_key"),
		WeatherBaseURL: v.GetString("weather.base_url"),
		WeatherTimeout: v.GetDuration("weather.timeout"),

		ModelDir:     v.GetString("model.dir"),
		RainfallPath: v.GetString("data.rainfall"),
		SoilPath:     v.GetString("data.soil"),

		SessionTTL:    v.GetDuration("session.ttl"),
		SweepInterval: v.GetDuration("session.sweep_interval"),

		DiscordEnabled:  v.GetBool("discord.enabled"),
		DiscordToken:    v.GetString("discord.token"),
		DiscordPrefix:   v.GetString("discord.prefix"),
		DiscordLanguage: v.GetString("discord.language"),

		KnowledgeDir:        v.GetString("knowledge.dir"),
		KnowledgeCollection: v.GetString("knowledge.collection"),
		EmbeddingProvider:   v.GetString("knowledge.embedding"),
		OllamaHost:          v.GetString("knowledge.ollama_host"),
		OllamaModel:         v.GetString("knowledge.ollama_model"),

		HistoryBackend:     v.GetString("history.backend"),
		SQLitePath:         v.GetString("history.sqlite_path"),
		PostgresURL:        v.GetString("history.postgres_url"),
		ClickHouseAddr:     v.GetString("history.clickhouse_addr"),
		ClickHouseDatabase: v.GetString("history.clickhouse_database"),
		ClickHouseUser:     v.GetString("history.clickhouse_user"),
		ClickHousePassword: v.GetString("history.clickhouse_password"),

		MQTTBroker:   v.GetString("mqtt.broker"),
		MQTTClientID: v.GetString("mqtt.client_id"),
		MQTTUsername: v.GetString("mqtt.username"),
		MQTTPassword: v.GetString("mqtt.password"),
		MQTTTopic:    v.GetString("mqtt.topic"),
	}
}

// AllowedOrigins returns the CORS origins for the web front end
func (c *Config) AllowedOrigins() []string {
	origins := []string{"http://localhost:3000", "http://localhost:8080"}
	if c.FrontendURL != "" {
		origins = append(origins, c.FrontendURL)
	}
	return origins
}
