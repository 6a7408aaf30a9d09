package configs

import (
	"fmt"
	"time"

	"github.com/inkstream/collab/internal/infrastructure/env"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	HTTP        HTTPConfig        `koanf:"http"`
	Auth        AuthConfig        `koanf:"auth"`
	Database    DatabaseConfig    `koanf:"database"`
	RateLimiter RateLimiterConfig `koanf:"rateLimiter"`
	Collab      CollabConfig      `koanf:"collab"`
	Tracing     TracingConfig     `koanf:"tracing"`
}

type HTTPConfig struct {
	Host         string        `koanf:"host"`
	Port         uint16        `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type AuthConfig struct {
	Secret string `koanf:"secret"`
	Issuer string `koanf:"issuer"`
}

type DatabaseConfig struct {
	DSN string `koanf:"dsn"`
}

type RateLimiterConfig struct {
	RequestsPerTimeFrame int           `koanf:"requestsPerTimeFrame"`
	TimeFrame            time.Duration `koanf:"timeFrame"`
	Enabled              bool          `koanf:"enabled"`
}

type CollabConfig struct {
	SendBuffer     int `koanf:"send_buffer"`
	MaxMessageSize int `koanf:"max_message_size"`
}

type TracingConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
	Endpoint    string `koanf:"endpoint"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("auth.secret is required")
	}

	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	setDefault(k, "http.host", "0.0.0.0")
	setDefault(k, "http.port", 8080)
	setDefault(k, "http.read_timeout", 10*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)

	setDefault(k, "auth.issuer", "")

	setDefault(k, "database.dsn", "collab.db")

	setDefault(k, "rateLimiter.requestsPerTimeFrame", 20)
	setDefault(k, "rateLimiter.timeFrame", 5*time.Second)
	setDefault(k, "rateLimiter.enabled", true)

	setDefault(k, "collab.send_buffer", 64)
	setDefault(k, "collab.max_message_size", 32768)

	setDefault(k, "tracing.enabled", false)
	setDefault(k, "tracing.service_name", "inkstream-collab")
	setDefault(k, "tracing.endpoint", "http://localhost:4318")
}

func applyEnvOverrides(k *koanf.Koanf) {
	if host := env.GetString("HTTP_HOST", ""); host != "" {
		k.Set("http.host", host)
	}
	if port := env.GetInt("HTTP_PORT", 0); port > 0 {
		k.Set("http.port", port)
	}

	if secret := env.GetString("AUTH_SECRET", ""); secret != "" {
		k.Set("auth.secret", secret)
	}
	if issuer := env.GetString("AUTH_ISSUER", ""); issuer != "" {
		k.Set("auth.issuer", issuer)
	}

	if dsn := env.GetString("DATABASE_DSN", ""); dsn != "" {
		k.Set("database.dsn", dsn)
	}

	if maxRequests := env.GetInt("RATE_LIMIT_REQUESTS_PER_TIME_FRAME", 0); maxRequests > 0 {
		k.Set("rateLimiter.requestsPerTimeFrame", maxRequests)
	}
	if timeFrame := env.GetInt("RATE_LIMIT_TIME_FRAME_SECONDS", 0); timeFrame > 0 {
		k.Set("rateLimiter.timeFrame", time.Duration(timeFrame)*time.Second)
	}

	if endpoint := env.GetString("OTLP_ENDPOINT", ""); endpoint != "" {
		k.Set("tracing.endpoint", endpoint)
		k.Set("tracing.enabled", true)
	}
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value interface{}) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}
