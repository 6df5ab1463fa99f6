package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds application configuration
type Config struct {
	Server     Server     `envPrefix:"SERVER_"`
	Database   Database   `envPrefix:"DB_"`
	Session    Session    `envPrefix:"SESSION_"`
	Onboarding Onboarding `envPrefix:"ONBOARDING_"`
	Gemini     Gemini     `envPrefix:"GEMINI_"`
	TTS        TTS        `envPrefix:"TTS_"`
	Storage    Storage    `envPrefix:"STORAGE_"`
	Queue      Queue      `envPrefix:"QUEUE_"`
	Email      Email      `envPrefix:"EMAIL_"`
	Log        Log        `envPrefix:"LOG_"`
}

// Server contains HTTP server parameters
type Server struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RateLimit       int           `env:"RATE_LIMIT" envDefault:"120"`
}

// Database selects the SQL backend
type Database struct {
	Type string `env:"TYPE" envDefault:"sqlite"`
	Path string `env:"PATH" envDefault:"./fourall.db"`
	URL  string `env:"URL"`
}

// DefaultSessionSecret is the signing key used when SESSION_SECRET is unset.
// Keep in sync with the envDefault tag on Session.Secret.
const DefaultSessionSecret = "devsecret"

// ErrDefaultSessionSecret is returned when a shared database is paired with the default signing key
var ErrDefaultSessionSecret = errors.New("SESSION_SECRET must be set when DB_TYPE is not sqlite")

// Session contains session token parameters
type Session struct {
	Secret string        `env:"SECRET" envDefault:"devsecret"`
	TTL    time.Duration `env:"TTL" envDefault:"720h"`
}

// Onboarding contains progress retention parameters
type Onboarding struct {
	ProgressTTL   time.Duration `env:"PROGRESS_TTL" envDefault:"168h"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
}

// Gemini contains the generative AI collaborator parameters.
// An empty API key disables the collaborator.
type Gemini struct {
	APIKey  string        `env:"API_KEY"`
	Model   string        `env:"MODEL" envDefault:"gemini-2.0-flash"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"8s"`
}

// TTS contains speech synthesis parameters
type TTS struct {
	Endpoint string        `env:"ENDPOINT" envDefault:"https://translate.google.com/translate_tts"`
	AudioDir string        `env:"AUDIO_DIR" envDefault:"./audio"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// Storage selects where synthesized audio is cached
type Storage struct {
	Backend string `env:"BACKEND" envDefault:"local"`
	Minio   Minio  `envPrefix:"MINIO_"`
}

// Minio contains object storage parameters
type Minio struct {
	Endpoint  string `env:"ENDPOINT" envDefault:"localhost:9000"`
	AccessKey string `env:"ACCESS_KEY" envDefault:"fourall-access-key"`
	SecretKey string `env:"SECRET_KEY" envDefault:"fourall-secret-key"`
	Bucket    string `env:"BUCKET_NAME" envDefault:"fourall-audio"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
}

// Queue contains offline action queue parameters
type Queue struct {
	MaxRetries    int           `env:"MAX_RETRIES" envDefault:"3"`
	FlushInterval time.Duration `env:"FLUSH_INTERVAL" envDefault:"30s"`
	Sink          string        `env:"SINK" envDefault:"http"`
	BackendURL    string        `env:"BACKEND_URL" envDefault:"http://localhost:5000"`
	NATSURL       string        `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	NATSSubject   string        `env:"NATS_SUBJECT" envDefault:"fourall.actions"`
	EventBuffer   int           `env:"EVENT_BUFFER" envDefault:"500"`
}

// Email contains completion notice parameters.
// An empty from address disables sending.
type Email struct {
	Region    string `env:"AWS_REGION" envDefault:"us-east-1"`
	FromEmail string `env:"FROM"`
	FromName  string `env:"FROM_NAME" envDefault:"4All"`
	BaseURL   string `env:"BASE_URL" envDefault:"http://localhost:3000"`
}

// Log contains logger parameters
type Log struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// CheckSessionSecret reports whether the default signing key is in use.
// The default is only tolerated on a local sqlite database.
func (c *Config) CheckSessionSecret() (usesDefault bool, err error) {
	if c.Session.Secret != DefaultSessionSecret {
		return false, nil
	}
	if c.Database.Type != "sqlite" {
		return true, ErrDefaultSessionSecret
	}
	return true, nil
}

// DSN returns the connection string for the configured database type
func (d Database) DSN() string {
	if d.Type == "sqlite" || d.URL == "" {
		return d.Path
	}
	return d.URL
}
