package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port string `env:"PORT" envDefault:"3000"`

	// whatsmeow device store (postgres://... or sqlite://path)
	DatabaseURL string `env:"DATABASE_URL" envDefault:"sqlite://./data/whatsapp.db"`
	// session -> device bindings; empty means same as DatabaseURL
	AppDatabaseURL string `env:"APP_DATABASE_URL"`
	DeviceOSName   string `env:"DEVICE_OS_NAME" envDefault:"WA CRM Bridge"`

	SessionFile    string        `env:"SESSION_FILE" envDefault:"./session.json"`
	ReconnectDelay time.Duration `env:"RECONNECT_DELAY" envDefault:"3s"`
	PhrasesFile    string        `env:"PHRASES_FILE"`

	CRMURL           string        `env:"CRM_URL" envDefault:"https://aresgtcrm.xyz/api/v2/api.php"`
	CRMTimeout       time.Duration `env:"CRM_TIMEOUT" envDefault:"5s"`
	CRMWebhookSecret string        `env:"CRM_WEBHOOK_SECRET"`
	CRMChannel       string        `env:"CRM_CHANNEL" envDefault:"WHATSAPP"`

	QRImageFormat string `env:"QR_IMAGE_FORMAT" envDefault:"png"`
	QRImageSize   int    `env:"QR_IMAGE_SIZE" envDefault:"256"`

	CORSAllowOrigins []string `env:"CORS_ALLOW_ORIGINS" envDefault:"*" envSeparator:","`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// Load reads the process environment. Callers load .env beforehand.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.AppDatabaseURL == "" {
		cfg.AppDatabaseURL = cfg.DatabaseURL
	}
	for i, o := range cfg.CORSAllowOrigins {
		cfg.CORSAllowOrigins[i] = strings.TrimSpace(o)
	}

	cfg.QRImageFormat = strings.ToLower(strings.TrimSpace(cfg.QRImageFormat))
	switch cfg.QRImageFormat {
	case "png", "webp":
	default:
		return nil, fmt.Errorf("QR_IMAGE_FORMAT must be png or webp, got %q", cfg.QRImageFormat)
	}
	if cfg.QRImageSize <= 0 {
		cfg.QRImageSize = 256
	}
	if cfg.ReconnectDelay <= 0 {
		return nil, fmt.Errorf("RECONNECT_DELAY must be positive")
	}

	return &cfg, nil
}
