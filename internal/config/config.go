package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8081"`
	DBPath     string `env:"DB_PATH"     envDefault:"raincheck.db" validate:"required"`
	Debug      bool   `env:"DEBUG"       envDefault:"false"`

	RachioAPIKey string `env:"RACHIO_API_KEY,required" validate:"required"`

	ForecastLat float64 `env:"FORECAST_LAT" envDefault:"37.8044"   validate:"min=-90,max=90"`
	ForecastLon float64 `env:"FORECAST_LON" envDefault:"-122.2712" validate:"min=-180,max=180"`

	// Utility portal credentials; leave empty to disable the water-usage
	// feature entirely.
	UsageEmail    string `env:"EBMUD_EMAIL"`
	UsagePassword string `env:"EBMUD_PASSWORD"`
	UsageCSVURL   string `env:"EBMUD_CSV_URL" envDefault:"https://ebmud.watersmart.com/index.php/accountPreferences/download"`

	UsageRefreshCron    string `env:"USAGE_REFRESH_CRON"    envDefault:"0 6 * * *"`
	ForecastRefreshCron string `env:"FORECAST_REFRESH_CRON" envDefault:"30 * * * *"`
}

// UsageConfigured reports whether portal scraping can run at all.
func (c *Config) UsageConfigured() bool {
	return c.UsageEmail != "" && c.UsagePassword != ""
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
