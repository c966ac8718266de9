// Package config loads the runtime configuration from the environment.
package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds every tunable the engine reads at startup.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"DB_DSN" envDefault:"file:invoiceflow.db?cache=shared"`

	// TransitionPolicy selects the status transition table: "strict" is the
	// production lifecycle, "permissive" allows any move between states.
	TransitionPolicy string `env:"TRANSITION_POLICY" envDefault:"strict"`

	Batch BatchConfig `envPrefix:"BATCH_"`

	Bootstrap BootstrapConfig `envPrefix:"BOOTSTRAP_"`
}

// BatchConfig tunes the date-gated batch routines.
type BatchConfig struct {
	MonthlyGenerationDay int `env:"MONTHLY_GENERATION_DAY" envDefault:"10"`
	UnpaidReminderDay    int `env:"UNPAID_REMINDER_DAY" envDefault:"20"`
	IssuedReminderDay    int `env:"ISSUED_REMINDER_DAY" envDefault:"5"`
}

// BootstrapConfig controls first-run seeding.
type BootstrapConfig struct {
	SeedDemoData bool `env:"SEED_DEMO_DATA" envDefault:"false"`
}

// IsProduction reports whether the engine runs with production safeguards.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var Module = fx.Module("config",
	fx.Provide(Load),
)
