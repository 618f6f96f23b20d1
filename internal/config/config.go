package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

type Config struct {
	Addr          string        `env:"ADDR" envDefault:":8080"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string        `env:"LOG_FORMAT" envDefault:"json"`
	TickRateHz    int           `env:"TICK_RATE_HZ" envDefault:"5"`
	ReapInterval  time.Duration `env:"REAP_INTERVAL" envDefault:"1m"`
	IdleTimeout   time.Duration `env:"IDLE_TIMEOUT" envDefault:"5m"`
	GameOverGrace time.Duration `env:"GAME_OVER_GRACE" envDefault:"2s"`
	CodeTTL       time.Duration `env:"CODE_TTL" envDefault:"24h"`
	InboxSize     int           `env:"INBOX_SIZE" envDefault:"64"`
	WordBankPath  string        `env:"WORD_BANK_PATH"`
	// Comma separated, passed to the websocket origin check.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every bad setting at once.
func (c Config) Validate() error {
	var err error
	if c.Addr == "" {
		err = multierr.Append(err, errors.New("ADDR must not be empty"))
	}
	if c.TickRateHz <= 0 {
		err = multierr.Append(err, fmt.Errorf("TICK_RATE_HZ must be positive, got %d", c.TickRateHz))
	}
	for name, d := range map[string]time.Duration{
		"REAP_INTERVAL":   c.ReapInterval,
		"IDLE_TIMEOUT":    c.IdleTimeout,
		"GAME_OVER_GRACE": c.GameOverGrace,
		"CODE_TTL":        c.CodeTTL,
	} {
		if d <= 0 {
			err = multierr.Append(err, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.InboxSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("INBOX_SIZE must be positive, got %d", c.InboxSize))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		err = multierr.Append(err, fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat))
	}
	return err
}

func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRateHz)
}
