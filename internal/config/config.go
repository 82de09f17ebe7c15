package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/DoyleJ11/floorclash/internal/engine"
)

type Config struct {
	Addr        string `env:"ADDR" envDefault:":8080"`
	HostURL     string `env:"HOST_URL" envDefault:"ws://localhost:8080/ws"`
	Session     string `env:"SESSION"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogDev      bool   `env:"LOG_DEV" envDefault:"false"`
	DatabaseDSN string `env:"DATABASE_DSN"`

	TickRate      int           `env:"TICK_RATE" envDefault:"60"`
	Seed          uint64        `env:"SEED" envDefault:"0"`
	Countdown     time.Duration `env:"COUNTDOWN" envDefault:"3s"`
	MatchDuration time.Duration `env:"MATCH_DURATION" envDefault:"30s"`
	WallInterval  time.Duration `env:"WALL_INTERVAL" envDefault:"2s"`
	WallProximity float64       `env:"WALL_PROXIMITY" envDefault:"1"`
	PeerRate      float64       `env:"PEER_RATE" envDefault:"120"`
}

const prefix = "FLOORCLASH_"

// Load reads an optional .env file from the working directory and then the
// process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse(env.Options{Prefix: prefix})
}

// Parse is Load without the .env step. Tests pass Environment directly.
func Parse(opts env.Options) (Config, error) {
	if opts.Prefix == "" {
		opts.Prefix = prefix
	}
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("tick rate must be positive, got %d", c.TickRate))
	}
	if c.Countdown <= 0 {
		errs = append(errs, fmt.Errorf("countdown must be positive, got %s", c.Countdown))
	}
	if c.MatchDuration <= 0 {
		errs = append(errs, fmt.Errorf("match duration must be positive, got %s", c.MatchDuration))
	}
	if c.WallInterval <= 0 {
		errs = append(errs, fmt.Errorf("wall interval must be positive, got %s", c.WallInterval))
	}
	if c.WallProximity < 0 {
		errs = append(errs, fmt.Errorf("wall proximity must not be negative, got %g", c.WallProximity))
	}
	if c.PeerRate <= 0 {
		errs = append(errs, fmt.Errorf("peer rate must be positive, got %g", c.PeerRate))
	}
	return errors.Join(errs...)
}

func (c Config) Rules() engine.Rules {
	r := engine.DefaultRules()
	r.CountdownSeconds = c.Countdown.Seconds()
	r.MatchSeconds = c.MatchDuration.Seconds()
	r.WallToggleSeconds = c.WallInterval.Seconds()
	r.WallProximity = c.WallProximity
	return r
}
