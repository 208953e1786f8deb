package main

import (
	"fmt"
	"time"

	"poker-lab/domain"
)

type Config struct {
	Host              string        `env:"HOST,default=localhost"`
	Port              int           `env:"PORT,default=8080"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	BufferSize        int           `env:"BUFFER_SIZE,default=64"`
	GracePeriod       time.Duration `env:"GRACE_PERIOD,default=2m"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=5s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	AuthSecret        string        `env:"AUTH_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	EstimatePolicy    string        `env:"ESTIMATE_POLICY,default=mean"`
}

// Aggregator maps the configured policy onto the estimation function every
// room of this server closes questions with.
func (c Config) Aggregator() (domain.Aggregator, error) {
	switch c.EstimatePolicy {
	case "mean":
		return domain.Mean, nil
	case "median":
		return domain.Median, nil
	default:
		return nil, fmt.Errorf("ESTIMATE_POLICY must be mean or median, got %q", c.EstimatePolicy)
	}
}
