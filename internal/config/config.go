package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the environment configuration shared by both binaries.
type Config struct {
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	APIAddr string `env:"API_ADDR" envDefault:":8080"`
	DBPath  string `env:"DB_PATH" envDefault:"jobs.db"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// WorkerEnabled runs an embedded worker inside the API process, for
	// single-binary deployments.
	WorkerEnabled    bool `env:"WORKER_ENABLED" envDefault:"false"`
	PollIntervalMs   int  `env:"WORKER_POLL_INTERVAL_MS" envDefault:"2000"`
	StaleAfterMin    int  `env:"STALE_RECLAIM_MINUTES" envDefault:"10"`
	ReclaimEverySec  int  `env:"RECLAIM_INTERVAL_SEC" envDefault:"60"`
	TranscodeStepMs  int  `env:"TRANSCODE_STEP_MS" envDefault:"500"`

	EnqueuePerSecond float64 `env:"ENQUEUE_RATE_PER_SEC" envDefault:"25"`
	EnqueueBurst     int     `env:"ENQUEUE_BURST" envDefault:"50"`

	CleanupSchedule      string `env:"CLEANUP_SCHEDULE" envDefault:"0 3 * * *"`
	CleanupRetentionDays int    `env:"CLEANUP_RETENTION_DAYS" envDefault:"30"`
}

// Load parses the environment.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// PollInterval returns the worker tick period.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// StaleThreshold returns the processing-age cutoff for the reclaim sweep.
func (c Config) StaleThreshold() time.Duration {
	return time.Duration(c.StaleAfterMin) * time.Minute
}

// ReclaimInterval returns how often the reclaim sweep runs.
func (c Config) ReclaimInterval() time.Duration {
	return time.Duration(c.ReclaimEverySec) * time.Second
}

// TranscodeStepDelay returns the simulated per-stage transcode cost.
func (c Config) TranscodeStepDelay() time.Duration {
	return time.Duration(c.TranscodeStepMs) * time.Millisecond
}
