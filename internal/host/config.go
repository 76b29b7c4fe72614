package host

import "time"

// Config defines host-side request reliability defaults.
type Config struct {
	RequestTimeout time.Duration
	MaxAttempts    int
	Backoff        BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		RequestTimeout: 2 * time.Second,
		MaxAttempts:    3,
		Backoff: BackoffConfig{
			InitialDelay: 1 * time.Second,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       false,
		},
	}
}

// WithDefaults fills zero values from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff = def.Backoff
	}
	return c
}
