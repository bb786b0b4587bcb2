package journal

import (
	"time"

	"codeberg.org/mutker/hdsim/internal/errors"
)

const (
	defaultDirPerm       = 0o755
	defaultBatchSize     = 16
	defaultFlushInterval = 2 * time.Second
)

type Config struct {
	DBPath        string
	BatchSize     int
	FlushInterval time.Duration
	Enabled       bool
}

func DefaultConfig() Config {
	return Config{
		BatchSize:     defaultBatchSize,
		FlushInterval: defaultFlushInterval,
		Enabled:       false, // Disabled by default
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate storage settings if the journal is enabled
	if !c.Enabled {
		return nil
	}
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 1 {
		return errFactory.WithData(ErrInvalidConfig, c.BatchSize)
	}
	return nil
}
