package config

import "time"

// Provider defines the interface for accessing configuration values.
// All configuration values are immutable after loading.
type Provider interface {
	// GetBaseURL returns the HDS base address
	GetBaseURL() string

	// GetAppName returns the application identity reported to HDS
	GetAppName() string

	// GetAppVersion returns the version reported at registration
	GetAppVersion() string

	// GetTimeout returns the transport timeout for one HDS request
	GetTimeout() time.Duration

	// GetTick returns the foreground drain interval
	GetTick() time.Duration

	// GetLogLevel returns the configured logging level
	GetLogLevel() string

	// IsJournalEnabled returns whether drained outcomes are journaled
	IsJournalEnabled() bool

	// GetJournalPath returns the path to the journal database
	GetJournalPath() string

	// GetJournalBatch returns how many entries one journal transaction holds
	GetJournalBatch() int

	// GetAutoRate returns the automatic fault rate per second, 0 when off
	GetAutoRate() float64

	// GetAutoBurst returns the burst allowance for automatic faults
	GetAutoBurst() int

	// GetLockDir returns the directory holding the instance lock file
	GetLockDir() string
}

// Option defines a configuration option that can be passed to Load
type Option func(*options) error

// options holds internal configuration options
type options struct {
	configPath string
	args       []string
}

// WithConfigFile specifies an explicit configuration file path
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configPath = path
		return nil
	}
}

// WithArgs specifies the command line arguments to parse, without the
// program name. Default is os.Args[1:].
func WithArgs(args []string) Option {
	return func(o *options) error {
		o.args = args
		return nil
	}
}

// LogLevel represents valid logging levels
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// IsValid returns whether the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		return true
	default:
		return false
	}
}

// String implements the Stringer interface
func (l LogLevel) String() string {
	return string(l)
}
