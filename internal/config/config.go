package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/hdsim/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultBaseURL      = "http://localhost:5005"
	DefaultAppName      = "Application B"
	DefaultAppVersion   = "1.0.0"
	DefaultTimeout      = 10 * time.Second
	DefaultTick         = 100 * time.Millisecond
	DefaultLogLevel     = string(LogLevelInfo)
	DefaultAutoBurst    = 1
	DefaultJournalBatch = 16

	defaultEnvPrefix  = "HDSIM"
	defaultConfigName = "hdsim"
	configEnvVar      = "HDSIM_CONFIG"
)

type Config struct {
	BaseURL      string        `mapstructure:"base_url"`
	AppName      string        `mapstructure:"app_name"`
	AppVersion   string        `mapstructure:"app_version"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Tick         time.Duration `mapstructure:"tick"`
	LogLevel     string        `mapstructure:"log_level"`
	AutoRate     float64       `mapstructure:"auto_rate"`
	AutoBurst    int           `mapstructure:"auto_burst"`
	Journal      bool          `mapstructure:"journal"`
	JournalPath  string        `mapstructure:"journal_path"`
	JournalBatch int           `mapstructure:"journal_batch"`
	LockDir      string        `mapstructure:"lock_dir"`
}

// Load resolves configuration from defaults, an optional TOML file,
// HDSIM_* environment variables and command line flags, in rising order of
// precedence.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{
		args: os.Args[1:],
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	flags := newFlagSet()
	if err := flags.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	configPath := o.configPath
	if configPath == "" {
		configPath, _ = flags.GetString("config")
	}
	if configPath == "" {
		configPath = os.Getenv(configEnvVar)
	}

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(defaultEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
	if bindErr != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, bindErr)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("app_name", DefaultAppName)
	v.SetDefault("app_version", DefaultAppVersion)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("tick", DefaultTick)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("auto_rate", 0.0)
	v.SetDefault("auto_burst", DefaultAutoBurst)
	v.SetDefault("journal", false)
	v.SetDefault("journal_path", defaultJournalPath())
	v.SetDefault("journal_batch", DefaultJournalBatch)
	v.SetDefault("lock_dir", os.TempDir())
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("hdsim", pflag.ContinueOnError)

	flags.String("config", "", "Path to a TOML configuration file")
	flags.String("base-url", DefaultBaseURL, "HDS base address")
	flags.String("app-name", DefaultAppName, "Application identity reported to HDS")
	flags.String("app-version", DefaultAppVersion, "Application version reported at registration")
	flags.Duration("timeout", DefaultTimeout, "Transport timeout for one HDS request")
	flags.Duration("tick", DefaultTick, "Interval between event log refreshes")
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	flags.Float64("auto-rate", 0, "Fire random faults at this many per second (0 disables)")
	flags.Int("auto-burst", DefaultAutoBurst, "Burst allowance for automatic faults")
	flags.Bool("journal", false, "Record the event log in a SQLite journal")
	flags.String("journal-path", defaultJournalPath(), "Path to the journal database")
	flags.Int("journal-batch", DefaultJournalBatch, "Journal entries written per transaction")
	flags.String("lock-dir", os.TempDir(), "Directory for the instance lock file")

	return flags
}

func readConfigFile(v *viper.Viper, path string) error {
	errFactory := errors.New()

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(defaultConfigName)
		v.AddConfigPath("/etc")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", defaultConfigName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return errFactory.Wrap(errors.ErrReadConfig, err)
	}
	return nil
}

func defaultJournalPath() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "state")
		} else {
			dir = os.TempDir()
		}
	}
	return filepath.Join(dir, defaultConfigName, "journal.db")
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("base_url", c.BaseURL)
	}

	switch {
	case c.AppName == "":
		return invalid("app_name", c.AppName)
	case c.AppVersion == "":
		return invalid("app_version", c.AppVersion)
	case c.Timeout <= 0:
		return invalid("timeout", c.Timeout)
	case c.Tick <= 0:
		return invalid("tick", c.Tick)
	case c.AutoRate < 0:
		return invalid("auto_rate", c.AutoRate)
	case c.AutoRate > 0 && c.AutoBurst < 1:
		return invalid("auto_burst", c.AutoBurst)
	case c.Journal && c.JournalPath == "":
		return invalid("journal_path", c.JournalPath)
	case c.Journal && c.JournalBatch < 1:
		return invalid("journal_batch", c.JournalBatch)
	}

	return nil
}

func invalid(field string, value any) error {
	return errors.New().WithData(errors.ErrInvalidConfig, fmt.Sprintf("%s=%v", field, value))
}

func (c *Config) GetBaseURL() string        { return c.BaseURL }
func (c *Config) GetAppName() string        { return c.AppName }
func (c *Config) GetAppVersion() string     { return c.AppVersion }
func (c *Config) GetTimeout() time.Duration { return c.Timeout }
func (c *Config) GetTick() time.Duration    { return c.Tick }
func (c *Config) GetLogLevel() string       { return c.LogLevel }
func (c *Config) IsJournalEnabled() bool    { return c.Journal }
func (c *Config) GetJournalPath() string    { return c.JournalPath }
func (c *Config) GetJournalBatch() int      { return c.JournalBatch }
func (c *Config) GetAutoRate() float64      { return c.AutoRate }
func (c *Config) GetAutoBurst() int         { return c.AutoBurst }
func (c *Config) GetLockDir() string        { return c.LockDir }

var _ Provider = (*Config)(nil)
