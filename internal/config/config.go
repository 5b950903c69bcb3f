package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Review modes. Watch mode blocks a propose call on the review directory
// until the human saves; manual mode returns pending_review and waits for a
// resolve_review call.
const (
	ReviewModeWatch  = "watch"
	ReviewModeManual = "manual"
)

// Config holds all configurable values for the server.
type Config struct {
	// WorkingDirectory is the root all target paths are resolved under.
	WorkingDirectory string `mapstructure:"working_directory"`
	// Transport selects "http" or "stdio".
	Transport string `mapstructure:"transport"`
	// Port is the HTTP listen port.
	Port int `mapstructure:"port"`
	// MaxFileSizeMB bounds both read targets and staged content.
	MaxFileSizeMB int `mapstructure:"max_file_size_mb"`
	// MaxAnchorLength is the anchor size guard; bypassable per request.
	MaxAnchorLength int `mapstructure:"max_anchor_length"`
	// MaxSuggestions bounds the ranked candidate list in match errors.
	MaxSuggestions int `mapstructure:"max_suggestions"`
	// LockTimeoutSec bounds the wait for the commit-time file lock.
	LockTimeoutSec int `mapstructure:"lock_timeout_sec"`
	// ReviewMode is "watch" or "manual".
	ReviewMode string `mapstructure:"review_mode"`
	// ReviewRoot is where per-session review directories are created.
	// Empty means the system temp directory.
	ReviewRoot string `mapstructure:"review_root"`
	// Verbose enables debug logging.
	Verbose bool `mapstructure:"verbose"`
}

// Load reads configuration from an optional file, the environment
// (FRS_ prefix), and defaults, in ascending precedence below explicit flags.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// An explicit default makes viper track the key, so FRS_WORKING_DIRECTORY
	// is picked up by AutomaticEnv like every other key.
	v.SetDefault("working_directory", "")
	v.SetDefault("transport", "http")
	v.SetDefault("port", 8080)
	v.SetDefault("max_file_size_mb", 10)
	v.SetDefault("max_anchor_length", 2000)
	v.SetDefault("max_suggestions", 5)
	v.SetDefault("lock_timeout_sec", 10)
	v.SetDefault("review_mode", ReviewModeManual)
	v.SetDefault("review_root", "")
	v.SetDefault("verbose", false)

	v.SetEnvPrefix("FRS")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("file-review-server")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if c.WorkingDirectory == "" {
		return fmt.Errorf("working directory is required")
	}

	abs, err := filepath.Abs(c.WorkingDirectory)
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("working directory does not exist: %s", abs)
		}
		return fmt.Errorf("error accessing working directory: %v", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("working directory is not a directory: %s", abs)
	}
	c.WorkingDirectory = abs

	if c.Transport != "http" && c.Transport != "stdio" {
		return fmt.Errorf("transport must be 'http' or 'stdio'")
	}
	if c.Port < 1024 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1024 and 65535")
	}
	if c.MaxFileSizeMB < 1 || c.MaxFileSizeMB > 100 {
		return fmt.Errorf("max file size must be between 1 and 100 MB")
	}
	if c.MaxAnchorLength < 1 {
		return fmt.Errorf("max anchor length must be positive")
	}
	if c.MaxSuggestions < 1 || c.MaxSuggestions > 20 {
		return fmt.Errorf("max suggestions must be between 1 and 20")
	}
	if c.LockTimeoutSec < 1 || c.LockTimeoutSec > 300 {
		return fmt.Errorf("lock timeout must be between 1 and 300 seconds")
	}
	if c.ReviewMode != ReviewModeWatch && c.ReviewMode != ReviewModeManual {
		return fmt.Errorf("review mode must be 'watch' or 'manual'")
	}
	return nil
}
