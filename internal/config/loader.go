package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const (
	appDirName     = ".autokudos"
	configFileName = "autokudos.json"
	envPrefix      = "AUTOKUDOS"
)

// legacyEnvKeys maps the camelCase keys of older .env files to config keys
var legacyEnvKeys = map[string]string{
	"templatePath": "template_path",
	"cookies":      "cookies",
}

// Loader handles configuration loading.
//
// Precedence, highest first: AUTOKUDOS_* environment variables (and the
// legacy templatePath/cookies variables), the JSON config file, the .env
// file, built-in defaults.
type Loader struct {
	configPath string
	envFile    string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		envFile:    ".env",
	}
}

// WithEnvFile sets the dotenv file read for legacy keys; empty disables it
func (l *Loader) WithEnvFile(path string) *Loader {
	l.envFile = path
	return l
}

// Load loads the configuration from file and environment
func (l *Loader) Load() (*Config, error) {
	configPath := l.GetConfigPath()
	if configPath == "" {
		return nil, fmt.Errorf("failed to get home directory")
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	// Legacy names are bound after the prefixed ones so the latter win
	if err := v.BindEnv("template_path", envPrefix+"_TEMPLATE_PATH", "templatePath"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}
	if err := v.BindEnv("cookies", envPrefix+"_COOKIES", "cookies"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}
	for _, key := range []string{"cookie_file", "data_dir", "logging.level", "logging.format", "browser.headless", "browser.chrome_path", "metrics.textfile"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env: %w", err)
		}
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := l.applyEnvFile(v); err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Set data directory if not specified
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, appDirName)
	}

	if cfg.CookieFile == "" {
		cfg.CookieFile = filepath.Join(cfg.DataDir, "cookies.json")
	}
	if cfg.Browser.UserDataDir == "" {
		cfg.Browser.UserDataDir = filepath.Join(cfg.DataDir, "profiles", "default")
	}

	return cfg, nil
}

// applyEnvFile registers legacy .env values as defaults below the config file
func (l *Loader) applyEnvFile(v *viper.Viper) error {
	if l.envFile == "" {
		return nil
	}
	if _, err := os.Stat(l.envFile); os.IsNotExist(err) {
		return nil
	}

	env, err := gotenv.Read(l.envFile)
	if err != nil {
		return fmt.Errorf("failed to read env file %s: %w", l.envFile, err)
	}

	for legacy, key := range legacyEnvKeys {
		if value, ok := env[legacy]; ok && value != "" {
			v.SetDefault(key, value)
		}
	}
	return nil
}

// Save saves the configuration to file
func (l *Loader) Save(cfg *Config) error {
	configPath := l.GetConfigPath()
	if configPath == "" {
		return fmt.Errorf("failed to get home directory")
	}

	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	// Inline cookies stay out of the file; the cookie file holds them
	v.Set("template_path", cfg.TemplatePath)
	v.Set("cookie_file", cfg.CookieFile)
	v.Set("data_dir", cfg.DataDir)
	v.Set("portal", cfg.Portal)
	v.Set("timeouts", cfg.Timeouts)
	v.Set("browser", cfg.Browser)
	v.Set("security", cfg.Security)
	v.Set("files", cfg.Files)
	v.Set("logging", cfg.Logging)
	v.Set("metrics", cfg.Metrics)

	if err := v.WriteConfig(); err != nil {
		// If file doesn't exist, create it
		if os.IsNotExist(err) {
			if err := v.SafeWriteConfig(); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}
		} else {
			return fmt.Errorf("failed to write config file: %w", err)
		}
	}

	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, appDirName, configFileName)
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	loader := NewLoader(configPath)
	return loader.Load()
}
