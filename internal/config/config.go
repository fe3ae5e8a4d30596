package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMissingConfiguration is returned when a required setting is absent
var ErrMissingConfiguration = errors.New("missing configuration")

// Config represents the main autokudos configuration
type Config struct {
	// Path of the LaTeX formatting template spliced into the report
	TemplatePath string `json:"template_path" mapstructure:"template_path"`

	// Inline cookie JSON, used when the cookie file is absent
	Cookies string `json:"cookies" mapstructure:"cookies"`

	// Cookie file written by the interactive login
	CookieFile string `json:"cookie_file" mapstructure:"cookie_file"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	Portal   PortalConfig   `json:"portal" mapstructure:"portal"`
	Timeouts TimeoutsConfig `json:"timeouts" mapstructure:"timeouts"`
	Browser  BrowserConfig  `json:"browser" mapstructure:"browser"`
	Security SecurityConfig `json:"security" mapstructure:"security"`
	Files    FilesConfig    `json:"files" mapstructure:"files"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
	Metrics  MetricsConfig  `json:"metrics" mapstructure:"metrics"`
}

// PortalConfig holds portal locations and page selectors
type PortalConfig struct {
	LoginURL           string `json:"login_url" mapstructure:"login_url"`
	BookingsURL        string `json:"bookings_url" mapstructure:"bookings_url"`
	SSOSelector        string `json:"sso_selector" mapstructure:"sso_selector"`
	TableReadySelector string `json:"table_ready_selector" mapstructure:"table_ready_selector"`
	// TableSelector narrows the HTML handed to row extraction; empty reads the whole page
	TableSelector      string `json:"table_selector" mapstructure:"table_selector"`
	RowSelector        string `json:"row_selector" mapstructure:"row_selector"`
	SubjectColumn      int    `json:"subject_column" mapstructure:"subject_column"` // 1-based
	LinksColumn        int    `json:"links_column" mapstructure:"links_column"`     // 1-based
}

// TimeoutsConfig holds per-step wait budgets in seconds
type TimeoutsConfig struct {
	Navigation  int `json:"navigation" mapstructure:"navigation"`
	Login       int `json:"login" mapstructure:"login"`
	Table       int `json:"table" mapstructure:"table"`
	Download    int `json:"download" mapstructure:"download"`
	Interactive int `json:"interactive" mapstructure:"interactive"`
}

// BrowserConfig holds Chromium launch settings
type BrowserConfig struct {
	Headless    bool   `json:"headless" mapstructure:"headless"`
	NoSandbox   bool   `json:"no_sandbox" mapstructure:"no_sandbox"`
	ChromePath  string `json:"chrome_path" mapstructure:"chrome_path"`
	ControlURL  string `json:"control_url" mapstructure:"control_url"`
	UserDataDir string `json:"user_data_dir" mapstructure:"user_data_dir"`
}

// SecurityConfig restricts which hosts the browser may visit
type SecurityConfig struct {
	AllowedDomains []string `json:"allowed_domains" mapstructure:"allowed_domains"`
}

// FilesConfig names the files inside a session directory
type FilesConfig struct {
	Artifact string `json:"artifact" mapstructure:"artifact"`
	Source   string `json:"source" mapstructure:"source"`
	Output   string `json:"output" mapstructure:"output"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `json:"format" mapstructure:"format"` // auto, console, json
	File   string `json:"file" mapstructure:"file"`
}

// MetricsConfig controls the Prometheus textfile written after each run
type MetricsConfig struct {
	Textfile string `json:"textfile" mapstructure:"textfile"` // empty disables
}

// DefaultConfig returns a configuration pointing at the Kudos portal
func DefaultConfig() *Config {
	return &Config{
		Portal: PortalConfig{
			LoginURL:           "https://kudos.chu.cam.ac.uk/login",
			BookingsURL:        "https://kudos.chu.cam.ac.uk/supervisions/booking",
			SSOSelector:        `a[alt="Login using the Raven web authentication system"][title="Login using the Raven web authentication system"]`,
			TableReadySelector: "thead.table-dark",
			TableSelector:      "",
			RowSelector:        "table tbody tr",
			SubjectColumn:      1,
			LinksColumn:        5,
		},
		Timeouts: TimeoutsConfig{
			Navigation:  30,
			Login:       10,
			Table:       10,
			Download:    30,
			Interactive: 900,
		},
		Browser: BrowserConfig{
			Headless: true,
		},
		Security: SecurityConfig{
			AllowedDomains: []string{"kudos.chu.cam.ac.uk", "*.cam.ac.uk"},
		},
		Files: FilesConfig{
			Artifact: "infofile.tex",
			Source:   "supo.tex",
			Output:   "modifiedSupo.tex",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Seconds converts a configured budget to a duration
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// String returns a JSON representation of the config with secrets masked
func (c *Config) String() string {
	clone := *c
	if clone.Cookies != "" {
		clone.Cookies = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(&clone, "", "  ")
	return string(data)
}

// Validate checks settings every command depends on
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Portal.LoginURL) == "" {
		return fmt.Errorf("%w: portal.login_url", ErrMissingConfiguration)
	}
	if strings.TrimSpace(c.Portal.BookingsURL) == "" {
		return fmt.Errorf("%w: portal.bookings_url", ErrMissingConfiguration)
	}
	if c.Portal.SubjectColumn < 1 || c.Portal.LinksColumn < 1 {
		return fmt.Errorf("portal columns are 1-based, got subject=%d links=%d",
			c.Portal.SubjectColumn, c.Portal.LinksColumn)
	}
	if c.Files.Artifact == "" || c.Files.Source == "" || c.Files.Output == "" {
		return fmt.Errorf("%w: files.artifact, files.source and files.output are required", ErrMissingConfiguration)
	}
	return nil
}
