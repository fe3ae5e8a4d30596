package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Validator validates configuration values for each command
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateURL validates an absolute http(s) URL
func (v *Validator) ValidateURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: %s", ErrMissingConfiguration, name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s: scheme must be http or https, got %q", name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid %s: host is empty", name)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateLogFormat validates log output format
func (v *Validator) ValidateLogFormat(format string) error {
	switch format {
	case "", "auto", "console", "json":
		return nil
	}
	return fmt.Errorf("invalid log format: %s (must be one of: auto, console, json)", format)
}

// ValidateTimeouts checks that every budget is positive
func (v *Validator) ValidateTimeouts(t TimeoutsConfig) []error {
	var errs []error
	for name, secs := range map[string]int{
		"navigation":  t.Navigation,
		"login":       t.Login,
		"table":       t.Table,
		"download":    t.Download,
		"interactive": t.Interactive,
	} {
		if secs <= 0 {
			errs = append(errs, fmt.Errorf("timeouts.%s must be > 0, got %d", name, secs))
		}
	}
	return errs
}

// ValidateTemplate checks the template path needed to assemble a report
func (v *Validator) ValidateTemplate(cfg *Config) error {
	if strings.TrimSpace(cfg.TemplatePath) == "" {
		return fmt.Errorf("%w: template path (set template_path, AUTOKUDOS_TEMPLATE_PATH or templatePath in .env)", ErrMissingConfiguration)
	}
	return nil
}

// ValidateCookies checks that cookie material exists: inline cookies or an
// existing cookie file. A configured but absent cookie file does not count.
func (v *Validator) ValidateCookies(cfg *Config) error {
	if strings.TrimSpace(cfg.Cookies) != "" {
		return nil
	}
	if strings.TrimSpace(cfg.CookieFile) == "" {
		return fmt.Errorf("%w: cookies (run `autokudos login` or set AUTOKUDOS_COOKIES)", ErrMissingConfiguration)
	}
	info, err := os.Stat(cfg.CookieFile)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: cookies (%s does not exist; run `autokudos login` or set AUTOKUDOS_COOKIES)",
				ErrMissingConfiguration, cfg.CookieFile)
		}
		return fmt.Errorf("failed to stat cookie file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: cookies (%s is a directory)", ErrMissingConfiguration, cfg.CookieFile)
	}
	return nil
}

// ValidateRun validates settings for the full download and assemble flow
func (v *Validator) ValidateRun(cfg *Config) []error {
	errs := v.ValidateConfig(cfg)
	if err := v.ValidateTemplate(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := v.ValidateCookies(cfg); err != nil {
		errs = append(errs, err)
	}
	return errs
}

// ValidateAssemble validates settings for assembling without a download
func (v *Validator) ValidateAssemble(cfg *Config) []error {
	var errs []error
	if err := v.ValidateTemplate(cfg); err != nil {
		errs = append(errs, err)
	}
	if cfg.Files.Source == "" || cfg.Files.Output == "" || cfg.Files.Artifact == "" {
		errs = append(errs, fmt.Errorf("%w: files.source, files.output and files.artifact", ErrMissingConfiguration))
	}
	return errs
}

// ValidateLogin validates settings for the interactive cookie refresh
func (v *Validator) ValidateLogin(cfg *Config) []error {
	errs := v.ValidateConfig(cfg)
	if strings.TrimSpace(cfg.CookieFile) == "" {
		errs = append(errs, fmt.Errorf("%w: cookie_file", ErrMissingConfiguration))
	}
	if strings.TrimSpace(cfg.Portal.SSOSelector) == "" {
		errs = append(errs, fmt.Errorf("%w: portal.sso_selector", ErrMissingConfiguration))
	}
	return errs
}

// ValidateConfig performs the checks shared by every browser-driven command
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errs []error

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := v.ValidateURL("portal.login_url", cfg.Portal.LoginURL); err != nil {
		errs = append(errs, err)
	}
	if err := v.ValidateURL("portal.bookings_url", cfg.Portal.BookingsURL); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, v.ValidateTimeouts(cfg.Timeouts)...)

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if err := v.ValidateLogFormat(cfg.Logging.Format); err != nil {
		errs = append(errs, err)
	}

	return errs
}
