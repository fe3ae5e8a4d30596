package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// BrowserProfile represents a browser launch configuration
type BrowserProfile struct {
	Name        string `json:"name" mapstructure:"name"`
	Headless    bool   `json:"headless" mapstructure:"headless"`
	NoSandbox   bool   `json:"no_sandbox" mapstructure:"no_sandbox"`
	UserDataDir string `json:"user_data_dir,omitempty" mapstructure:"user_data_dir"`
	ChromePath  string `json:"chrome_path,omitempty" mapstructure:"chrome_path"`
	// ControlURL attaches to an already running browser instead of launching one
	ControlURL string `json:"control_url,omitempty" mapstructure:"control_url"`
}

// ResolvedBrowserProfile represents a profile with computed paths
type ResolvedBrowserProfile struct {
	BrowserProfile
	UserDataDir string `json:"userDataDir"` // Computed absolute path
}

// Cookie is one browser cookie in the JSON shape written by Playwright's
// context.cookies(); Expires is seconds since epoch, -1 for session cookies.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// ExpiresAt returns the expiry time, or the zero time for session cookies
func (c Cookie) ExpiresAt() time.Time {
	if c.Expires <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(c.Expires), 0)
}

// Error types
type BrowserError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

func (e *BrowserError) Error() string {
	return e.Message
}

func (e *BrowserError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNavigation      = "NAVIGATION_ERROR"
	ErrCodeTimeout         = "TIMEOUT_ERROR"
	ErrCodeElementNotFound = "ELEMENT_NOT_FOUND"
	ErrCodeScriptExecution = "SCRIPT_EXECUTION_ERROR"
	ErrCodeSecurity        = "SECURITY_ERROR"
	ErrCodeBrowserCrash    = "BROWSER_CRASH"
	ErrCodeConfiguration   = "CONFIGURATION_ERROR"
	ErrCodeDownload        = "DOWNLOAD_ERROR"
)

// IsTimeout reports whether err is a browser wait that ran out of time
func IsTimeout(err error) bool {
	var be *BrowserError
	if errors.As(err, &be) && be.Code == ErrCodeTimeout {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// HasCode reports whether err is a BrowserError with the given code
func HasCode(err error, code string) bool {
	var be *BrowserError
	return errors.As(err, &be) && be.Code == code
}

// classify wraps a rod error, mapping context deadlines to ErrCodeTimeout
func classify(code string, err error, format string, args ...interface{}) error {
	if errors.Is(err, context.DeadlineExceeded) {
		code = ErrCodeTimeout
	}
	return &BrowserError{
		Code:    code,
		Message: fmt.Sprintf(format, args...) + ": " + err.Error(),
		Err:     err,
	}
}
