package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"https", "https://kudos.chu.cam.ac.uk/login", false},
		{"http", "http://localhost:8080/login", false},
		{"empty", "", true},
		{"relative", "/login", true},
		{"file scheme", "file:///etc/passwd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateURL("portal.login_url", tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.ErrorIs(t, v.ValidateURL("portal.login_url", ""), ErrMissingConfiguration)
}

func TestValidateLogLevel(t *testing.T) {
	v := NewValidator()
	for _, level := range []string{"debug", "info", "warn", "error"} {
		assert.NoError(t, v.ValidateLogLevel(level))
	}
	assert.Error(t, v.ValidateLogLevel("trace"))
	assert.Error(t, v.ValidateLogLevel(""))
}

func TestValidateLogFormat(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateLogFormat(""))
	assert.NoError(t, v.ValidateLogFormat("json"))
	assert.Error(t, v.ValidateLogFormat("xml"))
}

func TestValidateTimeouts(t *testing.T) {
	v := NewValidator()
	assert.Empty(t, v.ValidateTimeouts(DefaultConfig().Timeouts))

	errs := v.ValidateTimeouts(TimeoutsConfig{Navigation: 1, Login: 0, Table: -1, Download: 1, Interactive: 1})
	assert.Len(t, errs, 2)
}

func TestValidateRun(t *testing.T) {
	v := NewValidator()

	t.Run("missing template and cookies", func(t *testing.T) {
		cfg := DefaultConfig()
		errs := v.ValidateRun(cfg)
		assert.Len(t, errs, 2)
		for _, err := range errs {
			assert.ErrorIs(t, err, ErrMissingConfiguration)
		}
	})

	t.Run("existing cookie file counts as cookie source", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.TemplatePath = "/tmpl/template.tex"
		cfg.CookieFile = filepath.Join(t.TempDir(), "cookies.json")
		require.NoError(t, os.WriteFile(cfg.CookieFile, []byte("[]"), 0600))
		assert.Empty(t, v.ValidateRun(cfg))
	})

	t.Run("configured cookie file that does not exist", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.TemplatePath = "/tmpl/template.tex"
		cfg.CookieFile = filepath.Join(t.TempDir(), "cookies.json")

		errs := v.ValidateRun(cfg)
		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], ErrMissingConfiguration)
		assert.Contains(t, errs[0].Error(), cfg.CookieFile)
	})

	t.Run("cookie file path is a directory", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.TemplatePath = "/tmpl/template.tex"
		cfg.CookieFile = t.TempDir()
		assert.ErrorIs(t, v.ValidateCookies(cfg), ErrMissingConfiguration)
	})

	t.Run("inline cookies", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.TemplatePath = "/tmpl/template.tex"
		cfg.Cookies = "[]"
		assert.Empty(t, v.ValidateRun(cfg))
	})

	t.Run("bad portal url", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.TemplatePath = "/tmpl/template.tex"
		cfg.Cookies = "[]"
		cfg.Portal.BookingsURL = "ftp://kudos"
		assert.Len(t, v.ValidateRun(cfg), 1)
	})
}

func TestValidateAssemble(t *testing.T) {
	v := NewValidator()

	cfg := DefaultConfig()
	assert.Len(t, v.ValidateAssemble(cfg), 1)

	cfg.TemplatePath = "/tmpl/template.tex"
	assert.Empty(t, v.ValidateAssemble(cfg))

	// the portal is not consulted when assembling
	cfg.Portal.LoginURL = ""
	assert.Empty(t, v.ValidateAssemble(cfg))
}

func TestValidateLogin(t *testing.T) {
	v := NewValidator()

	cfg := DefaultConfig()
	cfg.CookieFile = "/tmp/cookies.json"
	assert.Empty(t, v.ValidateLogin(cfg))

	cfg.CookieFile = ""
	cfg.Portal.SSOSelector = ""
	assert.Len(t, v.ValidateLogin(cfg), 2)
}
