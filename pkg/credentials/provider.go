package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harun/autokudos/pkg/browser"
	"github.com/rs/zerolog/log"
)

// Provider supplies portal cookies, either from storage or by an interactive login
type Provider interface {
	Load(ctx context.Context) (CookieSet, error)
	InteractiveRefresh(ctx context.Context) (CookieSet, error)
}

// LoginDriver is the browser surface needed by the interactive login
type LoginDriver interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	Click(ctx context.Context, selector string, timeout time.Duration) error
	WaitURL(ctx context.Context, url string, timeout time.Duration) error
	Cookies(ctx context.Context) ([]browser.Cookie, error)
	Close() error
}

// DriverFactory opens a browser for the interactive login
type DriverFactory func(ctx context.Context) (LoginDriver, error)

// LoginFlow describes the single-sign-on round trip
type LoginFlow struct {
	LoginURL    string
	SSOSelector string
	// StepTimeout bounds page loads and the SSO link lookup
	StepTimeout time.Duration
	// UserTimeout bounds the time the user has to complete the SSO login
	UserTimeout time.Duration
}

// Manager loads cookies from the cookie file, falling back to inline JSON
// from configuration, and refreshes them through a headed browser login.
type Manager struct {
	inline string
	store  *Store
	open   DriverFactory
	flow   LoginFlow
}

// NewManager creates a credential manager
func NewManager(inline string, store *Store, open DriverFactory, flow LoginFlow) *Manager {
	return &Manager{
		inline: inline,
		store:  store,
		open:   open,
		flow:   flow,
	}
}

// Load returns the stored cookie set, or the inline one when no file exists
func (m *Manager) Load(ctx context.Context) (CookieSet, error) {
	if m.store != nil {
		set, err := m.store.Load()
		if err == nil {
			log.Debug().Str("source", m.store.Path()).Int("cookies", len(set)).Msg("Loaded cookies")
			return set, nil
		}
		if !errors.Is(err, ErrNoCookies) {
			return nil, err
		}
	}

	if m.inline == "" {
		return nil, ErrNoCookies
	}

	set, err := ParseCookieSet([]byte(m.inline))
	if err != nil {
		return nil, fmt.Errorf("configured cookies: %w", err)
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("%w: configured cookie list is empty", ErrNoCookies)
	}
	log.Debug().Str("source", "config").Int("cookies", len(set)).Msg("Loaded cookies")
	return set, nil
}

// InteractiveRefresh opens the login page, lets the user complete the SSO
// login, and persists the resulting cookies.
func (m *Manager) InteractiveRefresh(ctx context.Context) (CookieSet, error) {
	if m.open == nil {
		return nil, errors.New("interactive login is not available")
	}

	driver, err := m.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open browser: %w", err)
	}
	defer driver.Close()

	if err := driver.Navigate(ctx, m.flow.LoginURL, m.flow.StepTimeout); err != nil {
		return nil, fmt.Errorf("failed to open login page: %w", err)
	}
	if err := driver.Click(ctx, m.flow.SSOSelector, m.flow.StepTimeout); err != nil {
		return nil, fmt.Errorf("failed to start single sign-on: %w", err)
	}

	log.Info().
		Dur("timeout", m.flow.UserTimeout).
		Msg("Complete the login in the browser window")

	if err := driver.WaitURL(ctx, m.flow.LoginURL, m.flow.UserTimeout); err != nil {
		return nil, fmt.Errorf("login was not completed: %w", err)
	}

	cookies, err := driver.Cookies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("%w: browser returned no cookies after login", ErrNoCookies)
	}

	set := CookieSet(cookies)
	if m.store != nil {
		if err := m.store.Save(set); err != nil {
			return nil, err
		}
		log.Info().Str("path", m.store.Path()).Int("cookies", len(set)).Msg("Saved login cookies")
	}
	return set, nil
}
