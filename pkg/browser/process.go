package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/rs/zerolog/log"
)

// ProcessManager manages the Chrome process behind a session
type ProcessManager struct {
	profile   *ResolvedBrowserProfile
	launcher  *launcher.Launcher
	mu        sync.RWMutex
	isRunning bool
}

// NewProcessManager creates a new process manager for a profile
func NewProcessManager(profile *ResolvedBrowserProfile) *ProcessManager {
	return &ProcessManager{
		profile: profile,
	}
}

// Start launches Chrome (or attaches to ControlURL) and connects to it
func (pm *ProcessManager) Start(ctx context.Context) (*rod.Browser, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	controlURL := pm.profile.ControlURL
	if controlURL == "" {
		if err := pm.ensureUserDataDir(); err != nil {
			return nil, &BrowserError{
				Code:    ErrCodeConfiguration,
				Message: fmt.Sprintf("Failed to create user data directory: %v", err),
				Err:     err,
			}
		}

		l := pm.newLauncher().Context(ctx)
		url, err := l.Launch()
		if err != nil {
			return nil, &BrowserError{
				Code:    ErrCodeBrowserCrash,
				Message: fmt.Sprintf("Failed to launch Chrome: %v", err),
				Err:     err,
			}
		}
		pm.launcher = l
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		pm.killLocked()
		return nil, &BrowserError{
			Code:    ErrCodeBrowserCrash,
			Message: fmt.Sprintf("Failed to connect to CDP: %v", err),
			Err:     err,
		}
	}

	pm.isRunning = true
	log.Debug().
		Str("profile", pm.profile.Name).
		Bool("headless", pm.profile.Headless).
		Str("control_url", controlURL).
		Msg("Browser started")

	return browser, nil
}

// newLauncher builds the Chrome launcher from the profile
func (pm *ProcessManager) newLauncher() *launcher.Launcher {
	l := launcher.New().
		Headless(pm.profile.Headless).
		UserDataDir(pm.profile.UserDataDir)

	if pm.profile.NoSandbox {
		l = l.NoSandbox(true)
	}
	if pm.profile.ChromePath != "" {
		l = l.Bin(pm.profile.ChromePath)
	}
	return l
}

// Stop terminates a launched Chrome process; attached browsers are left running
func (pm *ProcessManager) Stop() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.killLocked()
}

func (pm *ProcessManager) killLocked() {
	if pm.launcher != nil {
		pm.launcher.Kill()
		pm.launcher = nil
	}
	pm.isRunning = false
}

// IsRunning checks if the browser is running
func (pm *ProcessManager) IsRunning() bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.isRunning
}

// ensureUserDataDir creates the user data directory if it doesn't exist
func (pm *ProcessManager) ensureUserDataDir() error {
	if pm.profile.UserDataDir == "" {
		pm.profile.UserDataDir = filepath.Join(os.TempDir(), "autokudos-profiles", pm.profile.Name)
	}
	return os.MkdirAll(pm.profile.UserDataDir, 0700)
}

// ResolveProfile resolves a profile configuration with computed paths
func ResolveProfile(profile BrowserProfile, baseDir string) *ResolvedBrowserProfile {
	if profile.Name == "" {
		profile.Name = "default"
	}
	resolved := &ResolvedBrowserProfile{
		BrowserProfile: profile,
	}

	switch {
	case profile.UserDataDir == "":
		resolved.UserDataDir = filepath.Join(baseDir, "profiles", profile.Name)
	case filepath.IsAbs(profile.UserDataDir):
		resolved.UserDataDir = profile.UserDataDir
	default:
		resolved.UserDataDir = filepath.Join(baseDir, profile.UserDataDir)
	}

	return resolved
}
