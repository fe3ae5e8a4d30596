// Package credentials loads, persists and refreshes the portal cookie set.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/harun/autokudos/pkg/browser"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNoCookies is returned when no cookie material is available
	ErrNoCookies = errors.New("no cookies available")

	// ErrInvalidCookies is returned when cookie material is not a JSON array of cookies
	ErrInvalidCookies = errors.New("invalid cookie JSON")
)

// CookieSet is the ordered cookie list for the portal, handled as a unit
type CookieSet []browser.Cookie

// ParseCookieSet decodes a JSON array of cookies
func ParseCookieSet(data []byte) (CookieSet, error) {
	var set CookieSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCookies, err)
	}
	if set == nil {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrInvalidCookies)
	}
	return set, nil
}

// Store persists a CookieSet as a JSON array file
type Store struct {
	path string
	lock *flock.Flock
}

// NewStore creates a store backed by path
func NewStore(path string) *Store {
	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the cookie file path
func (s *Store) Path() string {
	return s.path
}

// Load reads the cookie file. A missing file yields ErrNoCookies.
func (s *Store) Load() (CookieSet, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create cookie directory: %w", err)
	}
	if err := s.lock.RLock(); err != nil {
		return nil, fmt.Errorf("failed to lock cookie file: %w", err)
	}
	defer s.lock.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrNoCookies, s.path)
		}
		return nil, fmt.Errorf("failed to read cookie file: %w", err)
	}

	set, err := ParseCookieSet(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrNoCookies, s.path)
	}
	return set, nil
}

// Save replaces the cookie file with set
func (s *Store) Save(set CookieSet) error {
	if set == nil {
		set = CookieSet{}
	}
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create cookie directory: %w", err)
	}

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock cookie file: %w", err)
	}
	defer s.lock.Unlock()

	// Write to temporary file first
	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	log.Debug().
		Str("path", s.path).
		Int("cookieCount", len(set)).
		Msg("Cookies saved")

	return nil
}
