// Package auth keeps the x.com browser session used by the web platform backend.
package auth

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/ibeckermayer/postlens/internal/config"
)

// ErrNoSession is returned when no usable session has been captured
var ErrNoSession = errors.New("no stored x.com session")

var requiredCookies = []string{"auth_token", "ct0"}

// CookieStore persists x.com session cookies on disk
type CookieStore struct {
	path string
	now  func() time.Time
}

// Session is the persisted cookie data
type Session struct {
	Cookies    []*network.Cookie `json:"cookies"`
	CapturedAt time.Time         `json:"captured_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// NewCookieStore creates a cookie store at the given path
func NewCookieStore(path string) *CookieStore {
	return &CookieStore{path: path, now: time.Now}
}

// DefaultCookieStorePath returns the default path for cookie storage
func DefaultCookieStorePath() (string, error) {
	configDir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "cookies.json"), nil
}

// Path returns the backing file
func (cs *CookieStore) Path() string {
	return cs.path
}

// Save persists cookies; the session expires with the earliest auth cookie
func (cs *CookieStore) Save(cookies []*network.Cookie) error {
	if err := os.MkdirAll(filepath.Dir(cs.path), 0700); err != nil {
		return err
	}

	var earliest time.Time
	for _, c := range cookies {
		if !isRequired(c.Name) {
			continue
		}
		exp := time.Unix(int64(c.Expires), 0)
		if earliest.IsZero() || exp.Before(earliest) {
			earliest = exp
		}
	}

	data, err := json.MarshalIndent(Session{
		Cookies:    cookies,
		CapturedAt: cs.now(),
		ExpiresAt:  earliest,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(cs.path, data, 0600)
}

// Load reads the stored session
func (cs *CookieStore) Load() (*Session, error) {
	data, err := os.ReadFile(cs.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// IsValid reports whether a stored session exists, has not expired and
// carries the auth cookies
func (cs *CookieStore) IsValid() bool {
	s, err := cs.Load()
	if err != nil {
		return false
	}
	if cs.now().After(s.ExpiresAt) {
		return false
	}

	seen := map[string]bool{}
	for _, c := range s.Cookies {
		if c.Value != "" {
			seen[c.Name] = true
		}
	}
	for _, name := range requiredCookies {
		if !seen[name] {
			return false
		}
	}
	return true
}

// Clear removes stored cookies. Clearing an absent session is not an error.
func (cs *CookieStore) Clear() error {
	if err := os.Remove(cs.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// GetCookies returns the x.com cookies of a valid session
func (cs *CookieStore) GetCookies() ([]*network.Cookie, error) {
	if !cs.IsValid() {
		return nil, ErrNoSession
	}
	s, err := cs.Load()
	if err != nil {
		return nil, err
	}

	var xCookies []*network.Cookie
	for _, c := range s.Cookies {
		if c.Domain == ".x.com" || c.Domain == "x.com" {
			xCookies = append(xCookies, c)
		}
	}
	return xCookies, nil
}

func isRequired(name string) bool {
	for _, r := range requiredCookies {
		if r == name {
			return true
		}
	}
	return false
}
