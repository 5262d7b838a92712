package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/ibeckermayer/postlens/internal/browser"
)

const (
	loginURL     = "https://x.com/login"
	loginTimeout = 5 * time.Minute
)

// Manager handles the interactive x.com login
type Manager struct {
	store  *CookieStore
	logger *zap.Logger
}

// NewManager creates a new auth manager
func NewManager(store *CookieStore, logger *zap.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

// IsAuthenticated checks if we have valid stored credentials
func (m *Manager) IsAuthenticated() bool {
	return m.store.IsValid()
}

// Login opens a visible browser window and waits for the user to sign in,
// then stores the session cookies
func (m *Manager) Login(ctx context.Context) error {
	opts := browser.Options(false, chromedp.Flag("start-maximized", true))

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	if err := chromedp.Run(browserCtx, chromedp.Navigate(loginURL)); err != nil {
		return fmt.Errorf("failed to navigate to login page: %w", err)
	}
	m.logger.Info("waiting for x.com login", zap.Duration("timeout", loginTimeout))

	if err := m.waitForLogin(browserCtx); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	cookies, err := extractCookies(browserCtx)
	if err != nil {
		return fmt.Errorf("failed to extract cookies: %w", err)
	}
	if err := m.store.Save(cookies); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}

	m.logger.Info("x.com session stored", zap.String("path", m.store.Path()), zap.Int("cookies", len(cookies)))
	return nil
}

// waitForLogin polls until the browser reaches the home timeline holding
// every session cookie the scraper needs
func (m *Manager) waitForLogin(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("no login within %s", loginTimeout)
			}
			return ctx.Err()
		case <-ticker.C:
		}

		var location string
		if err := chromedp.Run(ctx, chromedp.Location(&location)); err != nil || !onHomeTimeline(location) {
			continue
		}
		cookies, err := extractCookies(ctx)
		if err != nil {
			m.logger.Debug("cookie read failed", zap.Error(err))
			continue
		}
		if hasSession(cookies) {
			return nil
		}
	}
}

// onHomeTimeline reports whether location is the post-login landing page
func onHomeTimeline(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	return (host == "x.com" || host == "twitter.com") && strings.TrimSuffix(u.Path, "/") == "/home"
}

// hasSession reports whether every required cookie is present and non-empty
func hasSession(cookies []*network.Cookie) bool {
	seen := make(map[string]bool, len(requiredCookies))
	for _, c := range cookies {
		if isRequired(c.Name) && c.Value != "" {
			seen[c.Name] = true
		}
	}
	return len(seen) == len(requiredCookies)
}

func extractCookies(ctx context.Context) ([]*network.Cookie, error) {
	var cookies []*network.Cookie
	err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = storage.GetCookies().Do(ctx)
			return err
		}),
	)
	return cookies, err
}

// Logout clears stored credentials
func (m *Manager) Logout() error {
	if err := m.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	m.logger.Info("x.com session cleared", zap.String("path", m.store.Path()))
	return nil
}
