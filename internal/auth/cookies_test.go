package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, now time.Time) *CookieStore {
	t.Helper()
	cs := NewCookieStore(filepath.Join(t.TempDir(), "nested", "cookies.json"))
	cs.now = func() time.Time { return now }
	return cs
}

func sessionCookies(expiry time.Time) []*network.Cookie {
	return []*network.Cookie{
		{Name: "auth_token", Value: "a", Domain: ".x.com", Expires: float64(expiry.Unix())},
		{Name: "ct0", Value: "c", Domain: ".x.com", Expires: float64(expiry.Add(time.Hour).Unix())},
		{Name: "guest_id", Value: "g", Domain: ".twitter.com"},
	}
}

func TestSaveAndGetCookies(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cs := newTestStore(t, now)
	expiry := now.Add(24 * time.Hour)

	require.NoError(t, cs.Save(sessionCookies(expiry)))

	info, err := os.Stat(cs.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	s, err := cs.Load()
	require.NoError(t, err)
	assert.True(t, s.ExpiresAt.Equal(expiry), "earliest auth cookie wins")
	assert.True(t, s.CapturedAt.Equal(now))

	assert.True(t, cs.IsValid())
	cookies, err := cs.GetCookies()
	require.NoError(t, err)
	require.Len(t, cookies, 2)
	assert.Equal(t, "auth_token", cookies[0].Name)
}

func TestExpiredSession(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cs := newTestStore(t, now)
	require.NoError(t, cs.Save(sessionCookies(now.Add(-time.Minute))))

	assert.False(t, cs.IsValid())
	_, err := cs.GetCookies()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestMissingRequiredCookie(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cs := newTestStore(t, now)
	require.NoError(t, cs.Save([]*network.Cookie{
		{Name: "auth_token", Value: "a", Domain: ".x.com", Expires: float64(now.Add(time.Hour).Unix())},
	}))
	assert.False(t, cs.IsValid())
}

func TestNoSessionAndClear(t *testing.T) {
	cs := newTestStore(t, time.Now())

	_, err := cs.Load()
	assert.ErrorIs(t, err, ErrNoSession)
	assert.NoError(t, cs.Clear(), "clearing an absent session")

	require.NoError(t, cs.Save(sessionCookies(time.Now().Add(time.Hour))))
	require.NoError(t, cs.Clear())
	_, err = cs.Load()
	assert.ErrorIs(t, err, ErrNoSession)
}
