package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memorySessions is an in-memory SessionBackend for tests.
type memorySessions struct {
	mu      sync.Mutex
	users   map[string]int64
	flashes map[string][]string
}

func newMemorySessions() *memorySessions {
	return &memorySessions{users: map[string]int64{}, flashes: map[string][]string{}}
}

func (m *memorySessions) SetUser(_ context.Context, sid string, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[sid] = userID
	return nil
}

func (m *memorySessions) User(_ context.Context, sid string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.users[sid]
	return id, ok, nil
}

func (m *memorySessions) ClearUser(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, sid)
	return nil
}

func (m *memorySessions) AddFlash(_ context.Context, sid, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flashes[sid] = append(m.flashes[sid], message)
	return nil
}

func (m *memorySessions) PopFlashes(_ context.Context, sid string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	flashes := m.flashes[sid]
	delete(m.flashes, sid)
	return flashes, nil
}

func requestWithCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Request {
	t.Helper()
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func TestSessionManager_LoginRoundTrip(t *testing.T) {
	m := NewSessionManager(newMemorySessions(), "test-secret")
	ctx := context.Background()

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	require.NoError(t, m.Login(ctx, rec, r, 42))

	r2 := requestWithCookie(t, rec)
	id, ok, err := m.UserID(ctx, r2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
}

func TestSessionManager_FreshBrowserLoginThenFlash(t *testing.T) {
	// Login and Flash on a cookie-less request must share one session:
	// the single surviving cookie carries both the user and the notice.
	m := NewSessionManager(newMemorySessions(), "test-secret")
	ctx := context.Background()

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	require.NoError(t, m.Login(ctx, rec, r, 42))
	require.NoError(t, m.Flash(ctx, rec, r, "You were logged in"))

	var sessionCookies []*http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			sessionCookies = append(sessionCookies, c)
		}
	}
	require.Len(t, sessionCookies, 1, "exactly one session cookie must be set")

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.AddCookie(sessionCookies[0])
	id, ok, err := m.UserID(ctx, r2)
	require.NoError(t, err)
	assert.True(t, ok, "the surviving session must hold the user")
	assert.Equal(t, int64(42), id)
	assert.Equal(t, []string{"You were logged in"}, m.TakeFlashes(ctx, r2))
}

func TestSessionManager_NoCookieIsAnonymous(t *testing.T) {
	m := NewSessionManager(newMemorySessions(), "test-secret")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok, err := m.UserID(context.Background(), r)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionManager_TamperedCookieIsAnonymous(t *testing.T) {
	backend := newMemorySessions()
	m := NewSessionManager(backend, "test-secret")
	ctx := context.Background()

	rec := httptest.NewRecorder()
	require.NoError(t, m.Login(ctx, rec, httptest.NewRequest(http.MethodPost, "/", nil), 42))

	cookie := rec.Result().Cookies()[0]
	tests := []struct {
		name  string
		value string
	}{
		{"bad signature", cookie.Value[:len(cookie.Value)-1] + "0"},
		{"no separator", "deadbeef"},
		{"empty sid", "." + cookie.Value},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.value})
			_, ok, err := m.UserID(ctx, r)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestSessionManager_LogoutClearsUserKeepsFlashes(t *testing.T) {
	m := NewSessionManager(newMemorySessions(), "test-secret")
	ctx := context.Background()

	rec := httptest.NewRecorder()
	require.NoError(t, m.Login(ctx, rec, httptest.NewRequest(http.MethodPost, "/", nil), 7))

	r := requestWithCookie(t, rec)
	require.NoError(t, m.Flash(ctx, httptest.NewRecorder(), r, "You were logged out"))
	require.NoError(t, m.Logout(ctx, r))

	_, ok, err := m.UserID(ctx, r)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"You were logged out"}, m.TakeFlashes(ctx, r))
	assert.Empty(t, m.TakeFlashes(ctx, r), "flashes are one-time")
}

func TestSessionManager_LogoutWithoutSessionIsNoop(t *testing.T) {
	m := NewSessionManager(newMemorySessions(), "test-secret")
	r := httptest.NewRequest(http.MethodGet, "/logout", nil)
	assert.NoError(t, m.Logout(context.Background(), r))
}
