package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	SessionTTL    = 24 * time.Hour
	SessionCookie = "session_id"
)

// SessionBackend stores per-session state: at most a user id, plus a queue
// of one-time flash notices.
type SessionBackend interface {
	SetUser(ctx context.Context, sid string, userID int64) error
	User(ctx context.Context, sid string) (int64, bool, error)
	ClearUser(ctx context.Context, sid string) error
	AddFlash(ctx context.Context, sid, message string) error
	PopFlashes(ctx context.Context, sid string) ([]string, error)
}

// RedisSessions is the Redis implementation of SessionBackend. Session state
// lives under session:<sid>; flashes under session:<sid>:flash. Both expire
// after SessionTTL.
type RedisSessions struct {
	rdb *redis.Client
}

func NewRedisSessions(rdb *redis.Client) *RedisSessions {
	return &RedisSessions{rdb: rdb}
}

func (s *RedisSessions) SetUser(ctx context.Context, sid string, userID int64) error {
	key := "session:" + sid
	if err := s.rdb.HSet(ctx, key, "user_id", userID).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, key, SessionTTL).Err()
}

func (s *RedisSessions) User(ctx context.Context, sid string) (int64, bool, error) {
	val, err := s.rdb.HGet(ctx, "session:"+sid, "user_id").Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return id, true, nil
}

func (s *RedisSessions) ClearUser(ctx context.Context, sid string) error {
	return s.rdb.HDel(ctx, "session:"+sid, "user_id").Err()
}

func (s *RedisSessions) AddFlash(ctx context.Context, sid, message string) error {
	key := "session:" + sid + ":flash"
	if err := s.rdb.RPush(ctx, key, message).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, key, SessionTTL).Err()
}

func (s *RedisSessions) PopFlashes(ctx context.Context, sid string) ([]string, error) {
	key := "session:" + sid + ":flash"
	pipe := s.rdb.TxPipeline()
	lrange := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}
	return lrange.Val(), nil
}

// SessionManager ties the backend to the session_id cookie. Cookie values
// are "<sid>.<hmac>" so a forged or truncated cookie is indistinguishable
// from no session at all.
type SessionManager struct {
	backend SessionBackend
	secret  []byte
}

func NewSessionManager(backend SessionBackend, secret string) *SessionManager {
	return &SessionManager{backend: backend, secret: []byte(secret)}
}

func (m *SessionManager) sign(sid string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(sid))
	return hex.EncodeToString(mac.Sum(nil))
}

// sessionID extracts and verifies the session id from the request cookie.
func (m *SessionManager) sessionID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", false
	}
	sid, sig, found := strings.Cut(cookie.Value, ".")
	if !found || sid == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(m.sign(sid))) {
		return "", false
	}
	return sid, true
}

// ensure returns the request's session id, minting a fresh one (and setting
// the cookie) when the request carries none. The minted cookie is also
// attached to r, so every ensure call within one request sees the same sid
// and exactly one Set-Cookie goes out: without this, a login followed by a
// flash on a fresh browser would bind the user and the notice to two
// different sessions, and the client would keep the one without the user.
func (m *SessionManager) ensure(w http.ResponseWriter, r *http.Request) string {
	if sid, ok := m.sessionID(r); ok {
		return sid
	}
	sid := uuid.New().String()
	cookie := &http.Cookie{
		Name:     SessionCookie,
		Value:    sid + "." + m.sign(sid),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionTTL / time.Second),
	}
	http.SetCookie(w, cookie)
	r.AddCookie(cookie)
	return sid
}

// UserID resolves the session's user id, if any. No cookie, a bad
// signature, or an anonymous session all yield ok == false.
func (m *SessionManager) UserID(ctx context.Context, r *http.Request) (int64, bool, error) {
	sid, ok := m.sessionID(r)
	if !ok {
		return 0, false, nil
	}
	return m.backend.User(ctx, sid)
}

// Login binds the user id to the request's session.
func (m *SessionManager) Login(ctx context.Context, w http.ResponseWriter, r *http.Request, userID int64) error {
	return m.backend.SetUser(ctx, m.ensure(w, r), userID)
}

// Logout removes the user id from the session. Flashes and the session
// itself survive, matching "clear user_id, keep the notice" semantics.
func (m *SessionManager) Logout(ctx context.Context, r *http.Request) error {
	sid, ok := m.sessionID(r)
	if !ok {
		return nil
	}
	return m.backend.ClearUser(ctx, sid)
}

// Flash queues a one-time notice for the next rendered page.
func (m *SessionManager) Flash(ctx context.Context, w http.ResponseWriter, r *http.Request, message string) error {
	return m.backend.AddFlash(ctx, m.ensure(w, r), message)
}

// TakeFlashes drains the session's pending notices.
func (m *SessionManager) TakeFlashes(ctx context.Context, r *http.Request) []string {
	sid, ok := m.sessionID(r)
	if !ok {
		return nil
	}
	flashes, err := m.backend.PopFlashes(ctx, sid)
	if err != nil {
		return nil
	}
	return flashes
}
