// Package middleware carries the per-request lifecycle: every request owns
// one store connection and a resolved current user for its duration.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/itu-devops/whoknows/internal/models"
	"github.com/itu-devops/whoknows/internal/store"
)

// SessionResolver resolves the user id held by the request's session, if
// any. *auth.SessionManager satisfies it.
type SessionResolver interface {
	UserID(ctx context.Context, r *http.Request) (int64, bool, error)
}

// DataStore is the store surface handlers consume. *store.Store satisfies
// it; tests substitute in-memory fakes.
type DataStore interface {
	SearchPages(ctx context.Context, q, language string) ([]models.Page, error)
	UserByName(ctx context.Context, username string) (*models.User, error)
	UserByID(ctx context.Context, id int64) (*models.User, error)
	ResolveUserID(ctx context.Context, username string) (int64, bool, error)
	CreateUser(ctx context.Context, username, email, hashedPassword string) (*models.User, error)
	UpdatePassword(ctx context.Context, userID int64, hashedPassword string) error
	LogSearch(ctx context.Context, query string) error
}

// RequestState is the per-request context: the store bound to the request's
// connection, and the current user (nil when anonymous).
type RequestState struct {
	Store DataStore
	User  *models.User

	conn *pgxpool.Conn
}

// release returns the request's connection to the pool. Safe to call on a
// state that never acquired one.
func (s *RequestState) release() {
	if s == nil || s.conn == nil {
		return
	}
	s.conn.Release()
	s.conn = nil
}

type ctxKey struct{}

// ContextWithState attaches a RequestState to ctx. Exposed so handler tests
// can run without a live pool.
func ContextWithState(ctx context.Context, state *RequestState) context.Context {
	return context.WithValue(ctx, ctxKey{}, state)
}

func stateFrom(ctx context.Context) *RequestState {
	state, _ := ctx.Value(ctxKey{}).(*RequestState)
	return state
}

// Store returns the request's data store, or nil outside a request.
func Store(ctx context.Context) DataStore {
	if state := stateFrom(ctx); state != nil {
		return state.Store
	}
	return nil
}

// CurrentUser returns the user resolved at request setup, or nil.
func CurrentUser(ctx context.Context) *models.User {
	if state := stateFrom(ctx); state != nil {
		return state.User
	}
	return nil
}

// RequestContext is the setup/teardown pair around every request: acquire
// one pool connection, resolve the current user from the session, release
// the connection when the handler returns. A session user_id that no longer
// resolves to a row leaves the request anonymous rather than failing it.
func RequestContext(pool *pgxpool.Pool, sessions SessionResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			conn, err := pool.Acquire(ctx)
			if err != nil {
				logger.Error("acquire store connection", "error", err)
				http.Error(w, "database unavailable", http.StatusInternalServerError)
				return
			}

			state := &RequestState{Store: store.New(conn), conn: conn}
			defer state.release()

			if userID, ok, err := sessions.UserID(ctx, r); err != nil {
				logger.Warn("resolve session", "error", err)
			} else if ok {
				user, err := state.Store.UserByID(ctx, userID)
				switch {
				case err == nil:
					state.User = user
				case errors.Is(err, store.ErrNotFound):
					// stale session: user row is gone, proceed anonymously
				default:
					logger.Warn("resolve current user", "user_id", userID, "error", err)
				}
			}

			next.ServeHTTP(w, r.WithContext(ContextWithState(ctx, state)))
		})
	}
}
