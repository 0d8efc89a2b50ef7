package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/itu-devops/whoknows/internal/models"
)

var (
	// ErrStoreUnavailable means the store could not be reached at connect
	// time. It is returned, never fatal: callers decide how to degrade.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUsernameTaken means a user insert hit the username unique constraint.
	ErrUsernameTaken = errors.New("username already taken")
)

const uniqueViolation = "23505"

// Querier is the subset of pgx used by Store. *pgxpool.Pool, *pgxpool.Conn
// and pgx.Tx all satisfy it, so a Store can be bound to the shared pool or
// to the single connection a request owns.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Connect opens a pgx pool for the given DSN and verifies the store is
// reachable. An empty DSN or a failed ping yields ErrStoreUnavailable.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: DATABASE_URL is not set", ErrStoreUnavailable)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return pool, nil
}

// Store executes the application's queries against a Querier.
type Store struct {
	db Querier
}

func New(db Querier) *Store {
	return &Store{db: db}
}

// SearchPages returns pages whose language matches exactly and whose content
// contains q as a substring, ordered by title. Callers handle the empty-q
// case (empty result set) themselves.
func (s *Store) SearchPages(ctx context.Context, q, language string) ([]models.Page, error) {
	rows, err := s.db.Query(ctx,
		`SELECT title, url, language, content, last_updated
		 FROM pages
		 WHERE language = $1 AND content LIKE '%' || $2 || '%'
		 ORDER BY title ASC`,
		language, q,
	)
	if err != nil {
		return nil, fmt.Errorf("search pages: %w", err)
	}
	defer rows.Close()

	var pages []models.Page
	for rows.Next() {
		var p models.Page
		if err := rows.Scan(&p.Title, &p.URL, &p.Language, &p.Content, &p.LastUpdated); err != nil {
			return nil, fmt.Errorf("search pages: scan: %w", err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search pages: %w", err)
	}
	return pages, nil
}

// UserByName returns the user with the exact username, or ErrNotFound.
func (s *Store) UserByName(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(ctx,
		`SELECT id, username, email, password, created_at FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user by name: %w", err)
	}
	return &u, nil
}

// UserByID returns the user with the given id, or ErrNotFound.
func (s *Store) UserByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(ctx,
		`SELECT id, username, email, password, created_at FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user by id: %w", err)
	}
	return &u, nil
}

// ResolveUserID returns the id for an exact username match. The second
// return value is false when no such user exists.
func (s *Store) ResolveUserID(ctx context.Context, username string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRow(ctx,
		`SELECT id FROM users WHERE username = $1`, username,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("resolve user id: %w", err)
	}
	return id, true, nil
}

// CreateUser inserts a new user. Uniqueness is enforced by the store's
// constraint on users.username, so concurrent registrations cannot both
// succeed: the loser gets ErrUsernameTaken.
func (s *Store) CreateUser(ctx context.Context, username, email, hashedPassword string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(ctx,
		`INSERT INTO users (username, email, password)
		 VALUES ($1, $2, $3)
		 RETURNING id, username, email, created_at`,
		username, email, hashedPassword,
	).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

// UpdatePassword replaces the stored credential hash for a user.
func (s *Store) UpdatePassword(ctx context.Context, userID int64, hashedPassword string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET password = $1 WHERE id = $2`,
		hashedPassword, userID,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LogSearch appends a query to the search audit log.
func (s *Store) LogSearch(ctx context.Context, query string) error {
	if _, err := s.db.Exec(ctx,
		`INSERT INTO search_logs (query) VALUES ($1)`, query,
	); err != nil {
		return fmt.Errorf("log search: %w", err)
	}
	return nil
}
