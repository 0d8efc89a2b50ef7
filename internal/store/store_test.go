package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_EmptyDSN(t *testing.T) {
	_, err := Connect(context.Background(), "")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

// execRecorder is a Querier that records Exec calls; seeding never reads.
type execRecorder struct {
	execs [][]any
	tags  []string
}

func (e *execRecorder) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	e.execs = append(e.execs, args)
	tag := "INSERT 0 1"
	if len(e.tags) > 0 {
		tag, e.tags = e.tags[0], e.tags[1:]
	}
	return pgconn.NewCommandTag(tag), nil
}

func (e *execRecorder) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("seeding must not read")
}

func (e *execRecorder) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("seeding must not read")
}

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pages.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSeedPages(t *testing.T) {
	rec := &execRecorder{}
	path := writeSeedFile(t, `[
		{"title":"Go","url":"https://example.org/go","language":"en",
		 "content":"the go programming language","last_updated":"2024-01-02 03:04:05"},
		{"title":"Uden sprog","url":"https://example.org/da",
		 "content":"indhold","last_updated":"2024-01-02 03:04:05"}
	]`)

	inserted, err := New(rec).SeedPages(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	require.Len(t, rec.execs, 2)
	assert.Equal(t, "en", rec.execs[1][2], "missing language defaults to en")
}

func TestSeedPages_SkipsExistingPages(t *testing.T) {
	// ON CONFLICT DO NOTHING reports zero affected rows for known urls.
	rec := &execRecorder{tags: []string{"INSERT 0 1", "INSERT 0 0"}}
	path := writeSeedFile(t, `[
		{"title":"A","url":"https://example.org/a","language":"en","content":"a","last_updated":"2024-01-02 03:04:05"},
		{"title":"B","url":"https://example.org/b","language":"en","content":"b","last_updated":"2024-01-02 03:04:05"}
	]`)

	inserted, err := New(rec).SeedPages(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
}

func TestSeedPages_Errors(t *testing.T) {
	st := New(&execRecorder{})

	_, err := st.SeedPages(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = st.SeedPages(context.Background(), writeSeedFile(t, `not json`))
	assert.Error(t, err)

	_, err = st.SeedPages(context.Background(), writeSeedFile(t,
		`[{"title":"X","url":"u","language":"en","content":"c","last_updated":"yesterday"}]`))
	assert.ErrorContains(t, err, "last_updated")
}
