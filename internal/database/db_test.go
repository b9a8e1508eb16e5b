package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB_ReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tracker.sqlite")

	db, err := NewDB(NewConfig(path))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	exists, err := TableExists(ctx, db, "posts")
	require.NoError(t, err)
	assert.True(t, exists)

	columns, err := Columns(ctx, db, "posts")
	require.NoError(t, err)
	for _, col := range []string{"objectID", "title", "url", "author", "points", "num_comments", "created_at", "language", "sentiment"} {
		assert.True(t, columns[col], col)
	}

	missing, err := TableExists(ctx, db, "feeds")
	require.NoError(t, err)
	assert.False(t, missing)
}

func TestNewDB_UpgradesForeignTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hn_data.sqlite")

	// A table written by another tool: every column present, no migration history.
	raw, err := sqlx.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(`CREATE TABLE posts (
		objectID TEXT, title TEXT, url TEXT, author TEXT, points INTEGER,
		num_comments INTEGER, created_at TEXT, language TEXT, sentiment TEXT)`)
	require.NoError(t, err)
	_, err = raw.Exec(`INSERT INTO posts VALUES
		('1', 'Learning Go', NULL, 'pg', 3, 1, '2024-05-01 10:00:00+00:00', 'go', 'neutral')`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	db, err := NewDB(NewConfig(path))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	var rows int
	require.NoError(t, db.GetContext(ctx, &rows, `SELECT COUNT(*) FROM posts`))
	assert.Equal(t, 1, rows)

	var applied int
	require.NoError(t, db.GetContext(ctx, &applied, `SELECT COUNT(*) FROM migrations`))
	assert.Equal(t, 3, applied)

	// Reopening finds nothing left to do.
	require.NoError(t, db.Close())
	db, err = NewDB(NewConfig(path))
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestNewDB_ReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.sqlite")

	cfg := NewConfig(path)
	cfg.ReadOnly = true
	_, err := NewDB(cfg)
	require.Error(t, err, "read-only open needs an existing database")

	rw, err := NewDB(NewConfig(path))
	require.NoError(t, err)
	_, err = rw.Exec(`INSERT INTO posts (objectID, title, created_at) VALUES ('1', 't', '2024-05-01T10:00:00.000Z')`)
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	cfg = NewConfig(path)
	cfg.ReadOnly = true
	ro, err := NewDB(cfg)
	require.NoError(t, err)
	defer ro.Close()

	var count int
	require.NoError(t, ro.Get(&count, `SELECT COUNT(*) FROM posts`))
	assert.Equal(t, 1, count)

	_, err = ro.Exec(`DELETE FROM posts`)
	assert.Error(t, err, "writes are rejected")
}

func TestConfigDefaults(t *testing.T) {
	cfg := NewConfig("x.sqlite")
	cfg.applyDefaults()
	assert.Equal(t, 1, cfg.MaxOpenConns)

	ro := NewConfig("x.sqlite")
	ro.ReadOnly = true
	ro.applyDefaults()
	assert.Equal(t, 4, ro.MaxOpenConns)
}
