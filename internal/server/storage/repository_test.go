package storage

import (
	"context"
	"time"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"langpulse/tracker/internal/database"
	"langpulse/tracker/internal/server/pagination"
)

func newRepo(t *testing.T) (PostRepository, *database.DB) {
	t.Helper()
	db, err := database.NewDB(database.NewConfig(filepath.Join(t.TempDir(), "hn_data.sqlite")))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), db
}

func TestRepository_MissingTable(t *testing.T) {
	ctx := context.Background()
	repo, db := newRepo(t)

	_, err := db.ExecContext(ctx, "DROP TABLE posts")
	require.NoError(t, err)

	rows, err := repo.ListPosts(ctx, Filter{}, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)

	stats, err := repo.Stats(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
	assert.Empty(t, stats.Languages)
}

func TestRepository_LegacyTable(t *testing.T) {
	ctx := context.Background()
	repo, db := newRepo(t)

	_, err := db.ExecContext(ctx, "DROP TABLE posts")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `CREATE TABLE posts (
		objectID TEXT, title TEXT, url TEXT, author TEXT,
		points REAL, num_comments REAL, created_at TEXT, language TEXT)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO posts VALUES
		('1', 'Old', NULL, NULL, 12.7, -3, '2024-01-02T03:04:05.000Z', 'go'),
		(NULL, 'No id', NULL, NULL, 1, 1, '2024-01-02T03:04:05.000Z', 'go')`)
	require.NoError(t, err)

	rows, err := repo.ListPosts(ctx, Filter{}, 10, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0].ObjectID)
	assert.Equal(t, 12, rows[0].Points)
	assert.Equal(t, 0, rows[0].NumComments)
	assert.False(t, rows[0].Sentiment.Valid)

	assert.Equal(t, "2024-01-02T03:04:05.000Z", rows[0].CreatedAt)

	// Filtering on the absent column matches nothing rather than failing.
	rows, err = repo.ListPosts(ctx, Filter{Sentiment: "positive"}, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRepository_NonCanonicalTimestamps(t *testing.T) {
	ctx := context.Background()
	repo, db := newRepo(t)

	_, err := db.ExecContext(ctx, "DELETE FROM posts")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO posts (objectID, title, created_at, language) VALUES
		('a', 'First', '2024-04-30 23:00:00+00:00', 'go'),
		('b', 'Second', '2024-05-01 10:00:00+00:00', 'go'),
		('c', 'Third', '2024-05-01 12:30:00+02:00', 'rust')`)
	require.NoError(t, err)

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rows, err := repo.ListPosts(ctx, Filter{From: from}, 10, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0].ObjectID)
	assert.Equal(t, "2024-05-01T10:00:00.000Z", rows[0].CreatedAt)
	assert.Equal(t, "c", rows[1].ObjectID)
	assert.Equal(t, "2024-05-01T10:30:00.000Z", rows[1].CreatedAt)

	// Paging from a normalized row continues where it left off.
	first, err := repo.ListPosts(ctx, Filter{}, 1, nil)
	require.NoError(t, err)
	require.Len(t, first, 1)
	cursor, err := pagination.DecodeCursor(pagination.EncodeCursor(pagination.Cursor{
		CreatedAt: first[0].CreatedAt,
		ObjectID:  first[0].ObjectID,
	}))
	require.NoError(t, err)

	rest, err := repo.ListPosts(ctx, Filter{}, 10, &cursor)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, "b", rest[0].ObjectID)

	stats, err := repo.Stats(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []DailyCount{{Day: "2024-04-30", Count: 1}, {Day: "2024-05-01", Count: 2}}, stats.Daily)
}
