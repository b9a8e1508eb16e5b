package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"langpulse/tracker/internal/models"
)

func TestCSVStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "hn_data.csv")
	s := NewCSVStore(path)

	untagged := post("b", 5, 3)
	untagged.Language = models.NullString("")
	untagged.URL = models.NullString("")
	untagged.Title = `Say "hello", world`
	posts := []models.Post{post("a", 0, 10), untagged}

	require.NoError(t, s.WriteAll(ctx, posts))

	got, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	for i := range posts {
		assert.Equal(t, posts[i].ObjectID, got[i].ObjectID)
		assert.Equal(t, posts[i].Title, got[i].Title)
		assert.Equal(t, posts[i].URL, got[i].URL)
		assert.Equal(t, posts[i].Author, got[i].Author)
		assert.Equal(t, posts[i].Points, got[i].Points)
		assert.Equal(t, posts[i].NumComments, got[i].NumComments)
		assert.True(t, posts[i].CreatedAt.Equal(got[i].CreatedAt))
		assert.Equal(t, posts[i].Language, got[i].Language)
		assert.Equal(t, posts[i].Sentiment, got[i].Sentiment)
	}
}

func TestCSVStore_WritesHeaderAndLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "hn_data.csv")
	s := NewCSVStore(path)

	require.NoError(t, s.WriteAll(ctx, []models.Post{post("a", 0, 1)}))
	require.NoError(t, s.WriteAll(ctx, []models.Post{post("a", 0, 2)}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "hn_data.csv", entries[0].Name())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "objectID,title,url,author,points,num_comments,created_at,language,sentiment\n")
	assert.Contains(t, string(data), "2024-05-01T10:00:00.000Z")
}

func TestCSVStore_MissingFileReadsEmpty(t *testing.T) {
	s := NewCSVStore(filepath.Join(t.TempDir(), "absent.csv"))

	got, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCSVStore_EmptyFileReadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	got, err := NewCSVStore(path).ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCSVStore_ColumnDrift(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.csv")
	content := "\ufeffObjectID,created_at,title,points\n" +
		"42,2024-01-02T03:04:05Z,Learning Go,12.0\n" +
		"43,2024-13-45T99:99:99Z,Short row\n" +
		",2024-01-02T03:04:05Z,No id,1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	got, err := NewCSVStore(path).ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "42", got[0].ObjectID)
	assert.Equal(t, "Learning Go", got[0].Title)
	assert.Equal(t, 12, got[0].Points)
	assert.False(t, got[0].Sentiment.Valid)
	assert.False(t, got[0].Language.Valid)
	assert.Equal(t, "2024-01-02T03:04:05.000Z", models.FormatTime(got[0].CreatedAt))

	assert.Equal(t, "43", got[1].ObjectID)
	assert.True(t, got[1].CreatedAt.IsZero())
	assert.Equal(t, 0, got[1].Points)
}

func TestCSVStore_InvalidSentimentReadsNull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.csv")
	content := "objectID,title,created_at,sentiment\n" +
		"1,a,2024-01-01T00:00:00Z,Positive\n" +
		"2,b,2024-01-01T00:00:00Z,ecstatic\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	got, err := NewCSVStore(path).ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.NullString("positive"), got[0].Sentiment)
	assert.False(t, got[1].Sentiment.Valid)
}

func TestCSVStore_UnknownLanguageReadsNull(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "l.csv")
	content := "objectID,title,created_at,language\n" +
		"1,a,2024-01-01T00:00:00Z, Go \n" +
		"2,b,2024-01-01T00:01:00Z,cobol-ish\n" +
		"3,c,2024-01-01T00:02:00Z,C++\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	s := NewCSVStore(path).WithLanguages(knownTags)

	got, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, models.NullString("go"), got[0].Language)
	assert.False(t, got[1].Language.Valid)
	assert.Equal(t, models.NullString("c++"), got[2].Language)

	_, err = MergeInto(ctx, s, []models.Post{post("4", 0, 1)})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "cobol-ish")

	// Without a tag set any tag is kept, lowercased.
	got, err = NewCSVStore(path).ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.NullString("go"), got[0].Language)
}

func TestCSVStore_NoObjectIDColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("title,points\nhello,1\n"), 0644))

	_, err := NewCSVStore(path).ReadAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no objectID column")
}

func TestCSVStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewCSVStore(filepath.Join(t.TempDir(), "x.csv"))
	assert.ErrorIs(t, s.WriteAll(ctx, nil), context.Canceled)
	_, err := s.ReadAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
