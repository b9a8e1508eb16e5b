package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"langpulse/tracker/internal/database"
	"langpulse/tracker/internal/models"
	"langpulse/tracker/internal/server/pagination"
)

const postsTable = "posts"

// Filter restricts the posts a query sees. Zero values mean no restriction.
type Filter struct {
	From      time.Time // inclusive
	Before    time.Time // exclusive
	Languages []string
	Sentiment string
}

// Row is a post as read by the API. CreatedAt is in the stored layout so
// cursors compare exactly against the normalized column.
type Row struct {
	ObjectID    string         `db:"object_id"`
	Title       sql.NullString `db:"title"`
	URL         sql.NullString `db:"url"`
	Author      sql.NullString `db:"author"`
	Points      int            `db:"points"`
	NumComments int            `db:"num_comments"`
	CreatedAt   string         `db:"created_at"`
	Language    sql.NullString `db:"language"`
	Sentiment   sql.NullString `db:"sentiment"`
}

// LanguageCount is the number of posts tagged with one language.
type LanguageCount struct {
	Language string `db:"language" json:"language"`
	Count    int    `db:"count" json:"count"`
}

// DailyCount is the number of language-tagged posts created on one UTC day.
type DailyCount struct {
	Day   string `db:"day" json:"day"`
	Count int    `db:"count" json:"count"`
}

// Stats aggregates the filtered posts.
type Stats struct {
	Total           int             `json:"total"`
	Labelled        int             `json:"labelled"`
	UniqueLanguages int             `json:"unique_languages"`
	Languages       []LanguageCount `json:"languages"`
	Daily           []DailyCount    `json:"daily"`
}

// PostRepository defines read operations on the posts table.
type PostRepository interface {
	ListPosts(ctx context.Context, filter Filter, limit int, after *pagination.Cursor) ([]Row, error)
	ExportPosts(ctx context.Context, filter Filter) ([]Row, error)
	Stats(ctx context.Context, filter Filter) (Stats, error)
	Ping(ctx context.Context) error
}

// sqlxRepository implements PostRepository using sqlx.
type sqlxRepository struct {
	db *database.DB
}

// NewRepository creates a new repository instance.
func NewRepository(db *database.DB) PostRepository {
	return &sqlxRepository{db: db}
}

func (r *sqlxRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListPosts returns up to limit posts ordered by (created_at, objectID),
// strictly after the cursor when one is given.
func (r *sqlxRepository) ListPosts(ctx context.Context, filter Filter, limit int, after *pagination.Cursor) ([]Row, error) {
	from, err := r.source(ctx)
	if err != nil {
		return nil, err
	}

	where, args := filter.clauses()
	if after != nil {
		where = append(where, "(created_at > ? OR (created_at = ? AND object_id > ?))")
		args = append(args, after.CreatedAt, after.CreatedAt, after.ObjectID)
	}
	args = append(args, limit)

	query := fmt.Sprintf("SELECT * FROM %s p WHERE %s ORDER BY created_at ASC, object_id ASC LIMIT ?",
		from, strings.Join(where, " AND "))

	return r.selectRows(ctx, query, args)
}

// ExportPosts returns every filtered post, newest first.
func (r *sqlxRepository) ExportPosts(ctx context.Context, filter Filter) ([]Row, error) {
	from, err := r.source(ctx)
	if err != nil {
		return nil, err
	}

	where, args := filter.clauses()
	query := fmt.Sprintf("SELECT * FROM %s p WHERE %s ORDER BY created_at DESC, object_id DESC",
		from, strings.Join(where, " AND "))

	return r.selectRows(ctx, query, args)
}

// Stats counts the filtered posts overall, per language and per day.
func (r *sqlxRepository) Stats(ctx context.Context, filter Filter) (Stats, error) {
	stats := Stats{Languages: []LanguageCount{}, Daily: []DailyCount{}}

	from, err := r.source(ctx)
	if err != nil {
		return stats, err
	}

	where, args := filter.clauses()
	cond := strings.Join(where, " AND ")
	labelled := cond + " AND language IS NOT NULL AND language != ''"

	if err := r.get(ctx, &stats.Total,
		fmt.Sprintf("SELECT COUNT(*) FROM %s p WHERE %s", from, cond), args); err != nil {
		return stats, err
	}

	if err := r.selectInto(ctx, &stats.Languages, fmt.Sprintf(`
		SELECT language, COUNT(*) AS count FROM %s p WHERE %s
		GROUP BY language ORDER BY count DESC, language ASC`, from, labelled), args); err != nil {
		return stats, err
	}

	if err := r.selectInto(ctx, &stats.Daily, fmt.Sprintf(`
		SELECT substr(created_at, 1, 10) AS day, COUNT(*) AS count FROM %s p WHERE %s
		GROUP BY day ORDER BY day ASC`, from, labelled), args); err != nil {
		return stats, err
	}

	for _, lc := range stats.Languages {
		stats.Labelled += lc.Count
	}
	stats.UniqueLanguages = len(stats.Languages)

	return stats, nil
}

// source returns a subquery exposing every post column under a fixed name,
// with NULL standing in for columns an older table lacks. A missing table
// yields an empty source.
func (r *sqlxRepository) source(ctx context.Context) (string, error) {
	exists, err := database.TableExists(ctx, r.db, postsTable)
	if err != nil {
		return "", err
	}

	present := map[string]bool{}
	if exists {
		if present, err = database.Columns(ctx, r.db, postsTable); err != nil {
			return "", err
		}
	}
	// Rows without ids are unusable, so such a table reads as empty.
	if !present["objectID"] {
		present = map[string]bool{}
	}

	col := func(name, expr string) string {
		if !present[name] {
			return "NULL"
		}
		return expr
	}

	selects := []string{
		col("objectID", "CAST(objectID AS TEXT)") + " AS object_id",
		col("title", "title") + " AS title",
		col("url", "url") + " AS url",
		col("author", "author") + " AS author",
		"MAX(COALESCE(CAST(" + col("points", "points") + " AS INTEGER), 0), 0) AS points",
		"MAX(COALESCE(CAST(" + col("num_comments", "num_comments") + " AS INTEGER), 0), 0) AS num_comments",
		// Older tools wrote other layouts ("2024-05-01 10:00:00+00:00"); the
		// canonical form keeps text comparison equal to time order.
		"COALESCE(strftime('%Y-%m-%dT%H:%M:%fZ', " + col("created_at", "created_at") + "), " +
			col("created_at", "created_at") + ", '') AS created_at",
		col("language", "language") + " AS language",
		col("sentiment", "sentiment") + " AS sentiment",
	}

	if !present["objectID"] {
		return fmt.Sprintf("(SELECT %s WHERE 0)", strings.Join(selects, ", ")), nil
	}
	return fmt.Sprintf("(SELECT %s FROM %s)", strings.Join(selects, ", "), postsTable), nil
}

// clauses renders the filter as AND-able conditions over the source columns.
func (f Filter) clauses() ([]string, []any) {
	where := []string{"object_id IS NOT NULL", "object_id != ''"}
	var args []any

	if !f.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, models.FormatTime(f.From))
	}
	if !f.Before.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, models.FormatTime(f.Before))
	}
	if len(f.Languages) > 0 {
		where = append(where, "language IN (?)")
		args = append(args, f.Languages)
	}
	if f.Sentiment != "" {
		where = append(where, "sentiment = ?")
		args = append(args, f.Sentiment)
	}
	return where, args
}

// expand rewrites slice arguments into IN lists.
func (r *sqlxRepository) expand(query string, args []any) (string, []any, error) {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, fmt.Errorf("building query: %w", err)
	}
	return r.db.Rebind(query), args, nil
}

func (r *sqlxRepository) selectRows(ctx context.Context, query string, args []any) ([]Row, error) {
	rows := []Row{}
	if err := r.selectInto(ctx, &rows, query, args); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *sqlxRepository) selectInto(ctx context.Context, dest any, query string, args []any) error {
	query, args, err := r.expand(query, args)
	if err != nil {
		return err
	}
	if err := r.db.SelectContext(ctx, dest, query, args...); err != nil {
		return fmt.Errorf("database query failed: %w", err)
	}
	return nil
}

func (r *sqlxRepository) get(ctx context.Context, dest any, query string, args []any) error {
	query, args, err := r.expand(query, args)
	if err != nil {
		return err
	}
	if err := r.db.GetContext(ctx, dest, query, args...); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("database query failed: %w", err)
	}
	return nil
}
