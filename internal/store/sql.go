package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"langpulse/tracker/internal/database"
	"langpulse/tracker/internal/models"
)

const postsTable = "posts"

// columnTypes is used to add columns missing from tables created by
// older versions of the tracker.
var columnTypes = map[string]string{
	"objectID":     "TEXT",
	"title":        "TEXT",
	"url":          "TEXT",
	"author":       "TEXT",
	"points":       "INTEGER NOT NULL DEFAULT 0",
	"num_comments": "INTEGER NOT NULL DEFAULT 0",
	"created_at":   "TEXT",
	"language":     "TEXT",
	"sentiment":    "TEXT",
}

// sqlPost is the scan target for a posts row. Every column is nullable
// because tables written by other tools may hold anything.
type sqlPost struct {
	ObjectID    sql.NullString  `db:"object_id"`
	Title       sql.NullString  `db:"title"`
	URL         sql.NullString  `db:"url"`
	Author      sql.NullString  `db:"author"`
	Points      sql.NullFloat64 `db:"points"`
	NumComments sql.NullFloat64 `db:"num_comments"`
	CreatedAt   sql.NullString  `db:"created_at"`
	Language    sql.NullString  `db:"language"`
	Sentiment   sql.NullString  `db:"sentiment"`
}

// SQLStore keeps posts in the relational 'posts' table.
type SQLStore struct {
	db   *database.DB
	tags TagSet
}

func NewSQLStore(db *database.DB) *SQLStore {
	return &SQLStore{db: db}
}

// WithLanguages makes reads drop language tags outside tags.
func (s *SQLStore) WithLanguages(tags TagSet) *SQLStore {
	s.tags = tags
	return s
}

func (s *SQLStore) Name() string { return "sqlite" }

// ReadAll returns every row of the table. A missing table reads as no rows;
// missing columns read as null.
func (s *SQLStore) ReadAll(ctx context.Context) ([]models.Post, error) {
	posts, err := s.read(ctx)
	if errors.Is(err, ErrStoreMissing) {
		log.Info().Str("table", postsTable).Msg("SQL store table not found, starting empty")
		return nil, nil
	}
	return posts, err
}

func (s *SQLStore) read(ctx context.Context) ([]models.Post, error) {
	exists, err := database.TableExists(ctx, s.db, postsTable)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrStoreMissing
	}

	present, err := database.Columns(ctx, s.db, postsTable)
	if err != nil {
		return nil, err
	}
	if !present["objectID"] {
		return nil, fmt.Errorf("table %s has no objectID column, cannot deduplicate", postsTable)
	}

	var missing []string
	selects := make([]string, 0, len(Columns))
	for _, col := range Columns {
		alias := col
		if col == "objectID" {
			alias = "object_id"
		}
		if present[col] {
			selects = append(selects, fmt.Sprintf("%s AS %s", col, alias))
		} else {
			selects = append(selects, "NULL AS "+alias)
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		log.Warn().
			Str("table", postsTable).
			Strs("missing", missing).
			Msg("SQL store is missing columns, defaulting them to null")
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(selects, ", "), postsTable)

	var rows []sqlPost
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("reading %s: %w", postsTable, err)
	}

	posts := make([]models.Post, 0, len(rows))
	badTimes := 0
	unknownTags := 0
	for _, r := range rows {
		id := strings.TrimSpace(r.ObjectID.String)
		if !r.ObjectID.Valid || id == "" {
			log.Warn().Msg("Skipping SQL row without objectID")
			continue
		}

		language, known := languageValue(s.tags, r.Language.String)
		if !known {
			unknownTags++
		}

		post := models.Post{
			ObjectID:    id,
			Title:       r.Title.String,
			URL:         models.NullString(r.URL.String),
			Author:      models.NullString(r.Author.String),
			Points:      countValue(r.Points),
			NumComments: countValue(r.NumComments),
			Language:    models.NullString(language),
			Sentiment:   models.NullString(sentimentValue(r.Sentiment.String)),
		}
		if r.CreatedAt.Valid && r.CreatedAt.String != "" {
			if ts, err := models.ParseTime(r.CreatedAt.String); err == nil {
				post.CreatedAt = ts
			} else {
				badTimes++
			}
		}
		posts = append(posts, post)
	}

	if badTimes > 0 {
		log.Warn().Str("table", postsTable).Int("rows", badTimes).Msg("Unparseable created_at values read as zero time")
	}
	if unknownTags > 0 {
		log.Warn().Str("table", postsTable).Int("rows", unknownTags).Msg("Unknown language tags read as null")
	}

	return posts, nil
}

// WriteAll replaces the table contents in a single transaction, creating
// the table or any missing column first.
func (s *SQLStore) WriteAll(ctx context.Context, posts []models.Post) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := ensureSchema(ctx, tx); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+postsTable); err != nil {
		return fmt.Errorf("clearing %s: %w", postsTable, err)
	}

	stmt, err := tx.PreparexContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		postsTable,
		strings.Join(Columns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(Columns)), ", "),
	))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range posts {
		_, err := stmt.ExecContext(ctx,
			p.ObjectID, p.Title, p.URL, p.Author,
			p.Points, p.NumComments, models.FormatTime(p.CreatedAt),
			p.Language, p.Sentiment,
		)
		if err != nil {
			return fmt.Errorf("failed to insert post %s: %w", p.ObjectID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Debug().Str("table", postsTable).Int("rows", len(posts)).Msg("Wrote SQL store")
	return nil
}

func ensureSchema(ctx context.Context, tx *sqlx.Tx) error {
	exists, err := database.TableExists(ctx, tx, postsTable)
	if err != nil {
		return err
	}
	if !exists {
		log.Info().Str("table", postsTable).Msg("Creating missing table")
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (objectID TEXT PRIMARY KEY)", postsTable)); err != nil {
			return fmt.Errorf("creating %s: %w", postsTable, err)
		}
	}

	present, err := database.Columns(ctx, tx, postsTable)
	if err != nil {
		return err
	}
	for _, col := range Columns {
		if present[col] {
			continue
		}
		log.Info().Str("table", postsTable).Str("column", col).Msg("Adding missing column")
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", postsTable, col, columnTypes[col])); err != nil {
			return fmt.Errorf("adding column %s: %w", col, err)
		}
	}
	return nil
}

func countValue(n sql.NullFloat64) int {
	if !n.Valid || n.Float64 < 0 {
		return 0
	}
	return int(n.Float64)
}
