package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"langpulse/tracker/internal/models"
)

// CSVStore keeps posts in a delimited flat file with a header row.
type CSVStore struct {
	path string
	tags TagSet
}

func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// WithLanguages makes reads drop language tags outside tags.
func (s *CSVStore) WithLanguages(tags TagSet) *CSVStore {
	s.tags = tags
	return s
}

func (s *CSVStore) Name() string { return "csv" }

// ReadAll returns every row of the file. A missing or empty file reads as
// no rows; missing optional columns read as null.
func (s *CSVStore) ReadAll(ctx context.Context) ([]models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	posts, err := s.read()
	if errors.Is(err, ErrStoreMissing) {
		log.Info().Str("path", s.path).Msg("CSV store not found, starting empty")
		return nil, nil
	}
	return posts, err
}

func (s *CSVStore) read() ([]models.Post, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrStoreMissing
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", s.path, err)
	}

	idx := make(map[string]int, len(Columns))
	var missing []string
	for _, col := range Columns {
		idx[col] = findColumnIndex(header, col)
		if idx[col] < 0 {
			missing = append(missing, col)
		}
	}
	if idx["objectID"] < 0 {
		return nil, fmt.Errorf("%s has no objectID column, cannot deduplicate", s.path)
	}
	if len(missing) > 0 {
		log.Warn().
			Str("path", s.path).
			Strs("missing", missing).
			Msg("CSV store is missing columns, defaulting them to null")
	}

	var posts []models.Post
	line := 1
	badTimes := 0
	unknownTags := 0
	for {
		line++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s line %d: %w", s.path, line, err)
		}

		get := func(col string) string { return safeGetValue(record, idx[col]) }

		id := strings.TrimSpace(get("objectID"))
		if id == "" {
			log.Warn().Str("path", s.path).Int("line", line).Msg("Skipping row without objectID")
			continue
		}

		var createdAt time.Time
		if raw := get("created_at"); raw != "" {
			createdAt, err = models.ParseTime(raw)
			if err != nil {
				badTimes++
				createdAt = time.Time{}
			}
		}

		language, known := languageValue(s.tags, get("language"))
		if !known {
			unknownTags++
		}

		posts = append(posts, models.Post{
			ObjectID:    id,
			Title:       get("title"),
			URL:         models.NullString(get("url")),
			Author:      models.NullString(get("author")),
			Points:      parseCount(get("points")),
			NumComments: parseCount(get("num_comments")),
			CreatedAt:   createdAt,
			Language:    models.NullString(language),
			Sentiment:   models.NullString(sentimentValue(get("sentiment"))),
		})
	}

	if badTimes > 0 {
		log.Warn().Str("path", s.path).Int("rows", badTimes).Msg("Unparseable created_at values read as zero time")
	}
	if unknownTags > 0 {
		log.Warn().Str("path", s.path).Int("rows", unknownTags).Msg("Unknown language tags read as null")
	}

	return posts, nil
}

// WriteAll rewrites the whole file. Rows go to a temporary file in the same
// directory which then replaces the store, so readers never see a partial file.
func (s *CSVStore) WriteAll(ctx context.Context, posts []models.Post) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", s.path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(0644); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", tmp.Name(), err)
	}

	if err = writeCSV(tmp, posts); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}

	log.Debug().Str("path", s.path).Int("rows", len(posts)).Msg("Wrote CSV store")
	return nil
}

func writeCSV(w io.Writer, posts []models.Post) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write(Columns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, p := range posts {
		record := []string{
			p.ObjectID,
			p.Title,
			nullStringValue(p.URL.String, p.URL.Valid),
			nullStringValue(p.Author.String, p.Author.Valid),
			strconv.Itoa(p.Points),
			strconv.Itoa(p.NumComments),
			models.FormatTime(p.CreatedAt),
			nullStringValue(p.Language.String, p.Language.Valid),
			nullStringValue(p.Sentiment.String, p.Sentiment.Valid),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("writing CSV record %s: %w", p.ObjectID, err)
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("flushing CSV data: %w", err)
	}
	return nil
}

func findColumnIndex(header []string, columnName string) int {
	for i, col := range header {
		col = strings.TrimPrefix(col, "\ufeff")
		if strings.EqualFold(strings.TrimSpace(col), columnName) {
			return i
		}
	}
	return -1
}

// safeGetValue returns the field at index, or "" when the column is absent
// or the record is short.
func safeGetValue(record []string, index int) string {
	if index >= 0 && index < len(record) {
		return record[index]
	}
	return ""
}

// nullStringValue returns the string value or an empty string if not valid
func nullStringValue(s string, valid bool) string {
	if valid {
		return s
	}
	return ""
}
