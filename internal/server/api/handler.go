package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"langpulse/tracker/internal/server/pagination"
	"langpulse/tracker/internal/server/storage"
)

// Item is the JSON form of a post. Null columns are JSON nulls.
type Item struct {
	ObjectID    string  `json:"objectID"`
	Title       string  `json:"title"`
	URL         *string `json:"url"`
	Author      *string `json:"author"`
	Points      int     `json:"points"`
	NumComments int     `json:"num_comments"`
	CreatedAt   string  `json:"created_at"`
	Language    *string `json:"language"`
	Sentiment   *string `json:"sentiment"`
}

// Response structure for the posts endpoint
type Response struct {
	Items      []Item  `json:"items"`
	NextCursor *string `json:"next_cursor,omitempty"`
}

// PostsHandler serves the read-only post endpoints.
type PostsHandler struct {
	repo storage.PostRepository
}

// NewPostsHandler creates a new handler instance.
func NewPostsHandler(repo storage.PostRepository) *PostsHandler {
	return &PostsHandler{
		repo: repo,
	}
}

// GetPosts returns one page of filtered posts in (created_at, objectID) order.
func (h *PostsHandler) GetPosts(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	log.Debug().Msg("Processing posts request")

	query := r.URL.Query()

	limit, err := parseLimit(query.Get("limit"))
	if err != nil {
		log.Warn().Err(err).Str("limit", query.Get("limit")).Msg("Invalid 'limit' parameter value")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	filter, err := parseFilter(query)
	if err != nil {
		log.Warn().Err(err).Msg("Invalid filter parameters")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var after *pagination.Cursor
	if cursorStr := query.Get("cursor"); cursorStr != "" {
		cursor, err := pagination.DecodeCursor(cursorStr)
		if err != nil {
			log.Warn().Err(err).Str("cursor", cursorStr).Msg("Invalid 'cursor' parameter")
			http.Error(w, "Invalid 'cursor' parameter", http.StatusBadRequest)
			return
		}
		after = &cursor
	}

	rows, err := h.repo.ListPosts(r.Context(), filter, limit+1, after) // Fetch one extra
	if err != nil {
		log.Error().Err(err).Msg("Error fetching posts from repository")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var nextCursor *string
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ObjectID: last.ObjectID})
		nextCursor = &cursor
	}

	items := make([]Item, len(rows))
	for i, row := range rows {
		items[i] = toItem(row)
	}

	writeJSON(w, r, Response{Items: items, NextCursor: nextCursor})
}

// GetStats returns aggregate counts over the filtered posts.
func (h *PostsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		log.Warn().Err(err).Msg("Invalid filter parameters")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	stats, err := h.repo.Stats(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Error computing stats")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, stats)
}

func toItem(row storage.Row) Item {
	item := Item{
		ObjectID:    row.ObjectID,
		Title:       row.Title.String,
		Points:      row.Points,
		NumComments: row.NumComments,
		CreatedAt:   row.CreatedAt,
	}
	if row.URL.Valid {
		item.URL = &row.URL.String
	}
	if row.Author.Valid {
		item.Author = &row.Author.String
	}
	if row.Language.Valid {
		item.Language = &row.Language.String
	}
	if row.Sentiment.Valid {
		item.Sentiment = &row.Sentiment.String
	}
	return item
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	log := hlog.FromRequest(r)

	jsonBytes, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("Error marshaling JSON response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(jsonBytes); err != nil {
		log.Error().Err(err).Msg("Error writing JSON response body to client")
		return
	}
	log.Debug().Int("bytes_written", len(jsonBytes)).Msg("Response completed")
}
