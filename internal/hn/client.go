// Package hn fetches recent stories from the Hacker News Algolia search API.
package hn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"langpulse/tracker/internal/config"
)

const maxResponseBytes = 16 << 20

// FetchError reports a failed page request. Any FetchError aborts the
// whole fetch; no partial results are returned.
type FetchError struct {
	Page       int
	StatusCode int // zero when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching page %d: HTTP status %d: %v", e.Page, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetching page %d: %v", e.Page, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Client pulls pages of stories, newest first, one request at a time.
type Client struct {
	httpClient *http.Client
	cfg        config.FetchConfig
	limiter    *rate.Limiter
}

// NewClient creates a client whose requests are spaced cfg.PageDelay apart.
func NewClient(cfg config.FetchConfig) *Client {
	limit := rate.Inf
	if cfg.PageDelay > 0 {
		limit = rate.Every(cfg.PageDelay)
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		cfg:        cfg,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// FetchRecent requests up to pages pages and returns all hits in the order
// received. It stops early at the first empty page or at the last page the
// server reports.
func (c *Client) FetchRecent(ctx context.Context, pages int) ([]Hit, error) {
	var all []Hit

	for page := 0; page < pages; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{Page: page, Err: err}
		}

		body, err := c.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}

		log.Debug().
			Int("page", page).
			Int("hits", len(body.Hits)).
			Int("nb_pages", body.NbPages).
			Msg("Fetched page")

		if len(body.Hits) == 0 {
			log.Debug().Int("page", page).Msg("Empty page, stopping early")
			break
		}
		all = append(all, body.Hits...)

		if body.NbPages > 0 && page+1 >= body.NbPages {
			log.Debug().Int("page", page).Msg("Last available page, stopping early")
			break
		}
	}

	log.Info().
		Int("hits", len(all)).
		Msg("Fetch completed")

	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, page int) (*searchResponse, error) {
	pageURL, err := c.pageURL(page)
	if err != nil {
		return nil, &FetchError{Page: page, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{Page: page, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Page: page, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{
			Page:       page,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response from %s", req.URL.Host),
		}
	}

	var body searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, &FetchError{Page: page, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return &body, nil
}

func (c *Client) pageURL(page int) (string, error) {
	u, err := url.Parse(c.cfg.APIURL)
	if err != nil {
		return "", fmt.Errorf("invalid API URL: %w", err)
	}

	q := u.Query()
	if q.Get("tags") == "" {
		q.Set("tags", "story")
	}
	q.Set("hitsPerPage", strconv.Itoa(c.cfg.HitsPerPage))
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
