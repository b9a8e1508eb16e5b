package hn

import "encoding/json"

// Hit is one story record returned by the search API. Nullable fields
// decode to their zero value.
type Hit struct {
	ObjectID    string      `json:"objectID"`
	Title       string      `json:"title"`
	StoryTitle  string      `json:"story_title"`
	URL         string      `json:"url"`
	Author      string      `json:"author"`
	Points      json.Number `json:"points"`
	NumComments json.Number `json:"num_comments"`
	CreatedAt   string      `json:"created_at"`
}

// searchResponse is the envelope of a search_by_date page.
type searchResponse struct {
	Hits    []Hit `json:"hits"`
	NbPages int   `json:"nbPages"` // zero when the server omits it
}
