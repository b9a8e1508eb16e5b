package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"langpulse/tracker/internal/models"
)

const cursorSeparator = ","

// Cursor is the sort key of the last row of a page: created_at as stored,
// then objectID.
type Cursor struct {
	CreatedAt string
	ObjectID  string
}

// EncodeCursor creates an opaque cursor string from the stored timestamp and id.
func EncodeCursor(c Cursor) string {
	key := c.CreatedAt + cursorSeparator + c.ObjectID
	return base64.URLEncoding.EncodeToString([]byte(key))
}

// DecodeCursor parses the opaque cursor string back into timestamp and id.
func DecodeCursor(encodedCursor string) (Cursor, error) {
	decodedBytes, err := base64.URLEncoding.DecodeString(encodedCursor)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid cursor encoding: %w", err)
	}

	// The timestamp never contains the separator; the id may.
	parts := strings.SplitN(string(decodedBytes), cursorSeparator, 2)
	if len(parts) != 2 || parts[1] == "" {
		return Cursor{}, fmt.Errorf("invalid cursor format")
	}

	if _, err := time.Parse(models.TimeLayout, parts[0]); err != nil {
		return Cursor{}, fmt.Errorf("invalid timestamp in cursor: %w", err)
	}

	return Cursor{CreatedAt: parts[0], ObjectID: parts[1]}, nil
}
