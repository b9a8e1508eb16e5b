package pagination

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	tests := []Cursor{
		{CreatedAt: "2024-05-01T10:00:00.000Z", ObjectID: "40000001"},
		{CreatedAt: "2024-05-01T10:00:00.123Z", ObjectID: "id,with,commas"},
	}

	for _, c := range tests {
		t.Run(c.ObjectID, func(t *testing.T) {
			decoded, err := DecodeCursor(EncodeCursor(c))
			require.NoError(t, err)
			assert.Equal(t, c, decoded)
		})
	}
}

func TestDecodeCursor_Invalid(t *testing.T) {
	enc := func(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) }

	tests := map[string]string{
		"not base64":    "%%%",
		"no separator":  enc("2024-05-01T10:00:00.000Z"),
		"empty id":      enc("2024-05-01T10:00:00.000Z,"),
		"bad timestamp": enc("yesterday,42"),
	}

	for name, cursor := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCursor(cursor)
			assert.Error(t, err)
		})
	}
}
