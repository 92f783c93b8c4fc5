package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/dailyblend/blender/internal/domain"
	"github.com/dailyblend/blender/internal/errors"
)

// excerptLimit is how much raw payload is attached to parse errors.
const excerptLimit = 512

// rawLevel is one row of the orchard level table.
// Pointers distinguish absent fields from zero values.
type rawLevel struct {
	ID           string  `json:"id"`
	Artist       *string `json:"artist"`
	Song         *string `json:"song"`
	Authors      *string `json:"authors"`
	Tags         *string `json:"tags"`
	Description  *string `json:"description"`
	Difficulty   *int    `json:"difficulty"`
	SinglePlayer *flag   `json:"single_player"`
	TwoPlayer    *flag   `json:"two_player"`
	Image        *string `json:"image"`
	URL2         *string `json:"url2"`
}

// flag accepts the 0/1 integers datasette emits for SQLite booleans, as well
// as JSON booleans. Only 1 and true count as set.
type flag bool

func (f *flag) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "1", "true":
		*f = true
	case "0", "false", "null":
		*f = false
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid flag %s", data)
		}
		*f = n == 1
	}
	return nil
}

// parseLevel decodes a `?_shape=array` response into LevelMetadata.
func parseLevel(id domain.LevelID, body []byte) (*domain.LevelMetadata, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, parseError(id, body, "response is not a JSON array", err)
	}
	if len(rows) == 0 {
		return nil, errors.LevelNotFound(id.String())
	}

	var raw rawLevel
	if err := json.Unmarshal(rows[0], &raw); err != nil {
		return nil, parseError(id, rows[0], "level row is malformed", err)
	}

	missing := raw.missingFields()
	if len(missing) > 0 {
		return nil, parseError(id, rows[0], "missing required fields: "+strings.Join(missing, ", "), nil)
	}

	authors, err := decodeList(*raw.Authors)
	if err != nil {
		return nil, parseError(id, rows[0], "authors is not a JSON-encoded list", err)
	}
	tags, err := decodeList(*raw.Tags)
	if err != nil {
		return nil, parseError(id, rows[0], "tags is not a JSON-encoded list", err)
	}

	meta := &domain.LevelMetadata{
		ID:           id,
		Artist:       *raw.Artist,
		Song:         *raw.Song,
		Authors:      authors,
		Tags:         tags,
		Difficulty:   domain.Difficulty(*raw.Difficulty),
		SinglePlayer: bool(*raw.SinglePlayer),
		TwoPlayer:    bool(*raw.TwoPlayer),
		ImageURL:     *raw.Image,
		DownloadURL:  *raw.URL2,
	}
	if raw.Description != nil {
		meta.Description = htmlToMarkdown(*raw.Description)
	}

	return meta, nil
}

func (r *rawLevel) missingFields() []string {
	var missing []string
	check := func(name string, present bool) {
		if !present {
			missing = append(missing, name)
		}
	}
	check("artist", r.Artist != nil)
	check("song", r.Song != nil)
	check("authors", r.Authors != nil)
	check("tags", r.Tags != nil)
	check("difficulty", r.Difficulty != nil)
	check("single_player", r.SinglePlayer != nil)
	check("two_player", r.TwoPlayer != nil)
	check("image", r.Image != nil)
	check("url2", r.URL2 != nil)
	return missing
}

// decodeList performs the second decode step: authors and tags are stored as
// JSON text inside a string column.
func decodeList(encoded string) ([]string, error) {
	var list []string
	if err := json.Unmarshal([]byte(encoded), &list); err != nil {
		return nil, err
	}
	return list, nil
}

func parseError(id domain.LevelID, payload []byte, msg string, cause error) error {
	err := errors.MetadataParsef("level '%s': %s", id, msg).
		WithDetails(map[string]string{"level_id": id.String(), "payload": excerpt(payload)})
	if cause != nil {
		return err.WithCause(cause)
	}
	return err
}

// excerpt returns at most excerptLimit bytes of payload for diagnostics.
func excerpt(payload []byte) string {
	if len(payload) <= excerptLimit {
		return string(payload)
	}
	return string(payload[:excerptLimit]) + "..."
}

// htmlTagPattern detects descriptions carrying HTML markup.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)

// htmlToMarkdown converts HTML descriptions to Markdown; plain text passes through.
func htmlToMarkdown(s string) string {
	if s == "" || !htmlTagPattern.MatchString(strings.ToLower(s)) {
		return s
	}
	markdown, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(markdown)
}
