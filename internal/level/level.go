// Package level turns operator-supplied level references into catalog IDs.
package level

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/dailyblend/blender/internal/domain"
	"github.com/dailyblend/blender/internal/errors"
)

const (
	// SourceHost is the only codex front-end accepted as a level source.
	SourceHost = "codex.rhythm.cafe"

	// downloadSuffix is stripped from the URL path to obtain the level ID.
	downloadSuffix = ".rdzip"
)

// Parse extracts the catalog ID from a codex download URL such as
// https://codex.rhythm.cafe/cool-name-ABCdef123asdf.rdzip.
func Parse(ref domain.LevelReference) (domain.LevelID, error) {
	raw := strings.TrimSpace(ref.String())
	if raw == "" {
		return "", errors.InvalidSourcef("level reference is empty, expected a %s URL", SourceHost)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.InvalidSourcef("level reference %q is not a URL", raw).WithCause(err)
	}

	host := strings.ToLower(u.Hostname())
	if host != SourceHost {
		return "", errors.InvalidSourcef("unknown hostname: '%s', expected '%s'", host, SourceHost).
			WithDetails(map[string]string{"host": host, "expected": SourceHost})
	}

	id := strings.TrimPrefix(u.Path, "/")
	id = strings.TrimSuffix(id, downloadSuffix)
	if id == "" {
		return "", errors.InvalidSourcef("level URL %q has no level id", raw)
	}

	return domain.LevelID(id), nil
}

// Normalize trims surrounding whitespace and NFC-normalizes a reference
// before it is stored, so visually identical references compare equal.
func Normalize(ref domain.LevelReference) domain.LevelReference {
	return domain.LevelReference(norm.NFC.String(strings.TrimSpace(ref.String())))
}
