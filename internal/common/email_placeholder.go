package common

import (
	"errors"
	"regexp"
	"strings"

	"verbindung/mitgliederamt/internal/config"
)

// ErrPlaceholderDomainMissing is returned when no domain is supplied and
// MAIL_PLACEHOLDER_DOMAIN is unset
var ErrPlaceholderDomainMissing = errors.New("MAIL_PLACEHOLDER_DOMAIN ist nicht gesetzt")

var nonLocalPartChars = regexp.MustCompile(`[^a-z0-9]+`)
var multiHyphen = regexp.MustCompile(`-+`)

// NormalizeEmailLocalPart maps a name to a stable ASCII email local part:
// German umlauts/ligature become their digraphs, every run of other
// non-[a-z0-9] characters collapses to a single hyphen, edges are trimmed.
func NormalizeEmailLocalPart(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return ""
	}

	replacer := strings.NewReplacer(
		"ä", "ae",
		"ö", "oe",
		"ü", "ue",
		"ß", "ss",
	)
	s = replacer.Replace(s)

	s = nonLocalPartChars.ReplaceAllString(s, "-")
	s = multiHyphen.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// PlaceholderEmailParams carries the inputs for MakePlaceholderEmail.
// Domain falls back to MAIL_PLACEHOLDER_DOMAIN when empty.
type PlaceholderEmailParams struct {
	Vorname  string
	Nachname string
	ID       string
	Domain   string
}

// MakePlaceholderEmail builds a deterministic synthetic address for members
// without a real email. The id suffix keeps addresses collision free across
// members with identical names. Pure apart from the env fallback; no I/O.
func MakePlaceholderEmail(params PlaceholderEmailParams) (string, error) {
	domain := strings.TrimSpace(params.Domain)
	if domain == "" {
		domain = config.PlaceholderDomain()
	}
	if domain == "" {
		return "", ErrPlaceholderDomainMissing
	}

	v := NormalizeEmailLocalPart(params.Vorname)
	n := NormalizeEmailLocalPart(params.Nachname)

	parts := make([]string, 0, 2)
	if v != "" {
		parts = append(parts, v)
	}
	if n != "" {
		parts = append(parts, n)
	}
	base := strings.Join(parts, ".")
	if base == "" {
		base = "user"
	}

	idPart := ""
	if id := strings.TrimSpace(params.ID); id != "" {
		normalized := NormalizeEmailLocalPart(id)
		if normalized == "" {
			normalized = id
		}
		idPart = "." + normalized
	}

	return base + idPart + "@" + domain, nil
}
