package metadata

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/skillhub/internal/server/models"
)

// MaxSummaryLen is the longest summary stored on a package, in runes.
const MaxSummaryLen = 160

var (
	whitespace  = regexp.MustCompile(`\s+`)
	edgeQuotes  = regexp.MustCompile("^[\"'`]+|[\"'`]+$")
	slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)
)

// NormalizeSummary collapses whitespace, strips surrounding quotes and clamps
// the result to MaxSummaryLen. It returns "" when nothing is left.
func NormalizeSummary(s string) string {
	compact := whitespace.ReplaceAllString(strings.TrimSpace(s), " ")
	compact = strings.TrimSpace(edgeQuotes.ReplaceAllString(compact, ""))
	if compact == "" {
		return ""
	}
	if utf8.RuneCountInString(compact) <= MaxSummaryLen {
		return compact
	}
	r := []rune(compact)
	return strings.TrimRight(string(r[:MaxSummaryLen-3]), " ") + "..."
}

// Summary derives a package summary from the frontmatter description, falling
// back to a sentence built from the display name or slug.
func Summary(meta models.ParsedMetadata, slug, displayName string) string {
	if s := NormalizeSummary(meta.Description); s != "" {
		return s
	}
	base := strings.TrimSpace(displayName)
	if base == "" {
		base = strings.TrimSpace(slug)
	}
	return NormalizeSummary("Automation skill for " + base + ".")
}

// NormalizeSlug trims and lowercases a slug.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// ValidSlug reports whether slug (already normalised) is acceptable.
func ValidSlug(slug string) bool {
	return slugPattern.MatchString(slug)
}

// SanitizePath strips leading slashes and rejects traversal and backslashes.
func SanitizePath(p string) (string, bool) {
	trimmed := strings.TrimLeft(strings.TrimSpace(p), "/")
	if trimmed == "" || slices.Contains(strings.Split(trimmed, "/"), "..") || strings.Contains(trimmed, `\`) {
		return "", false
	}
	return trimmed, true
}
