// Package fingerprint computes the content identity of a skill version from
// its (path, content hash) pairs.
package fingerprint

import (
	"sort"
	"strings"

	"github.com/opencontainers/go-digest"
)

// Entry is one file's contribution to a fingerprint. Size and content type
// are deliberately absent.
type Entry struct {
	Path string
	Hash string
}

// Compute returns the lowercase hex SHA-256 fingerprint of entries.
//
// Entries with an empty path or hash are skipped. When a path repeats, the
// last occurrence wins. The remaining entries are sorted byte-wise by path
// and serialised as "path:hash\n" before hashing.
func Compute(entries []Entry) string {
	byPath := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Path == "" || e.Hash == "" {
			continue
		}
		byPath[e.Path] = e.Hash
	}

	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, p := range paths {
		b.WriteString(p)
		b.WriteByte(':')
		b.WriteString(byPath[p])
		b.WriteByte('\n')
	}

	return digest.SHA256.FromString(b.String()).Encoded()
}

// Valid reports whether h is a 64 character lowercase hex SHA-256 value.
func Valid(h string) bool {
	if h != strings.ToLower(h) {
		return false
	}
	return digest.NewDigestFromEncoded(digest.SHA256, h).Validate() == nil
}

// Normalize trims and lowercases a caller supplied hash.
func Normalize(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
