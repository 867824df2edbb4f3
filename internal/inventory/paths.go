package inventory

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// maxQuerySuffixLen is the 32-character cap from §4.1 on the appended
// "~k=v&k2=v2" query suffix before it's replaced with a sha1 digest.
const maxQuerySuffixLen = 32

// ContentPath computes the path under contents/ a Resource's body is
// stored at, per §4.1: contents/<method-lower>/<scheme>/<host>/<path>,
// "/" becomes "index.html", and the query string (if any) is appended as
// a filesystem-safe "~k=v..." suffix, capped at 32 characters with a
// sha1-hex overflow marker.
func ContentPath(method, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}

	scheme := u.Scheme
	if scheme == "" {
		scheme = "http"
	}

	segments := []string{strings.ToLower(method), scheme, sanitizeSegment(u.Hostname())}

	cleanPath := path.Clean("/" + u.EscapedPath())
	if cleanPath == "/" {
		segments = append(segments, "index.html")
	} else {
		for _, part := range strings.Split(strings.Trim(cleanPath, "/"), "/") {
			if part == "" || part == "." || part == ".." {
				continue
			}
			segments = append(segments, sanitizeSegment(part))
		}
	}

	if u.RawQuery != "" {
		last := len(segments) - 1
		segments[last] = segments[last] + querySuffix(u.RawQuery)
	}

	rel := path.Join(segments...)
	// Defensive re-clean: guarantee the result cannot escape contents/ even
	// if a segment above somehow smuggled a ".." back in (P7).
	rel = path.Clean(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
		return "", fmt.Errorf("computed content path %q escapes contents/", rel)
	}
	return rel, nil
}

// querySuffix renders "~k=v&k2=v2", capping at maxQuerySuffixLen with a
// sha1-hex replacement of the remainder per §4.1.
func querySuffix(rawQuery string) string {
	suffix := "~" + sanitizeSegment(rawQuery)
	if len(suffix) <= maxQuerySuffixLen {
		return suffix
	}
	head := suffix[:maxQuerySuffixLen]
	sum := sha1.Sum([]byte(suffix[maxQuerySuffixLen:]))
	return head + "~" + hex.EncodeToString(sum[:])
}

// sanitizeSegment replaces characters that are unsafe as a filesystem path
// component with "_", and collapses any residual ".." so a single segment
// can never itself be a traversal token.
func sanitizeSegment(s string) string {
	if s == ".." {
		return "__"
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '.' || r == '_' || r == '=' || r == '&' || r == '~':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" {
		out = "_"
	}
	return out
}
