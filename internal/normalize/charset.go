package normalize

import (
	"bytes"
	"fmt"
	"mime"
	"regexp"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
)

var metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]+charset\s*=\s*["']?([a-zA-Z0-9_-]+)`)
var xmlDeclRe = regexp.MustCompile(`(?i)<\?xml[^>]+encoding\s*=\s*["']([a-zA-Z0-9_-]+)["']`)

// DetectCharset applies the priority order from §4.2 step 3:
// content-type parameter -> <meta charset>/XML declaration -> BOM ->
// heuristic. The heuristic step always yields a name (windows-1252 when
// nothing else matches), so in practice the result is never "".
func DetectCharset(contentType string, body []byte) string {
	if contentType != "" {
		if _, params, err := mime.ParseMediaType(contentType); err == nil {
			if cs, ok := params["charset"]; ok && cs != "" {
				return strings.ToLower(cs)
			}
		}
	}

	if m := metaCharsetRe.FindSubmatch(body); m != nil {
		return strings.ToLower(string(m[1]))
	}
	if m := xmlDeclRe.FindSubmatch(body); m != nil {
		return strings.ToLower(string(m[1]))
	}

	if bytes.HasPrefix(body, []byte{0xEF, 0xBB, 0xBF}) {
		return "utf-8"
	}
	if bytes.HasPrefix(body, []byte{0xFE, 0xFF}) {
		return "utf-16be"
	}
	if bytes.HasPrefix(body, []byte{0xFF, 0xFE}) {
		return "utf-16le"
	}

	// Heuristic fallback via golang.org/x/net/html/charset.DetermineEncoding
	// (a <meta> prescan, then UTF-8 validity, else windows-1252). Its
	// guesses are never reported as certain, so the name is taken as-is.
	if _, name, _ := charset.DetermineEncoding(body, contentType); name != "" {
		return name
	}

	return ""
}

// TranscodeToUTF8 converts body from the named charset to UTF-8. An empty
// or already-UTF-8 name is a no-op.
func TranscodeToUTF8(body []byte, charsetName string) ([]byte, error) {
	name := strings.ToLower(strings.TrimSpace(charsetName))
	if name == "" || name == "utf-8" || name == "utf8" {
		return body, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", charsetName, err)
	}

	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("transcode from %q: %w", charsetName, err)
	}
	return out, nil
}

// RewriteCharsetDeclaration rewrites an in-content <meta charset=...> or
// XML encoding="..." declaration to utf-8, per §4.2 step 3's "rewrite any
// in-content charset declaration to UTF-8" requirement.
func RewriteCharsetDeclaration(body []byte) []byte {
	body = rewriteMatches(body, metaCharsetRe)
	body = rewriteMatches(body, xmlDeclRe)
	return body
}

func rewriteMatches(body []byte, re *regexp.Regexp) []byte {
	for {
		loc := re.FindSubmatchIndex(body)
		if loc == nil {
			return body
		}
		// loc[2]/loc[3] bound the first capture group (the charset token).
		var buf bytes.Buffer
		buf.Write(body[:loc[2]])
		buf.WriteString("utf-8")
		buf.Write(body[loc[3]:])
		next := buf.Bytes()
		if bytes.Equal(next, body) {
			return body
		}
		body = next
	}
}
