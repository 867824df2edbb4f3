package normalize

import (
	"strings"

	"github.com/ditashi/jsbeautifier-go/jsbeautifier"
	"github.com/yosssi/gohtml"
)

// minBeautifySourceBytes is the "N around 512" threshold from §4.2 step 4
// below which a beautified/original line-count ratio is not trusted as a
// minification signal.
const minBeautifySourceBytes = 512

// Beautify pretty-prints body according to mimeType and returns the
// beautified bytes (the minify-flag decision compares them with the input
// in ShouldMinify). Unsupported MIME types are returned unchanged.
func Beautify(mimeType string, body []byte) []byte {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case m == "text/html" || m == "application/xhtml+xml":
		return []byte(gohtml.Format(string(body)))
	case m == "image/svg+xml" || strings.HasSuffix(m, "+xml") || m == "application/xml" || m == "text/xml":
		return []byte(formatXML(string(body)))
	case m == "application/javascript" || m == "text/javascript" || m == "application/x-javascript":
		opts := jsbeautifier.DefaultOptions()
		out, err := jsbeautifier.Beautify(stringPtr(string(body)), opts)
		if err != nil {
			return body
		}
		return []byte(out)
	case m == "text/css":
		return []byte(beautifyCSS(string(body)))
	default:
		return body
	}
}

func stringPtr(s string) *string { return &s }

// ShouldMinify implements §4.2 step 4's minify-flag heuristic:
// beautified line count >= 2x the original, and the original had at least
// minBeautifySourceBytes bytes (to avoid trivially-small false positives).
func ShouldMinify(original, beautified []byte) bool {
	if len(original) < minBeautifySourceBytes {
		return false
	}
	origLines := strings.Count(string(original), "\n") + 1
	beautLines := strings.Count(string(beautified), "\n") + 1
	return beautLines >= 2*origLines
}
