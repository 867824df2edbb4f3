package normalize

import "strings"

// IsText classifies a MIME type as text per §4.2 step 2.
func IsText(mimeType string) bool {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	if m == "" {
		return false
	}
	switch {
	case strings.HasPrefix(m, "text/"):
		return true
	case m == "application/json",
		m == "application/xml",
		m == "application/javascript",
		m == "application/xhtml+xml",
		m == "image/svg+xml":
		return true
	case strings.HasSuffix(m, "+json"), strings.HasSuffix(m, "+xml"):
		return true
	default:
		return false
	}
}
