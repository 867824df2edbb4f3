package normalize

import (
	"fmt"
)

// smallBinaryThresholdBytes is the §4.2 step 5 "small threshold" at or
// below which a binary body is stored inline as content_base64 rather than as a
// content file.
const smallBinaryThresholdBytes = 256

// Result is the outcome of normalising one response body: the bytes to
// persist, whether they're text, and the charset/minify metadata to
// attach to the Resource.
type Result struct {
	Bytes   []byte
	IsText  bool
	Charset string // only meaningful when IsText; "" if undetermined
	Minify  bool

	// Errors encountered along the way are never fatal (§4.2 "Failure
	// semantics"); they're surfaced here so the caller can log them.
	Warnings []string
}

// Process runs the full C2 pipeline on one response body: decompress,
// classify, (for text) detect+transcode+rewrite charset, beautify, decide
// minify. Any individual step failing leaves the resource in the best
// available form rather than aborting (§4.2's failure semantics).
func Process(rawBody []byte, contentEncoding string, contentTypeHeader string, mimeType string) Result {
	var warnings []string

	encoding := normalizeEncodingToken(contentEncoding)
	decoded, decodedOK, err := Decode(rawBody, encoding)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("decode %s failed: %v", encoding, err))
		decoded = rawBody
		decodedOK = false
	}
	if !decodedOK && encoding != "" && encoding != "identity" {
		// Unknown/failed encoding: store raw bytes as binary, per step 1.
		return Result{Bytes: rawBody, IsText: false, Warnings: warnings}
	}

	if len(decoded) == 0 {
		// Empty-body responses are binary per step 2.
		return Result{Bytes: decoded, IsText: false, Warnings: warnings}
	}

	if !IsText(mimeType) {
		return Result{Bytes: decoded, IsText: false, Warnings: warnings}
	}

	charsetName := DetectCharset(contentTypeHeader, decoded)
	utf8Body, err := TranscodeToUTF8(decoded, charsetName)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("transcode from %s failed: %v", charsetName, err))
		// Leave content_charset unset per the documented failure path.
		return Result{Bytes: decoded, IsText: true, Charset: "", Warnings: warnings}
	}
	utf8Body = RewriteCharsetDeclaration(utf8Body)

	beautified := Beautify(mimeType, utf8Body)
	minify := ShouldMinify(utf8Body, beautified)

	return Result{
		Bytes:    beautified,
		IsText:   true,
		Charset:  "utf-8",
		Minify:   minify,
		Warnings: warnings,
	}
}

func normalizeEncodingToken(s string) string {
	switch s {
	case "gzip", "deflate", "br", "compress", "identity", "":
		if s == "" {
			return "identity"
		}
		return s
	default:
		return s
	}
}

// PreferFile reports whether bodyLen should be persisted as a content
// file versus inline. Binary bodies of at most smallBinaryThresholdBytes
// go inline as content_base64; everything else (including all text,
// matching this implementation's Open Question decision recorded in
// DESIGN.md) goes to a file.
func PreferFile(isText bool, bodyLen int) bool {
	if isText {
		return true
	}
	return bodyLen > smallBinaryThresholdBytes
}
