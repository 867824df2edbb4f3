// Package transaction implements C6: Resource -> Transaction. It resolves
// a resource's body, re-minifies it when the recording stored a
// beautified form, re-applies content-encoding, slices the result into
// timed chunks, and computes cumulative-fraction send deadlines.
package transaction

import (
	"encoding/base64"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/tdewolff/minify/v2"
	mcss "github.com/tdewolff/minify/v2/css"
	mhtml "github.com/tdewolff/minify/v2/html"
	mjs "github.com/tdewolff/minify/v2/js"
	mjson "github.com/tdewolff/minify/v2/json"
	msvg "github.com/tdewolff/minify/v2/svg"

	"github.com/ideamans/playback-proxy-go/internal/normalize"
	"github.com/ideamans/playback-proxy-go/internal/types"
)

// DefaultChunkSize is the body-slicing granularity (§4.6 point 4 suggests
// 4-16 KiB; this implementation picks the ideamans port's 16 KiB).
const DefaultChunkSize = 16 * 1024

var minifier = newMinifier()

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/html", mhtml.Minify)
	m.AddFunc("text/css", mcss.Minify)
	m.AddFunc("application/javascript", mjs.Minify)
	m.AddFunc("application/json", mjson.Minify)
	m.AddFunc("image/svg+xml", msvg.Minify)
	return m
}

// Builder converts Resources loaded from an inventory into playback-ready
// Transactions, given the inventory's root directory (to resolve
// content_file_path).
type Builder struct {
	InventoryDir string
	ChunkSize    int
	// IdleAfterBodyMs is the extra wait added after the last body chunk
	// before closing, when the recording didn't capture an explicit
	// close offset (§4.6 point 6). Defaults to 0.
	IdleAfterBodyMs int64
}

// NewBuilder builds a Builder rooted at inventoryDir, using
// DefaultChunkSize unless overridden via ChunkSize.
func NewBuilder(inventoryDir string) *Builder {
	return &Builder{InventoryDir: inventoryDir, ChunkSize: DefaultChunkSize}
}

// Build converts one Resource into a Transaction (§4.6).
func (b *Builder) Build(r types.Resource) (*types.Transaction, error) {
	body, err := b.resolveBody(r)
	if err != nil {
		return nil, fmt.Errorf("resolve body for %s %s: %w", r.Method, r.URL, err)
	}

	if r.Minify && r.ContentTypeMime != "" {
		if minified, err := minifier.Bytes(r.ContentTypeMime, body); err == nil {
			body = minified
		}
		// A minifier that doesn't recognise the MIME type is not an error
		// per §4.6 — the beautified form is served as-is.
	}

	encoded := body
	if r.ContentEncoding != "" && r.ContentEncoding != types.EncodingIdentity {
		if reEncoded, err := normalize.Encode(body, r.ContentEncoding); err == nil {
			encoded = reEncoded
		}
	}

	headers := cloneHeaders(r.RawHeaders)
	headers.Set("content-length", fmt.Sprintf("%d", len(encoded)))

	chunkSize := b.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	chunks := chunkBody(encoded, r.TTFBMs, r.MBPS, chunkSize)

	// §4.6 point 6: target_close_time_ms = max(target_time_ms[last],
	// ttfb_ms + idle_after_body), unless the recording gave an explicit
	// close offset.
	targetClose := r.TTFBMs
	if r.CloseOffsetMs > 0 {
		targetClose = r.CloseOffsetMs
	} else {
		targetClose = r.TTFBMs + b.IdleAfterBodyMs
		if len(chunks) > 0 && chunks[len(chunks)-1].TargetTimeMs > targetClose {
			targetClose = chunks[len(chunks)-1].TargetTimeMs
		}
	}

	statusCode := 0
	if r.StatusCode != nil {
		statusCode = *r.StatusCode
	}
	errMsg := ""
	if r.ErrorMessage != nil {
		errMsg = *r.ErrorMessage
	}

	return &types.Transaction{
		Method:            r.Method,
		URL:               r.URL,
		TTFBMs:            r.TTFBMs,
		StatusCode:        statusCode,
		ErrorMessage:      errMsg,
		RawHeaders:        headers,
		Chunks:            chunks,
		TargetCloseTimeMs: targetClose,
		ContentLength:     int64(len(encoded)),
	}, nil
}

// resolveBody implements §4.6 point 1's priority: content_file_path, else
// content_base64, else content_utf8.
func (b *Builder) resolveBody(r types.Resource) ([]byte, error) {
	if r.ContentFilePath != nil {
		full := filepath.Join(b.InventoryDir, "contents", *r.ContentFilePath)
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("read content file %s: %w", *r.ContentFilePath, err)
		}
		return data, nil
	}
	if r.ContentBase64 != nil {
		data, err := base64.StdEncoding.DecodeString(*r.ContentBase64)
		if err != nil {
			return nil, fmt.Errorf("decode content_base64: %w", err)
		}
		return data, nil
	}
	if r.ContentUTF8 != nil {
		return []byte(*r.ContentUTF8), nil
	}
	return nil, nil
}

// chunkBody implements §4.6 points 4-5: slice into chunkSize pieces and
// compute each chunk's target_time_ms from the cumulative byte fraction,
// not a per-chunk delta, so rounding error never accumulates and the last
// chunk lands exactly on ttfb + transfer_duration.
func chunkBody(body []byte, ttfbMs int64, mbps *float64, chunkSize int) []types.BodyChunk {
	if len(body) == 0 {
		return []types.BodyChunk{}
	}

	transferDurationMs := transferDuration(len(body), mbps)

	total := len(body)
	var chunks []types.BodyChunk
	for start := 0; start < total; start += chunkSize {
		end := start + chunkSize
		if end > total {
			end = total
		}

		fraction := float64(end) / float64(total)
		targetTime := ttfbMs + int64(float64(transferDurationMs)*fraction)

		chunks = append(chunks, types.BodyChunk{
			Bytes:        append([]byte(nil), body[start:end]...),
			TargetTimeMs: targetTime,
		})
	}
	return chunks
}

// transferDuration recovers transfer_duration_ms from the recorded mbps
// by inverting the recorder's (bytes / ms) * 8 / 1e6 formula, defaulting
// to 100ms when mbps wasn't recorded (e.g. an empty-body resource that
// somehow reaches here, or pre-mbps inventories).
func transferDuration(bodyBytes int, mbps *float64) int64 {
	if mbps == nil || *mbps <= 0 {
		return 100
	}
	totalBits := float64(bodyBytes) * 8
	ms := int64(math.Round(totalBits / (*mbps * 1e6)))
	if ms < 1 {
		ms = 1
	}
	return ms
}

func cloneHeaders(h types.Headers) types.Headers {
	out := make(types.Headers, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
