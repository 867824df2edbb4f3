// Package record wires C3 (mitm), C4 (correlate), C5 (upstream), C2
// (normalize) and C1 (inventory) into the recording proxy's request
// handler.
package record

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/ideamans/playback-proxy-go/internal/correlate"
	"github.com/ideamans/playback-proxy-go/internal/inventory"
	"github.com/ideamans/playback-proxy-go/internal/mitm"
	"github.com/ideamans/playback-proxy-go/internal/normalize"
	"github.com/ideamans/playback-proxy-go/internal/types"
	"github.com/ideamans/playback-proxy-go/internal/upstream"
)

// Recorder owns one recording session: the in-memory/on-disk inventory,
// the per-connection correlation tracker, and the upstream client.
type Recorder struct {
	Store    *inventory.Store
	Tracker  *correlate.Tracker
	Upstream *upstream.Client
	Logger   *slog.Logger
}

// NewRecorder builds a Recorder from its dependencies.
func NewRecorder(store *inventory.Store, upstreamClient *upstream.Client, logger *slog.Logger) *Recorder {
	return &Recorder{
		Store:    store,
		Tracker:  correlate.NewTracker(),
		Upstream: upstreamClient,
		Logger:   logger,
	}
}

// OnConnState implements mitm.OnStateChange, forgetting a connection's
// correlation queue once it closes (§4.4).
func (rec *Recorder) OnConnState(connID string, state mitm.ConnState) {
	if state == mitm.StateClosed {
		rec.Tracker.Forget(connID)
	}
}

// Handle implements mitm.Handler: it is called once per HTTP request the
// listener decodes, whether plaintext or TLS-terminated. It is never
// called for CONNECT itself (§4.3/§4.4).
func (rec *Recorder) Handle(connID string, w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	descriptor := correlate.Descriptor{
		Method:    r.Method,
		URL:       r.URL.String(),
		StartedAt: started,
		Headers:   upstream.ToHeaders(r.Header),
	}
	rec.Tracker.Push(connID, descriptor)

	bodyBytes, _ := io.ReadAll(r.Body)
	r.Body.Close()

	outReq, err := http.NewRequestWithContext(r.Context(), r.Method, resolveURL(r), newBodyReader(bodyBytes))
	if err != nil {
		rec.dequeueAndEmitError(connID, descriptor, fmt.Sprintf("building upstream request: %v", err))
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	outReq.Header = r.Header.Clone()

	result := rec.Upstream.Do(outReq)

	if _, ok := rec.Tracker.Pop(connID); !ok {
		rec.logf("correlation queue empty on response for %s %s", r.Method, r.URL)
	}

	if result.ErrorMessage != "" {
		rec.emitResource(types.Resource{
			Method:       descriptor.Method,
			URL:          descriptor.URL,
			TTFBMs:       result.TTFBMs,
			ErrorMessage: strPtr(result.ErrorMessage),
			RawHeaders:   descriptor.Headers,
		})
		http.Error(w, "Bad gateway", http.StatusBadGateway)
		return
	}

	rec.serveAndRecord(descriptor, result, w)
}

func (rec *Recorder) dequeueAndEmitError(connID string, descriptor correlate.Descriptor, msg string) {
	rec.Tracker.Pop(connID)
	rec.emitResource(types.Resource{
		Method:       descriptor.Method,
		URL:          descriptor.URL,
		ErrorMessage: strPtr(msg),
		RawHeaders:   descriptor.Headers,
	})
}

// serveAndRecord writes result back to the client, then normalises and
// persists it as a Resource.
func (rec *Recorder) serveAndRecord(descriptor correlate.Descriptor, result upstream.Result, w http.ResponseWriter) {
	for name, values := range result.Headers {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(result.StatusCode)
	if _, err := w.Write(result.Body); err != nil {
		rec.logf("writing response to client: %v", err)
	}

	contentType := result.Headers.Get("Content-Type")
	mimeType, _, _ := mime.ParseMediaType(contentType)
	if mimeType == "" {
		mimeType = strings.SplitN(contentType, ";", 2)[0]
	}

	normResult := normalize.Process(result.Body, result.Headers.Get("Content-Encoding"), contentType, mimeType)

	resource := types.Resource{
		Method:          descriptor.Method,
		URL:             descriptor.URL,
		TTFBMs:          result.TTFBMs,
		MBPS:            result.MBPS,
		StatusCode:      intPtr(result.StatusCode),
		RawHeaders:      upstream.ToHeaders(result.Headers),
		ContentTypeMime: mimeType,
		Minify:          normResult.Minify,
	}
	if normResult.IsText {
		resource.ContentCharset = normResult.Charset
		resource.ContentEncoding = types.EncodingIdentity
	} else if ce := result.Headers.Get("Content-Encoding"); ce != "" {
		resource.ContentEncoding = types.ContentEncoding(ce)
	}

	if normalize.PreferFile(normResult.IsText, len(normResult.Bytes)) {
		relPath, err := inventory.ContentPath(descriptor.Method, descriptor.URL)
		if err != nil {
			rec.logf("computing content path for %s: %v", descriptor.URL, err)
		} else if err := rec.Store.WriteContent(relPath, normResult.Bytes); err != nil {
			rec.logf("writing content for %s: %v", descriptor.URL, err)
		} else {
			resource.ContentFilePath = strPtr(relPath)
		}
	} else if len(normResult.Bytes) > 0 {
		encoded := encodeBase64(normResult.Bytes)
		resource.ContentBase64 = &encoded
	}

	rec.emitResource(resource)
}

func (rec *Recorder) emitResource(r types.Resource) {
	rec.Store.Append(r)
}

func (rec *Recorder) logf(format string, args ...any) {
	if rec.Logger != nil {
		rec.Logger.Error(fmt.Sprintf(format, args...))
	}
}

func resolveURL(r *http.Request) string {
	if r.URL.IsAbs() {
		return r.URL.String()
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
