// Package upstream implements C5: the outbound HTTP client used by the
// recording proxy, capturing TTFB and end-of-body wall-clock offsets and
// deriving mbps from them.
package upstream

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ideamans/playback-proxy-go/internal/types"
)

// Client issues outbound requests for the recording session. Deliberately
// plain net/http (the teacher's own createProxyHandler does the same,
// wrapping httputil.ReverseProxy rather than reaching for a third-party
// HTTP client) — no library in the example corpus covers this role.
type Client struct {
	HTTP *http.Client
	// SessionZero is the wall-clock instant of the first request observed
	// in the session; every ttfb_ms recorded is an offset from it (§4.5).
	// Set lazily by the first call to Do, not at construction time, so an
	// idle gap between process startup and the first real request never
	// inflates every recorded ttfb_ms in the session.
	SessionZero time.Time
	zeroOnce    sync.Once
}

// NewClient builds a Client with the teacher's transport shape: explicit
// timeouts, redirects left to the caller (so proxied redirects round-trip
// to the original client unchanged), TLS verification left enabled.
func NewClient(timeout time.Duration) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     false,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		HTTP: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Result is one completed (or failed) upstream leg.
type Result struct {
	StatusCode   int
	Headers      http.Header
	Body         []byte
	ErrorMessage string

	TTFBMs         int64
	DownloadEndMs  int64
	MBPS           *float64
}

// Do issues req, capturing TTFB at the instant headers arrive and
// download_end at the instant the body is fully read (§4.5). A transport
// error or a body-read failure both produce a Result with ErrorMessage set
// and no StatusCode, matching the §7 UpstreamNetworkError/BodyReadFailed
// policy of "emit Resource with error_message, no body".
func (c *Client) Do(req *http.Request) Result {
	c.zeroOnce.Do(func() { c.SessionZero = time.Now() })

	resp, err := c.HTTP.Do(req)
	ttfb := time.Since(c.SessionZero).Milliseconds()
	if err != nil {
		return Result{ErrorMessage: fmt.Sprintf("upstream request failed: %v", err), TTFBMs: ttfb}
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	downloadEnd := time.Since(c.SessionZero).Milliseconds()
	if readErr != nil {
		return Result{
			ErrorMessage:  fmt.Sprintf("reading response body failed: %v", readErr),
			TTFBMs:        ttfb,
			DownloadEndMs: downloadEnd,
		}
	}

	return Result{
		StatusCode:    resp.StatusCode,
		Headers:       resp.Header,
		Body:          body,
		TTFBMs:        ttfb,
		DownloadEndMs: downloadEnd,
		MBPS:          mbps(len(body), ttfb, downloadEnd),
	}
}

// mbps implements §4.5's formula, omitted for an empty body.
func mbps(bodyBytes int, ttfbMs, downloadEndMs int64) *float64 {
	if bodyBytes == 0 {
		return nil
	}
	durationMs := downloadEndMs - ttfbMs
	if durationMs < 1 {
		durationMs = 1
	}
	v := (float64(bodyBytes) / float64(durationMs)) * 8 / 1e6
	return &v
}

// ToHeaders converts an http.Header into the inventory's ordered
// multi-value Headers representation (§3's "header value... single string
// or an ordered list", preserving set-cookie order in particular).
func ToHeaders(h http.Header) types.Headers {
	out := make(types.Headers, len(h))
	for k, values := range h {
		out[strings.ToLower(k)] = types.NewHeaderValue(values...)
	}
	return out
}
