package mitm

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// rawResponseWriter implements http.ResponseWriter directly over a raw
// connection for requests read off a hijacked, TLS-terminated stream
// (§4.3's "Tunnelled -> Serving" leg, where net/http's own server loop
// isn't available). Grounded on the reference proxy's manual
// "build header buffer, write it, then stream body" sequence and its
// chunkedWriter for the no-content-length case.
type rawResponseWriter struct {
	w             *bufio.Writer
	header        http.Header
	statusCode    int
	wroteHeader   bool
	chunked       bool
	chunkedWriter *chunkedWriter
}

func newRawResponseWriter(w io.Writer) *rawResponseWriter {
	return &rawResponseWriter{w: bufio.NewWriter(w), header: make(http.Header), statusCode: http.StatusOK}
}

func (r *rawResponseWriter) Header() http.Header { return r.header }

func (r *rawResponseWriter) WriteHeader(statusCode int) {
	if r.wroteHeader {
		return
	}
	r.statusCode = statusCode
	r.wroteHeader = true

	removeHopByHopHeaders(r.header)

	if r.header.Get("Content-Length") == "" {
		r.header.Set("Transfer-Encoding", "chunked")
		r.chunked = true
	}

	fmt.Fprintf(r.w, "HTTP/1.1 %d %s\r\n", statusCode, http.StatusText(statusCode))
	r.header.Write(r.w)
	r.w.WriteString("\r\n")

	if r.chunked {
		r.chunkedWriter = newChunkedWriter(r.w)
	}
}

func (r *rawResponseWriter) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	if r.chunked {
		return r.chunkedWriter.Write(p)
	}
	return r.w.Write(p)
}

// Flush satisfies http.Flusher so streaming handlers can force bytes out.
func (r *rawResponseWriter) Flush() {
	r.w.Flush()
}

// Close finalises the response (the chunked terminator, if any) and
// flushes the underlying buffered writer.
func (r *rawResponseWriter) Close() error {
	if !r.wroteHeader {
		r.WriteHeader(r.statusCode)
	}
	if r.chunked && r.chunkedWriter != nil {
		r.chunkedWriter.Close()
	}
	return r.w.Flush()
}

// SetContentLength lets a caller that already knows the body length avoid
// chunked encoding, matching the non-SSE branch of the reference proxy.
func (r *rawResponseWriter) SetContentLength(n int) {
	r.header.Set("Content-Length", strconv.Itoa(n))
}

// chunkedWriter implements HTTP/1.1 chunked transfer encoding, lifted
// directly from the reference MITM proxy's chunkedWriter.
type chunkedWriter struct {
	w io.Writer
}

func newChunkedWriter(w io.Writer) *chunkedWriter {
	return &chunkedWriter{w: w}
}

func (c *chunkedWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if _, err := fmt.Fprintf(c.w, "%x\r\n", len(p)); err != nil {
		return 0, err
	}
	n, err := c.w.Write(p)
	if err != nil {
		return n, err
	}
	if _, err := c.w.Write([]byte("\r\n")); err != nil {
		return n, err
	}
	return n, nil
}

func (c *chunkedWriter) Close() error {
	_, err := c.w.Write([]byte("0\r\n\r\n"))
	return err
}

// hopByHopHeaders are stripped before writing a response to either hop,
// per §4.8 (also applied here for the record-side relay, since a hop-by-
// hop header from upstream must not leak to the client either).
var hopByHopHeaders = []string{
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"Te", "Trailer", "Transfer-Encoding", "Upgrade",
}

// RemoveHopByHopHeaders strips the headers listed in §4.8 that are
// meaningful only on one HTTP hop (transfer-encoding, connection,
// keep-alive, proxy-*, te, trailer, upgrade), including any header named
// by a Connection: header value.
func RemoveHopByHopHeaders(h http.Header) {
	removeHopByHopHeaders(h)
}

func removeHopByHopHeaders(h http.Header) {
	conn := strings.Join(h.Values("Connection"), ",")
	for _, name := range hopByHopHeaders {
		h.Del(name)
	}
	if conn != "" {
		for _, name := range strings.Split(conn, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				h.Del(name)
			}
		}
	}
}
