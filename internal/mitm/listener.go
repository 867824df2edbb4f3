package mitm

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Handler is invoked for every HTTP request the listener terminates,
// whether plaintext or TLS-terminated behind a CONNECT tunnel. connID
// identifies the underlying client connection for the correlation layer
// (C4); it is stable across every request multiplexed onto one
// connection, including pipelined ones.
type Handler func(connID string, w http.ResponseWriter, r *http.Request)

// OnStateChange is notified whenever a client connection's state machine
// (§4.3) transitions.
type OnStateChange func(connID string, state ConnState)

// Listener is C3: it accepts client connections, mints per-authority leaf
// certificates via Leafs, terminates CONNECT tunnels, and dispatches every
// HTTP request it decodes — plaintext or post-handshake — to Handler.
type Listener struct {
	CA     *CA
	Leafs  *LeafCache
	Logger *slog.Logger

	Handler       Handler
	OnStateChange OnStateChange

	// InterceptsHost reports whether a CONNECT authority should be
	// TLS-terminated and recorded. nil means "intercept everything". An
	// authority it rejects is tunnelled blind (raw bytes relayed to the
	// real origin, untouched) rather than MITM'd, so Handler never sees
	// it and nothing is recorded for it.
	InterceptsHost func(authority string) bool

	server *http.Server
}

// Serve runs the listener on ln until ctx is cancelled. It owns an
// http.Server for the plaintext/CONNECT-accepting leg; TLS-terminated
// connections are served by a hand-rolled request loop (handleTunnelled)
// since they no longer pass through net/http's own accept loop once
// hijacked.
func (l *Listener) Serve(ctx context.Context, ln net.Listener) error {
	l.server = &http.Server{
		Handler: http.HandlerFunc(l.serveOuter),
		ConnContext: func(ctx context.Context, c net.Conn) context.Context {
			id := uuid.New().String()
			l.notifyState(id, StateAccepted)
			return WithConnID(ctx, id)
		},
		ReadTimeout:  0,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.server.Shutdown(shutdownCtx)
	}()

	if err := l.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func (l *Listener) notifyState(connID string, state ConnState) {
	if l.OnStateChange != nil {
		l.OnStateChange(connID, state)
	}
}

func (l *Listener) serveOuter(w http.ResponseWriter, r *http.Request) {
	connID, _ := ConnIDFromContext(r.Context())

	if r.Method == http.MethodConnect {
		l.handleConnect(connID, w, r)
		return
	}

	l.notifyState(connID, StatePlaintext)
	l.notifyState(connID, StateServing)
	l.Handler(connID, w, r)
}

// handleConnect implements the CONNECT leg of §4.3: respond 200, hijack,
// TLS-terminate with a minted leaf, then loop reading HTTP requests off
// the now-cleartext stream until the client disconnects. An authority
// outside the configured intercept scope (InterceptsHost) is instead
// tunnelled blind, relaying bytes to the real origin untouched.
func (l *Listener) handleConnect(connID string, w http.ResponseWriter, r *http.Request) {
	if l.InterceptsHost != nil && !l.InterceptsHost(r.Host) {
		l.handleBlindTunnel(connID, w, r)
		return
	}

	l.notifyState(connID, StateTlsNegotiating)

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		http.Error(w, "hijacking not supported", http.StatusInternalServerError)
		l.notifyState(connID, StateClosed)
		return
	}

	clientConn, _, err := hijacker.Hijack()
	if err != nil {
		l.logf("hijack failed: %v", err)
		l.notifyState(connID, StateClosed)
		return
	}

	if _, err := clientConn.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n")); err != nil {
		clientConn.Close()
		l.notifyState(connID, StateClosed)
		return
	}

	tlsConfig := &tls.Config{
		GetCertificate: l.Leafs.GetCertificate,
		NextProtos:     []string{"http/1.1"},
	}
	tlsConn := tls.Server(clientConn, tlsConfig)
	if err := tlsConn.HandshakeContext(r.Context()); err != nil {
		// A failed handshake MUST NOT enqueue anything in the correlation
		// layer (§4.3) — we transition straight to Closed without ever
		// calling Handler.
		l.logf("TLS handshake failed for %s: %v", r.Host, err)
		clientConn.Close()
		l.notifyState(connID, StateClosed)
		return
	}

	l.notifyState(connID, StateTunnelled)
	host := r.Host
	l.handleTunnelled(connID, tlsConn, host)
}

// handleTunnelled reads successive HTTP requests off a TLS-terminated
// connection and dispatches each to Handler via a raw response writer,
// since this stream is no longer owned by net/http's own server loop.
// HTTP/1.1 pipelining on this connection is exactly what the correlation
// layer (C4) relies on the server to preserve request order for.
func (l *Listener) handleTunnelled(connID string, conn net.Conn, host string) {
	defer conn.Close()
	reader := bufio.NewReader(conn)

	for {
		req, err := http.ReadRequest(reader)
		if err != nil {
			if err != io.EOF {
				l.logf("read request on tunnelled conn to %s: %v", host, err)
			}
			l.notifyState(connID, StateClosed)
			return
		}

		req.URL.Scheme = "https"
		if req.URL.Host == "" {
			req.URL.Host = host
		}
		if req.Host == "" {
			req.Host = host
		}

		ctx := WithConnID(req.Context(), connID)
		req = req.WithContext(ctx)

		rw := newRawResponseWriter(conn)
		l.notifyState(connID, StateServing)
		l.Handler(connID, rw, req)
		if err := rw.Close(); err != nil {
			l.logf("flush response on tunnelled conn to %s: %v", host, err)
			l.notifyState(connID, StateClosed)
			return
		}

		if strings.EqualFold(req.Header.Get("Connection"), "close") {
			l.notifyState(connID, StateClosed)
			return
		}
	}
}

// handleBlindTunnel relays raw bytes between the client and the real
// origin for an authority outside the intercept scope: dial it directly,
// answer the CONNECT with 200, then copy in both directions until either
// side closes. Neither Handler nor the correlation layer ever see this
// traffic.
func (l *Listener) handleBlindTunnel(connID string, w http.ResponseWriter, r *http.Request) {
	upstreamConn, err := net.DialTimeout("tcp", r.Host, 10*time.Second)
	if err != nil {
		http.Error(w, "connect to origin failed", http.StatusBadGateway)
		l.notifyState(connID, StateClosed)
		return
	}

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		upstreamConn.Close()
		http.Error(w, "hijacking not supported", http.StatusInternalServerError)
		l.notifyState(connID, StateClosed)
		return
	}

	clientConn, _, err := hijacker.Hijack()
	if err != nil {
		upstreamConn.Close()
		l.logf("hijack failed: %v", err)
		l.notifyState(connID, StateClosed)
		return
	}

	if _, err := clientConn.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n")); err != nil {
		clientConn.Close()
		upstreamConn.Close()
		l.notifyState(connID, StateClosed)
		return
	}

	l.notifyState(connID, StateTunnelled)

	done := make(chan struct{}, 2)
	go func() {
		io.Copy(upstreamConn, clientConn)
		done <- struct{}{}
	}()
	go func() {
		io.Copy(clientConn, upstreamConn)
		done <- struct{}{}
	}()
	<-done

	clientConn.Close()
	upstreamConn.Close()
	l.notifyState(connID, StateClosed)
}

func (l *Listener) logf(format string, args ...any) {
	if l.Logger != nil {
		l.Logger.Error(fmt.Sprintf(format, args...))
	}
}
