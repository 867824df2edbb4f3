// Package config loads the optional TOML session-defaults file for a
// recording session (chunk size, idle timeouts, intercept scope). Command
// line flags (parsed in cmd/playbackproxy) always take precedence over
// values from this file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// InterceptTOML controls which authorities the MITM listener (C3) should
// terminate TLS for versus tunnel through untouched.
type InterceptTOML struct {
	Hosts []string `toml:"hosts"` // empty means "intercept everything"
}

// TimingTOML configures C6/C8 defaults.
type TimingTOML struct {
	ChunkSizeBytes int    `toml:"chunk_size_bytes"`
	IdleAfterBody  string `toml:"idle_after_body"` // Go duration, e.g. "0s"
}

// UpstreamTOML configures C5's outbound client.
type UpstreamTOML struct {
	RequestTimeout string `toml:"request_timeout"` // Go duration, e.g. "30s"
}

// Session is the full recording-session defaults document.
type Session struct {
	Intercept InterceptTOML `toml:"intercept"`
	Timing    TimingTOML    `toml:"timing"`
	Upstream  UpstreamTOML  `toml:"upstream"`
}

// DefaultSession mirrors the defaults baked into §4.6/§5 of the spec:
// 8 KiB chunks, no extra idle wait after the body, 30s upstream timeout.
func DefaultSession() *Session {
	return &Session{
		Timing: TimingTOML{
			ChunkSizeBytes: 8 * 1024,
			IdleAfterBody:  "0s",
		},
		Upstream: UpstreamTOML{
			RequestTimeout: "30s",
		},
	}
}

// Load reads and decodes a TOML session-defaults file, applying it on top
// of DefaultSession so a partial file only overrides what it sets.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	session := DefaultSession()
	if _, err := toml.Decode(string(data), session); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if session.Timing.ChunkSizeBytes <= 0 {
		return nil, fmt.Errorf("timing.chunk_size_bytes must be positive")
	}

	return session, nil
}

// RequestTimeout parses Upstream.RequestTimeout, falling back to 30s on an
// empty or unparsable value.
func (s *Session) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(s.Upstream.RequestTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// IdleAfterBodyDuration parses Timing.IdleAfterBody, defaulting to 0.
func (s *Session) IdleAfterBodyDuration() time.Duration {
	d, err := time.ParseDuration(s.Timing.IdleAfterBody)
	if err != nil {
		return 0
	}
	return d
}

// InterceptsHost reports whether authority should be MITM'd. An empty
// Hosts list means "intercept everything".
func (s *Session) InterceptsHost(authority string) bool {
	if len(s.Intercept.Hosts) == 0 {
		return true
	}
	for _, h := range s.Intercept.Hosts {
		if h == authority {
			return true
		}
	}
	return false
}

// GenerateExampleConfig returns a documented TOML example, in the style of
// the teacher's GenerateExampleConfig.
func GenerateExampleConfig() string {
	return `# playback-proxy session defaults
#
# All fields are optional; omitted fields keep their built-in default.

[intercept]
# Authorities to MITM-terminate. Empty (the default) means "all".
# hosts = ["example.com", "api.example.com"]

[timing]
# Body chunk size used when slicing a Transaction's encoded body.
chunk_size_bytes = 8192

# Extra wait after the last body chunk before closing, when the
# recording didn't capture an explicit close offset.
idle_after_body = "0s"

[upstream]
# Per-request timeout for the recording-side upstream client.
request_timeout = "30s"
`
}
