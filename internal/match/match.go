// Package match implements C7: mapping an inbound (method, host, path,
// query) to a prepared Transaction, with a host-optional fallback for
// inventories recorded before host information was tracked.
package match

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/ideamans/playback-proxy-go/internal/types"
)

// Key identifies one transaction slot (§4.7).
type Key struct {
	Method string
	Host   string // "" means unknown/absent
	Path   string
	Query  string
}

// entry pairs a Key with the Transaction it was built from. Insertion
// order is preserved (a plain slice, not a map) so "first match found" in
// §4.7 has a well-defined meaning when multiple resources could satisfy a
// host-ignored fallback.
type entry struct {
	key Key
	txn *types.Transaction
}

// Matcher is built once per playback session and read concurrently by
// every served request (§3 "Transactions exist... treated as read-only").
type Matcher struct {
	entries []entry
}

// NewMatcher indexes txns in their given (inventory) order.
func NewMatcher(txns []*types.Transaction) *Matcher {
	m := &Matcher{entries: make([]entry, 0, len(txns))}
	for _, txn := range txns {
		u, err := url.Parse(txn.URL)
		if err != nil {
			continue
		}
		m.entries = append(m.entries, entry{
			key: Key{
				Method: strings.ToUpper(txn.Method),
				Host:   hostFromHeadersOrURL(txn.RawHeaders, u),
				Path:   u.Path,
				Query:  u.RawQuery,
			},
			txn: txn,
		})
	}
	return m
}

// KeyFromRequest builds a lookup Key from an inbound request, per §4.7:
// host = Host header if present, else request-URI authority, else "".
func KeyFromRequest(r *http.Request) Key {
	host := r.Host
	if host == "" && r.URL != nil {
		host = r.URL.Host
	}
	return Key{
		Method: strings.ToUpper(r.Method),
		Host:   host,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
	}
}

// Match implements §4.7's lookup rule: exact key equality first; if no
// match and one side has host = "", retry ignoring host. Returns the
// first match in insertion (inventory) order, or nil.
func (m *Matcher) Match(k Key) *types.Transaction {
	for _, e := range m.entries {
		if e.key == k {
			return e.txn
		}
	}

	for _, e := range m.entries {
		if e.key.Host == "" || k.Host == "" {
			if e.key.Method == k.Method && e.key.Path == k.Path && e.key.Query == k.Query {
				return e.txn
			}
		}
	}

	return nil
}

func hostFromHeadersOrURL(headers types.Headers, u *url.URL) string {
	if hv, ok := headers["host"]; ok {
		if h := hv.First(); h != "" {
			return h
		}
	}
	return u.Host
}
