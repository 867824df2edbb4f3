package types

import (
	"encoding/json"
	"fmt"
)

// HeaderValue holds either a single header value or an ordered list of
// values for headers that legally repeat (set-cookie, in particular). It
// marshals untagged: a single string stays a JSON string, a multi-value
// header becomes a JSON array, so the inventory file reads naturally from
// any language.
type HeaderValue struct {
	values []string
}

// NewHeaderValue wraps one or more values in insertion order.
func NewHeaderValue(values ...string) HeaderValue {
	return HeaderValue{values: append([]string(nil), values...)}
}

// Values returns the ordered list of values, never nil.
func (h HeaderValue) Values() []string {
	if h.values == nil {
		return []string{}
	}
	return h.values
}

// First returns the first value, or "" if there are none.
func (h HeaderValue) First() string {
	if len(h.values) == 0 {
		return ""
	}
	return h.values[0]
}

// Add appends a value, switching the encoded form from string to array.
func (h *HeaderValue) Add(v string) {
	h.values = append(h.values, v)
}

func (h HeaderValue) MarshalJSON() ([]byte, error) {
	switch len(h.values) {
	case 0:
		return []byte("null"), nil
	case 1:
		return json.Marshal(h.values[0])
	default:
		return json.Marshal(h.values)
	}
}

func (h *HeaderValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		h.values = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		h.values = []string{single}
		return nil
	}
	var multi []string
	if err := json.Unmarshal(data, &multi); err == nil {
		h.values = multi
		return nil
	}
	return fmt.Errorf("header value is neither a string nor a string array: %s", data)
}

// Headers is the on-the-wire representation of raw_headers: lowercase
// header name to HeaderValue, preserving per-header value order but not
// insertion order across distinct names (per §3).
type Headers map[string]HeaderValue

// Set replaces a header's values outright.
func (h Headers) Set(name string, values ...string) {
	h[name] = NewHeaderValue(values...)
}

// Add appends a value to an existing header or creates it.
func (h Headers) Add(name, value string) {
	if existing, ok := h[name]; ok {
		existing.Add(value)
		h[name] = existing
		return
	}
	h[name] = NewHeaderValue(value)
}

// Get returns the first value for name, or "".
func (h Headers) Get(name string) string {
	if hv, ok := h[name]; ok {
		return hv.First()
	}
	return ""
}
