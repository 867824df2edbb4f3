package types

import (
	"encoding/json"
	"testing"
)

func TestHeaderValueMarshalSingle(t *testing.T) {
	hv := NewHeaderValue("text/html")
	data, err := json.Marshal(hv)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"text/html"` {
		t.Errorf("got %s, want a bare JSON string", data)
	}
}

func TestHeaderValueMarshalMulti(t *testing.T) {
	hv := NewHeaderValue("a=1", "b=2")
	data, err := json.Marshal(hv)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["a=1","b=2"]` {
		t.Errorf("got %s, want a JSON array", data)
	}
}

func TestHeaderValueUnmarshalBothForms(t *testing.T) {
	var single HeaderValue
	if err := json.Unmarshal([]byte(`"text/html"`), &single); err != nil {
		t.Fatal(err)
	}
	if single.First() != "text/html" {
		t.Errorf("single.First() = %q", single.First())
	}

	var multi HeaderValue
	if err := json.Unmarshal([]byte(`["a=1","b=2"]`), &multi); err != nil {
		t.Fatal(err)
	}
	if len(multi.Values()) != 2 || multi.Values()[0] != "a=1" {
		t.Errorf("multi.Values() = %v", multi.Values())
	}
}

func TestHeaderValueUnmarshalNull(t *testing.T) {
	var hv HeaderValue
	if err := json.Unmarshal([]byte(`null`), &hv); err != nil {
		t.Fatal(err)
	}
	if len(hv.Values()) != 0 {
		t.Errorf("expected no values, got %v", hv.Values())
	}
}

func TestHeadersRoundTrip(t *testing.T) {
	h := make(Headers)
	h.Set("content-type", "application/json")
	h.Add("set-cookie", "a=1")
	h.Add("set-cookie", "b=2")

	data, err := json.Marshal(h)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Headers
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded.Get("content-type") != "application/json" {
		t.Errorf("content-type = %q", decoded.Get("content-type"))
	}
	if got := decoded["set-cookie"].Values(); len(got) != 2 || got[0] != "a=1" || got[1] != "b=2" {
		t.Errorf("set-cookie = %v", got)
	}
}
