package cache

import (
	"net/url"
	"testing"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestKey_String(t *testing.T) {
	tests := []struct {
		name   string
		method string
		url    string
		want   string
	}{
		{
			name:   "no query",
			method: "GET",
			url:    "https://api.example.com/users",
			want:   "rest:GET:https://api.example.com/users",
		},
		{
			name:   "query params sorted",
			method: "GET",
			url:    "https://api.example.com/users?page=2&limit=10",
			want:   "rest:GET:https://api.example.com/users:limit=10:page=2",
		},
		{
			name:   "lowercase method normalized",
			method: "head",
			url:    "https://api.example.com/status",
			want:   "rest:HEAD:https://api.example.com/status",
		},
		{
			name:   "repeated param values sorted",
			method: "GET",
			url:    "https://api.example.com/items?tag=b&tag=a",
			want:   "rest:GET:https://api.example.com/items:tag=a:tag=b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewKey(tt.method, mustParse(t, tt.url))
			if got := key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey_DeterministicAcrossParamOrder(t *testing.T) {
	a := NewKey("GET", mustParse(t, "https://api.example.com/u?x=1&y=2"))
	b := NewKey("GET", mustParse(t, "https://api.example.com/u?y=2&x=1"))

	if a.String() != b.String() {
		t.Errorf("keys differ for reordered params: %q vs %q", a.String(), b.String())
	}
}

func TestKey_MethodDistinguishes(t *testing.T) {
	get := NewKey("GET", mustParse(t, "https://api.example.com/u"))
	head := NewKey("HEAD", mustParse(t, "https://api.example.com/u"))

	if get.String() == head.String() {
		t.Error("GET and HEAD keys should differ")
	}
}
