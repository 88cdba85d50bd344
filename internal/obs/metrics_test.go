package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                          "/",
		"/metrics":                  "/metrics",
		"/v1/records/me":            "/v1/records/me",
		"/v1/records/0xabc":         "/v1/records/:owner",
		"/v1/records/0xabc?x=1":     "/v1/records/:owner",
		"/v1/records/0xabc/extra":   "/v1/records/0xabc/extra",
		"/v1/access/grants":         "/v1/access/grants",
		"/v1/ledger/events?limit=5": "/v1/ledger/events",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
