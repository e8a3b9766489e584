package util

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	// The compose setup: one nginx ingress on the container network.
	trusted, err := NewTrustedProxies([]string{"172.18.0.0/16", "127.0.0.1"})
	if err != nil {
		t.Fatalf("new trusted proxies: %v", err)
	}

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		trusted    *TrustedProxies
		want       string
	}{
		{
			name:       "no trusted proxies ignores forwarded header",
			remoteAddr: "198.51.100.10:52011",
			xff:        "203.0.113.5",
			want:       "198.51.100.10",
		},
		{
			name:       "untrusted peer ignores forwarded header",
			remoteAddr: "198.51.100.10:52011",
			xff:        "203.0.113.5",
			trusted:    trusted,
			want:       "198.51.100.10",
		},
		{
			name:       "ingress proxy forwards the terminal client address",
			remoteAddr: "172.18.0.2:80",
			xff:        "203.0.113.5",
			trusted:    trusted,
			want:       "203.0.113.5",
		},
		{
			name:       "chain through local tls terminator picks first untrusted hop",
			remoteAddr: "127.0.0.1:443",
			xff:        "203.0.113.5, 172.18.0.2",
			trusted:    trusted,
			want:       "203.0.113.5",
		},
		{
			name:       "unusable forwarded header falls back to peer",
			remoteAddr: "172.18.0.2:80",
			xff:        "not-an-ip",
			trusted:    trusted,
			want:       "172.18.0.2",
		},
		{
			name:       "all hops trusted returns leftmost",
			remoteAddr: "172.18.0.2:80",
			xff:        "172.18.0.7, 172.18.0.3",
			trusted:    trusted,
			want:       "172.18.0.7",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "http://chat.example.com/rpc/getConversations", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if got := ClientIP(req, tc.trusted); got != tc.want {
				t.Fatalf("client ip = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewTrustedProxies(t *testing.T) {
	if _, err := NewTrustedProxies([]string{"172.18.0.0/16", "::1"}); err != nil {
		t.Fatalf("expected valid entries, got err: %v", err)
	}
	if tp, err := NewTrustedProxies([]string{"  ", ""}); err != nil || tp != nil {
		t.Fatalf("blank entries should mean trust none, got %v, %v", tp, err)
	}
	if _, err := NewTrustedProxies([]string{"nginx"}); err == nil {
		t.Fatalf("expected parse error for invalid entry")
	}
}
