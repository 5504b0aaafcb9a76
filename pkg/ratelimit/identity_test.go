package ratelimit

import (
	"net/http/httptest"
	"testing"
)

func TestClientIdentifier(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "forwarded-for first value wins",
			remoteAddr: "127.0.0.1:4000",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"},
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded-for single value",
			remoteAddr: "127.0.0.1:4000",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:       "203.0.113.7",
		},
		{
			name:       "invalid forwarded-for collapses to sentinel",
			remoteAddr: "192.0.2.9:4000",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip"},
			want:       UnknownIdentifier,
		},
		{
			name:       "real-ip fallback",
			remoteAddr: "127.0.0.1:4000",
			headers:    map[string]string{"X-Real-IP": "198.51.100.3"},
			want:       "198.51.100.3",
		},
		{
			name:       "invalid real-ip collapses to sentinel",
			remoteAddr: "192.0.2.9:4000",
			headers:    map[string]string{"X-Real-IP": "bogus"},
			want:       UnknownIdentifier,
		},
		{
			name:       "remote addr fallback",
			remoteAddr: "192.0.2.9:4000",
			want:       "192.0.2.9",
		},
		{
			name:       "ipv6 remote addr",
			remoteAddr: "[2001:db8::1]:4000",
			want:       "2001:db8::1",
		},
		{
			name:       "unparsable remote addr",
			remoteAddr: "garbage",
			want:       UnknownIdentifier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIdentifier(r); got != tt.want {
				t.Errorf("ClientIdentifier() = %q, want %q", got, tt.want)
			}
		})
	}
}
