package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// UnknownIdentifier is the sentinel identifier used when no valid
// client IP can be derived from a request.
const UnknownIdentifier = "0.0.0.0"

// ClientIdentifier derives the rate-limiting identifier for a request.
//
// Precedence: the first value of X-Forwarded-For (set by the load
// balancer in front of the horizontally scaled instances), then
// X-Real-IP, then the connection's remote address. The result is always
// a syntactically valid IP; anything unparsable collapses to
// UnknownIdentifier so a spoofed header cannot mint unlimited distinct
// quota buckets.
func ClientIdentifier(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := fwd
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			first = fwd[:idx]
		}
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
		return UnknownIdentifier
	}

	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		if ip := net.ParseIP(real); ip != nil {
			return ip.String()
		}
		return UnknownIdentifier
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return UnknownIdentifier
}
