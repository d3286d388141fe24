// Package httputil has small helpers shared by the HTTP layer.
package httputil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the address a request came from, for logging. With
// trustProxy set, forwarding headers take precedence over the socket peer;
// leave it off unless a trusted reverse proxy sits in front, since the
// headers are client-controlled otherwise.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := fromProxyHeaders(r.Header); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port, e.g. in handler tests.
		return r.RemoteAddr
	}
	return host
}

func fromProxyHeaders(h http.Header) string {
	// X-Forwarded-For accumulates one entry per hop; the first one is the
	// original client.
	if xff := h.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return strings.TrimSpace(h.Get("X-Real-IP"))
}
