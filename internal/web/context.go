package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/tabletools/internal/core"
)

// clientIP returns the caller's address without the port. RemoteAddr has
// already been rewritten by TrustedRealIP for proxied requests.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// withRequestMetadata adds the client IP to the context for the history log.
func withRequestMetadata(r *http.Request) context.Context {
	return core.ContextWithClientIP(r.Context(), clientIP(r))
}
