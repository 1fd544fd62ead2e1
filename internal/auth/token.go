package auth

import (
	"net/http"
	"strings"
)

// ExtractToken reads a bearer token from the Authorization header, falling
// back to the "token" query parameter used by browser websocket clients.
func ExtractToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
