// Package middleware provides gin middleware for authentication, role
// checks, CORS and request logging.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pompomputin/wwebjs-webui-docker/internal/auth"
	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
)

// Context keys set by RequireAuth.
const (
	KeyUserID = "userID"
	KeyRole   = "role"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

type errorBody struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Error   errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorBody{
		Message: message,
		Error:   errorDetail{Code: code, Message: message},
	})
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's identity in the context.
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.ExtractToken(c.Request)
		if token == "" {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication token required")
			return
		}
		identity, err := verifier.Verify(token)
		if err != nil {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		}
		c.Set(KeyUserID, identity.Username)
		c.Set(KeyRole, identity.Role)
		c.Next()
	}
}

// RequireRole rejects callers whose role is below min.
func RequireRole(min model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(KeyRole)
		if r, ok := role.(model.Role); !ok || !r.AtLeast(min) {
			abort(c, http.StatusForbidden, "FORBIDDEN", "Role "+string(min)+" required")
			return
		}
		c.Next()
	}
}

// CORS allows cross-origin calls from origin.
func CORS(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestLogger logs one line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}
