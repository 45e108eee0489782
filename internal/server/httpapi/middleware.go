package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/dentdocs/internal/api"
	"github.com/dmitrijs2005/dentdocs/internal/common"
	"github.com/dmitrijs2005/dentdocs/internal/logging"
	"github.com/dmitrijs2005/dentdocs/internal/server/auth"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// JWTAuth verifies the bearer token and stores the caller's claims both in
// the gin context and in the request context.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			Error(c, http.StatusUnauthorized, api.CodeUnauthorized, "missing bearer token")
			c.Abort()
			return
		}

		claims, err := auth.ParseToken(strings.TrimSpace(token), secret)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, common.ErrTokenExpired) {
				msg = "token expired"
			}
			Error(c, http.StatusUnauthorized, api.CodeUnauthorized, msg)
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Request = c.Request.WithContext(auth.WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

// RequireRole ensures that the authenticated user has the specified role
func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ctxRole)
		if !exists {
			Error(c, http.StatusUnauthorized, api.CodeUnauthorized, "role not found in token")
			c.Abort()
			return
		}

		if r, _ := role.(string); r != requiredRole {
			Error(c, http.StatusForbidden, api.CodeForbidden, "access denied: insufficient permissions")
			c.Abort()
			return
		}

		c.Next()
	}
}

// ManagerOnly requires the manager role.
func ManagerOnly() gin.HandlerFunc {
	return RequireRole(common.RoleManager)
}

// RequestLogger logs one line per request.
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if uid := c.GetString(ctxUserID); uid != "" {
			args = append(args, "user_id", uid)
		}
		if len(c.Errors) > 0 {
			args = append(args, "error", c.Errors.String())
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error(c.Request.Context(), "request", args...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn(c.Request.Context(), "request", args...)
		default:
			logger.Debug(c.Request.Context(), "request", args...)
		}
	}
}

// Recovery turns panics into an internal error envelope.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error(c.Request.Context(), "panic", "path", c.Request.URL.Path, "panic", recovered)
		Error(c, http.StatusInternalServerError, api.CodeInternal, "internal error")
		c.Abort()
	})
}
