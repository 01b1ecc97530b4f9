package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tenpadel-backend/internal/http/response"
	"github.com/yungbote/tenpadel-backend/internal/platform/apierr"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

const headerAdminToken = "X-Admin-Token"

// RequireAdminToken guards admin routes with a static shared token. With no
// token configured every request is refused.
func RequireAdminToken(token string, log *logger.Logger) gin.HandlerFunc {
	mwLog := log.With("middleware", "AdminToken")
	want := []byte(strings.TrimSpace(token))
	if len(want) == 0 {
		mwLog.Warn("ADMIN_TOKEN not set, admin routes disabled")
	}
	return func(c *gin.Context) {
		got := []byte(extractAdminToken(c))
		if len(want) == 0 || len(got) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			response.RespondAPIError(c, apierr.New(http.StatusUnauthorized, apierr.CodeUnauthorized, errors.New("missing or invalid admin token")), nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

func extractAdminToken(c *gin.Context) string {
	if v := strings.TrimSpace(c.GetHeader(headerAdminToken)); v != "" {
		return v
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
