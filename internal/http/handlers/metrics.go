package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/tenpadel-backend/internal/observability"
)

func MetricsHandler(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		m.WriteHTTP(c.Writer, c.Request)
	}
}
