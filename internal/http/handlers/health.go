package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tenpadel-backend/internal/data/repos"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/mirror"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

type HealthHandler struct {
	log        *logger.Logger
	repo       repos.TournamentRepo
	mirrorPath string
}

func NewHealthHandler(log *logger.Logger, repo repos.TournamentRepo, mirrorPath string) *HealthHandler {
	return &HealthHandler{log: log.With("handler", "HealthHandler"), repo: repo, mirrorPath: mirrorPath}
}

type healthPayload struct {
	Status      string `json:"status"`
	MirrorCount int    `json:"mirror_count"`
	StoreCount  int64  `json:"store_count"`
	Consistent  bool   `json:"consistent"`
}

// HealthCheck reports "ok" when the mirror matches the store and "degraded"
// when it drifted. An unreachable store is a 503.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	rep, err := mirror.Check(c.Request.Context(), h.mirrorPath, h.repo)
	if err != nil {
		h.log.Warn("healthcheck failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, healthPayload{Status: "error"})
		return
	}
	status := "ok"
	if !rep.Consistent {
		status = "degraded"
	}
	c.JSON(http.StatusOK, healthPayload{
		Status:      status,
		MirrorCount: rep.MirrorCount,
		StoreCount:  rep.StoreCount,
		Consistent:  rep.Consistent,
	})
}
