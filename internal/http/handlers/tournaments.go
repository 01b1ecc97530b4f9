package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tenpadel-backend/internal/http/response"
	"github.com/yungbote/tenpadel-backend/internal/platform/apierr"
)

// TournamentHandler serves the mirror document as is. It never reads the
// store.
type TournamentHandler struct {
	mirrorPath string
}

func NewTournamentHandler(mirrorPath string) *TournamentHandler {
	return &TournamentHandler{mirrorPath: mirrorPath}
}

func (h *TournamentHandler) List(c *gin.Context) {
	if _, err := os.Stat(h.mirrorPath); err != nil {
		response.RespondAPIError(c, apierr.New(http.StatusServiceUnavailable, apierr.CodeMirrorMissing, errors.New("tournament listing not available yet")), nil)
		return
	}
	c.Header("Cache-Control", "public, max-age=60")
	c.File(h.mirrorPath)
}
