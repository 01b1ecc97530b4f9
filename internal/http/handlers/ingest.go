package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tenpadel-backend/internal/data/repos"
	"github.com/yungbote/tenpadel-backend/internal/domain/ingest"
	"github.com/yungbote/tenpadel-backend/internal/http/response"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/pipeline"
	"github.com/yungbote/tenpadel-backend/internal/platform/apierr"
	"github.com/yungbote/tenpadel-backend/internal/platform/ctxutil"
	"github.com/yungbote/tenpadel-backend/internal/platform/dbctx"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

// Trigger starts runs; *pipeline.Service implements it.
type Trigger interface {
	Run(ctx context.Context, p pipeline.Params, trigger string) (pipeline.RunSummary, error)
	DryRun(ctx context.Context, p pipeline.Params) (pipeline.RunSummary, error)
}

type IngestHandler struct {
	log     *logger.Logger
	trigger Trigger
	runs    repos.IngestRunRepo
	// base bounds admin runs: they outlive the client connection but stop on
	// shutdown.
	base context.Context
}

func NewIngestHandler(base context.Context, log *logger.Logger, trigger Trigger, runs repos.IngestRunRepo) *IngestHandler {
	if base == nil {
		base = context.Background()
	}
	return &IngestHandler{log: log.With("handler", "IngestHandler"), trigger: trigger, runs: runs, base: base}
}

// POST /admin/ingest
func (h *IngestHandler) Trigger(c *gin.Context) {
	var p pipeline.Params
	if err := c.ShouldBindJSON(&p); err != nil && !errors.Is(err, io.EOF) {
		response.RespondAPIError(c, apierr.New(http.StatusBadRequest, apierr.CodeInvalidParams, err), nil)
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	defer cancel()
	stop := context.AfterFunc(h.base, cancel)
	defer stop()

	var (
		sum pipeline.RunSummary
		err error
	)
	if dry, _ := strconv.ParseBool(c.Query("dry_run")); dry {
		sum, err = h.trigger.DryRun(ctx, p)
	} else {
		sum, err = h.trigger.Run(ctx, p, ingest.TriggerAdmin)
	}
	if err != nil {
		h.log.Warn("admin ingest request failed",
			"request_id", ctxutil.RequestID(ctx),
			"status", sum.Status,
			"error", err,
		)
		response.RespondAPIError(c, mapRunError(err), summaryOrNil(sum))
		return
	}
	response.RespondOK(c, sum)
}

// GET /admin/runs?limit=N
func (h *IngestHandler) ListRuns(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.RespondAPIError(c, apierr.New(http.StatusBadRequest, apierr.CodeInvalidParams, errors.New("limit must be a positive integer")), nil)
			return
		}
		limit = n
	}
	runs, err := h.runs.ListRecent(dbctx.Context{Ctx: c.Request.Context()}, limit)
	if err != nil {
		h.log.Error("list runs failed", "error", err)
		response.RespondAPIError(c, err, nil)
		return
	}
	response.RespondOK(c, gin.H{"runs": runs})
}

func mapRunError(err error) *apierr.Error {
	var perr *pipeline.ParamsError
	switch {
	case errors.As(err, &perr):
		return apierr.New(http.StatusBadRequest, apierr.CodeInvalidParams, perr)
	case pipeline.IsBusy(err):
		return apierr.New(http.StatusConflict, apierr.CodeBusy, errors.New("an ingestion run is already in progress"))
	default:
		return apierr.New(http.StatusInternalServerError, apierr.CodeRunFailed, errors.New("ingestion run failed"))
	}
}

func summaryOrNil(sum pipeline.RunSummary) any {
	if sum.Status == "" {
		return nil
	}
	return sum
}
