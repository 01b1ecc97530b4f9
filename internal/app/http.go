package app

import (
	"context"

	"github.com/yungbote/tenpadel-backend/internal/http"
	httpH "github.com/yungbote/tenpadel-backend/internal/http/handlers"
	"github.com/yungbote/tenpadel-backend/internal/observability"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

type Handlers struct {
	Health      *httpH.HealthHandler
	Tournaments *httpH.TournamentHandler
	Ingest      *httpH.IngestHandler
}

func wireHandlers(base context.Context, log *logger.Logger, cfg Config, reposet Repos, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:      httpH.NewHealthHandler(log, reposet.Tournaments, cfg.MirrorPath),
		Tournaments: httpH.NewTournamentHandler(cfg.MirrorPath),
		Ingest:      httpH.NewIngestHandler(base, log, services.Pipeline, reposet.Runs),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:               log,
		ServiceName:       cfg.ServiceName,
		CORSOrigins:       cfg.CORSOrigins,
		AdminToken:        cfg.AdminToken,
		Metrics:           metrics,
		HealthHandler:     handlers.Health,
		TournamentHandler: handlers.Tournaments,
		IngestHandler:     handlers.Ingest,
	})
}
