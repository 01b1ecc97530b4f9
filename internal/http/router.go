package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/tenpadel-backend/internal/http/handlers"
	httpMW "github.com/yungbote/tenpadel-backend/internal/http/middleware"
	"github.com/yungbote/tenpadel-backend/internal/observability"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	AdminToken  string
	Metrics     *observability.Metrics

	HealthHandler     *httpH.HealthHandler
	TournamentHandler *httpH.TournamentHandler
	IngestHandler     *httpH.IngestHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "tenpadel-ingest"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", httpH.MetricsHandler(cfg.Metrics))
	}

	api := r.Group("/api")
	{
		if cfg.TournamentHandler != nil {
			api.GET("/tournaments", cfg.TournamentHandler.List)
		}
	}

	admin := r.Group("/admin")
	admin.Use(httpMW.RequireAdminToken(cfg.AdminToken, log))
	{
		if cfg.IngestHandler != nil {
			admin.POST("/ingest", cfg.IngestHandler.Trigger)
			admin.POST("/scrape", cfg.IngestHandler.Trigger)
			admin.GET("/runs", cfg.IngestHandler.ListRuns)
		}
	}

	return r
}
