package ingest

import (
	"gorm.io/gorm"

	types "github.com/yungbote/tenpadel-backend/internal/domain"
	"github.com/yungbote/tenpadel-backend/internal/platform/dbctx"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

type IngestRunRepo interface {
	Create(dbc dbctx.Context, run *types.IngestRun) (*types.IngestRun, error)
	ListRecent(dbc dbctx.Context, limit int) ([]*types.IngestRun, error)
}

type ingestRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIngestRunRepo(db *gorm.DB, baseLog *logger.Logger) IngestRunRepo {
	return &ingestRunRepo{
		db:  db,
		log: baseLog.With("repo", "IngestRunRepo"),
	}
}

func (r *ingestRunRepo) Create(dbc dbctx.Context, run *types.IngestRun) (*types.IngestRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if run == nil {
		return nil, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *ingestRunRepo) ListRecent(dbc dbctx.Context, limit int) ([]*types.IngestRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	var out []*types.IngestRun
	if err := transaction.WithContext(dbc.Ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
