package tournaments

import (
	"gorm.io/gorm"

	types "github.com/yungbote/tenpadel-backend/internal/domain"
	"github.com/yungbote/tenpadel-backend/internal/platform/dbctx"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

// lookupChunk keeps IN lists below the sqlite bound-parameter limit.
const lookupChunk = 500

type TournamentRepo interface {
	Create(dbc dbctx.Context, rows []*types.Tournament) ([]*types.Tournament, error)
	GetByIdentityHashes(dbc dbctx.Context, hashes []string) ([]*types.Tournament, error)
	UpdateFields(dbc dbctx.Context, identityHash string, updates map[string]interface{}) error
	ListOrdered(dbc dbctx.Context) ([]*types.Tournament, error)
	Count(dbc dbctx.Context) (int64, error)
}

type tournamentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTournamentRepo(db *gorm.DB, baseLog *logger.Logger) TournamentRepo {
	return &tournamentRepo{
		db:  db,
		log: baseLog.With("repo", "TournamentRepo"),
	}
}

func (r *tournamentRepo) Create(dbc dbctx.Context, rows []*types.Tournament) ([]*types.Tournament, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.Tournament{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *tournamentRepo) GetByIdentityHashes(dbc dbctx.Context, hashes []string) ([]*types.Tournament, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.Tournament{}
	for start := 0; start < len(hashes); start += lookupChunk {
		end := start + lookupChunk
		if end > len(hashes) {
			end = len(hashes)
		}
		var chunk []*types.Tournament
		if err := transaction.WithContext(dbc.Ctx).
			Where("identity_hash IN ?", hashes[start:end]).
			Find(&chunk).Error; err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

func (r *tournamentRepo) UpdateFields(dbc dbctx.Context, identityHash string, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if identityHash == "" || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Tournament{}).
		Where("identity_hash = ?", identityHash).
		Updates(updates).Error
}

// ListOrdered returns every row by start_date ascending, unknown dates last,
// ties broken by identity_hash.
func (r *tournamentRepo) ListOrdered(dbc dbctx.Context) ([]*types.Tournament, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Tournament
	if err := transaction.WithContext(dbc.Ctx).
		Order("CASE WHEN start_date IS NULL THEN 1 ELSE 0 END").
		Order("start_date ASC").
		Order("identity_hash ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *tournamentRepo) Count(dbc dbctx.Context) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).Model(&types.Tournament{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
