package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/tenpadel-backend/internal/data/repos"
	"github.com/yungbote/tenpadel-backend/internal/domain/tournaments"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/failure"
	"github.com/yungbote/tenpadel-backend/internal/platform/dbctx"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

const insertBatch = 200

// ErrStoreConflict marks a unique-key violation the identity lookup did not
// predict.
var ErrStoreConflict = errors.New("store conflict")

type Summary struct {
	Attempted  int           `json:"attempted"`
	Inserted   int           `json:"inserted"`
	Updated    int           `json:"updated"`
	Skipped    int           `json:"skipped"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
}

type Reconciler struct {
	db   *gorm.DB
	repo repos.TournamentRepo
	log  *logger.Logger
	now  func() time.Time

	// mu serializes passes issued through this value.
	mu sync.Mutex
}

func New(db *gorm.DB, repo repos.TournamentRepo, log *logger.Logger) *Reconciler {
	return &Reconciler{
		db:   db,
		repo: repo,
		log:  log.With("component", "Reconciler"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Apply reconciles one run's candidates in a single transaction. Either every
// candidate is applied or the store is left untouched.
func (r *Reconciler) Apply(ctx context.Context, candidates []tournaments.Tournament) (Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	sum := Summary{Attempted: len(candidates)}
	if err := ctx.Err(); err != nil {
		return sum, failure.Wrap(failure.KindCanceled, err)
	}

	hashes := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.IdentityHash]; !ok {
			seen[c.IdentityHash] = struct{}{}
			hashes = append(hashes, c.IdentityHash)
		}
	}

	var counts Summary
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		counts = Summary{}
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		existing, err := r.repo.GetByIdentityHashes(dbc, hashes)
		if err != nil {
			return err
		}
		byHash := make(map[string]*tournaments.Tournament, len(existing)+len(candidates))
		for _, row := range existing {
			byHash[row.IdentityHash] = row
		}

		now := r.now()
		pending := map[string]struct{}{}
		var inserts []*tournaments.Tournament
		for i := range candidates {
			cand := candidates[i]
			cur, ok := byHash[cand.IdentityHash]
			if !ok {
				row := cand
				row.CreatedAt, row.UpdatedAt = now, now
				inserts = append(inserts, &row)
				byHash[row.IdentityHash] = &row
				pending[row.IdentityHash] = struct{}{}
				counts.Inserted++
				continue
			}
			updates := Diff(cur, &cand)
			if len(updates) == 0 {
				counts.Skipped++
				continue
			}
			apply(cur, updates)
			counts.Updated++
			if _, isPending := pending[cur.IdentityHash]; isPending {
				// the queued insert carries the merged values
				continue
			}
			updates["updated_at"] = now
			if err := r.repo.UpdateFields(dbc, cur.IdentityHash, updates); err != nil {
				return err
			}
		}
		for i := 0; i < len(inserts); i += insertBatch {
			end := i + insertBatch
			if end > len(inserts) {
				end = len(inserts)
			}
			if _, err := r.repo.Create(dbc, inserts[i:end]); err != nil {
				return err
			}
		}
		return nil
	})
	sum.Duration = time.Since(start)
	sum.DurationMS = sum.Duration.Milliseconds()
	if err != nil {
		r.log.Error("reconciliation rolled back", "attempted", sum.Attempted, "error", err)
		return sum, classify(ctx, err)
	}
	sum.Inserted, sum.Updated, sum.Skipped = counts.Inserted, counts.Updated, counts.Skipped
	r.log.Info("reconciliation committed",
		"attempted", sum.Attempted,
		"inserted", sum.Inserted,
		"updated", sum.Updated,
		"skipped", sum.Skipped,
		"duration_ms", sum.DurationMS,
	)
	return sum, nil
}

func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return failure.Wrap(failure.KindCanceled, err)
	}
	var pgErr *pgconn.PgError
	if errors.Is(err, gorm.ErrDuplicatedKey) || (errors.As(err, &pgErr) && pgErr.Code == "23505") {
		return failure.Wrap(failure.KindStoreConflict, fmt.Errorf("%w: %v", ErrStoreConflict, err))
	}
	return failure.Wrap(failure.KindStore, err)
}
