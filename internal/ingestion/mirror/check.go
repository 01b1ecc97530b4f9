package mirror

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/yungbote/tenpadel-backend/internal/data/repos"
	"github.com/yungbote/tenpadel-backend/internal/platform/dbctx"
)

type Report struct {
	MirrorCount int      `json:"mirror_count"`
	StoreCount  int64    `json:"store_count"`
	MirrorFound bool     `json:"mirror_found"`
	Unresolved  []string `json:"unresolved,omitempty"`
	Consistent  bool     `json:"consistent"`
}

// Check compares the mirror at path with the store: equal counts and every
// mirror identity_hash present in the store.
func Check(ctx context.Context, path string, repo repos.TournamentRepo) (Report, error) {
	var rep Report
	n, err := repo.Count(dbctx.Context{Ctx: ctx})
	if err != nil {
		return rep, fmt.Errorf("count store: %w", err)
	}
	rep.StoreCount = n

	records, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		rep.Consistent = n == 0
		return rep, nil
	}
	if err != nil {
		return rep, err
	}
	rep.MirrorFound = true
	rep.MirrorCount = len(records)

	hashes := make([]string, 0, len(records))
	for _, r := range records {
		hashes = append(hashes, r.IdentityHash)
	}
	rows, err := repo.GetByIdentityHashes(dbctx.Context{Ctx: ctx}, hashes)
	if err != nil {
		return rep, fmt.Errorf("resolve mirror hashes: %w", err)
	}
	found := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		found[row.IdentityHash] = struct{}{}
	}
	for _, h := range hashes {
		if _, ok := found[h]; !ok {
			rep.Unresolved = append(rep.Unresolved, h)
		}
	}
	rep.Consistent = int64(rep.MirrorCount) == rep.StoreCount && len(rep.Unresolved) == 0
	return rep, nil
}
