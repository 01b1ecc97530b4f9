package domain

import (
	"github.com/yungbote/tenpadel-backend/internal/domain/ingest"
	"github.com/yungbote/tenpadel-backend/internal/domain/tournaments"
)

type (
	Tournament = tournaments.Tournament
	Source     = tournaments.Source
	Category   = tournaments.Category
	Gender     = tournaments.Gender
	Level      = tournaments.Level

	IngestRun = ingest.IngestRun
)

const SourceTenUp = tournaments.SourceTenUp

// Models lists every entity owned by the store, in migration order.
func Models() []interface{} {
	return []interface{}{
		&tournaments.Tournament{},
		&ingest.IngestRun{},
	}
}
