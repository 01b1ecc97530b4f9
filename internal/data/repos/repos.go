package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/tenpadel-backend/internal/data/repos/ingest"
	"github.com/yungbote/tenpadel-backend/internal/data/repos/tournaments"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

type TournamentRepo = tournaments.TournamentRepo
type IngestRunRepo = ingest.IngestRunRepo

func NewTournamentRepo(db *gorm.DB, baseLog *logger.Logger) TournamentRepo {
	return tournaments.NewTournamentRepo(db, baseLog)
}

func NewIngestRunRepo(db *gorm.DB, baseLog *logger.Logger) IngestRunRepo {
	return ingest.NewIngestRunRepo(db, baseLog)
}
