package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/tenpadel-backend/internal/data/repos"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

type Repos struct {
	Tournaments repos.TournamentRepo
	Runs        repos.IngestRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Tournaments: repos.NewTournamentRepo(db, log),
		Runs:        repos.NewIngestRunRepo(db, log),
	}
}
