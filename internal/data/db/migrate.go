package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/tenpadel-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return err
	}
	return EnsureTournamentIndexes(db)
}

// EnsureTournamentIndexes creates the read-path indexes gorm tags cannot express.
func EnsureTournamentIndexes(db *gorm.DB) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_tournaments_start_hash ON tournaments(start_date, identity_hash);`,
		`CREATE INDEX IF NOT EXISTS idx_ingest_runs_started_at ON ingest_runs(started_at);`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("ensure index: %w", err)
		}
	}
	return nil
}

func (s *StoreService) AutoMigrateAll() error {
	s.log.Info("Auto migrating store models...")
	return AutoMigrateAll(s.db)
}
