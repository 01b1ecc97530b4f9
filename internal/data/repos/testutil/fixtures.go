package testutil

import (
	"context"
	"testing"

	"gorm.io/gorm"

	types "github.com/yungbote/tenpadel-backend/internal/domain"
)

func StrPtr(s string) *string { return &s }

// NewTournament builds a valid row; callers override fields as needed.
func NewTournament(hash, externalID, start string) *types.Tournament {
	row := &types.Tournament{
		IdentityHash: hash,
		Source:       types.SourceTenUp,
		ExternalID:   externalID,
		Title:        "Open " + externalID,
		ClubName:     "Padel Club",
		Region:       "Ile-de-France",
		City:         "Paris",
		Category:     "P250",
		Gender:       "men",
		Level:        "regional",
		DateText:     start,
		CanonicalURL: "https://tenup.fft.fr/tournoi/" + externalID,
	}
	if start != "" {
		row.StartDate = StrPtr(start)
		row.EndDate = StrPtr(start)
	} else {
		row.DateDegraded = true
	}
	return row
}

func SeedTournament(tb testing.TB, ctx context.Context, tx *gorm.DB, row *types.Tournament) *types.Tournament {
	tb.Helper()
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed tournament: %v", err)
	}
	return row
}
