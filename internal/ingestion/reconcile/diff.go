package reconcile

import (
	"github.com/yungbote/tenpadel-backend/internal/domain/tournaments"
)

// Diff returns the column updates that bring cur in line with incoming.
// Blank incoming values never overwrite stored ones, and the identity
// columns are never touched.
func Diff(cur, incoming *tournaments.Tournament) map[string]interface{} {
	updates := map[string]interface{}{}
	str := func(col, have, want string) {
		if want != "" && want != have {
			updates[col] = want
		}
	}
	str("title", cur.Title, incoming.Title)
	str("club_name", cur.ClubName, incoming.ClubName)
	str("region", cur.Region, incoming.Region)
	str("city", cur.City, incoming.City)
	str("date_text", cur.DateText, incoming.DateText)
	str("canonical_url", cur.CanonicalURL, incoming.CanonicalURL)
	str("gender", string(cur.Gender), string(incoming.Gender))
	if incoming.Category != tournaments.CategoryUnknown {
		str("category", string(cur.Category), string(incoming.Category))
	}
	if incoming.Level != tournaments.LevelUnknown {
		str("level", string(cur.Level), string(incoming.Level))
	}
	if incoming.StartDate != nil {
		if cur.StartDate == nil || *cur.StartDate != *incoming.StartDate {
			updates["start_date"] = *incoming.StartDate
		}
		if incoming.EndDate != nil && (cur.EndDate == nil || *cur.EndDate != *incoming.EndDate) {
			updates["end_date"] = *incoming.EndDate
		}
		if cur.DateDegraded != incoming.DateDegraded {
			updates["date_degraded"] = incoming.DateDegraded
		}
	}
	return updates
}

// apply mirrors updates onto the in-memory row.
func apply(row *tournaments.Tournament, updates map[string]interface{}) {
	for col, v := range updates {
		switch col {
		case "title":
			row.Title = v.(string)
		case "club_name":
			row.ClubName = v.(string)
		case "region":
			row.Region = v.(string)
		case "city":
			row.City = v.(string)
		case "date_text":
			row.DateText = v.(string)
		case "canonical_url":
			row.CanonicalURL = v.(string)
		case "gender":
			row.Gender = tournaments.Gender(v.(string))
		case "category":
			row.Category = tournaments.Category(v.(string))
		case "level":
			row.Level = tournaments.Level(v.(string))
		case "start_date":
			s := v.(string)
			row.StartDate = &s
		case "end_date":
			s := v.(string)
			row.EndDate = &s
		case "date_degraded":
			row.DateDegraded = v.(bool)
		}
	}
}
