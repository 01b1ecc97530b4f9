package pipeline

import (
	"time"

	"github.com/yungbote/tenpadel-backend/internal/domain/tournaments"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/failure"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/fetch"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/mirror"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/paginate"
)

type Exclusion struct {
	RawKey string       `json:"raw_key"`
	Reason failure.Kind `json:"reason"`
	Field  string       `json:"field"`
}

// RunSummary is the structured outcome of one run. FirstError never carries
// internal detail.
type RunSummary struct {
	RunID      string                   `json:"run_id,omitempty"`
	Trigger    string                   `json:"trigger"`
	Status     string                   `json:"status"`
	DryRun     bool                     `json:"dry_run"`
	Filters    fetch.Filters            `json:"filters"`
	Limit      int                      `json:"limit"`
	Pages      int                      `json:"pages"`
	Stop       paginate.StopReason      `json:"stop_reason,omitempty"`
	Fetched    int                      `json:"fetched"`
	Excluded   int                      `json:"excluded"`
	Exclusions []Exclusion              `json:"exclusions,omitempty"`
	Attempted  int                      `json:"attempted"`
	Inserted   int                      `json:"inserted"`
	Updated    int                      `json:"updated"`
	Skipped    int                      `json:"skipped"`
	Partial    bool                     `json:"partial"`
	Mirror     *mirror.Result           `json:"mirror,omitempty"`
	FirstError *failure.Summary         `json:"first_error,omitempty"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	DurationMS int64                    `json:"duration_ms"`
	Candidates []tournaments.Tournament `json:"candidates,omitempty"`
}

func (s *RunSummary) fail(err error) {
	if s.FirstError == nil {
		s.FirstError = failure.Summarize(err)
	}
}
