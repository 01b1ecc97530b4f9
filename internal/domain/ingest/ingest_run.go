package ingest

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TriggerSchedule = "schedule"
	TriggerAdmin    = "admin"
	TriggerCLI      = "cli"
)

const (
	StatusSucceeded = "succeeded"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
	StatusRejected  = "rejected"
)

// IngestRun is the audit row written once per non-dry run.
type IngestRun struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Trigger    string         `gorm:"column:run_trigger;type:varchar(16);not null;index" json:"trigger"`
	Status     string         `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	Filters    datatypes.JSON `gorm:"column:filters" json:"filters"`
	Pages      int            `gorm:"column:pages;not null;default:0" json:"pages"`
	Fetched    int            `gorm:"column:fetched;not null;default:0" json:"fetched"`
	Excluded   int            `gorm:"column:excluded;not null;default:0" json:"excluded"`
	Inserted   int            `gorm:"column:inserted;not null;default:0" json:"inserted"`
	Updated    int            `gorm:"column:updated;not null;default:0" json:"updated"`
	Skipped    int            `gorm:"column:skipped;not null;default:0" json:"skipped"`
	ErrorKind  string         `gorm:"column:error_kind;type:varchar(32)" json:"error_kind,omitempty"`
	Error      string         `gorm:"column:error" json:"error,omitempty"`
	DurationMS int64          `gorm:"column:duration_ms;not null;default:0" json:"duration_ms"`
	StartedAt  time.Time      `gorm:"column:started_at;not null;index" json:"started_at"`
	FinishedAt *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (IngestRun) TableName() string { return "ingest_runs" }

func (r *IngestRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
