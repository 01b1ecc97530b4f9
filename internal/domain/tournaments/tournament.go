package tournaments

import "time"

type Source string

const SourceTenUp Source = "tenup"

// Category is the point class of a tournament (P25..P2000).
type Category string

const (
	CategoryP25     Category = "P25"
	CategoryP50     Category = "P50"
	CategoryP100    Category = "P100"
	CategoryP250    Category = "P250"
	CategoryP500    Category = "P500"
	CategoryP1000   Category = "P1000"
	CategoryP1500   Category = "P1500"
	CategoryP2000   Category = "P2000"
	CategoryUnknown Category = "unknown"
)

var Categories = []Category{
	CategoryP25, CategoryP50, CategoryP100, CategoryP250,
	CategoryP500, CategoryP1000, CategoryP1500, CategoryP2000,
}

type Gender string

const (
	GenderMen   Gender = "men"
	GenderWomen Gender = "women"
	GenderMixed Gender = "mixed"
)

// Level is the competitive tier.
type Level string

const (
	LevelClub     Level = "club"
	LevelRegional Level = "regional"
	LevelNational Level = "national"
	LevelElite    Level = "elite"
	LevelUnknown  Level = "unknown"
)

// Tournament is keyed by IdentityHash. The composite unique index mirrors the
// natural key of the origin feed and is the store-level duplicate guard.
type Tournament struct {
	IdentityHash string   `gorm:"column:identity_hash;type:varchar(64);primaryKey" json:"identity_hash"`
	Source       Source   `gorm:"column:source;type:varchar(32);not null;uniqueIndex:uq_tournaments_source_external_start,priority:1" json:"source"`
	ExternalID   string   `gorm:"column:external_id;type:varchar(64);not null;uniqueIndex:uq_tournaments_source_external_start,priority:2" json:"external_id"`
	StartDate    *string  `gorm:"column:start_date;type:varchar(10);uniqueIndex:uq_tournaments_source_external_start,priority:3" json:"start_date"`
	EndDate      *string  `gorm:"column:end_date;type:varchar(10)" json:"end_date"`
	Title        string   `gorm:"column:title;not null" json:"title"`
	ClubName     string   `gorm:"column:club_name" json:"club_name"`
	Region       string   `gorm:"column:region;index" json:"region"`
	City         string   `gorm:"column:city;index" json:"city"`
	Category     Category `gorm:"column:category;type:varchar(16);not null;index" json:"category"`
	Gender       Gender   `gorm:"column:gender;type:varchar(8);not null" json:"gender"`
	Level        Level    `gorm:"column:level;type:varchar(16);not null" json:"level"`
	DateText     string   `gorm:"column:date_text" json:"date_text"`
	DateDegraded bool     `gorm:"column:date_degraded;not null;default:false" json:"date_degraded"`
	CanonicalURL string   `gorm:"column:canonical_url;not null" json:"canonical_url"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Tournament) TableName() string { return "tournaments" }

// StartKey returns the start date or "" when it is unknown.
func (t Tournament) StartKey() string {
	if t.StartDate == nil {
		return ""
	}
	return *t.StartDate
}
