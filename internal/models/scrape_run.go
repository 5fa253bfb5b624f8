package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ScrapeRunRunning   = "running"
	ScrapeRunSucceeded = "succeeded"
	ScrapeRunFailed    = "failed"
)

// ScrapeRun is the audit row for one venue sync: one scrape plus one
// pipeline batch. Errors holds the ordered per-record error entries from
// the batch result; Error is set only when the run failed outright.
type ScrapeRun struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey"`
	VenueID         uuid.UUID      `gorm:"type:uuid;not null;index"`
	Status          string         `gorm:"type:varchar(20);not null;index"`
	StartedAt       time.Time      `gorm:"type:timestamptz;not null"`
	FinishedAt      *time.Time     `gorm:"type:timestamptz"`
	EventsProcessed int            `gorm:"not null;default:0"`
	EventsNew       int            `gorm:"not null;default:0"`
	EventsUpdated   int            `gorm:"not null;default:0"`
	EventsDuplicate int            `gorm:"not null;default:0"`
	EventsInvalid   int            `gorm:"not null;default:0"`
	Errors          datatypes.JSON `gorm:"type:jsonb"`
	Error           *string        `gorm:"type:text"`
	CreatedAt       time.Time      `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"type:timestamptz;autoUpdateTime"`
}

func (ScrapeRun) TableName() string {
	return "scrape_runs"
}
