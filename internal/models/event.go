package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Event is a catalog row produced by the ETL pipeline. Signature is the
// deterministic identity hash used for exact-match deduplication across
// scrape runs; Raw keeps the original scraper record for reprocessing.
type Event struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey"`
	VenueID     uuid.UUID        `gorm:"type:uuid;not null;index"`
	Title       string           `gorm:"type:text;not null;index"`
	Description *string          `gorm:"type:text"`
	StartTime   *time.Time       `gorm:"type:timestamptz;index"`
	EndTime     *time.Time       `gorm:"type:timestamptz"`
	Address     *string          `gorm:"type:text"`
	City        *string          `gorm:"type:varchar(100)"`
	PostalCode  *string          `gorm:"type:varchar(20)"`
	Latitude    *decimal.Decimal `gorm:"type:numeric(10,8)"`
	Longitude   *decimal.Decimal `gorm:"type:numeric(11,8)"`
	PriceMin    *decimal.Decimal `gorm:"type:numeric(10,2)"`
	PriceMax    *decimal.Decimal `gorm:"type:numeric(10,2)"`
	Currency    *string          `gorm:"type:varchar(8)"`
	SourceURL   string           `gorm:"type:text;not null"`
	ImageURL    *string          `gorm:"type:text"`
	Tags        datatypes.JSON   `gorm:"type:jsonb"`
	Embedding   datatypes.JSON   `gorm:"type:jsonb"`
	Signature   string           `gorm:"type:varchar(64);not null;uniqueIndex"`
	Raw         datatypes.JSON   `gorm:"type:jsonb"`
	LastSeenAt  time.Time        `gorm:"type:timestamptz;not null"`
	CreatedAt   time.Time        `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Event) TableName() string {
	return "events"
}
