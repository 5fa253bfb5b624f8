package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Venue struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Name          string           `gorm:"type:varchar(255);not null;index"`
	WebsiteURL    string           `gorm:"type:text;not null;uniqueIndex"`
	City          string           `gorm:"type:varchar(100);not null;index"`
	State         *string          `gorm:"type:varchar(50)"`
	Country       string           `gorm:"type:varchar(50);not null;default:'US'"`
	Latitude      *decimal.Decimal `gorm:"type:numeric(10,8)"`
	Longitude     *decimal.Decimal `gorm:"type:numeric(11,8)"`
	VenueType     *string          `gorm:"type:varchar(50)"`
	Timezone      *string          `gorm:"type:varchar(64)"`
	ScraperConfig datatypes.JSON   `gorm:"type:jsonb"`
	Active        bool             `gorm:"not null;default:true"`
	LastScrapedAt *time.Time       `gorm:"type:timestamptz"`
	CreatedAt     time.Time        `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Venue) TableName() string {
	return "venues"
}

// SourceConfig is the per-venue scraper wiring stored in ScraperConfig.
// TimeLayout is a Go time layout hint for sources that emit naive local
// timestamps.
type SourceConfig struct {
	Kind       string `json:"kind"`
	FeedURL    string `json:"feed_url"`
	TimeLayout string `json:"time_layout"`
}

func (v *Venue) SourceConfig() (SourceConfig, error) {
	var cfg SourceConfig
	if v == nil || len(v.ScraperConfig) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(v.ScraperConfig, &cfg); err != nil {
		return SourceConfig{}, err
	}
	return cfg, nil
}
