package pipeline

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Draft is the canonical in-pipeline representation of an event between
// normalization and persistence. Optional fields stay nil until a stage
// fills them. Index is the position of the originating record in the
// submitted batch and is preserved through every stage.
type Draft struct {
	Index       int
	Title       string
	Description *string
	StartTime   *time.Time
	EndTime     *time.Time
	VenueID     uuid.UUID
	SourceURL   string
	Address     *string
	City        *string
	PostalCode  *string
	Latitude    *decimal.Decimal
	Longitude   *decimal.Decimal
	PriceMin    *decimal.Decimal
	PriceMax    *decimal.Decimal
	Currency    *string
	ImageURL    *string
	Tags        []string
	Embedding   []float64
	Signature   string
	Raw         map[string]any
}

// geocodeQuery composes the address-like fields into one lookup string;
// empty means there is nothing to geocode.
func (d *Draft) geocodeQuery() string {
	parts := make([]string, 0, 3)
	for _, p := range []*string{d.Address, d.PostalCode, d.City} {
		if p != nil && *p != "" {
			parts = append(parts, *p)
		}
	}
	return strings.Join(parts, ", ")
}

// embeddingText composes the text the embedding provider sees.
func (d *Draft) embeddingText() string {
	if d.Description == nil {
		return d.Title
	}
	return d.Title + "\n" + *d.Description
}

// VenueInfo is the slice of venue configuration the Normalizer needs:
// identity, a default city, and the time hints for naive timestamps.
type VenueInfo struct {
	ID         uuid.UUID
	Name       string
	City       string
	Timezone   string
	TimeLayout string
}

// HistoryEvent is a read-only snapshot of a persisted event offered to
// the Deduplicator as a candidate.
type HistoryEvent struct {
	ID        uuid.UUID
	VenueID   uuid.UUID
	Title     string
	StartTime *time.Time
	Signature string
}

// RecordError is one per-record failure or warning in a batch result.
type RecordError struct {
	RecordIndex int    `json:"record_index"`
	Stage       string `json:"stage"`
	Reason      string `json:"reason"`
}

// Result is the aggregate outcome of one pipeline invocation. It is
// complete even when the batch was only partially processed and is not
// mutated after Process returns.
type Result struct {
	Processed int           `json:"processed"`
	New       int           `json:"new"`
	Updated   int           `json:"updated"`
	Duplicate int           `json:"duplicate"`
	Invalid   int           `json:"invalid"`
	Errors    []RecordError `json:"errors,omitempty"`
}

func (r *Result) addError(index int, stage, reason string) {
	r.Errors = append(r.Errors, RecordError{RecordIndex: index, Stage: stage, Reason: reason})
}
