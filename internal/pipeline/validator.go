package pipeline

import (
	"net/url"

	"github.com/google/uuid"
)

// Rejection reasons. Every rule is evaluated independently so a draft
// failing several rules reports all of them at once.
const (
	ReasonMissingTitle = "title is empty"
	ReasonMissingVenue = "venue is not resolved"
	ReasonTimeOrder    = "end_time is before start_time"
	ReasonPriceRange   = "price_min is greater than price_max"
	ReasonSourceURL    = "source_url is not an absolute URL"
)

// Rejection pairs a draft with the rules it failed.
type Rejection struct {
	Draft   *Draft
	Reasons []string
}

// Validate checks one draft against all structural rules and returns
// every failing reason. A nil return means the draft is valid.
func Validate(d *Draft) []string {
	var reasons []string
	if d.Title == "" {
		reasons = append(reasons, ReasonMissingTitle)
	}
	if d.VenueID == uuid.Nil {
		reasons = append(reasons, ReasonMissingVenue)
	}
	if d.StartTime != nil && d.EndTime != nil && d.EndTime.Before(*d.StartTime) {
		reasons = append(reasons, ReasonTimeOrder)
	}
	if d.PriceMin != nil && d.PriceMax != nil && d.PriceMin.GreaterThan(*d.PriceMax) {
		reasons = append(reasons, ReasonPriceRange)
	}
	if d.SourceURL != "" && !validAbsoluteURL(d.SourceURL) {
		reasons = append(reasons, ReasonSourceURL)
	}
	return reasons
}

// ValidateBatch partitions drafts into valid and rejected, keeping the
// original batch order within each partition.
func ValidateBatch(drafts []*Draft) ([]*Draft, []Rejection) {
	valid := make([]*Draft, 0, len(drafts))
	var rejected []Rejection
	for _, d := range drafts {
		if reasons := Validate(d); len(reasons) > 0 {
			rejected = append(rejected, Rejection{Draft: d, Reasons: reasons})
			continue
		}
		valid = append(valid, d)
	}
	return valid, rejected
}

func validAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
