package pipeline

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Scrapers disagree on key names, so each canonical field is resolved
// through an alias list, first hit wins.
var (
	titleKeys       = []string{"title", "name", "event_name", "event_title"}
	descriptionKeys = []string{"description", "intro", "seo_description", "summary", "subtitle"}
	startKeys       = []string{"start_time", "start", "start_date", "date", "datetime", "when"}
	endKeys         = []string{"end_time", "end", "end_date"}
	urlKeys         = []string{"source_url", "url", "link", "event_url", "permalink"}
	imageKeys       = []string{"image_url", "main_image", "image", "images", "thumbnail"}
	addressKeys     = []string{"address", "venue_address", "location", "street"}
	cityKeys        = []string{"city", "town"}
	postalKeys      = []string{"postal_code", "zipcode", "zip"}
	currencyKeys    = []string{"currency"}
	latitudeKeys    = []string{"latitude", "lat"}
	longitudeKeys   = []string{"longitude", "lng", "lon"}
)

// naiveLayouts are tried, in order, for timestamps that carry no zone
// designator. Such values are interpreted in the venue's timezone.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"02-01-2006 15:04",
	"02/01/2006 15:04",
	"January 2, 2006 3:04 PM",
	"January 2, 2006",
	"Jan 2, 2006 15:04",
	"2 January 2006",
}

// zonedLayouts carry their own offset and ignore the venue timezone.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05-0700",
}

// Normalize maps one raw scraper record into a Draft. It is a pure
// function of the record and the venue configuration, tolerates missing
// or oddly shaped optional keys, and fails only when no title can be
// derived or the venue is unknown. Unparsable timestamps become nil,
// never an error.
func Normalize(raw map[string]any, venue VenueInfo) (*Draft, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty record", ErrNormalization)
	}
	if venue.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: unresolved venue", ErrNormalization)
	}
	title := cleanString(firstString(raw, titleKeys))
	if title == "" {
		return nil, fmt.Errorf("%w: missing title", ErrNormalization)
	}

	d := &Draft{
		Title:     title,
		VenueID:   venue.ID,
		SourceURL: cleanString(firstString(raw, urlKeys)),
		Raw:       raw,
	}
	d.Description = optString(firstString(raw, descriptionKeys))
	d.StartTime = parseTime(firstValue(raw, startKeys), venue)
	d.EndTime = parseTime(firstValue(raw, endKeys), venue)
	d.ImageURL = optString(imageString(firstValue(raw, imageKeys)))
	d.Address = optString(addressString(firstValue(raw, addressKeys)))
	d.PostalCode = optString(firstString(raw, postalKeys))
	d.Currency = optString(firstString(raw, currencyKeys))

	if city := cleanString(firstString(raw, cityKeys)); city != "" {
		d.City = &city
	} else if a, ok := firstValue(raw, addressKeys).(map[string]any); ok {
		d.City = optString(stringValue(a["city"]))
	}
	if d.City == nil && venue.City != "" {
		city := venue.City
		d.City = &city
	}

	d.Latitude, d.Longitude = extractCoordinates(raw)
	d.PriceMin, d.PriceMax = extractPrices(raw)
	return d, nil
}

// extractCoordinates reads scraped coordinates, either top-level or
// nested under a "coordinates" object. A lone latitude is useless, so
// coordinates are all or nothing.
func extractCoordinates(raw map[string]any) (*decimal.Decimal, *decimal.Decimal) {
	lat := parseCoordinate(firstValue(raw, latitudeKeys))
	lng := parseCoordinate(firstValue(raw, longitudeKeys))
	if lat == nil || lng == nil {
		if c, ok := raw["coordinates"].(map[string]any); ok {
			lat = parseCoordinate(firstValue(c, latitudeKeys))
			lng = parseCoordinate(firstValue(c, longitudeKeys))
		}
	}
	if lat == nil || lng == nil {
		return nil, nil
	}
	return lat, lng
}

func parseCoordinate(v any) *decimal.Decimal {
	switch c := v.(type) {
	case float64:
		d := decimal.NewFromFloat(c)
		return &d
	case json.Number:
		if d, err := decimal.NewFromString(c.String()); err == nil {
			return &d
		}
	case string:
		if d, err := decimal.NewFromString(strings.TrimSpace(c)); err == nil {
			return &d
		}
	}
	return nil
}

func firstValue(raw map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(raw map[string]any, keys []string) string {
	for _, k := range keys {
		if s := stringValue(raw[k]); s != "" {
			return s
		}
	}
	return ""
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	default:
		return ""
	}
}

// cleanString trims and collapses internal whitespace runs to one space.
func cleanString(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// optString returns nil for strings that are empty after cleaning.
func optString(s string) *string {
	s = cleanString(s)
	if s == "" {
		return nil
	}
	return &s
}

// imageString accepts a plain URL, a list of URLs, or a list of
// {"src": ...} objects, first usable entry wins.
func imageString(v any) string {
	switch img := v.(type) {
	case string:
		return img
	case []any:
		for _, item := range img {
			if s := stringValue(item); s != "" {
				return s
			}
			if m, ok := item.(map[string]any); ok {
				for _, key := range []string{"src", "url"} {
					if s := stringValue(m[key]); s != "" {
						return s
					}
				}
			}
		}
	case []string:
		if len(img) > 0 {
			return img[0]
		}
	}
	return ""
}

// addressString accepts a plain string or the structured shape some
// feeds use: {"street": ..., "houseNumber": ..., "zipcode": ..., "city": ...}.
func addressString(v any) string {
	switch a := v.(type) {
	case string:
		return a
	case map[string]any:
		street := cleanString(stringValue(a["street"]))
		if n := cleanString(stringValue(a["houseNumber"])); n != "" {
			street = cleanString(street + " " + n)
		}
		return street
	}
	return ""
}

// parseTime resolves a raw timestamp value to UTC. Strings are tried
// against the venue layout hint, zoned layouts, then naive layouts in
// the venue timezone; numbers are epoch seconds or milliseconds.
// Anything unparsable yields nil.
func parseTime(v any, venue VenueInfo) *time.Time {
	switch t := v.(type) {
	case time.Time:
		return utcPtr(t)
	case float64:
		return epochTime(int64(t))
	case int:
		return epochTime(int64(t))
	case int64:
		return epochTime(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return epochTime(n)
		}
	case string:
		return parseTimeString(t, venue)
	}
	return nil
}

func parseTimeString(s string, venue VenueInfo) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return epochTime(n)
	}
	loc := venueLocation(venue)
	if venue.TimeLayout != "" {
		if t, err := time.ParseInLocation(venue.TimeLayout, s, loc); err == nil {
			return utcPtr(t)
		}
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return utcPtr(t)
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return utcPtr(t)
		}
	}
	return nil
}

func venueLocation(venue VenueInfo) *time.Location {
	if venue.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(venue.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// epochTime treats values above 1e12 as milliseconds. Zero and negative
// epochs are scraper placeholders, not real times.
func epochTime(n int64) *time.Time {
	if n <= 0 {
		return nil
	}
	var t time.Time
	if n > 1_000_000_000_000 {
		t = time.UnixMilli(n)
	} else {
		t = time.Unix(n, 0)
	}
	return utcPtr(t)
}

func utcPtr(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}

func extractPrices(raw map[string]any) (*decimal.Decimal, *decimal.Decimal) {
	min := parsePrice(firstValue(raw, []string{"price_min", "min_price"}))
	max := parsePrice(firstValue(raw, []string{"price_max", "max_price"}))
	if min != nil || max != nil {
		return min, max
	}
	v := firstValue(raw, []string{"price", "cost", "ticket_price"})
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok {
		if lo, hi, ok := splitPriceRange(s); ok {
			return parsePrice(lo), parsePrice(hi)
		}
	}
	p := parsePrice(v)
	return p, p
}

// splitPriceRange recognizes "10 - 20" style strings. The dash of a
// negative number never appears in scraped price text.
func splitPriceRange(s string) (string, string, bool) {
	for _, sep := range []string{" - ", "-", "–", " to "} {
		if lo, hi, found := strings.Cut(s, sep); found {
			if strings.ContainsAny(lo, "0123456789") && strings.ContainsAny(hi, "0123456789") {
				return lo, hi, true
			}
		}
	}
	return "", "", false
}

func parsePrice(v any) *decimal.Decimal {
	switch p := v.(type) {
	case nil:
		return nil
	case float64:
		d := decimal.NewFromFloat(p)
		return &d
	case int:
		d := decimal.NewFromInt(int64(p))
		return &d
	case int64:
		d := decimal.NewFromInt(p)
		return &d
	case json.Number:
		if d, err := decimal.NewFromString(p.String()); err == nil {
			return &d
		}
		return nil
	case string:
		return parsePriceString(p)
	}
	return nil
}

func parsePriceString(s string) *decimal.Decimal {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	if s == "free" || s == "gratis" {
		d := decimal.Zero
		return &d
	}
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' || r == '.' {
			b.WriteRune(r)
		} else if r == ',' {
			b.WriteRune('.')
		}
	}
	if b.Len() == 0 {
		return nil
	}
	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return nil
	}
	return &d
}
