package pipeline

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testVenue() VenueInfo {
	return VenueInfo{
		ID:   uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Name: "Paradiso",
		City: "Amsterdam",
	}
}

func TestNormalize_AliasKeysAndWhitespace(t *testing.T) {
	raw := map[string]any{
		"name":    "  Jazz   Night  ",
		"intro":   " An  evening of   improvisation ",
		"link":    "https://example.com/events/jazz-night",
		"images":  []any{"https://example.com/a.jpg", "https://example.com/b.jpg"},
		"zipcode": "1012 AB",
		"address": map[string]any{"street": "Kalverstraat", "houseNumber": "92"},
	}
	d, err := Normalize(raw, testVenue())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if d.Title != "Jazz Night" {
		t.Fatalf("title=%q", d.Title)
	}
	if d.Description == nil || *d.Description != "An evening of improvisation" {
		t.Fatalf("description=%v", d.Description)
	}
	if d.SourceURL != "https://example.com/events/jazz-night" {
		t.Fatalf("source_url=%q", d.SourceURL)
	}
	if d.ImageURL == nil || *d.ImageURL != "https://example.com/a.jpg" {
		t.Fatalf("image_url=%v", d.ImageURL)
	}
	if d.Address == nil || *d.Address != "Kalverstraat 92" {
		t.Fatalf("address=%v", d.Address)
	}
	if d.PostalCode == nil || *d.PostalCode != "1012 AB" {
		t.Fatalf("postal_code=%v", d.PostalCode)
	}
	if d.City == nil || *d.City != "Amsterdam" {
		t.Fatalf("city should fall back to the venue city, got %v", d.City)
	}
}

func TestNormalize_Coordinates(t *testing.T) {
	cases := []struct {
		name    string
		raw     map[string]any
		lat     string
		lng     string
		bothNil bool
	}{
		{name: "top level floats", raw: map[string]any{"title": "x", "latitude": 52.3676, "longitude": 4.9041}, lat: "52.3676", lng: "4.9041"},
		{name: "nested strings", raw: map[string]any{"title": "x", "coordinates": map[string]any{"lat": "52.3676", "lng": "4.9041"}}, lat: "52.3676", lng: "4.9041"},
		{name: "nested numbers", raw: map[string]any{"title": "x", "coordinates": map[string]any{"lat": json.Number("52.3676"), "lng": json.Number("4.9041")}}, lat: "52.3676", lng: "4.9041"},
		{name: "lone latitude", raw: map[string]any{"title": "x", "latitude": 52.3676}, bothNil: true},
		{name: "garbage", raw: map[string]any{"title": "x", "coordinates": map[string]any{"lat": "north-ish", "lng": "4.9"}}, bothNil: true},
		{name: "absent", raw: map[string]any{"title": "x"}, bothNil: true},
	}
	for _, tc := range cases {
		d, err := Normalize(tc.raw, testVenue())
		if err != nil {
			t.Fatalf("%s: err=%v", tc.name, err)
		}
		if tc.bothNil {
			if d.Latitude != nil || d.Longitude != nil {
				t.Fatalf("%s: lat=%v lng=%v want nil", tc.name, d.Latitude, d.Longitude)
			}
			continue
		}
		if d.Latitude == nil || d.Latitude.String() != tc.lat {
			t.Fatalf("%s: lat=%v want %s", tc.name, d.Latitude, tc.lat)
		}
		if d.Longitude == nil || d.Longitude.String() != tc.lng {
			t.Fatalf("%s: lng=%v want %s", tc.name, d.Longitude, tc.lng)
		}
	}
}

func TestNormalize_ImageObjects(t *testing.T) {
	raw := map[string]any{
		"title":  "Jazz Night",
		"images": []any{map[string]any{"src": "https://example.com/hero.jpg"}, "https://example.com/b.jpg"},
	}
	d, err := Normalize(raw, testVenue())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if d.ImageURL == nil || *d.ImageURL != "https://example.com/hero.jpg" {
		t.Fatalf("image_url=%v", d.ImageURL)
	}
}

func TestNormalize_MissingTitle(t *testing.T) {
	raw := map[string]any{"description": "no title here", "url": "https://example.com"}
	_, err := Normalize(raw, testVenue())
	if !errors.Is(err, ErrNormalization) {
		t.Fatalf("err=%v want ErrNormalization", err)
	}
}

func TestNormalize_WhitespaceTitleIsMissing(t *testing.T) {
	raw := map[string]any{"title": "   "}
	if _, err := Normalize(raw, testVenue()); !errors.Is(err, ErrNormalization) {
		t.Fatalf("err=%v want ErrNormalization", err)
	}
}

func TestNormalize_EmptyRecord(t *testing.T) {
	if _, err := Normalize(nil, testVenue()); !errors.Is(err, ErrNormalization) {
		t.Fatalf("err=%v want ErrNormalization", err)
	}
}

func TestNormalize_UnresolvedVenue(t *testing.T) {
	raw := map[string]any{"title": "Jazz Night"}
	if _, err := Normalize(raw, VenueInfo{}); !errors.Is(err, ErrNormalization) {
		t.Fatalf("err=%v want ErrNormalization", err)
	}
}

func TestNormalize_EmptyOptionalBecomesNil(t *testing.T) {
	raw := map[string]any{"title": "Jazz Night", "description": "   ", "image": ""}
	d, err := Normalize(raw, testVenue())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if d.Description != nil {
		t.Fatalf("description=%v want nil", d.Description)
	}
	if d.ImageURL != nil {
		t.Fatalf("image_url=%v want nil", d.ImageURL)
	}
}

func TestNormalize_TimeFormats(t *testing.T) {
	want := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	cases := []struct {
		name  string
		value any
	}{
		{"rfc3339", "2024-06-01T20:00:00Z"},
		{"rfc3339 offset", "2024-06-01T22:00:00+02:00"},
		{"naive datetime", "2024-06-01 20:00:00"},
		{"naive short", "2024-06-01 20:00"},
		{"epoch seconds", float64(want.Unix())},
		{"epoch millis", float64(want.UnixMilli())},
		{"epoch string", "1717272000"},
		{"epoch json number", json.Number("1717272000")},
	}
	for _, tc := range cases {
		raw := map[string]any{"title": "Jazz Night", "start_time": tc.value}
		d, err := Normalize(raw, testVenue())
		if err != nil {
			t.Fatalf("%s: err=%v", tc.name, err)
		}
		if d.StartTime == nil || !d.StartTime.Equal(want) {
			t.Fatalf("%s: start=%v want %v", tc.name, d.StartTime, want)
		}
	}
}

func TestNormalize_VenueLayoutHint(t *testing.T) {
	venue := testVenue()
	venue.TimeLayout = "2006/01/02 15:04"
	raw := map[string]any{"title": "Jazz Night", "date": "2024/06/01 20:00"}
	d, err := Normalize(raw, venue)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	want := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	if d.StartTime == nil || !d.StartTime.Equal(want) {
		t.Fatalf("start=%v want %v", d.StartTime, want)
	}
}

func TestNormalize_UnparsableTimeIsNil(t *testing.T) {
	raw := map[string]any{"title": "Jazz Night", "start_time": "whenever the mood strikes"}
	d, err := Normalize(raw, testVenue())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if d.StartTime != nil {
		t.Fatalf("start=%v want nil", d.StartTime)
	}
}

func TestNormalize_Prices(t *testing.T) {
	cases := []struct {
		name    string
		raw     map[string]any
		min     string
		max     string
		bothNil bool
	}{
		{name: "range string", raw: map[string]any{"title": "x", "price": "€10 - €15.50"}, min: "10", max: "15.5"},
		{name: "single number", raw: map[string]any{"title": "x", "price": 12.5}, min: "12.5", max: "12.5"},
		{name: "free", raw: map[string]any{"title": "x", "price": "Free"}, min: "0", max: "0"},
		{name: "explicit min max", raw: map[string]any{"title": "x", "price_min": "5", "price_max": json.Number("20")}, min: "5", max: "20"},
		{name: "comma decimal", raw: map[string]any{"title": "x", "cost": "12,50"}, min: "12.5", max: "12.5"},
		{name: "no price", raw: map[string]any{"title": "x"}, bothNil: true},
		{name: "garbage", raw: map[string]any{"title": "x", "price": "call us"}, bothNil: true},
	}
	for _, tc := range cases {
		d, err := Normalize(tc.raw, testVenue())
		if err != nil {
			t.Fatalf("%s: err=%v", tc.name, err)
		}
		if tc.bothNil {
			if d.PriceMin != nil || d.PriceMax != nil {
				t.Fatalf("%s: min=%v max=%v want nil", tc.name, d.PriceMin, d.PriceMax)
			}
			continue
		}
		if d.PriceMin == nil || d.PriceMin.String() != tc.min {
			t.Fatalf("%s: min=%v want %s", tc.name, d.PriceMin, tc.min)
		}
		if d.PriceMax == nil || d.PriceMax.String() != tc.max {
			t.Fatalf("%s: max=%v want %s", tc.name, d.PriceMax, tc.max)
		}
	}
}

func TestNormalize_IsPure(t *testing.T) {
	raw := map[string]any{"title": " Jazz  Night ", "description": "fine"}
	venue := testVenue()
	a, err := Normalize(raw, venue)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	b, err := Normalize(raw, venue)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if a.Title != b.Title || *a.Description != *b.Description {
		t.Fatalf("two runs over the same record disagree: %+v vs %+v", a, b)
	}
	if got := raw["title"]; got != " Jazz  Night " {
		t.Fatalf("input record mutated: %v", got)
	}
}
