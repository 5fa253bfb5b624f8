package enrich

import (
	"context"
	"testing"
)

func TestKeywordTagger_Categories(t *testing.T) {
	tagger := NewKeywordTagger(nil, 0)
	cases := []struct {
		title       string
		description string
		want        []string
	}{
		{"Jazz Night", "", []string{"music"}},
		{"Stand-up Comedy Special", "", []string{"comedy"}},
		{"Weekend Flea Market", "", []string{"market"}},
		{"Evening Special", "An open air screening of a classic documentary", []string{"film", "outdoors"}},
		{"Artisan Bread Workshop", "", []string{"workshop"}},
		{"Corporate Quarterly Review", "", nil},
	}
	for _, tc := range cases {
		tags, err := tagger.Tags(context.Background(), tc.title, tc.description)
		if err != nil {
			t.Fatalf("%q: err=%v", tc.title, err)
		}
		if len(tags) != len(tc.want) {
			t.Fatalf("%q: tags=%v want %v", tc.title, tags, tc.want)
		}
		for i := range tc.want {
			if tags[i] != tc.want[i] {
				t.Fatalf("%q: tags=%v want %v", tc.title, tags, tc.want)
			}
		}
	}
}

func TestKeywordTagger_MaxTags(t *testing.T) {
	tagger := NewKeywordTagger(nil, 3)
	text := "jazz comedy opera exhibition cinema wine party"
	tags, err := tagger.Tags(context.Background(), text, "")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(tags) != 3 {
		t.Fatalf("tags=%v want 3 entries", tags)
	}
	want := []string{"music", "comedy", "theater"}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("tags=%v want %v, earlier rules win", tags, want)
		}
	}
}

func TestKeywordTagger_CustomRules(t *testing.T) {
	tagger := NewKeywordTagger([]TagRule{rule("karaoke", `karaoke|sing.?along`)}, 0)
	tags, err := tagger.Tags(context.Background(), "Karaoke Tuesday", "")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(tags) != 1 || tags[0] != "karaoke" {
		t.Fatalf("tags=%v", tags)
	}

	tags, err = tagger.Tags(context.Background(), "Jazz Night", "")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(tags) != 0 {
		t.Fatalf("custom rules replace the defaults, got %v", tags)
	}
}
