package enrich

import (
	"context"
	"regexp"
)

// TagRule maps a keyword pattern to a catalog tag.
type TagRule struct {
	Tag     string
	Pattern *regexp.Regexp
}

func rule(tag, words string) TagRule {
	return TagRule{Tag: tag, Pattern: regexp.MustCompile(`(?i)\b(` + words + `)\b`)}
}

// DefaultTagRules cover the broad categories the catalog filters on.
// Order matters: earlier rules win when MaxTags truncates.
var DefaultTagRules = []TagRule{
	rule("music", `concert|live music|jazz|gig|band|orchestra|dj|symphony|choir|acoustic|hip.?hop|techno|rock|blues`),
	rule("comedy", `comedy|stand.?up|improv|open mic`),
	rule("theater", `theater|theatre|play|musical|opera|ballet|dance performance`),
	rule("art", `exhibition|gallery|art|museum|installation|vernissage`),
	rule("film", `film|movie|cinema|screening|documentary`),
	rule("food-drink", `food|tasting|dinner|brunch|wine|beer|cocktail|pop.?up kitchen`),
	rule("nightlife", `party|club night|rave|late night|afterparty`),
	rule("family", `family|kids|children|all ages`),
	rule("sports", `match|tournament|race|marathon|game night|sports`),
	rule("literature", `book|reading|author|poetry|spoken word`),
	rule("market", `market|fair|bazaar|flea`),
	rule("festival", `festival|fest`),
	rule("workshop", `workshop|class|course|masterclass|lecture|talk`),
	rule("outdoors", `outdoor|park|walking tour|hike|open air`),
}

// KeywordTagger assigns tags by matching rule patterns over the event
// title and description. Patterns are compiled at construction, so one
// tagger can serve concurrent enrichment workers.
type KeywordTagger struct {
	rules   []TagRule
	maxTags int
}

func NewKeywordTagger(rules []TagRule, maxTags int) *KeywordTagger {
	if len(rules) == 0 {
		rules = DefaultTagRules
	}
	if maxTags <= 0 {
		maxTags = 5
	}
	return &KeywordTagger{rules: rules, maxTags: maxTags}
}

func (t *KeywordTagger) Tags(ctx context.Context, title, description string) ([]string, error) {
	text := title + " " + description
	var tags []string
	for _, r := range t.rules {
		if len(tags) >= t.maxTags {
			break
		}
		if r.Pattern.MatchString(text) {
			tags = append(tags, r.Tag)
		}
	}
	return tags, nil
}
