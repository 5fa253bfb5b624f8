package pipeline

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
)

// DecisionKind classifies the deduplicator's verdict for one draft.
type DecisionKind string

const (
	// DecisionNew marks a draft with no exact or fuzzy match anywhere.
	DecisionNew DecisionKind = "new"
	// DecisionUpdate marks a draft matching an already persisted event.
	DecisionUpdate DecisionKind = "update"
	// DecisionDuplicate marks a draft matching an earlier draft in the
	// same batch. It is counted but never persisted.
	DecisionDuplicate DecisionKind = "duplicate"
)

// Decision pairs a draft with its verdict. ExistingID is set for
// DecisionUpdate, FirstIndex for DecisionDuplicate. FirstIndex always
// names a draft that is itself not a duplicate, so duplicate chains
// collapse to the first occurrence.
type Decision struct {
	Draft      *Draft
	Kind       DecisionKind
	ExistingID uuid.UUID
	FirstIndex int
}

// Deduplicator decides new vs update vs within-batch duplicate for an
// ordered batch, comparing each draft against the drafts before it and
// against a read-only history snapshot. Scan order is fixed, so for a
// given batch order and history the decision sequence is deterministic.
type Deduplicator struct {
	// Threshold is the minimum title similarity for a fuzzy match.
	Threshold float64
	// TimeTolerance bounds the start-time distance of a fuzzy pair.
	// Zero or negative means same UTC calendar day.
	TimeTolerance time.Duration
}

// Deduplicate evaluates the batch in order. An exact signature match
// against history always wins over any fuzzy candidate; among fuzzy
// candidates, prior drafts are scanned before history and the first
// match wins. Drafts missing their signature inputs are skipped with an
// error entry instead of failing the batch.
func (dd *Deduplicator) Deduplicate(batch []*Draft, history []HistoryEvent) ([]Decision, []RecordError) {
	historyBySig := make(map[string]*HistoryEvent, len(history))
	for i := range history {
		h := &history[i]
		if h.Signature == "" {
			continue
		}
		if _, ok := historyBySig[h.Signature]; !ok {
			historyBySig[h.Signature] = h
		}
	}

	decisions := make([]Decision, 0, len(batch))
	var skipped []RecordError
	// signature -> canonical first batch index, for exact in-batch repeats
	seenSig := make(map[string]int, len(batch))

	for i, d := range batch {
		if d == nil {
			skipped = append(skipped, RecordError{RecordIndex: i, Stage: StageDedup, Reason: "nil draft"})
			continue
		}
		if d.Title == "" || d.VenueID == uuid.Nil {
			skipped = append(skipped, RecordError{RecordIndex: d.Index, Stage: StageDedup, Reason: "missing signature inputs"})
			continue
		}
		if d.Signature == "" {
			d.Signature = SignatureOf(d)
		}

		dec := dd.decide(d, decisions, historyBySig, seenSig, history)
		if _, ok := seenSig[d.Signature]; !ok {
			first := d.Index
			if dec.Kind == DecisionDuplicate {
				first = dec.FirstIndex
			}
			seenSig[d.Signature] = first
		}
		decisions = append(decisions, dec)
	}
	return decisions, skipped
}

func (dd *Deduplicator) decide(d *Draft, prior []Decision, historyBySig map[string]*HistoryEvent, seenSig map[string]int, history []HistoryEvent) Decision {
	if h, ok := historyBySig[d.Signature]; ok {
		return Decision{Draft: d, Kind: DecisionUpdate, ExistingID: h.ID}
	}
	if first, ok := seenSig[d.Signature]; ok {
		return Decision{Draft: d, Kind: DecisionDuplicate, FirstIndex: first}
	}
	for _, p := range prior {
		if !dd.fuzzyMatch(p.Draft.Title, p.Draft.VenueID, p.Draft.StartTime, d) {
			continue
		}
		first := p.Draft.Index
		if p.Kind == DecisionDuplicate {
			first = p.FirstIndex
		}
		return Decision{Draft: d, Kind: DecisionDuplicate, FirstIndex: first}
	}
	for i := range history {
		h := &history[i]
		if dd.fuzzyMatch(h.Title, h.VenueID, h.StartTime, d) {
			return Decision{Draft: d, Kind: DecisionUpdate, ExistingID: h.ID}
		}
	}
	return Decision{Draft: d, Kind: DecisionNew}
}

func (dd *Deduplicator) fuzzyMatch(title string, venueID uuid.UUID, start *time.Time, d *Draft) bool {
	if venueID != d.VenueID {
		return false
	}
	if Similarity(title, d.Title) < dd.Threshold {
		return false
	}
	return dd.timesOverlap(start, d.StartTime)
}

// timesOverlap reports whether two start times fall inside the
// configured window. A missing time on either side disables the check,
// leaving title and venue as the only criteria, which is deliberately
// looser than failing the pair.
func (dd *Deduplicator) timesOverlap(a, b *time.Time) bool {
	if a == nil || b == nil {
		return true
	}
	if dd.TimeTolerance > 0 {
		diff := a.Sub(*b)
		if diff < 0 {
			diff = -diff
		}
		return diff <= dd.TimeTolerance
	}
	au, bu := a.UTC(), b.UTC()
	return au.Year() == bu.Year() && au.YearDay() == bu.YearDay()
}

// Similarity returns an edit-distance ratio in [0, 1] over lower-cased,
// whitespace-normalized titles. It is symmetric and equals 1 only for
// identical normalized strings.
func Similarity(a, b string) float64 {
	a = strings.ToLower(cleanString(a))
	b = strings.ToLower(cleanString(b))
	if a == b {
		return 1
	}
	longest := utf8.RuneCountInString(a)
	if lb := utf8.RuneCountInString(b); lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
