package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// unknownTimeBucket stands in for the start time of drafts that have
// none, so such drafts still hash deterministically.
const unknownTimeBucket = "unknown-time"

// SignatureOf returns the stable identity hash of a draft: sha256 over
// the lower-cased whitespace-normalized title, the start time truncated
// to the minute, and the venue id. Minute truncation absorbs the
// second-level jitter different sources report for the same event, so
// the same logical event hashes identically on every scrape run.
func SignatureOf(d *Draft) string {
	title := strings.ToLower(cleanString(d.Title))
	bucket := unknownTimeBucket
	if d.StartTime != nil {
		bucket = d.StartTime.UTC().Truncate(time.Minute).Format(time.RFC3339)
	}
	sum := sha256.Sum256([]byte(title + "\x1f" + bucket + "\x1f" + d.VenueID.String()))
	return hex.EncodeToString(sum[:])
}
