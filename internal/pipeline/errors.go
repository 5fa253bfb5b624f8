package pipeline

import "errors"

// Stage names recorded on RecordError entries.
const (
	StageNormalize = "normalize"
	StageValidate  = "validate"
	StageDedup     = "dedup"
	StageEnrich    = "enrich"
	StagePersist   = "persist"
)

var (
	// ErrNormalization marks a record that could not be coerced into a
	// Draft at all. The record is dropped and reported, the batch goes on.
	ErrNormalization = errors.New("record cannot be normalized")

	// ErrBatchFatal wraps failures that invalidate the whole batch, such
	// as a lost database connection while loading dedup history. It is
	// the only error Process returns.
	ErrBatchFatal = errors.New("batch aborted")
)
