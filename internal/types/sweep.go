package types

import (
	"time"

	"github.com/google/uuid"
)

// SweepFailure records a single account the retention sweep could not purge.
type SweepFailure struct {
	AccountID uuid.UUID `json:"account_id"`
	Error     string    `json:"error"`
}

// SweepReport is the outcome of one retention sweep run. Failed entries are
// surfaced for operator visibility; they never abort the batch. Skipped
// counts accounts that were already gone when this run reached them, so
// overlapping runs never report the same deletion twice.
type SweepReport struct {
	Cutoff    time.Time      `json:"cutoff"`
	Scanned   int            `json:"scanned"`
	Deleted   int            `json:"deleted"`
	Skipped   int            `json:"skipped"`
	Failed    []SweepFailure `json:"failed,omitempty"`
	Truncated bool           `json:"truncated"`
	Duration  time.Duration  `json:"duration_ns"`
}
