package match

import (
	"database/sql"

	"github.com/tkvist/courtkeeper/internal/entry"
	"github.com/tkvist/courtkeeper/internal/pairing"
)

// Store persists the match-meta singleton, per-court results, and the
// rating-update markers that make finishing idempotent. Start and Finish
// are the two multi-record atomic transactions of the system.
type Store interface {
	GetMeta() (*Meta, error)
	// Start commits the pairing in one transaction: meta idle->playing plus
	// every placed entry pending->playing and every rester
	// pending->resting. commitRotation, when non-nil, runs on the same
	// transaction so the rest queue advances only if the start commits.
	// Any failed precondition aborts the whole start.
	Start(matchID string, courts []pairing.Court, resters []entry.Entry, commitRotation func(*sql.Tx) error) error
	// Finish releases the slot in one transaction: meta playing->idle
	// (conditioned on matchID) plus every playing entry of the match back
	// to pending and every rester back to pending.
	Finish(matchID string) error
	// ForceReset unconditionally returns meta to idle and every entry to
	// pending. Administrative escape hatch only.
	ForceReset() error

	SubmitResult(res *Result) error
	GetResults(matchID string) ([]Result, error)
	AllSubmitted(matchID string, expectedCourts int) (bool, error)

	// MarkRatingApplied records that the rating update for one finished
	// court has been computed. It returns false when a previous finish
	// already recorded it, in which case the update must not be reapplied.
	MarkRatingApplied(matchID string, courtNumber int, updatesJSON []byte) (bool, error)
}
