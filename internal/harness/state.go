package harness

import (
	"time"

	"github.com/google/uuid"
)

// State is an orchestrator lifecycle state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateGenerating
	StateExecuting
	StateReporting
	StateDone
	StateErrored
)

var stateNames = [...]string{"idle", "loading", "generating", "executing", "reporting", "done", "errored"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateDone || s == StateErrored
}

// Clock supplies report timestamps.
type Clock interface {
	Now() time.Time
}

// RunIDGenerator supplies run identifiers.
// Implemented by UUIDv7Generator (production) and
// testutil.FixedRunIDGenerator (tests).
type RunIDGenerator interface {
	NewRunID() string
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// UUIDv7Generator generates time-sortable UUIDv7 run IDs, so stored runs
// list in creation order.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// NewRunID returns a new hyphenated UUIDv7.
func (UUIDv7Generator) NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}
