// Package store persists per-client request activity for the protection gate.
package store

import (
	"context"
	"time"
)

// Retention is how long activity is kept before the janitor purges it.
const Retention = 24 * time.Hour

// ClientActivityStore records request timestamps per client and answers
// rolling-window counts. Implementations must be safe for concurrent use;
// concurrent Records for the same client must never be lost.
type ClientActivityStore interface {
	// Record appends ts to the client's history.
	Record(ctx context.Context, clientID string, ts time.Time) error

	// CountSince returns how many recorded timestamps for the client are
	// strictly after since.
	CountSince(ctx context.Context, clientID string, since time.Time) (int, error)

	// Admit counts the client's timestamps after each window's Since and
	// records ts only when no window has reached its Limit. The count and
	// the insert are one atomic step per client, so a burst of parallel
	// requests cannot all read the same pre-burst count.
	Admit(ctx context.Context, clientID string, ts time.Time, windows []Window) (Admission, error)

	// Purge removes every timestamp before the cutoff across all clients
	// and returns the number removed.
	Purge(ctx context.Context, before time.Time) (int, error)

	Close() error
}

// Window is one rolling-window ceiling checked by Admit. A Limit of zero or
// less only counts.
type Window struct {
	Since time.Time
	Limit int
}

// Admission is the result of Admit. Counts holds, per window, the activity
// recorded before ts. Rejected is the index of the first window whose
// Limit was reached, or -1 when ts was recorded.
type Admission struct {
	Counts   []int
	Rejected int
}

// Admitted reports whether the timestamp was recorded.
func (a Admission) Admitted() bool { return a.Rejected < 0 }

// decide applies the window limits to counts taken inside an atomic step.
func decide(windows []Window, counts []int) Admission {
	a := Admission{Counts: counts, Rejected: -1}
	for i, w := range windows {
		if w.Limit > 0 && counts[i] >= w.Limit {
			a.Rejected = i
			break
		}
	}
	return a
}
