package ledger

import (
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/db"
)

// ComputeStatus derives a match status from its two action slots.
//
// Precedence, checked in order:
//  1. Either slot undecided → pending. This deliberately wins over a pass
//     from the other side: an unresponsive dog masks the counterpart's
//     rejection until it answers. Product has confirmed this is the wanted
//     reading, keep it in sync with them before changing.
//  2. Either slot pass → declined.
//  3. Otherwise both slots are a positive variant (like or superlike) →
//     matched. A superlike needs no reciprocal superlike; any positive
//     pairing counts.
//
// Expiry is not derived here: expired is a one-way transition applied by
// the sweeper to rows that are still pending past the deadline, and it is
// never recomputed back out of.
func ComputeStatus(a, b db.Action) db.Status {
	if !a.Decided() || !b.Decided() {
		return db.StatusPending
	}
	if a == db.ActionPass || b == db.ActionPass {
		return db.StatusDeclined
	}
	return db.StatusMatched
}
