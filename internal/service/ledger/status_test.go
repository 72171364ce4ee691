package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pacheco20222/DogMatch-backend-sub000/internal/db"
	"github.com/pacheco20222/DogMatch-backend-sub000/internal/service/ledger"
)

// TestComputeStatus pins down the derivation rule, in particular that an
// undecided slot keeps the match pending even when the other side passed.
func TestComputeStatus(t *testing.T) {
	cases := []struct {
		name string
		a, b db.Action
		want db.Status
	}{
		{"both undecided", db.ActionUndecided, db.ActionUndecided, db.StatusPending},
		{"one like one undecided", db.ActionLike, db.ActionUndecided, db.StatusPending},
		{"one pass one undecided", db.ActionPass, db.ActionUndecided, db.StatusPending},
		{"undecided masks the pass", db.ActionUndecided, db.ActionPass, db.StatusPending},
		{"both like", db.ActionLike, db.ActionLike, db.StatusMatched},
		{"like and superlike", db.ActionLike, db.ActionSuperLike, db.StatusMatched},
		{"superlike and like", db.ActionSuperLike, db.ActionLike, db.StatusMatched},
		{"both superlike", db.ActionSuperLike, db.ActionSuperLike, db.StatusMatched},
		{"like and pass", db.ActionLike, db.ActionPass, db.StatusDeclined},
		{"pass and superlike", db.ActionPass, db.ActionSuperLike, db.StatusDeclined},
		{"both pass", db.ActionPass, db.ActionPass, db.StatusDeclined},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ledger.ComputeStatus(tc.a, tc.b))
		})
	}
}
