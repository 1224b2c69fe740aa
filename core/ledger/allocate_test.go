package ledger_test

import (
	"testing"

	"github.com/bookdepot/stock-service/core/ledger"
	"github.com/stretchr/testify/assert"
)

func TestAllocate(t *testing.T) {
	tests := []struct {
		name string

		need    int64
		batches []ledger.Batch

		wantAllocs    []ledger.Allocation
		wantShortfall int64
	}{
		{
			name:    "oldest batch first",
			need:    3,
			batches: []ledger.Batch{{ID: 1, Available: 5}, {ID: 2, Available: 5}},

			wantAllocs: []ledger.Allocation{{BatchID: 1, Quantity: 3}},
		},
		{
			name:    "spans batches in order",
			need:    8,
			batches: []ledger.Batch{{ID: 1, Available: 5}, {ID: 2, Available: 5}},

			wantAllocs: []ledger.Allocation{{BatchID: 1, Quantity: 5}, {BatchID: 2, Quantity: 3}},
		},
		{
			name:    "exact fit stops at the batch boundary",
			need:    5,
			batches: []ledger.Batch{{ID: 1, Available: 5}, {ID: 2, Available: 5}},

			wantAllocs: []ledger.Allocation{{BatchID: 1, Quantity: 5}},
		},
		{
			name:    "drains everything and reports the shortfall",
			need:    12,
			batches: []ledger.Batch{{ID: 1, Available: 5}, {ID: 2, Available: 5}},

			wantAllocs:    []ledger.Allocation{{BatchID: 1, Quantity: 5}, {BatchID: 2, Quantity: 5}},
			wantShortfall: 2,
		},
		{
			name:    "skips empty batches",
			need:    4,
			batches: []ledger.Batch{{ID: 1, Available: 0}, {ID: 2, Available: 5}},

			wantAllocs: []ledger.Allocation{{BatchID: 2, Quantity: 4}},
		},
		{
			name:    "never draws a batch below zero",
			need:    4,
			batches: []ledger.Batch{{ID: 1, Available: -2}, {ID: 2, Available: 5}},

			wantAllocs: []ledger.Allocation{{BatchID: 2, Quantity: 4}},
		},
		{
			name:    "no batches at all",
			need:    4,
			batches: nil,

			wantShortfall: 4,
		},
		{
			name:    "zero need allocates nothing",
			need:    0,
			batches: []ledger.Batch{{ID: 1, Available: 5}},
		},
		{
			name:    "negative need allocates nothing",
			need:    -3,
			batches: []ledger.Batch{{ID: 1, Available: 5}},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			allocs, shortfall := ledger.Allocate(test.need, test.batches)

			assert.Equal(t, test.wantShortfall, shortfall, "shortfall")
			assert.Equal(t, test.wantAllocs, allocs, "allocations")
		})
	}
}

func TestAllocateDoesNotMutate(t *testing.T) {
	batches := []ledger.Batch{{ID: 1, Available: 5}, {ID: 2, Available: 5}}

	ledger.Allocate(8, batches)

	for _, b := range batches {
		assert.Equal(t, int64(5), b.Available, "batch %d changed", b.ID)
	}
}
