package ledger

// Allocate claims units from batches oldest-first until need is satisfied or
// stock runs out. Batches must already be ordered oldest batch id first, the
// order GetOpenBatches returns them in. The second return is the shortfall,
// zero when the need was fully covered.
//
// Allocate never mutates batches. Batches with nothing available are skipped
// and a batch is never drawn below zero.
func Allocate(need int64, batches []Batch) ([]Allocation, int64) {
	if need <= 0 {
		return nil, 0
	}

	var allocs []Allocation
	remaining := need

	for _, b := range batches {
		if remaining == 0 {
			break
		}
		if b.Available <= 0 {
			continue
		}

		take := remaining
		if take > b.Available {
			take = b.Available
		}

		allocs = append(allocs, Allocation{BatchID: b.ID, Quantity: take})
		remaining -= take
	}

	return allocs, remaining
}
