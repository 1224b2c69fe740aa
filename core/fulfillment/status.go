package fulfillment

import "github.com/bookdepot/stock-service/core/bundle"

// deriveStatus reads a record's status straight off its line quantities.
// Blocked means nothing at all was achieved, partial means some lines came
// up short, fulfilled means every line was covered in full.
func deriveStatus(lines []Line) Status {
	var requested, achieved int64
	short := false

	for _, l := range lines {
		requested += l.Requested
		achieved += l.Achieved
		if l.Shortfall() > 0 {
			short = true
		}
	}

	if requested > 0 && achieved == 0 {
		return StatusBlocked
	}
	if short {
		return StatusPartial
	}
	return StatusFulfilled
}

// DeriveBundleStatus folds a bundle's fulfillments into one status. Any
// fulfilled issuing marks the bundle fulfilled even when later issuings for
// additional classes fell short. Cancelled records are ignored; a bundle
// with nothing left standing goes back to NONE.
func DeriveBundleStatus(records []Record) bundle.Status {
	partial := false
	blocked := false

	for _, r := range records {
		switch r.Status {
		case StatusFulfilled:
			return bundle.StatusFulfilled
		case StatusPartial:
			partial = true
		case StatusBlocked:
			blocked = true
		}
	}

	if partial {
		return bundle.StatusPartial
	}
	if blocked {
		return bundle.StatusBlocked
	}
	return bundle.StatusNone
}
