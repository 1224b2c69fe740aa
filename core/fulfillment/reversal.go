package fulfillment

import (
	"context"
	"sort"
	"time"

	"github.com/bookdepot/stock-service/core"
	"github.com/bookdepot/stock-service/core/ledger"
	"github.com/bookdepot/stock-service/core/user"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Return accepts items back against a fulfillment and credits them to the
// batches they were withdrawn from, newest withdrawal first. The whole
// request is validated before anything is written; one bad item rejects all
// of them.
func (s *service) Return(ctx context.Context, actor user.Actor, fulfillmentID uint64, items []ReturnItem) ([]Return, error) {
	const funcName = "Return"

	log.Info().
		Str("func", funcName).
		Uint64("fulfillmentId", fulfillmentID).
		Int("items", len(items)).
		Msg("returning items")

	if err := validateReturnItems(items); err != nil {
		return nil, err
	}

	tx, err := s.repo.BeginTransaction(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	defer func() {
		if err != nil {
			rollback(ctx, tx, err)
		}
	}()

	record, err := s.repo.GetRecord(ctx, fulfillmentID, core.QueryOptions{Tx: tx, ForUpdate: true})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to get fulfillment for return")
	}
	if !s.policy.CanActFor(actor, record.SchoolID) {
		err = core.ErrPermission
		return nil, err
	}
	if record.Status == StatusCancelled {
		err = &core.ConflictError{Msg: "fulfillment has been cancelled"}
		return nil, err
	}

	entries, err := s.repo.GetFulfillmentEntries(ctx, fulfillmentID, core.QueryOptions{Tx: tx})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to get fulfillment entries")
	}

	var credits []BatchCredit
	for _, item := range items {
		withdraws := entriesFor(entries, ledger.KindWithdraw, item.ISBN)
		returned := returnedByBatch(entries, item.ISBN)

		issued := sumEntries(withdraws)
		var alreadyReturned int64
		for _, n := range returned {
			alreadyReturned += n
		}

		if issued == 0 {
			err = core.Invalidf("items", "%s was never issued under this fulfillment", item.ISBN)
			return nil, err
		}
		if returnable := issued - alreadyReturned; item.Quantity > returnable {
			err = &core.ConflictError{Msg: "return exceeds what is still out for " + item.ISBN, Remaining: returnable}
			return nil, err
		}

		for _, c := range splitReturn(withdraws, returned, item.Quantity) {
			c.ISBN = item.ISBN
			credits = append(credits, c)
		}
	}

	if err = s.applyCredits(ctx, tx, credits, ledger.KindReturn, ledger.ConsumerRef{Kind: ledger.ConsumerFulfillmentReturn, ID: fulfillmentID}, "returned"); err != nil {
		return nil, err
	}

	now := time.Now()
	returns := make([]Return, 0, len(items))
	for _, item := range items {
		if err = s.markLinesReturned(ctx, tx, &record, item); err != nil {
			return nil, err
		}

		ret := Return{
			ISBN:     item.ISBN,
			Quantity: item.Quantity,
			Amount:   lineUnitPrice(record.Lines, item.ISBN).Mul(decimal.NewFromInt(item.Quantity)),
			Actor:    actor.Username,
			Created:  now,
		}
		if err = s.repo.SaveReturn(ctx, record.ID, &ret, core.UpdateOptions{Tx: tx}); err != nil {
			return nil, errors.WithMessage(err, "failed to save return")
		}
		returns = append(returns, ret)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, errors.WithMessage(err, "failed to commit return transaction")
	}

	record.Returns = append(record.Returns, returns...)
	if err = s.publishFulfillment(ctx, record); err != nil {
		return returns, err
	}
	if err = s.publishStockFor(ctx, itemISBNs(items)); err != nil {
		return returns, err
	}

	return returns, nil
}

// Cancel voids a fulfillment, crediting every batch its net outstanding
// units, withdrawals less any returns already accepted.
func (s *service) Cancel(ctx context.Context, actor user.Actor, fulfillmentID uint64) ([]BatchCredit, error) {
	const funcName = "Cancel"

	log.Info().
		Str("func", funcName).
		Uint64("fulfillmentId", fulfillmentID).
		Msg("cancelling fulfillment")

	record, err := s.repo.GetRecord(ctx, fulfillmentID)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to get fulfillment for cancel")
	}
	if !s.policy.CanActFor(actor, record.SchoolID) {
		return nil, core.ErrPermission
	}

	tx, err := s.repo.BeginTransaction(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	defer func() {
		if err != nil {
			rollback(ctx, tx, err)
		}
	}()

	// Same lock order as issuing: bundle, then record, then batches.
	if record.Consumer.Kind == ledger.ConsumerBundle {
		if _, err = s.repo.GetBundle(ctx, record.Consumer.ID, core.QueryOptions{Tx: tx, ForUpdate: true}); err != nil {
			return nil, errors.WithMessage(err, "failed to lock bundle")
		}
	}

	record, err = s.repo.GetRecord(ctx, fulfillmentID, core.QueryOptions{Tx: tx, ForUpdate: true})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to get fulfillment for cancel")
	}
	if record.Status == StatusCancelled {
		err = &core.ConflictError{Msg: "fulfillment has already been cancelled"}
		return nil, err
	}

	entries, err := s.repo.GetFulfillmentEntries(ctx, fulfillmentID, core.QueryOptions{Tx: tx})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to get fulfillment entries")
	}

	credits := outstandingCredits(entries)

	if err = s.applyCredits(ctx, tx, credits, ledger.KindReceipt, ledger.ConsumerRef{Kind: ledger.ConsumerFulfillmentCancel, ID: fulfillmentID}, "fulfillment cancelled"); err != nil {
		return nil, err
	}

	if err = s.repo.UpdateRecordStatus(ctx, fulfillmentID, StatusCancelled, core.UpdateOptions{Tx: tx}); err != nil {
		return nil, errors.WithMessage(err, "failed to update fulfillment status")
	}

	if record.Consumer.Kind == ledger.ConsumerBundle {
		if err = s.updateBundleStatus(ctx, tx, record.Consumer.ID); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, errors.WithMessage(err, "failed to commit cancel transaction")
	}

	record.Status = StatusCancelled
	if err = s.publishFulfillment(ctx, record); err != nil {
		return credits, err
	}
	if err = s.publishStockFor(ctx, creditISBNs(credits)); err != nil {
		return credits, err
	}

	return credits, nil
}

func validateReturnItems(items []ReturnItem) error {
	if len(items) == 0 {
		return core.Invalidf("items", "at least one item is required")
	}
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		if item.ISBN == "" {
			return core.Invalidf("items", "item %d requires an isbn", i)
		}
		if item.Quantity < 1 {
			return core.Invalidf("items", "item %d quantity must be greater than zero", i)
		}
		if seen[item.ISBN] {
			return core.Invalidf("items", "%s is listed more than once", item.ISBN)
		}
		seen[item.ISBN] = true
	}
	return nil
}

// applyCredits puts units back on batches and writes the matching ledger
// entries. Credits are applied in ascending batch order so concurrent
// workflows always lock batch rows the same way round.
func (s *service) applyCredits(ctx context.Context, tx core.Transaction, credits []BatchCredit, kind ledger.EntryKind, consumer ledger.ConsumerRef, note string) error {
	ordered := make([]BatchCredit, len(credits))
	copy(ordered, credits)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].BatchID < ordered[j].BatchID })

	for _, c := range ordered {
		batch, err := s.repo.GetBatch(ctx, c.BatchID, core.QueryOptions{Tx: tx, ForUpdate: true})
		if err != nil {
			return errors.WithMessage(err, "failed to lock batch for credit")
		}
		if err := s.repo.UpdateBatchAvailable(ctx, c.BatchID, batch.Available+c.Quantity, core.UpdateOptions{Tx: tx}); err != nil {
			return errors.WithMessage(err, "failed to credit batch")
		}

		batchID := c.BatchID
		entry := ledger.Entry{
			Kind:     kind,
			ISBN:     c.ISBN,
			BatchID:  &batchID,
			Quantity: c.Quantity,
			Consumer: consumer,
			Note:     note,
			Created:  time.Now(),
		}
		if err := s.repo.SaveEntry(ctx, &entry, core.UpdateOptions{Tx: tx}); err != nil {
			return errors.WithMessage(err, "failed to save credit entry")
		}
	}
	return nil
}

// markLinesReturned spreads a returned quantity over the record's lines for
// that title, filling each line up to what it still has out.
func (s *service) markLinesReturned(ctx context.Context, tx core.Transaction, record *Record, item ReturnItem) error {
	left := item.Quantity
	for i := range record.Lines {
		line := &record.Lines[i]
		if line.ISBN != item.ISBN || left == 0 {
			continue
		}
		capacity := line.Achieved - line.Returned
		if capacity <= 0 {
			continue
		}

		take := left
		if take > capacity {
			take = capacity
		}
		line.Returned += take
		left -= take

		if err := s.repo.UpdateLineReturned(ctx, line.ID, line.Returned, core.UpdateOptions{Tx: tx}); err != nil {
			return errors.WithMessage(err, "failed to update line returned quantity")
		}
	}
	return nil
}

// splitReturn decides which batches a return goes back to by walking the
// title's WITHDRAW entries newest first. Portions covered by earlier returns
// are skipped in the same newest-first order those returns consumed them.
// withdraws must be ordered oldest first; the caller has already checked qty
// fits what is still out.
func splitReturn(withdraws []ledger.Entry, returnedByBatch map[uint64]int64, qty int64) []BatchCredit {
	assigned := make(map[uint64]int64, len(returnedByBatch))
	for id, n := range returnedByBatch {
		assigned[id] = n
	}

	taken := make(map[uint64]int64)
	var order []uint64
	remaining := qty

	for i := len(withdraws) - 1; i >= 0 && remaining > 0; i-- {
		w := withdraws[i]
		if w.BatchID == nil {
			continue
		}
		id := *w.BatchID

		available := w.Quantity
		if a := assigned[id]; a > 0 {
			if a >= available {
				assigned[id] = a - available
				continue
			}
			available -= a
			assigned[id] = 0
		}

		take := remaining
		if take > available {
			take = available
		}
		if take == 0 {
			continue
		}

		if _, ok := taken[id]; !ok {
			order = append(order, id)
		}
		taken[id] += take
		remaining -= take
	}

	credits := make([]BatchCredit, 0, len(order))
	for _, id := range order {
		credits = append(credits, BatchCredit{BatchID: id, Quantity: taken[id]})
	}
	return credits
}

// outstandingCredits nets each batch's withdrawals against its returns,
// which is exactly what cancellation owes back.
func outstandingCredits(entries []ledger.Entry) []BatchCredit {
	net := make(map[uint64]int64)
	isbn := make(map[uint64]string)

	for _, e := range entries {
		if e.BatchID == nil {
			continue
		}
		switch e.Kind {
		case ledger.KindWithdraw:
			net[*e.BatchID] += e.Quantity
			isbn[*e.BatchID] = e.ISBN
		case ledger.KindReturn:
			net[*e.BatchID] -= e.Quantity
		}
	}

	ids := make([]uint64, 0, len(net))
	for id := range net {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var credits []BatchCredit
	for _, id := range ids {
		if net[id] <= 0 {
			continue
		}
		credits = append(credits, BatchCredit{BatchID: id, ISBN: isbn[id], Quantity: net[id]})
	}
	return credits
}

func entriesFor(entries []ledger.Entry, kind ledger.EntryKind, isbn string) []ledger.Entry {
	var out []ledger.Entry
	for _, e := range entries {
		if e.Kind == kind && e.ISBN == isbn {
			out = append(out, e)
		}
	}
	return out
}

func returnedByBatch(entries []ledger.Entry, isbn string) map[uint64]int64 {
	out := make(map[uint64]int64)
	for _, e := range entries {
		if e.Kind == ledger.KindReturn && e.ISBN == isbn && e.BatchID != nil {
			out[*e.BatchID] += e.Quantity
		}
	}
	return out
}

func sumEntries(entries []ledger.Entry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Quantity
	}
	return total
}

func lineUnitPrice(lines []Line, isbn string) decimal.Decimal {
	for _, l := range lines {
		if l.ISBN == isbn {
			return l.UnitPrice
		}
	}
	return decimal.Zero
}

func itemISBNs(items []ReturnItem) []string {
	isbns := make([]string, 0, len(items))
	for _, item := range items {
		isbns = append(isbns, item.ISBN)
	}
	return isbns
}

func creditISBNs(credits []BatchCredit) []string {
	var isbns []string
	seen := make(map[string]bool)
	for _, c := range credits {
		if seen[c.ISBN] {
			continue
		}
		seen[c.ISBN] = true
		isbns = append(isbns, c.ISBN)
	}
	return isbns
}
