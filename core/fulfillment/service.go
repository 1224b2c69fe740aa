package fulfillment

import (
	"context"
	"time"

	"github.com/bookdepot/stock-service/core"
	"github.com/bookdepot/stock-service/core/bundle"
	"github.com/bookdepot/stock-service/core/ledger"
	"github.com/bookdepot/stock-service/core/user"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

func NewService(repo Repository, q Queue, policy user.AccessPolicy) *service {
	return &service{
		repo:            repo,
		queue:           q,
		policy:          policy,
		fulfillmentSubs: make(map[FulfillmentSubscriptionID]chan<- Record),
	}
}

type Service interface {
	Fulfill(ctx context.Context, actor user.Actor, req FulfillmentRequest) (Record, error)
	Return(ctx context.Context, actor user.Actor, fulfillmentID uint64, items []ReturnItem) ([]Return, error)
	Cancel(ctx context.Context, actor user.Actor, fulfillmentID uint64) ([]BatchCredit, error)

	GetRecord(ctx context.Context, actor user.Actor, id uint64) (Record, error)
	GetRecords(ctx context.Context, actor user.Actor, query RecordQuery, limit, offset int) ([]Record, error)

	SubscribeFulfillments(ch chan<- Record) (id FulfillmentSubscriptionID)
	UnsubscribeFulfillments(id FulfillmentSubscriptionID)
}

type FulfillmentSubscriptionID string

type service struct {
	repo            Repository
	queue           Queue
	policy          user.AccessPolicy
	fulfillmentSubs map[FulfillmentSubscriptionID]chan<- Record
}

// Fulfill issues stock for the request's demand, oldest batches first. It
// takes whatever is available and records the rest as shortfall; running out
// of stock is a partial result, never an error.
func (s *service) Fulfill(ctx context.Context, actor user.Actor, req FulfillmentRequest) (Record, error) {
	const funcName = "Fulfill"

	log.Info().
		Str("func", funcName).
		Str("requestId", req.RequestID).
		Str("consumerKind", string(req.Consumer.Kind)).
		Uint64("consumerId", req.Consumer.ID).
		Int64("multiplier", req.Multiplier).
		Msg("fulfilling demand")

	if err := validateFulfillmentRequest(req); err != nil {
		return Record{}, err
	}

	schoolID, demand, err := s.resolveDemand(ctx, req)
	if err != nil {
		return Record{}, err
	}
	if !s.policy.CanActFor(actor, schoolID) {
		return Record{}, core.ErrPermission
	}

	lines, err := scaleDemand(demand, req.Multiplier)
	if err != nil {
		return Record{}, err
	}

	for _, line := range lines {
		if line.ISBN == "" {
			continue
		}
		if _, err = s.repo.GetBook(ctx, line.ISBN); err != nil {
			return Record{}, errors.WithMessage(err, "failed to get book for fulfillment")
		}
	}

	existing, err := s.repo.GetRecordByRequestID(ctx, req.RequestID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return Record{}, errors.WithStack(err)
	}
	if existing.ID != 0 {
		log.Debug().
			Str("func", funcName).
			Str("requestId", req.RequestID).
			Msg("fulfillment request already processed")
		return existing, nil
	}

	tx, err := s.repo.BeginTransaction(ctx)
	if err != nil {
		return Record{}, errors.WithStack(err)
	}

	defer func() {
		if err != nil {
			rollback(ctx, tx, err)
		}
	}()

	// Lock the bundle row first so sibling issuings for the same bundle
	// serialize, then batch rows in ascending id order inside the allocator
	// loop. Reversals take the same order.
	if req.Consumer.Kind == ledger.ConsumerBundle {
		b, berr := s.repo.GetBundle(ctx, req.Consumer.ID, core.QueryOptions{Tx: tx, ForUpdate: true})
		if berr != nil {
			err = errors.WithMessage(berr, "failed to lock bundle")
			return Record{}, err
		}
		if b.Status == bundle.StatusFulfilled {
			err = &core.ConflictError{Msg: "bundle has already been fulfilled"}
			return Record{}, err
		}
	}

	var pending []ledger.Allocation
	pendingISBN := make(map[uint64]string)

	for i := range lines {
		line := &lines[i]
		if line.ISBN == "" {
			// Ancillary items never touch stock and count as covered.
			line.Achieved = line.Requested
			continue
		}

		batches, berr := s.repo.GetOpenBatches(ctx, line.ISBN, core.QueryOptions{Tx: tx, ForUpdate: true})
		if berr != nil {
			err = errors.WithMessage(berr, "failed to get open batches")
			return Record{}, err
		}

		allocs, shortfall := ledger.Allocate(line.Requested, batches)
		line.Achieved = line.Requested - shortfall

		available := make(map[uint64]int64, len(batches))
		for _, b := range batches {
			available[b.ID] = b.Available
		}

		for _, alloc := range allocs {
			if err = s.repo.UpdateBatchAvailable(ctx, alloc.BatchID, available[alloc.BatchID]-alloc.Quantity, core.UpdateOptions{Tx: tx}); err != nil {
				return Record{}, errors.WithMessage(err, "failed to draw down batch")
			}
			pending = append(pending, alloc)
			pendingISBN[alloc.BatchID] = line.ISBN
		}

		log.Debug().
			Str("func", funcName).
			Str("isbn", line.ISBN).
			Int64("requested", line.Requested).
			Int64("achieved", line.Achieved).
			Msg("allocated batches for line")
	}

	record := Record{
		RequestID:  req.RequestID,
		Consumer:   req.Consumer,
		SchoolID:   schoolID,
		Multiplier: req.Multiplier,
		Status:     deriveStatus(lines),
		Note:       req.Note,
		Lines:      lines,
		Created:    time.Now(),
		CreatedBy:  actor.Username,
	}

	if err = s.repo.SaveRecord(ctx, &record, core.UpdateOptions{Tx: tx}); err != nil {
		return Record{}, errors.WithMessage(err, "failed to save fulfillment")
	}

	for _, alloc := range pending {
		batchID := alloc.BatchID
		entry := ledger.Entry{
			Kind:     ledger.KindWithdraw,
			ISBN:     pendingISBN[batchID],
			BatchID:  &batchID,
			Quantity: alloc.Quantity,
			Consumer: ledger.ConsumerRef{Kind: ledger.ConsumerFulfillment, ID: record.ID},
			Note:     req.Note,
			Created:  time.Now(),
		}
		if err = s.repo.SaveEntry(ctx, &entry, core.UpdateOptions{Tx: tx}); err != nil {
			return Record{}, errors.WithMessage(err, "failed to save withdraw entry")
		}
	}

	if req.Consumer.Kind == ledger.ConsumerBundle {
		if err = s.updateBundleStatus(ctx, tx, req.Consumer.ID); err != nil {
			return Record{}, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return Record{}, errors.WithMessage(err, "failed to commit fulfillment transaction")
	}

	if err = s.publishFulfillment(ctx, record); err != nil {
		return record, err
	}
	if err = s.publishStockFor(ctx, touchedISBNs(record.Lines)); err != nil {
		return record, err
	}

	return record, nil
}

func validateFulfillmentRequest(req FulfillmentRequest) error {
	if req.RequestID == "" {
		return core.Invalidf("requestId", "request id is required")
	}
	if req.Multiplier < 1 {
		return core.Invalidf("multiplier", "multiplier must be greater than zero")
	}
	switch req.Consumer.Kind {
	case ledger.ConsumerSchool, ledger.ConsumerBundle:
	default:
		return core.Invalidf("consumer", "fulfillments may only be issued for schools or bundles")
	}
	if req.Consumer.ID == 0 {
		return core.Invalidf("consumer", "consumer id is required")
	}
	return nil
}

// resolveDemand finds the owning school and the demand lines to fulfill.
// Bundle consumers fall back to the bundle's own lines when the request
// carries none.
func (s *service) resolveDemand(ctx context.Context, req FulfillmentRequest) (uint64, []DemandLine, error) {
	switch req.Consumer.Kind {
	case ledger.ConsumerBundle:
		b, err := s.repo.GetBundle(ctx, req.Consumer.ID)
		if err != nil {
			return 0, nil, errors.WithMessage(err, "failed to get bundle for fulfillment")
		}

		demand := req.Lines
		if len(demand) == 0 {
			demand = make([]DemandLine, 0, len(b.Lines))
			for _, line := range b.Lines {
				demand = append(demand, DemandLine{
					ISBN:      line.ISBN,
					Title:     line.Title,
					Quantity:  line.Quantity,
					UnitPrice: line.UnitPrice,
				})
			}
		}
		return b.SchoolID, demand, nil
	default:
		if len(req.Lines) == 0 {
			return 0, nil, core.Invalidf("lines", "at least one line is required")
		}
		return req.Consumer.ID, req.Lines, nil
	}
}

func scaleDemand(demand []DemandLine, multiplier int64) ([]Line, error) {
	lines := make([]Line, 0, len(demand))
	var total int64

	for i, d := range demand {
		if d.Quantity < 0 {
			return nil, core.Invalidf("lines", "line %d quantity may not be negative", i)
		}
		if d.Title == "" {
			return nil, core.Invalidf("lines", "line %d requires a title", i)
		}
		scaled := d.Quantity * multiplier
		if scaled == 0 {
			continue
		}
		total += scaled
		lines = append(lines, Line{
			ISBN:      d.ISBN,
			Title:     d.Title,
			Requested: scaled,
			UnitPrice: d.UnitPrice,
		})
	}

	if total == 0 {
		return nil, core.Invalidf("lines", "nothing to fulfill, all quantities are zero")
	}
	return lines, nil
}

// updateBundleStatus recomputes the owning bundle's status from every record
// issued against it, inside the caller's transaction.
func (s *service) updateBundleStatus(ctx context.Context, tx core.Transaction, bundleID uint64) error {
	records, err := s.repo.GetBundleRecords(ctx, bundleID, core.QueryOptions{Tx: tx})
	if err != nil {
		return errors.WithMessage(err, "failed to get bundle fulfillments")
	}
	status := DeriveBundleStatus(records)
	if err := s.repo.UpdateBundleStatus(ctx, bundleID, status, core.UpdateOptions{Tx: tx}); err != nil {
		return errors.WithMessage(err, "failed to update bundle status")
	}
	return nil
}

func (s *service) GetRecord(ctx context.Context, actor user.Actor, id uint64) (Record, error) {
	const funcName = "GetRecord"

	log.Info().
		Str("func", funcName).
		Uint64("id", id).
		Msg("getting fulfillment")

	record, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return record, errors.WithStack(err)
	}
	if !s.policy.CanActFor(actor, record.SchoolID) {
		return Record{}, core.ErrPermission
	}
	return record, nil
}

func (s *service) GetRecords(ctx context.Context, actor user.Actor, query RecordQuery, limit, offset int) ([]Record, error) {
	const funcName = "GetRecords"

	log.Info().
		Str("func", funcName).
		Uint64("schoolId", query.SchoolID).
		Str("status", string(query.Status)).
		Msg("getting fulfillments")

	if actor.Role != user.RoleAdmin {
		if query.SchoolID != 0 && query.SchoolID != actor.SchoolID {
			return nil, core.ErrPermission
		}
		query.SchoolID = actor.SchoolID
	}

	records, err := s.repo.GetRecords(ctx, query, limit, offset)
	if err != nil {
		return records, errors.WithStack(err)
	}
	return records, nil
}

func (s *service) SubscribeFulfillments(ch chan<- Record) (id FulfillmentSubscriptionID) {
	id = FulfillmentSubscriptionID(uuid.NewString())
	s.fulfillmentSubs[id] = ch
	log.Debug().Interface("clientId", id).Msg("subscribing to fulfillments")
	return id
}

func (s *service) UnsubscribeFulfillments(id FulfillmentSubscriptionID) {
	log.Debug().Interface("clientId", id).Msg("unsubscribing from fulfillments")
	close(s.fulfillmentSubs[id])
	delete(s.fulfillmentSubs, id)
}

func (s *service) publishFulfillment(ctx context.Context, record Record) error {
	err := s.queue.PublishFulfillment(ctx, record)
	if err != nil {
		return errors.WithMessage(err, "failed to publish fulfillment to queue")
	}
	go s.notifyFulfillmentSubscribers(record)
	return nil
}

// publishStockFor pushes fresh stock levels for the given titles after a
// workflow commits.
func (s *service) publishStockFor(ctx context.Context, isbns []string) error {
	for _, isbn := range isbns {
		stock, err := s.repo.GetBookStock(ctx, isbn)
		if err != nil {
			return errors.WithMessage(err, "failed to get stock after fulfillment")
		}
		if err := s.queue.PublishStock(ctx, stock); err != nil {
			return errors.WithMessage(err, "failed to publish stock to queue")
		}
	}
	return nil
}

func touchedISBNs(lines []Line) []string {
	var isbns []string
	seen := make(map[string]bool)
	for _, l := range lines {
		if l.ISBN == "" || l.Achieved == 0 || seen[l.ISBN] {
			continue
		}
		seen[l.ISBN] = true
		isbns = append(isbns, l.ISBN)
	}
	return isbns
}

func (s *service) notifyFulfillmentSubscribers(record Record) {
	for id, ch := range s.fulfillmentSubs {
		log.Debug().Interface("clientId", id).Uint64("fulfillmentId", record.ID).Msg("notifying subscriber of fulfillment update")
		ch <- record
	}
}
