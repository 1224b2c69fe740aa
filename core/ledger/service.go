package ledger

import (
	"context"
	"time"

	"github.com/bookdepot/stock-service/core"
	"github.com/bookdepot/stock-service/core/user"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

func NewService(repo Repository, q Queue, resolver ConsumerResolver, policy user.AccessPolicy) *service {
	return &service{
		repo:      repo,
		queue:     q,
		resolver:  resolver,
		policy:    policy,
		stockSubs: make(map[StockSubscriptionID]chan<- BookStock),
	}
}

type Service interface {
	CreateBook(ctx context.Context, book Book) error
	GetBook(ctx context.Context, isbn string) (Book, error)
	GetStock(ctx context.Context, isbn string) (BookStock, error)
	GetAllStock(ctx context.Context, limit, offset int) ([]BookStock, error)
	GetBatches(ctx context.Context, isbn string) ([]Batch, error)
	GetEntries(ctx context.Context, query EntryQuery, limit, offset int) ([]Entry, error)

	ReceiveBatch(ctx context.Context, actor user.Actor, req ReceiptRequest) (Batch, error)
	Reserve(ctx context.Context, actor user.Actor, req ReserveRequest) (Entry, error)
	ReleaseReserve(ctx context.Context, actor user.Actor, req ReserveRequest) (Entry, error)

	GetAvailability(ctx context.Context, actor user.Actor, consumer ConsumerRef, isbns []string) ([]TitleAvailability, error)
	ReconcileBatches(ctx context.Context, limit, offset int) ([]BatchDrift, error)
	ReconcileAll(ctx context.Context, pageSize int) ([]BatchDrift, error)

	SubscribeStock(ch chan<- BookStock) (id StockSubscriptionID)
	UnsubscribeStock(id StockSubscriptionID)
}

type StockSubscriptionID string

type service struct {
	repo      Repository
	queue     Queue
	resolver  ConsumerResolver
	policy    user.AccessPolicy
	stockSubs map[StockSubscriptionID]chan<- BookStock
}

func (s *service) CreateBook(ctx context.Context, book Book) error {
	const funcName = "CreateBook"

	if book.ISBN == "" {
		return core.Invalidf("isbn", "isbn is required")
	}
	if book.Title == "" {
		return core.Invalidf("title", "title is required")
	}

	dbBook, err := s.repo.GetBook(ctx, book.ISBN)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return errors.WithStack(err)
	}

	if dbBook.ISBN != "" {
		log.Debug().
			Str("func", funcName).
			Str("isbn", dbBook.ISBN).
			Msg("book already exists")
		return nil
	}

	log.Info().
		Str("func", funcName).
		Str("isbn", book.ISBN).
		Str("title", book.Title).
		Msg("creating book")

	if err = s.repo.SaveBook(ctx, book); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (s *service) ReceiveBatch(ctx context.Context, actor user.Actor, req ReceiptRequest) (Batch, error) {
	const funcName = "ReceiveBatch"

	log.Info().
		Str("func", funcName).
		Str("isbn", req.ISBN).
		Str("requestId", req.RequestID).
		Int64("quantity", req.Quantity).
		Msg("receiving batch")

	if actor.Role != user.RoleAdmin {
		return Batch{}, core.ErrPermission
	}
	if req.RequestID == "" {
		return Batch{}, core.Invalidf("requestId", "request id is required")
	}
	if req.ISBN == "" {
		return Batch{}, core.Invalidf("isbn", "isbn is required")
	}
	if req.Quantity < 1 {
		return Batch{}, core.Invalidf("quantity", "quantity must be greater than zero")
	}

	batch, err := s.repo.GetBatchByRequestID(ctx, req.RequestID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return Batch{}, errors.WithStack(err)
	}

	if batch.ID != 0 {
		log.Debug().
			Str("func", funcName).
			Str("requestId", req.RequestID).
			Msg("receipt request already processed")
		return batch, nil
	}

	if _, err = s.repo.GetBook(ctx, req.ISBN); err != nil {
		return Batch{}, errors.WithMessage(err, "failed to get book for receipt")
	}

	tx, err := s.repo.BeginTransaction(ctx)
	if err != nil {
		return Batch{}, errors.WithStack(err)
	}

	defer func() {
		if err != nil {
			rollback(ctx, tx, err)
		}
	}()

	batch = Batch{
		ISBN:       req.ISBN,
		Available:  req.Quantity,
		RequestID:  req.RequestID,
		Note:       req.Note,
		ReceivedAt: time.Now(),
	}

	if err = s.repo.SaveBatch(ctx, &batch, core.UpdateOptions{Tx: tx}); err != nil {
		return Batch{}, errors.WithMessage(err, "failed to save batch")
	}

	entry := Entry{
		Kind:     KindReceipt,
		ISBN:     req.ISBN,
		BatchID:  &batch.ID,
		Quantity: req.Quantity,
		Note:     req.Note,
		Created:  time.Now(),
	}

	if err = s.repo.SaveEntry(ctx, &entry, core.UpdateOptions{Tx: tx}); err != nil {
		return Batch{}, errors.WithMessage(err, "failed to save receipt entry")
	}

	if err = tx.Commit(ctx); err != nil {
		return Batch{}, errors.WithMessage(err, "failed to commit receipt transaction")
	}

	stock, err := s.repo.GetBookStock(ctx, req.ISBN)
	if err != nil {
		return batch, errors.WithMessage(err, "failed to get stock after receipt")
	}

	if err = s.publishStock(ctx, stock); err != nil {
		return batch, errors.WithMessage(err, "failed to publish stock")
	}

	return batch, nil
}

func (s *service) Reserve(ctx context.Context, actor user.Actor, req ReserveRequest) (Entry, error) {
	const funcName = "Reserve"

	log.Info().
		Str("func", funcName).
		Str("isbn", req.ISBN).
		Str("consumerKind", string(req.Consumer.Kind)).
		Uint64("consumerId", req.Consumer.ID).
		Int64("quantity", req.Quantity).
		Msg("reserving stock")

	if err := validateReserveRequest(req); err != nil {
		return Entry{}, err
	}
	if err := s.authorizeConsumer(ctx, actor, req.Consumer); err != nil {
		return Entry{}, err
	}

	tx, err := s.repo.BeginTransaction(ctx)
	if err != nil {
		return Entry{}, errors.WithStack(err)
	}

	defer func() {
		if err != nil {
			rollback(ctx, tx, err)
		}
	}()

	// The book row serves as the title-level lock. Concurrent reserves and
	// releases for the same title queue up behind it.
	if _, err = s.repo.GetBook(ctx, req.ISBN, core.QueryOptions{Tx: tx, ForUpdate: true}); err != nil {
		return Entry{}, errors.WithMessage(err, "failed to get book for reservation")
	}

	entry := Entry{
		Kind:     KindReserve,
		ISBN:     req.ISBN,
		Quantity: req.Quantity,
		Consumer: req.Consumer,
		Note:     req.Note,
		Created:  time.Now(),
	}

	if err = s.repo.SaveEntry(ctx, &entry, core.UpdateOptions{Tx: tx}); err != nil {
		return Entry{}, errors.WithMessage(err, "failed to save reserve entry")
	}

	if err = tx.Commit(ctx); err != nil {
		return Entry{}, errors.WithMessage(err, "failed to commit reserve transaction")
	}

	return entry, nil
}

func (s *service) ReleaseReserve(ctx context.Context, actor user.Actor, req ReserveRequest) (Entry, error) {
	const funcName = "ReleaseReserve"

	log.Info().
		Str("func", funcName).
		Str("isbn", req.ISBN).
		Str("consumerKind", string(req.Consumer.Kind)).
		Uint64("consumerId", req.Consumer.ID).
		Int64("quantity", req.Quantity).
		Msg("releasing reserved stock")

	if err := validateReserveRequest(req); err != nil {
		return Entry{}, err
	}
	if err := s.authorizeConsumer(ctx, actor, req.Consumer); err != nil {
		return Entry{}, err
	}

	tx, err := s.repo.BeginTransaction(ctx)
	if err != nil {
		return Entry{}, errors.WithStack(err)
	}

	defer func() {
		if err != nil {
			rollback(ctx, tx, err)
		}
	}()

	if _, err = s.repo.GetBook(ctx, req.ISBN, core.QueryOptions{Tx: tx, ForUpdate: true}); err != nil {
		return Entry{}, errors.WithMessage(err, "failed to get book for release")
	}

	outstanding, err := s.repo.SumOutstandingReserve(ctx, req.ISBN, &req.Consumer, core.QueryOptions{Tx: tx})
	if err != nil {
		return Entry{}, errors.WithMessage(err, "failed to sum outstanding reservation")
	}
	if outstanding < 0 {
		outstanding = 0
	}

	if req.Quantity > outstanding {
		err = &core.ConflictError{Msg: "release exceeds outstanding reservation", Remaining: outstanding}
		return Entry{}, err
	}

	entry := Entry{
		Kind:     KindReleaseReserve,
		ISBN:     req.ISBN,
		Quantity: req.Quantity,
		Consumer: req.Consumer,
		Note:     req.Note,
		Created:  time.Now(),
	}

	if err = s.repo.SaveEntry(ctx, &entry, core.UpdateOptions{Tx: tx}); err != nil {
		return Entry{}, errors.WithMessage(err, "failed to save release entry")
	}

	if err = tx.Commit(ctx); err != nil {
		return Entry{}, errors.WithMessage(err, "failed to commit release transaction")
	}

	return entry, nil
}

func validateReserveRequest(req ReserveRequest) error {
	if req.ISBN == "" {
		return core.Invalidf("isbn", "isbn is required")
	}
	if req.Quantity < 1 {
		return core.Invalidf("quantity", "quantity must be greater than zero")
	}
	if req.Consumer.Kind != ConsumerSchool && req.Consumer.Kind != ConsumerBundle {
		return core.Invalidf("consumer", "reservations may only be held by schools or bundles")
	}
	if req.Consumer.ID == 0 {
		return core.Invalidf("consumer", "consumer id is required")
	}
	return nil
}

// authorizeConsumer resolves the consumer's owning school and checks the
// actor can act for it.
func (s *service) authorizeConsumer(ctx context.Context, actor user.Actor, consumer ConsumerRef) error {
	schoolID, err := s.resolveSchool(ctx, consumer)
	if err != nil {
		return err
	}
	if !s.policy.CanActFor(actor, schoolID) {
		return core.ErrPermission
	}
	return nil
}

func (s *service) resolveSchool(ctx context.Context, consumer ConsumerRef) (uint64, error) {
	switch consumer.Kind {
	case ConsumerSchool:
		if consumer.ID == 0 {
			return 0, core.Invalidf("consumer", "school id is required")
		}
		return consumer.ID, nil
	case ConsumerBundle:
		schoolID, err := s.resolver.SchoolFor(ctx, consumer)
		if err != nil {
			return 0, errors.WithMessage(err, "failed to resolve bundle school")
		}
		return schoolID, nil
	default:
		return 0, core.Invalidf("consumer", "unsupported consumer kind")
	}
}

func (s *service) GetAllStock(ctx context.Context, limit, offset int) ([]BookStock, error) {
	return s.repo.GetAllBookStock(ctx, limit, offset)
}

func (s *service) GetBook(ctx context.Context, isbn string) (Book, error) {
	const funcName = "GetBook"

	log.Info().
		Str("func", funcName).
		Str("isbn", isbn).
		Msg("getting book")

	book, err := s.repo.GetBook(ctx, isbn)
	if err != nil {
		return book, errors.WithStack(err)
	}
	return book, nil
}

func (s *service) GetStock(ctx context.Context, isbn string) (BookStock, error) {
	const funcName = "GetStock"

	log.Info().
		Str("func", funcName).
		Str("isbn", isbn).
		Msg("getting book stock")

	stock, err := s.repo.GetBookStock(ctx, isbn)
	if err != nil {
		return stock, errors.WithStack(err)
	}
	return stock, nil
}

func (s *service) GetBatches(ctx context.Context, isbn string) ([]Batch, error) {
	const funcName = "GetBatches"

	log.Info().
		Str("func", funcName).
		Str("isbn", isbn).
		Msg("getting batches")

	batches, err := s.repo.GetBatches(ctx, isbn)
	if err != nil {
		return batches, errors.WithStack(err)
	}
	return batches, nil
}

func (s *service) GetEntries(ctx context.Context, query EntryQuery, limit, offset int) ([]Entry, error) {
	const funcName = "GetEntries"

	log.Info().
		Str("func", funcName).
		Str("isbn", query.ISBN).
		Str("kind", string(query.Kind)).
		Msg("getting ledger entries")

	entries, err := s.repo.GetEntries(ctx, query, limit, offset)
	if err != nil {
		return entries, errors.WithStack(err)
	}
	return entries, nil
}

func (s *service) SubscribeStock(ch chan<- BookStock) (id StockSubscriptionID) {
	id = StockSubscriptionID(uuid.NewString())
	s.stockSubs[id] = ch
	log.Debug().Interface("clientId", id).Msg("subscribing to stock updates")
	return id
}

func (s *service) UnsubscribeStock(id StockSubscriptionID) {
	log.Debug().Interface("clientId", id).Msg("unsubscribing from stock updates")
	close(s.stockSubs[id])
	delete(s.stockSubs, id)
}

func (s *service) publishStock(ctx context.Context, stock BookStock) error {
	err := s.queue.PublishStock(ctx, stock)
	if err != nil {
		return errors.WithMessage(err, "failed to publish stock to queue")
	}
	go s.notifyStockSubscribers(stock)
	return nil
}

func (s *service) notifyStockSubscribers(stock BookStock) {
	for id, ch := range s.stockSubs {
		log.Debug().Interface("clientId", id).Interface("stock", stock).Msg("notifying subscriber of stock update")
		ch <- stock
	}
}
