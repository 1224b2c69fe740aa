package ledger

import (
	"context"

	"github.com/bookdepot/stock-service/core"
	"github.com/rs/zerolog/log"
)

func rollback(ctx context.Context, tx core.Transaction, err error) {
	if tx == nil {
		return
	}
	e := tx.Rollback(ctx)
	if e != nil {
		log.Warn().Err(err).Msg("failed to rollback")
	}
}

type Transactional interface {
	BeginTransaction(ctx context.Context) (core.Transaction, error)
}

type Repository interface {
	BookRepository
	BatchRepository
	EntryRepository
}

type BookRepository interface {
	Transactional
	GetBook(ctx context.Context, isbn string, options ...core.QueryOptions) (Book, error)
	GetBookStock(ctx context.Context, isbn string, options ...core.QueryOptions) (BookStock, error)
	GetAllBookStock(ctx context.Context, limit int, offset int, options ...core.QueryOptions) ([]BookStock, error)

	SaveBook(ctx context.Context, book Book, options ...core.UpdateOptions) error
}

type BatchRepository interface {
	Transactional
	GetBatch(ctx context.Context, id uint64, options ...core.QueryOptions) (Batch, error)
	GetBatchByRequestID(ctx context.Context, requestID string, options ...core.QueryOptions) (Batch, error)
	GetBatches(ctx context.Context, isbn string, options ...core.QueryOptions) ([]Batch, error)

	// GetOpenBatches returns batches with units still available, oldest batch
	// id first. The allocator depends on that ordering.
	GetOpenBatches(ctx context.Context, isbn string, options ...core.QueryOptions) ([]Batch, error)

	SaveBatch(ctx context.Context, batch *Batch, options ...core.UpdateOptions) error
	UpdateBatchAvailable(ctx context.Context, id uint64, available int64, options ...core.UpdateOptions) error

	// GetBatchLedgerTotals pairs each batch's running availability with the
	// sum its ledger entries account for.
	GetBatchLedgerTotals(ctx context.Context, limit int, offset int, options ...core.QueryOptions) ([]BatchDrift, error)
}

type EntryRepository interface {
	Transactional
	GetEntries(ctx context.Context, query EntryQuery, limit, offset int, options ...core.QueryOptions) ([]Entry, error)

	SaveEntry(ctx context.Context, entry *Entry, options ...core.UpdateOptions) error

	SumBatchAvailable(ctx context.Context, isbn string, options ...core.QueryOptions) (int64, error)

	// SumOutstandingReserve sums RESERVE minus RELEASE_RESERVE for a title. A
	// nil consumer sums across all consumers; a SCHOOL consumer also counts
	// the school's bundles.
	SumOutstandingReserve(ctx context.Context, isbn string, consumer *ConsumerRef, options ...core.QueryOptions) (int64, error)

	// SumWithdrawn sums WITHDRAW entries for a title scoped to the consumer's
	// fulfillments. Gross figure, returns do not subtract from it.
	SumWithdrawn(ctx context.Context, isbn string, consumer ConsumerRef, options ...core.QueryOptions) (int64, error)
}

// ConsumerResolver maps a consumer reference to the school it belongs to so
// the service can check the acting user's scope.
type ConsumerResolver interface {
	SchoolFor(ctx context.Context, consumer ConsumerRef) (uint64, error)
}

type Queue interface {
	PublishStock(ctx context.Context, stock BookStock) error
}
