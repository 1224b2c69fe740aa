package fulfillment

import (
	"context"

	"github.com/bookdepot/stock-service/core"
	"github.com/bookdepot/stock-service/core/bundle"
	"github.com/bookdepot/stock-service/core/ledger"
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

// Repository spans the fulfillment tables and the slice of ledger and bundle
// state a fulfillment transaction has to touch, so the whole workflow
// commits or rolls back as one.
type Repository interface {
	RecordRepository
	StockRepository
	BundleRepository
}

type RecordRepository interface {
	Transactional
	GetRecord(ctx context.Context, id uint64, options ...core.QueryOptions) (Record, error)
	GetRecordByRequestID(ctx context.Context, requestID string, options ...core.QueryOptions) (Record, error)
	GetRecords(ctx context.Context, query RecordQuery, limit, offset int, options ...core.QueryOptions) ([]Record, error)

	SaveRecord(ctx context.Context, record *Record, options ...core.UpdateOptions) error
	UpdateRecordStatus(ctx context.Context, id uint64, status Status, options ...core.UpdateOptions) error
	UpdateLineReturned(ctx context.Context, lineID uint64, returned int64, options ...core.UpdateOptions) error
	SaveReturn(ctx context.Context, recordID uint64, ret *Return, options ...core.UpdateOptions) error
}

type StockRepository interface {
	Transactional
	GetBook(ctx context.Context, isbn string, options ...core.QueryOptions) (ledger.Book, error)
	GetBookStock(ctx context.Context, isbn string, options ...core.QueryOptions) (ledger.BookStock, error)
	GetBatch(ctx context.Context, id uint64, options ...core.QueryOptions) (ledger.Batch, error)
	GetOpenBatches(ctx context.Context, isbn string, options ...core.QueryOptions) ([]ledger.Batch, error)
	UpdateBatchAvailable(ctx context.Context, id uint64, available int64, options ...core.UpdateOptions) error

	SaveEntry(ctx context.Context, entry *ledger.Entry, options ...core.UpdateOptions) error

	// GetFulfillmentEntries returns every ledger entry written for one
	// fulfillment, oldest first, including its return and cancel entries.
	GetFulfillmentEntries(ctx context.Context, fulfillmentID uint64, options ...core.QueryOptions) ([]ledger.Entry, error)
}

type BundleRepository interface {
	Transactional
	GetBundle(ctx context.Context, id uint64, options ...core.QueryOptions) (bundle.Bundle, error)

	// GetBundleRecords returns the bare records for a bundle, without lines
	// or returns. Enough to derive the bundle status.
	GetBundleRecords(ctx context.Context, bundleID uint64, options ...core.QueryOptions) ([]Record, error)

	UpdateBundleStatus(ctx context.Context, id uint64, status bundle.Status, options ...core.UpdateOptions) error
}

type Queue interface {
	PublishFulfillment(ctx context.Context, record Record) error
	PublishStock(ctx context.Context, stock ledger.BookStock) error
}
