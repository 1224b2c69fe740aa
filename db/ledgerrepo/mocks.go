package ledgerrepo

import (
	"context"

	"github.com/bookdepot/stock-service/core"
	"github.com/bookdepot/stock-service/core/ledger"
	"github.com/bookdepot/stock-service/db"
	"github.com/bookdepot/stock-service/testutil"
)

type MockRepo struct {
	GetBookFunc         func(ctx context.Context, isbn string, options ...core.QueryOptions) (ledger.Book, error)
	SaveBookFunc        func(ctx context.Context, book ledger.Book, options ...core.UpdateOptions) error
	GetBookStockFunc    func(ctx context.Context, isbn string, options ...core.QueryOptions) (ledger.BookStock, error)
	GetAllBookStockFunc func(ctx context.Context, limit int, offset int, options ...core.QueryOptions) ([]ledger.BookStock, error)

	GetBatchFunc            func(ctx context.Context, id uint64, options ...core.QueryOptions) (ledger.Batch, error)
	GetBatchByRequestIDFunc func(ctx context.Context, requestID string, options ...core.QueryOptions) (ledger.Batch, error)
	GetBatchesFunc          func(ctx context.Context, isbn string, options ...core.QueryOptions) ([]ledger.Batch, error)
	GetOpenBatchesFunc      func(ctx context.Context, isbn string, options ...core.QueryOptions) ([]ledger.Batch, error)
	SaveBatchFunc           func(ctx context.Context, batch *ledger.Batch, options ...core.UpdateOptions) error
	UpdateBatchAvailableFunc func(ctx context.Context, id uint64, available int64, options ...core.UpdateOptions) error
	GetBatchLedgerTotalsFunc func(ctx context.Context, limit int, offset int, options ...core.QueryOptions) ([]ledger.BatchDrift, error)

	GetEntriesFunc            func(ctx context.Context, query ledger.EntryQuery, limit, offset int, options ...core.QueryOptions) ([]ledger.Entry, error)
	SaveEntryFunc             func(ctx context.Context, entry *ledger.Entry, options ...core.UpdateOptions) error
	SumBatchAvailableFunc     func(ctx context.Context, isbn string, options ...core.QueryOptions) (int64, error)
	SumOutstandingReserveFunc func(ctx context.Context, isbn string, consumer *ledger.ConsumerRef, options ...core.QueryOptions) (int64, error)
	SumWithdrawnFunc          func(ctx context.Context, isbn string, consumer ledger.ConsumerRef, options ...core.QueryOptions) (int64, error)

	BeginTransactionFunc func(ctx context.Context) (core.Transaction, error)

	*testutil.CallWatcher
}

func NewMockRepo() *MockRepo {
	return &MockRepo{
		GetBookFunc: func(ctx context.Context, isbn string, options ...core.QueryOptions) (ledger.Book, error) {
			return ledger.Book{}, nil
		},
		SaveBookFunc: func(ctx context.Context, book ledger.Book, options ...core.UpdateOptions) error { return nil },
		GetBookStockFunc: func(ctx context.Context, isbn string, options ...core.QueryOptions) (ledger.BookStock, error) {
			return ledger.BookStock{}, nil
		},
		GetAllBookStockFunc: func(ctx context.Context, limit int, offset int, options ...core.QueryOptions) ([]ledger.BookStock, error) {
			return nil, nil
		},
		GetBatchFunc: func(ctx context.Context, id uint64, options ...core.QueryOptions) (ledger.Batch, error) {
			return ledger.Batch{}, nil
		},
		GetBatchByRequestIDFunc: func(ctx context.Context, requestID string, options ...core.QueryOptions) (ledger.Batch, error) {
			return ledger.Batch{}, core.ErrNotFound
		},
		GetBatchesFunc: func(ctx context.Context, isbn string, options ...core.QueryOptions) ([]ledger.Batch, error) {
			return nil, nil
		},
		GetOpenBatchesFunc: func(ctx context.Context, isbn string, options ...core.QueryOptions) ([]ledger.Batch, error) {
			return nil, nil
		},
		SaveBatchFunc: func(ctx context.Context, batch *ledger.Batch, options ...core.UpdateOptions) error {
			batch.ID = 1
			return nil
		},
		UpdateBatchAvailableFunc: func(ctx context.Context, id uint64, available int64, options ...core.UpdateOptions) error {
			return nil
		},
		GetBatchLedgerTotalsFunc: func(ctx context.Context, limit int, offset int, options ...core.QueryOptions) ([]ledger.BatchDrift, error) {
			return nil, nil
		},
		GetEntriesFunc: func(ctx context.Context, query ledger.EntryQuery, limit, offset int, options ...core.QueryOptions) ([]ledger.Entry, error) {
			return nil, nil
		},
		SaveEntryFunc: func(ctx context.Context, entry *ledger.Entry, options ...core.UpdateOptions) error {
			entry.ID = 1
			return nil
		},
		SumBatchAvailableFunc: func(ctx context.Context, isbn string, options ...core.QueryOptions) (int64, error) {
			return 0, nil
		},
		SumOutstandingReserveFunc: func(ctx context.Context, isbn string, consumer *ledger.ConsumerRef, options ...core.QueryOptions) (int64, error) {
			return 0, nil
		},
		SumWithdrawnFunc: func(ctx context.Context, isbn string, consumer ledger.ConsumerRef, options ...core.QueryOptions) (int64, error) {
			return 0, nil
		},
		BeginTransactionFunc: func(ctx context.Context) (core.Transaction, error) { return db.NewMockTransaction(), nil },
		CallWatcher:          testutil.NewCallWatcher(),
	}
}

func (r *MockRepo) GetBook(ctx context.Context, isbn string, options ...core.QueryOptions) (ledger.Book, error) {
	r.AddCall(ctx, isbn)
	return r.GetBookFunc(ctx, isbn, options...)
}

func (r *MockRepo) SaveBook(ctx context.Context, book ledger.Book, options ...core.UpdateOptions) error {
	r.AddCall(ctx, book)
	return r.SaveBookFunc(ctx, book, options...)
}

func (r *MockRepo) GetBookStock(ctx context.Context, isbn string, options ...core.QueryOptions) (ledger.BookStock, error) {
	r.AddCall(ctx, isbn)
	return r.GetBookStockFunc(ctx, isbn, options...)
}

func (r *MockRepo) GetAllBookStock(ctx context.Context, limit int, offset int, options ...core.QueryOptions) ([]ledger.BookStock, error) {
	r.AddCall(ctx, limit, offset)
	return r.GetAllBookStockFunc(ctx, limit, offset, options...)
}

func (r *MockRepo) GetBatch(ctx context.Context, id uint64, options ...core.QueryOptions) (ledger.Batch, error) {
	r.AddCall(ctx, id)
	return r.GetBatchFunc(ctx, id, options...)
}

func (r *MockRepo) GetBatchByRequestID(ctx context.Context, requestID string, options ...core.QueryOptions) (ledger.Batch, error) {
	r.AddCall(ctx, requestID)
	return r.GetBatchByRequestIDFunc(ctx, requestID, options...)
}

func (r *MockRepo) GetBatches(ctx context.Context, isbn string, options ...core.QueryOptions) ([]ledger.Batch, error) {
	r.AddCall(ctx, isbn)
	return r.GetBatchesFunc(ctx, isbn, options...)
}

func (r *MockRepo) GetOpenBatches(ctx context.Context, isbn string, options ...core.QueryOptions) ([]ledger.Batch, error) {
	r.AddCall(ctx, isbn)
	return r.GetOpenBatchesFunc(ctx, isbn, options...)
}

func (r *MockRepo) SaveBatch(ctx context.Context, batch *ledger.Batch, options ...core.UpdateOptions) error {
	r.AddCall(ctx, batch)
	return r.SaveBatchFunc(ctx, batch, options...)
}

func (r *MockRepo) UpdateBatchAvailable(ctx context.Context, id uint64, available int64, options ...core.UpdateOptions) error {
	r.AddCall(ctx, id, available)
	return r.UpdateBatchAvailableFunc(ctx, id, available, options...)
}

func (r *MockRepo) GetBatchLedgerTotals(ctx context.Context, limit int, offset int, options ...core.QueryOptions) ([]ledger.BatchDrift, error) {
	r.AddCall(ctx, limit, offset)
	return r.GetBatchLedgerTotalsFunc(ctx, limit, offset, options...)
}

func (r *MockRepo) GetEntries(ctx context.Context, query ledger.EntryQuery, limit, offset int, options ...core.QueryOptions) ([]ledger.Entry, error) {
	r.AddCall(ctx, query, limit, offset)
	return r.GetEntriesFunc(ctx, query, limit, offset, options...)
}

func (r *MockRepo) SaveEntry(ctx context.Context, entry *ledger.Entry, options ...core.UpdateOptions) error {
	r.AddCall(ctx, entry)
	return r.SaveEntryFunc(ctx, entry, options...)
}

func (r *MockRepo) SumBatchAvailable(ctx context.Context, isbn string, options ...core.QueryOptions) (int64, error) {
	r.AddCall(ctx, isbn)
	return r.SumBatchAvailableFunc(ctx, isbn, options...)
}

func (r *MockRepo) SumOutstandingReserve(ctx context.Context, isbn string, consumer *ledger.ConsumerRef, options ...core.QueryOptions) (int64, error) {
	r.AddCall(ctx, isbn, consumer)
	return r.SumOutstandingReserveFunc(ctx, isbn, consumer, options...)
}

func (r *MockRepo) SumWithdrawn(ctx context.Context, isbn string, consumer ledger.ConsumerRef, options ...core.QueryOptions) (int64, error) {
	r.AddCall(ctx, isbn, consumer)
	return r.SumWithdrawnFunc(ctx, isbn, consumer, options...)
}

func (r *MockRepo) BeginTransaction(ctx context.Context) (core.Transaction, error) {
	r.AddCall(ctx)
	return r.BeginTransactionFunc(ctx)
}
