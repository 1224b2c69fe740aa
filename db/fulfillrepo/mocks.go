package fulfillrepo

import (
	"context"

	"github.com/bookdepot/stock-service/core"
	"github.com/bookdepot/stock-service/core/bundle"
	"github.com/bookdepot/stock-service/core/fulfillment"
	"github.com/bookdepot/stock-service/core/ledger"
	"github.com/bookdepot/stock-service/db"
	"github.com/bookdepot/stock-service/testutil"
)

type MockRepo struct {
	GetRecordFunc            func(ctx context.Context, id uint64, options ...core.QueryOptions) (fulfillment.Record, error)
	GetRecordByRequestIDFunc func(ctx context.Context, requestID string, options ...core.QueryOptions) (fulfillment.Record, error)
	GetRecordsFunc           func(ctx context.Context, query fulfillment.RecordQuery, limit, offset int, options ...core.QueryOptions) ([]fulfillment.Record, error)
	SaveRecordFunc           func(ctx context.Context, record *fulfillment.Record, options ...core.UpdateOptions) error
	UpdateRecordStatusFunc   func(ctx context.Context, id uint64, status fulfillment.Status, options ...core.UpdateOptions) error
	UpdateLineReturnedFunc   func(ctx context.Context, lineID uint64, returned int64, options ...core.UpdateOptions) error
	SaveReturnFunc           func(ctx context.Context, recordID uint64, ret *fulfillment.Return, options ...core.UpdateOptions) error

	GetBookFunc               func(ctx context.Context, isbn string, options ...core.QueryOptions) (ledger.Book, error)
	GetBookStockFunc          func(ctx context.Context, isbn string, options ...core.QueryOptions) (ledger.BookStock, error)
	GetBatchFunc              func(ctx context.Context, id uint64, options ...core.QueryOptions) (ledger.Batch, error)
	GetOpenBatchesFunc        func(ctx context.Context, isbn string, options ...core.QueryOptions) ([]ledger.Batch, error)
	UpdateBatchAvailableFunc  func(ctx context.Context, id uint64, available int64, options ...core.UpdateOptions) error
	SaveEntryFunc             func(ctx context.Context, entry *ledger.Entry, options ...core.UpdateOptions) error
	GetFulfillmentEntriesFunc func(ctx context.Context, fulfillmentID uint64, options ...core.QueryOptions) ([]ledger.Entry, error)

	GetBundleFunc          func(ctx context.Context, id uint64, options ...core.QueryOptions) (bundle.Bundle, error)
	GetBundleRecordsFunc   func(ctx context.Context, bundleID uint64, options ...core.QueryOptions) ([]fulfillment.Record, error)
	UpdateBundleStatusFunc func(ctx context.Context, id uint64, status bundle.Status, options ...core.UpdateOptions) error

	BeginTransactionFunc func(ctx context.Context) (core.Transaction, error)

	*testutil.CallWatcher
}

func NewMockRepo() *MockRepo {
	return &MockRepo{
		GetRecordFunc: func(ctx context.Context, id uint64, options ...core.QueryOptions) (fulfillment.Record, error) {
			return fulfillment.Record{}, nil
		},
		GetRecordByRequestIDFunc: func(ctx context.Context, requestID string, options ...core.QueryOptions) (fulfillment.Record, error) {
			return fulfillment.Record{}, core.ErrNotFound
		},
		GetRecordsFunc: func(ctx context.Context, query fulfillment.RecordQuery, limit, offset int, options ...core.QueryOptions) ([]fulfillment.Record, error) {
			return nil, nil
		},
		SaveRecordFunc: func(ctx context.Context, record *fulfillment.Record, options ...core.UpdateOptions) error {
			record.ID = 1
			return nil
		},
		UpdateRecordStatusFunc: func(ctx context.Context, id uint64, status fulfillment.Status, options ...core.UpdateOptions) error {
			return nil
		},
		UpdateLineReturnedFunc: func(ctx context.Context, lineID uint64, returned int64, options ...core.UpdateOptions) error {
			return nil
		},
		SaveReturnFunc: func(ctx context.Context, recordID uint64, ret *fulfillment.Return, options ...core.UpdateOptions) error {
			ret.ID = 1
			return nil
		},
		GetBookFunc: func(ctx context.Context, isbn string, options ...core.QueryOptions) (ledger.Book, error) {
			return ledger.Book{}, nil
		},
		GetBookStockFunc: func(ctx context.Context, isbn string, options ...core.QueryOptions) (ledger.BookStock, error) {
			return ledger.BookStock{}, nil
		},
		GetBatchFunc: func(ctx context.Context, id uint64, options ...core.QueryOptions) (ledger.Batch, error) {
			return ledger.Batch{}, nil
		},
		GetOpenBatchesFunc: func(ctx context.Context, isbn string, options ...core.QueryOptions) ([]ledger.Batch, error) {
			return nil, nil
		},
		UpdateBatchAvailableFunc: func(ctx context.Context, id uint64, available int64, options ...core.UpdateOptions) error {
			return nil
		},
		SaveEntryFunc: func(ctx context.Context, entry *ledger.Entry, options ...core.UpdateOptions) error {
			entry.ID = 1
			return nil
		},
		GetFulfillmentEntriesFunc: func(ctx context.Context, fulfillmentID uint64, options ...core.QueryOptions) ([]ledger.Entry, error) {
			return nil, nil
		},
		GetBundleFunc: func(ctx context.Context, id uint64, options ...core.QueryOptions) (bundle.Bundle, error) {
			return bundle.Bundle{}, nil
		},
		GetBundleRecordsFunc: func(ctx context.Context, bundleID uint64, options ...core.QueryOptions) ([]fulfillment.Record, error) {
			return nil, nil
		},
		UpdateBundleStatusFunc: func(ctx context.Context, id uint64, status bundle.Status, options ...core.UpdateOptions) error {
			return nil
		},
		BeginTransactionFunc: func(ctx context.Context) (core.Transaction, error) { return db.NewMockTransaction(), nil },
		CallWatcher:          testutil.NewCallWatcher(),
	}
}

func (r *MockRepo) GetRecord(ctx context.Context, id uint64, options ...core.QueryOptions) (fulfillment.Record, error) {
	r.AddCall(ctx, id)
	return r.GetRecordFunc(ctx, id, options...)
}

func (r *MockRepo) GetRecordByRequestID(ctx context.Context, requestID string, options ...core.QueryOptions) (fulfillment.Record, error) {
	r.AddCall(ctx, requestID)
	return r.GetRecordByRequestIDFunc(ctx, requestID, options...)
}

func (r *MockRepo) GetRecords(ctx context.Context, query fulfillment.RecordQuery, limit, offset int, options ...core.QueryOptions) ([]fulfillment.Record, error) {
	r.AddCall(ctx, query, limit, offset)
	return r.GetRecordsFunc(ctx, query, limit, offset, options...)
}

func (r *MockRepo) SaveRecord(ctx context.Context, record *fulfillment.Record, options ...core.UpdateOptions) error {
	r.AddCall(ctx, record)
	return r.SaveRecordFunc(ctx, record, options...)
}

func (r *MockRepo) UpdateRecordStatus(ctx context.Context, id uint64, status fulfillment.Status, options ...core.UpdateOptions) error {
	r.AddCall(ctx, id, status)
	return r.UpdateRecordStatusFunc(ctx, id, status, options...)
}

func (r *MockRepo) UpdateLineReturned(ctx context.Context, lineID uint64, returned int64, options ...core.UpdateOptions) error {
	r.AddCall(ctx, lineID, returned)
	return r.UpdateLineReturnedFunc(ctx, lineID, returned, options...)
}

func (r *MockRepo) SaveReturn(ctx context.Context, recordID uint64, ret *fulfillment.Return, options ...core.UpdateOptions) error {
	r.AddCall(ctx, recordID, ret)
	return r.SaveReturnFunc(ctx, recordID, ret, options...)
}

func (r *MockRepo) GetBook(ctx context.Context, isbn string, options ...core.QueryOptions) (ledger.Book, error) {
	r.AddCall(ctx, isbn)
	return r.GetBookFunc(ctx, isbn, options...)
}

func (r *MockRepo) GetBookStock(ctx context.Context, isbn string, options ...core.QueryOptions) (ledger.BookStock, error) {
	r.AddCall(ctx, isbn)
	return r.GetBookStockFunc(ctx, isbn, options...)
}

func (r *MockRepo) GetBatch(ctx context.Context, id uint64, options ...core.QueryOptions) (ledger.Batch, error) {
	r.AddCall(ctx, id)
	return r.GetBatchFunc(ctx, id, options...)
}

func (r *MockRepo) GetOpenBatches(ctx context.Context, isbn string, options ...core.QueryOptions) ([]ledger.Batch, error) {
	r.AddCall(ctx, isbn)
	return r.GetOpenBatchesFunc(ctx, isbn, options...)
}

func (r *MockRepo) UpdateBatchAvailable(ctx context.Context, id uint64, available int64, options ...core.UpdateOptions) error {
	r.AddCall(ctx, id, available)
	return r.UpdateBatchAvailableFunc(ctx, id, available, options...)
}

func (r *MockRepo) SaveEntry(ctx context.Context, entry *ledger.Entry, options ...core.UpdateOptions) error {
	r.AddCall(ctx, entry)
	return r.SaveEntryFunc(ctx, entry, options...)
}

func (r *MockRepo) GetFulfillmentEntries(ctx context.Context, fulfillmentID uint64, options ...core.QueryOptions) ([]ledger.Entry, error) {
	r.AddCall(ctx, fulfillmentID)
	return r.GetFulfillmentEntriesFunc(ctx, fulfillmentID, options...)
}

func (r *MockRepo) GetBundle(ctx context.Context, id uint64, options ...core.QueryOptions) (bundle.Bundle, error) {
	r.AddCall(ctx, id)
	return r.GetBundleFunc(ctx, id, options...)
}

func (r *MockRepo) GetBundleRecords(ctx context.Context, bundleID uint64, options ...core.QueryOptions) ([]fulfillment.Record, error) {
	r.AddCall(ctx, bundleID)
	return r.GetBundleRecordsFunc(ctx, bundleID, options...)
}

func (r *MockRepo) UpdateBundleStatus(ctx context.Context, id uint64, status bundle.Status, options ...core.UpdateOptions) error {
	r.AddCall(ctx, id, status)
	return r.UpdateBundleStatusFunc(ctx, id, status, options...)
}

func (r *MockRepo) BeginTransaction(ctx context.Context) (core.Transaction, error) {
	r.AddCall(ctx)
	return r.BeginTransactionFunc(ctx)
}
