package ledger

import (
	"context"

	"github.com/bookdepot/stock-service/core/user"
)

type MockService struct {
	CreateBookFunc  func(ctx context.Context, book Book) error
	GetBookFunc     func(ctx context.Context, isbn string) (Book, error)
	GetStockFunc    func(ctx context.Context, isbn string) (BookStock, error)
	GetAllStockFunc func(ctx context.Context, limit, offset int) ([]BookStock, error)
	GetBatchesFunc  func(ctx context.Context, isbn string) ([]Batch, error)
	GetEntriesFunc  func(ctx context.Context, query EntryQuery, limit, offset int) ([]Entry, error)

	ReceiveBatchFunc   func(ctx context.Context, actor user.Actor, req ReceiptRequest) (Batch, error)
	ReserveFunc        func(ctx context.Context, actor user.Actor, req ReserveRequest) (Entry, error)
	ReleaseReserveFunc func(ctx context.Context, actor user.Actor, req ReserveRequest) (Entry, error)

	GetAvailabilityFunc  func(ctx context.Context, actor user.Actor, consumer ConsumerRef, isbns []string) ([]TitleAvailability, error)
	ReconcileBatchesFunc func(ctx context.Context, limit, offset int) ([]BatchDrift, error)
	ReconcileAllFunc     func(ctx context.Context, pageSize int) ([]BatchDrift, error)

	SubscribeStockFunc   func(ch chan<- BookStock) (id StockSubscriptionID)
	UnsubscribeStockFunc func(id StockSubscriptionID)
}

func NewMockService() MockService {
	return MockService{
		CreateBookFunc: func(ctx context.Context, book Book) error { return nil },
		GetBookFunc:    func(ctx context.Context, isbn string) (Book, error) { return Book{}, nil },
		GetStockFunc:   func(ctx context.Context, isbn string) (BookStock, error) { return BookStock{}, nil },
		GetAllStockFunc: func(ctx context.Context, limit, offset int) ([]BookStock, error) {
			return []BookStock{}, nil
		},
		GetBatchesFunc: func(ctx context.Context, isbn string) ([]Batch, error) { return []Batch{}, nil },
		GetEntriesFunc: func(ctx context.Context, query EntryQuery, limit, offset int) ([]Entry, error) {
			return []Entry{}, nil
		},
		ReceiveBatchFunc: func(ctx context.Context, actor user.Actor, req ReceiptRequest) (Batch, error) {
			return Batch{}, nil
		},
		ReserveFunc: func(ctx context.Context, actor user.Actor, req ReserveRequest) (Entry, error) {
			return Entry{}, nil
		},
		ReleaseReserveFunc: func(ctx context.Context, actor user.Actor, req ReserveRequest) (Entry, error) {
			return Entry{}, nil
		},
		GetAvailabilityFunc: func(ctx context.Context, actor user.Actor, consumer ConsumerRef, isbns []string) ([]TitleAvailability, error) {
			return []TitleAvailability{}, nil
		},
		ReconcileBatchesFunc: func(ctx context.Context, limit, offset int) ([]BatchDrift, error) {
			return []BatchDrift{}, nil
		},
		ReconcileAllFunc: func(ctx context.Context, pageSize int) ([]BatchDrift, error) {
			return []BatchDrift{}, nil
		},
		SubscribeStockFunc:   func(ch chan<- BookStock) (id StockSubscriptionID) { return "" },
		UnsubscribeStockFunc: func(id StockSubscriptionID) {},
	}
}

func (m *MockService) CreateBook(ctx context.Context, book Book) error {
	return m.CreateBookFunc(ctx, book)
}

func (m *MockService) GetBook(ctx context.Context, isbn string) (Book, error) {
	return m.GetBookFunc(ctx, isbn)
}

func (m *MockService) GetStock(ctx context.Context, isbn string) (BookStock, error) {
	return m.GetStockFunc(ctx, isbn)
}

func (m *MockService) GetAllStock(ctx context.Context, limit, offset int) ([]BookStock, error) {
	return m.GetAllStockFunc(ctx, limit, offset)
}

func (m *MockService) GetBatches(ctx context.Context, isbn string) ([]Batch, error) {
	return m.GetBatchesFunc(ctx, isbn)
}

func (m *MockService) GetEntries(ctx context.Context, query EntryQuery, limit, offset int) ([]Entry, error) {
	return m.GetEntriesFunc(ctx, query, limit, offset)
}

func (m *MockService) ReceiveBatch(ctx context.Context, actor user.Actor, req ReceiptRequest) (Batch, error) {
	return m.ReceiveBatchFunc(ctx, actor, req)
}

func (m *MockService) Reserve(ctx context.Context, actor user.Actor, req ReserveRequest) (Entry, error) {
	return m.ReserveFunc(ctx, actor, req)
}

func (m *MockService) ReleaseReserve(ctx context.Context, actor user.Actor, req ReserveRequest) (Entry, error) {
	return m.ReleaseReserveFunc(ctx, actor, req)
}

func (m *MockService) GetAvailability(ctx context.Context, actor user.Actor, consumer ConsumerRef, isbns []string) ([]TitleAvailability, error) {
	return m.GetAvailabilityFunc(ctx, actor, consumer, isbns)
}

func (m *MockService) ReconcileBatches(ctx context.Context, limit, offset int) ([]BatchDrift, error) {
	return m.ReconcileBatchesFunc(ctx, limit, offset)
}

func (m *MockService) ReconcileAll(ctx context.Context, pageSize int) ([]BatchDrift, error) {
	return m.ReconcileAllFunc(ctx, pageSize)
}

func (m *MockService) SubscribeStock(ch chan<- BookStock) (id StockSubscriptionID) {
	return m.SubscribeStockFunc(ch)
}

func (m *MockService) UnsubscribeStock(id StockSubscriptionID) {
	m.UnsubscribeStockFunc(id)
}
