package queue

import (
	"context"

	"github.com/bookdepot/stock-service/core/fulfillment"
	"github.com/bookdepot/stock-service/core/ledger"
	"github.com/bookdepot/stock-service/testutil"
)

type MockQueue struct {
	PublishStockFunc       func(ctx context.Context, stock ledger.BookStock) error
	PublishFulfillmentFunc func(ctx context.Context, record fulfillment.Record) error

	*testutil.CallWatcher
}

func NewMockQueue() *MockQueue {
	return &MockQueue{
		PublishStockFunc: func(ctx context.Context, stock ledger.BookStock) error {
			return nil
		},
		PublishFulfillmentFunc: func(ctx context.Context, record fulfillment.Record) error {
			return nil
		},
		CallWatcher: testutil.NewCallWatcher(),
	}
}

func (m *MockQueue) PublishStock(ctx context.Context, stock ledger.BookStock) error {
	m.AddCall(ctx, stock)
	return m.PublishStockFunc(ctx, stock)
}

func (m *MockQueue) PublishFulfillment(ctx context.Context, record fulfillment.Record) error {
	m.AddCall(ctx, record)
	return m.PublishFulfillmentFunc(ctx, record)
}
