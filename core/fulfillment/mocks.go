package fulfillment

import (
	"context"

	"github.com/bookdepot/stock-service/core/user"
)

type MockService struct {
	FulfillFunc func(ctx context.Context, actor user.Actor, req FulfillmentRequest) (Record, error)
	ReturnFunc  func(ctx context.Context, actor user.Actor, fulfillmentID uint64, items []ReturnItem) ([]Return, error)
	CancelFunc  func(ctx context.Context, actor user.Actor, fulfillmentID uint64) ([]BatchCredit, error)

	GetRecordFunc  func(ctx context.Context, actor user.Actor, id uint64) (Record, error)
	GetRecordsFunc func(ctx context.Context, actor user.Actor, query RecordQuery, limit, offset int) ([]Record, error)

	SubscribeFulfillmentsFunc   func(ch chan<- Record) (id FulfillmentSubscriptionID)
	UnsubscribeFulfillmentsFunc func(id FulfillmentSubscriptionID)
}

func NewMockService() MockService {
	return MockService{
		FulfillFunc: func(ctx context.Context, actor user.Actor, req FulfillmentRequest) (Record, error) {
			return Record{}, nil
		},
		ReturnFunc: func(ctx context.Context, actor user.Actor, fulfillmentID uint64, items []ReturnItem) ([]Return, error) {
			return []Return{}, nil
		},
		CancelFunc: func(ctx context.Context, actor user.Actor, fulfillmentID uint64) ([]BatchCredit, error) {
			return []BatchCredit{}, nil
		},
		GetRecordFunc: func(ctx context.Context, actor user.Actor, id uint64) (Record, error) {
			return Record{}, nil
		},
		GetRecordsFunc: func(ctx context.Context, actor user.Actor, query RecordQuery, limit, offset int) ([]Record, error) {
			return []Record{}, nil
		},
		SubscribeFulfillmentsFunc:   func(ch chan<- Record) (id FulfillmentSubscriptionID) { return "" },
		UnsubscribeFulfillmentsFunc: func(id FulfillmentSubscriptionID) {},
	}
}

func (m *MockService) Fulfill(ctx context.Context, actor user.Actor, req FulfillmentRequest) (Record, error) {
	return m.FulfillFunc(ctx, actor, req)
}

func (m *MockService) Return(ctx context.Context, actor user.Actor, fulfillmentID uint64, items []ReturnItem) ([]Return, error) {
	return m.ReturnFunc(ctx, actor, fulfillmentID, items)
}

func (m *MockService) Cancel(ctx context.Context, actor user.Actor, fulfillmentID uint64) ([]BatchCredit, error) {
	return m.CancelFunc(ctx, actor, fulfillmentID)
}

func (m *MockService) GetRecord(ctx context.Context, actor user.Actor, id uint64) (Record, error) {
	return m.GetRecordFunc(ctx, actor, id)
}

func (m *MockService) GetRecords(ctx context.Context, actor user.Actor, query RecordQuery, limit, offset int) ([]Record, error) {
	return m.GetRecordsFunc(ctx, actor, query, limit, offset)
}

func (m *MockService) SubscribeFulfillments(ch chan<- Record) (id FulfillmentSubscriptionID) {
	return m.SubscribeFulfillmentsFunc(ch)
}

func (m *MockService) UnsubscribeFulfillments(id FulfillmentSubscriptionID) {
	m.UnsubscribeFulfillmentsFunc(id)
}
