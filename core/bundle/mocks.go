package bundle

import (
	"context"

	"github.com/bookdepot/stock-service/core/ledger"
	"github.com/bookdepot/stock-service/core/user"
)

type MockService struct {
	CreateFunc           func(ctx context.Context, actor user.Actor, b Bundle) (Bundle, error)
	GetFunc              func(ctx context.Context, actor user.Actor, id uint64) (Bundle, error)
	GetSchoolBundlesFunc func(ctx context.Context, actor user.Actor, schoolID uint64, limit, offset int) ([]Bundle, error)
	SchoolForFunc        func(ctx context.Context, consumer ledger.ConsumerRef) (uint64, error)
}

func NewMockService() MockService {
	return MockService{
		CreateFunc: func(ctx context.Context, actor user.Actor, b Bundle) (Bundle, error) { return Bundle{}, nil },
		GetFunc:    func(ctx context.Context, actor user.Actor, id uint64) (Bundle, error) { return Bundle{}, nil },
		GetSchoolBundlesFunc: func(ctx context.Context, actor user.Actor, schoolID uint64, limit, offset int) ([]Bundle, error) {
			return []Bundle{}, nil
		},
		SchoolForFunc: func(ctx context.Context, consumer ledger.ConsumerRef) (uint64, error) { return 0, nil },
	}
}

func (m *MockService) Create(ctx context.Context, actor user.Actor, b Bundle) (Bundle, error) {
	return m.CreateFunc(ctx, actor, b)
}

func (m *MockService) Get(ctx context.Context, actor user.Actor, id uint64) (Bundle, error) {
	return m.GetFunc(ctx, actor, id)
}

func (m *MockService) GetSchoolBundles(ctx context.Context, actor user.Actor, schoolID uint64, limit, offset int) ([]Bundle, error) {
	return m.GetSchoolBundlesFunc(ctx, actor, schoolID, limit, offset)
}

func (m *MockService) SchoolFor(ctx context.Context, consumer ledger.ConsumerRef) (uint64, error) {
	return m.SchoolForFunc(ctx, consumer)
}
