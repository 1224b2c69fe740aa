package bundlerepo

import (
	"context"

	"github.com/bookdepot/stock-service/core"
	"github.com/bookdepot/stock-service/core/bundle"
	"github.com/bookdepot/stock-service/db"
	"github.com/bookdepot/stock-service/testutil"
)

type MockRepo struct {
	GetBundleFunc        func(ctx context.Context, id uint64, options ...core.QueryOptions) (bundle.Bundle, error)
	GetSchoolBundlesFunc func(ctx context.Context, schoolID uint64, limit, offset int, options ...core.QueryOptions) ([]bundle.Bundle, error)
	SaveBundleFunc       func(ctx context.Context, b *bundle.Bundle, options ...core.UpdateOptions) error
	BeginTransactionFunc func(ctx context.Context) (core.Transaction, error)

	*testutil.CallWatcher
}

func NewMockRepo() *MockRepo {
	return &MockRepo{
		GetBundleFunc: func(ctx context.Context, id uint64, options ...core.QueryOptions) (bundle.Bundle, error) {
			return bundle.Bundle{}, nil
		},
		GetSchoolBundlesFunc: func(ctx context.Context, schoolID uint64, limit, offset int, options ...core.QueryOptions) ([]bundle.Bundle, error) {
			return nil, nil
		},
		SaveBundleFunc: func(ctx context.Context, b *bundle.Bundle, options ...core.UpdateOptions) error {
			b.ID = 1
			return nil
		},
		BeginTransactionFunc: func(ctx context.Context) (core.Transaction, error) { return db.NewMockTransaction(), nil },
		CallWatcher:          testutil.NewCallWatcher(),
	}
}

func (r *MockRepo) GetBundle(ctx context.Context, id uint64, options ...core.QueryOptions) (bundle.Bundle, error) {
	r.AddCall(ctx, id)
	return r.GetBundleFunc(ctx, id, options...)
}

func (r *MockRepo) GetSchoolBundles(ctx context.Context, schoolID uint64, limit, offset int, options ...core.QueryOptions) ([]bundle.Bundle, error) {
	r.AddCall(ctx, schoolID, limit, offset)
	return r.GetSchoolBundlesFunc(ctx, schoolID, limit, offset, options...)
}

func (r *MockRepo) SaveBundle(ctx context.Context, b *bundle.Bundle, options ...core.UpdateOptions) error {
	r.AddCall(ctx, b)
	return r.SaveBundleFunc(ctx, b, options...)
}

func (r *MockRepo) BeginTransaction(ctx context.Context) (core.Transaction, error) {
	r.AddCall(ctx)
	return r.BeginTransactionFunc(ctx)
}
