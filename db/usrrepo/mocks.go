package usrrepo

import (
	"context"

	"github.com/bookdepot/stock-service/core"
	"github.com/bookdepot/stock-service/core/user"
	"github.com/bookdepot/stock-service/testutil"
)

type MockRepo struct {
	CreateFunc func(ctx context.Context, user *user.User, tx ...core.UpdateOptions) error
	GetFunc    func(ctx context.Context, username string, tx ...core.QueryOptions) (user.User, error)
	DeleteFunc func(ctx context.Context, username string, tx ...core.UpdateOptions) error

	*testutil.CallWatcher
}

func NewMockRepo() *MockRepo {
	return &MockRepo{
		CreateFunc: func(ctx context.Context, user *user.User, tx ...core.UpdateOptions) error { return nil },
		GetFunc: func(ctx context.Context, username string, tx ...core.QueryOptions) (user.User, error) {
			return user.User{}, nil
		},
		DeleteFunc:  func(ctx context.Context, username string, tx ...core.UpdateOptions) error { return nil },
		CallWatcher: testutil.NewCallWatcher(),
	}
}

func (r *MockRepo) Create(ctx context.Context, user *user.User, tx ...core.UpdateOptions) error {
	r.AddCall(ctx, user)
	return r.CreateFunc(ctx, user, tx...)
}

func (r *MockRepo) Get(ctx context.Context, username string, tx ...core.QueryOptions) (user.User, error) {
	r.AddCall(ctx, username)
	return r.GetFunc(ctx, username, tx...)
}

func (r *MockRepo) Delete(ctx context.Context, username string, tx ...core.UpdateOptions) error {
	r.AddCall(ctx, username)
	return r.DeleteFunc(ctx, username, tx...)
}
