package bundle_test

import (
	"context"
	"os"
	"testing"

	"github.com/bookdepot/stock-service/core"
	"github.com/bookdepot/stock-service/core/bundle"
	"github.com/bookdepot/stock-service/core/ledger"
	"github.com/bookdepot/stock-service/core/user"
	"github.com/bookdepot/stock-service/db"
	"github.com/bookdepot/stock-service/db/bundlerepo"
	"github.com/bookdepot/stock-service/testutil"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

func TestMain(m *testing.M) {
	testutil.ConfigLogging()
	os.Exit(m.Run())
}

var (
	admin   = user.Actor{Username: "gertrude", Role: user.RoleAdmin}
	stMarys = user.Actor{Username: "stmarys", Role: user.RoleSchool, SchoolID: 7}
)

func year10English() bundle.Bundle {
	return bundle.Bundle{
		SchoolID: 7,
		Name:     "Year 10 English",
		Lines: []bundle.Line{
			{ISBN: "9780141182636", Title: "The Grapes of Wrath", Quantity: 1, UnitPrice: decimal.NewFromInt(10)},
			{Title: "Exercise Book", Quantity: 2, UnitPrice: decimal.NewFromInt(3)},
		},
	}
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name string

		actor  user.Actor
		bundle func() bundle.Bundle

		saveBundleFunc func(ctx context.Context, b *bundle.Bundle, options ...core.UpdateOptions) error

		wantRepoCallCnt map[string]int
		wantTxCallCnt   map[string]int
		wantErr         bool
	}{
		{
			name:   "school creates its own bundle",
			actor:  stMarys,
			bundle: year10English,

			wantRepoCallCnt: map[string]int{"SaveBundle": 1},
			wantTxCallCnt:   map[string]int{"Commit": 1, "Rollback": 0},
		},
		{
			name:   "admin creates bundles for any school",
			actor:  admin,
			bundle: year10English,

			wantRepoCallCnt: map[string]int{"SaveBundle": 1},
			wantTxCallCnt:   map[string]int{"Commit": 1, "Rollback": 0},
		},
		{
			name:  "school cannot create for another school",
			actor: stMarys,
			bundle: func() bundle.Bundle {
				b := year10English()
				b.SchoolID = 8
				return b
			},

			wantRepoCallCnt: map[string]int{"BeginTransaction": 0, "SaveBundle": 0},
			wantErr:         true,
		},
		{
			name:  "school is required",
			actor: admin,
			bundle: func() bundle.Bundle {
				b := year10English()
				b.SchoolID = 0
				return b
			},

			wantRepoCallCnt: map[string]int{"SaveBundle": 0},
			wantErr:         true,
		},
		{
			name:  "name is required",
			actor: stMarys,
			bundle: func() bundle.Bundle {
				b := year10English()
				b.Name = ""
				return b
			},

			wantRepoCallCnt: map[string]int{"SaveBundle": 0},
			wantErr:         true,
		},
		{
			name:  "at least one line is required",
			actor: stMarys,
			bundle: func() bundle.Bundle {
				b := year10English()
				b.Lines = nil
				return b
			},

			wantRepoCallCnt: map[string]int{"SaveBundle": 0},
			wantErr:         true,
		},
		{
			name:  "every line requires a title",
			actor: stMarys,
			bundle: func() bundle.Bundle {
				b := year10English()
				b.Lines[0].Title = ""
				return b
			},

			wantRepoCallCnt: map[string]int{"SaveBundle": 0},
			wantErr:         true,
		},
		{
			name:  "line quantity must be greater than zero",
			actor: stMarys,
			bundle: func() bundle.Bundle {
				b := year10English()
				b.Lines[0].Quantity = 0
				return b
			},

			wantRepoCallCnt: map[string]int{"SaveBundle": 0},
			wantErr:         true,
		},
		{
			name:  "unit price may not be negative",
			actor: stMarys,
			bundle: func() bundle.Bundle {
				b := year10English()
				b.Lines[0].UnitPrice = decimal.NewFromInt(-1)
				return b
			},

			wantRepoCallCnt: map[string]int{"SaveBundle": 0},
			wantErr:         true,
		},
		{
			name:   "unexpected error saving the bundle",
			actor:  stMarys,
			bundle: year10English,

			saveBundleFunc: func(ctx context.Context, b *bundle.Bundle, options ...core.UpdateOptions) error {
				return errors.New("some unexpected error")
			},

			wantRepoCallCnt: map[string]int{"SaveBundle": 1},
			wantTxCallCnt:   map[string]int{"Commit": 0, "Rollback": 1},
			wantErr:         true,
		},
	}

	for _, test := range tests {
		mockRepo := bundlerepo.NewMockRepo()
		if test.saveBundleFunc != nil {
			mockRepo.SaveBundleFunc = test.saveBundleFunc
		}

		mockTx := db.NewMockTransaction()
		mockRepo.BeginTransactionFunc = func(ctx context.Context) (core.Transaction, error) { return mockTx, nil }

		service := bundle.NewService(mockRepo, user.ScopePolicy{})

		t.Run(test.name, func(t *testing.T) {
			got, err := service.Create(context.Background(), test.actor, test.bundle())

			if test.wantErr && err == nil {
				t.Errorf("expected error, got none")
			}
			if !test.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if err == nil {
				if got.ID == 0 {
					t.Error("expected an id on the created bundle")
				}
				if got.Status != bundle.StatusNone {
					t.Errorf("unexpected status got=%s want=%s", got.Status, bundle.StatusNone)
				}
			}

			for f, c := range test.wantRepoCallCnt {
				mockRepo.VerifyCount(f, c, t)
			}
			for f, c := range test.wantTxCallCnt {
				mockTx.VerifyCount(f, c, t)
			}
		})
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		name string

		actor user.Actor
		id    uint64

		getBundleFunc func(ctx context.Context, id uint64, options ...core.QueryOptions) (bundle.Bundle, error)

		wantErr bool
	}{
		{
			name:  "admin reads any bundle",
			actor: admin,
			id:    3,

			getBundleFunc: func(ctx context.Context, id uint64, options ...core.QueryOptions) (bundle.Bundle, error) {
				return bundle.Bundle{ID: id, SchoolID: 9}, nil
			},
		},
		{
			name:  "school reads its own bundle",
			actor: stMarys,
			id:    3,

			getBundleFunc: func(ctx context.Context, id uint64, options ...core.QueryOptions) (bundle.Bundle, error) {
				return bundle.Bundle{ID: id, SchoolID: 7}, nil
			},
		},
		{
			name:  "school cannot read another school's bundle",
			actor: stMarys,
			id:    3,

			getBundleFunc: func(ctx context.Context, id uint64, options ...core.QueryOptions) (bundle.Bundle, error) {
				return bundle.Bundle{ID: id, SchoolID: 8}, nil
			},

			wantErr: true,
		},
		{
			name:  "unknown bundle",
			actor: admin,
			id:    3,

			getBundleFunc: func(ctx context.Context, id uint64, options ...core.QueryOptions) (bundle.Bundle, error) {
				return bundle.Bundle{}, core.ErrNotFound
			},

			wantErr: true,
		},
	}

	for _, test := range tests {
		mockRepo := bundlerepo.NewMockRepo()
		mockRepo.GetBundleFunc = test.getBundleFunc

		service := bundle.NewService(mockRepo, user.ScopePolicy{})

		t.Run(test.name, func(t *testing.T) {
			got, err := service.Get(context.Background(), test.actor, test.id)

			if test.wantErr && err == nil {
				t.Errorf("expected error, got none")
			}
			if !test.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if err == nil && got.ID != test.id {
				t.Errorf("unexpected bundle id got=%d want=%d", got.ID, test.id)
			}
		})
	}
}

func TestGetSchoolBundles(t *testing.T) {
	tests := []struct {
		name string

		actor    user.Actor
		schoolID uint64

		wantRepoCallCnt map[string]int
		wantErr         bool
	}{
		{
			name:     "school lists its own bundles",
			actor:    stMarys,
			schoolID: 7,

			wantRepoCallCnt: map[string]int{"GetSchoolBundles": 1},
		},
		{
			name:     "admin lists any school",
			actor:    admin,
			schoolID: 9,

			wantRepoCallCnt: map[string]int{"GetSchoolBundles": 1},
		},
		{
			name:     "school cannot list another school",
			actor:    stMarys,
			schoolID: 8,

			wantRepoCallCnt: map[string]int{"GetSchoolBundles": 0},
			wantErr:         true,
		},
		{
			name:  "school is required",
			actor: admin,

			wantRepoCallCnt: map[string]int{"GetSchoolBundles": 0},
			wantErr:         true,
		},
	}

	for _, test := range tests {
		mockRepo := bundlerepo.NewMockRepo()
		service := bundle.NewService(mockRepo, user.ScopePolicy{})

		t.Run(test.name, func(t *testing.T) {
			_, err := service.GetSchoolBundles(context.Background(), test.actor, test.schoolID, 50, 0)

			if test.wantErr && err == nil {
				t.Errorf("expected error, got none")
			}
			if !test.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			for f, c := range test.wantRepoCallCnt {
				mockRepo.VerifyCount(f, c, t)
			}
		})
	}
}

func TestSchoolFor(t *testing.T) {
	tests := []struct {
		name string

		consumer ledger.ConsumerRef

		getBundleFunc func(ctx context.Context, id uint64, options ...core.QueryOptions) (bundle.Bundle, error)

		want    uint64
		wantErr bool
	}{
		{
			name:     "school consumers are their own school",
			consumer: ledger.ConsumerRef{Kind: ledger.ConsumerSchool, ID: 7},

			want: 7,
		},
		{
			name:     "bundle consumers resolve through the bundle",
			consumer: ledger.ConsumerRef{Kind: ledger.ConsumerBundle, ID: 3},

			getBundleFunc: func(ctx context.Context, id uint64, options ...core.QueryOptions) (bundle.Bundle, error) {
				return bundle.Bundle{ID: id, SchoolID: 7}, nil
			},

			want: 7,
		},
		{
			name:     "unknown bundle",
			consumer: ledger.ConsumerRef{Kind: ledger.ConsumerBundle, ID: 3},

			getBundleFunc: func(ctx context.Context, id uint64, options ...core.QueryOptions) (bundle.Bundle, error) {
				return bundle.Bundle{}, core.ErrNotFound
			},

			wantErr: true,
		},
		{
			name:     "fulfillment consumers have no school",
			consumer: ledger.ConsumerRef{Kind: ledger.ConsumerFulfillment, ID: 4},

			wantErr: true,
		},
	}

	for _, test := range tests {
		mockRepo := bundlerepo.NewMockRepo()
		if test.getBundleFunc != nil {
			mockRepo.GetBundleFunc = test.getBundleFunc
		}

		service := bundle.NewService(mockRepo, user.ScopePolicy{})

		t.Run(test.name, func(t *testing.T) {
			got, err := service.SchoolFor(context.Background(), test.consumer)

			if test.wantErr && err == nil {
				t.Errorf("expected error, got none")
			}
			if !test.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if got != test.want {
				t.Errorf("unexpected school got=%d want=%d", got, test.want)
			}
		})
	}
}
