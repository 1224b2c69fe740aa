package ledger_test

import (
	"context"
	"testing"

	"github.com/bookdepot/stock-service/core"
	"github.com/bookdepot/stock-service/core/bundle"
	"github.com/bookdepot/stock-service/core/ledger"
	"github.com/bookdepot/stock-service/core/user"
	"github.com/bookdepot/stock-service/db/ledgerrepo"
	"github.com/bookdepot/stock-service/queue"
	"github.com/pkg/errors"
)

func TestGetAvailability(t *testing.T) {
	tests := []struct {
		name string

		actor    user.Actor
		consumer ledger.ConsumerRef
		isbns    []string

		getBookFunc               func(ctx context.Context, isbn string, options ...core.QueryOptions) (ledger.Book, error)
		sumBatchAvailableFunc     func(ctx context.Context, isbn string, options ...core.QueryOptions) (int64, error)
		sumOutstandingReserveFunc func(ctx context.Context, isbn string, consumer *ledger.ConsumerRef, options ...core.QueryOptions) (int64, error)
		sumWithdrawnFunc          func(ctx context.Context, isbn string, consumer ledger.ConsumerRef, options ...core.QueryOptions) (int64, error)
		schoolForFunc             func(ctx context.Context, consumer ledger.ConsumerRef) (uint64, error)

		want    []ledger.TitleAvailability
		wantErr bool
	}{
		{
			name:     "projects one title for a school",
			actor:    stMarys,
			consumer: ledger.ConsumerRef{Kind: ledger.ConsumerSchool, ID: 7},
			isbns:    []string{"9780141182636"},

			sumBatchAvailableFunc: func(ctx context.Context, isbn string, options ...core.QueryOptions) (int64, error) {
				return 10, nil
			},
			sumOutstandingReserveFunc: func(ctx context.Context, isbn string, consumer *ledger.ConsumerRef, options ...core.QueryOptions) (int64, error) {
				if consumer == nil {
					return 7, nil
				}
				return 4, nil
			},
			sumWithdrawnFunc: func(ctx context.Context, isbn string, consumer ledger.ConsumerRef, options ...core.QueryOptions) (int64, error) {
				return 2, nil
			},

			want: []ledger.TitleAvailability{
				{ISBN: "9780141182636", Required: 6, Available: 10, Reserved: 4, Withdrawn: 2, Free: 3},
			},
		},
		{
			name:     "free never drops below zero",
			actor:    stMarys,
			consumer: ledger.ConsumerRef{Kind: ledger.ConsumerSchool, ID: 7},
			isbns:    []string{"9780141182636"},

			sumBatchAvailableFunc: func(ctx context.Context, isbn string, options ...core.QueryOptions) (int64, error) {
				return 3, nil
			},
			sumOutstandingReserveFunc: func(ctx context.Context, isbn string, consumer *ledger.ConsumerRef, options ...core.QueryOptions) (int64, error) {
				if consumer == nil {
					return 5, nil
				}
				return 1, nil
			},

			want: []ledger.TitleAvailability{
				{ISBN: "9780141182636", Required: 1, Available: 3, Reserved: 1, Withdrawn: 0, Free: 0},
			},
		},
		{
			name:     "negative reserve sums clamp to zero",
			actor:    stMarys,
			consumer: ledger.ConsumerRef{Kind: ledger.ConsumerSchool, ID: 7},
			isbns:    []string{"9780141182636"},

			sumBatchAvailableFunc: func(ctx context.Context, isbn string, options ...core.QueryOptions) (int64, error) {
				return 4, nil
			},
			sumOutstandingReserveFunc: func(ctx context.Context, isbn string, consumer *ledger.ConsumerRef, options ...core.QueryOptions) (int64, error) {
				return -2, nil
			},
			sumWithdrawnFunc: func(ctx context.Context, isbn string, consumer ledger.ConsumerRef, options ...core.QueryOptions) (int64, error) {
				return 2, nil
			},

			want: []ledger.TitleAvailability{
				{ISBN: "9780141182636", Required: 2, Available: 4, Reserved: 0, Withdrawn: 2, Free: 4},
			},
		},
		{
			name:     "projects every requested title",
			actor:    stMarys,
			consumer: ledger.ConsumerRef{Kind: ledger.ConsumerSchool, ID: 7},
			isbns:    []string{"9780141182636", "9780140449136"},

			want: []ledger.TitleAvailability{
				{ISBN: "9780141182636"},
				{ISBN: "9780140449136"},
			},
		},
		{
			name:     "bundle consumer projects through its school",
			actor:    stMarys,
			consumer: ledger.ConsumerRef{Kind: ledger.ConsumerBundle, ID: 3},
			isbns:    []string{"9780141182636"},

			schoolForFunc: func(ctx context.Context, consumer ledger.ConsumerRef) (uint64, error) {
				return 7, nil
			},

			want: []ledger.TitleAvailability{
				{ISBN: "9780141182636"},
			},
		},
		{
			name:     "at least one title is required",
			actor:    stMarys,
			consumer: ledger.ConsumerRef{Kind: ledger.ConsumerSchool, ID: 7},

			wantErr: true,
		},
		{
			name:     "school cannot project another school",
			actor:    stMarys,
			consumer: ledger.ConsumerRef{Kind: ledger.ConsumerSchool, ID: 8},
			isbns:    []string{"9780141182636"},

			wantErr: true,
		},
		{
			name:     "unknown title fails the projection",
			actor:    stMarys,
			consumer: ledger.ConsumerRef{Kind: ledger.ConsumerSchool, ID: 7},
			isbns:    []string{"9999999999999"},

			getBookFunc: func(ctx context.Context, isbn string, options ...core.QueryOptions) (ledger.Book, error) {
				return ledger.Book{}, core.ErrNotFound
			},

			wantErr: true,
		},
	}

	for _, test := range tests {
		mockRepo := ledgerrepo.NewMockRepo()
		if test.getBookFunc != nil {
			mockRepo.GetBookFunc = test.getBookFunc
		}
		if test.sumBatchAvailableFunc != nil {
			mockRepo.SumBatchAvailableFunc = test.sumBatchAvailableFunc
		}
		if test.sumOutstandingReserveFunc != nil {
			mockRepo.SumOutstandingReserveFunc = test.sumOutstandingReserveFunc
		}
		if test.sumWithdrawnFunc != nil {
			mockRepo.SumWithdrawnFunc = test.sumWithdrawnFunc
		}

		mockResolver := bundle.NewMockService()
		if test.schoolForFunc != nil {
			mockResolver.SchoolForFunc = test.schoolForFunc
		}

		service := ledger.NewService(mockRepo, queue.NewMockQueue(), &mockResolver, user.ScopePolicy{})

		t.Run(test.name, func(t *testing.T) {
			got, err := service.GetAvailability(context.Background(), test.actor, test.consumer, test.isbns)

			if test.wantErr && err == nil {
				t.Errorf("expected error, got none")
			}
			if !test.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if len(got) != len(test.want) {
				t.Fatalf("unexpected title count got=%d want=%d", len(got), len(test.want))
			}
			for i, want := range test.want {
				if got[i] != want {
					t.Errorf("unexpected availability at %d got=%+v want=%+v", i, got[i], want)
				}
			}
		})
	}
}

func TestReconcileBatches(t *testing.T) {
	tests := []struct {
		name string

		getBatchLedgerTotalsFunc func(ctx context.Context, limit int, offset int, options ...core.QueryOptions) ([]ledger.BatchDrift, error)

		want    []ledger.BatchDrift
		wantErr bool
	}{
		{
			name: "reports only drifted batches",

			getBatchLedgerTotalsFunc: func(ctx context.Context, limit int, offset int, options ...core.QueryOptions) ([]ledger.BatchDrift, error) {
				return []ledger.BatchDrift{
					{BatchID: 1, ISBN: "9780141182636", Available: 5, LedgerTotal: 5},
					{BatchID: 2, ISBN: "9780141182636", Available: 4, LedgerTotal: 6},
				}, nil
			},

			want: []ledger.BatchDrift{
				{BatchID: 2, ISBN: "9780141182636", Available: 4, LedgerTotal: 6},
			},
		},
		{
			name: "clean page reports nothing",

			getBatchLedgerTotalsFunc: func(ctx context.Context, limit int, offset int, options ...core.QueryOptions) ([]ledger.BatchDrift, error) {
				return []ledger.BatchDrift{
					{BatchID: 1, ISBN: "9780141182636", Available: 5, LedgerTotal: 5},
				}, nil
			},
		},
		{
			name: "unexpected error getting totals",

			getBatchLedgerTotalsFunc: func(ctx context.Context, limit int, offset int, options ...core.QueryOptions) ([]ledger.BatchDrift, error) {
				return nil, errors.New("some unexpected error")
			},

			wantErr: true,
		},
	}

	for _, test := range tests {
		mockRepo := ledgerrepo.NewMockRepo()
		mockRepo.GetBatchLedgerTotalsFunc = test.getBatchLedgerTotalsFunc

		mockResolver := bundle.NewMockService()
		service := ledger.NewService(mockRepo, queue.NewMockQueue(), &mockResolver, user.ScopePolicy{})

		t.Run(test.name, func(t *testing.T) {
			got, err := service.ReconcileBatches(context.Background(), 50, 0)

			if test.wantErr && err == nil {
				t.Errorf("expected error, got none")
			}
			if !test.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if len(got) != len(test.want) {
				t.Fatalf("unexpected drift count got=%d want=%d", len(got), len(test.want))
			}
			for i, want := range test.want {
				if got[i] != want {
					t.Errorf("unexpected drift at %d got=%+v want=%+v", i, got[i], want)
				}
			}
		})
	}
}

func TestReconcileAll(t *testing.T) {
	all := []ledger.BatchDrift{
		{BatchID: 1, ISBN: "9780141182636", Available: 5, LedgerTotal: 5},
		{BatchID: 2, ISBN: "9780141182636", Available: 4, LedgerTotal: 6},
		{BatchID: 3, ISBN: "9780140449136", Available: 8, LedgerTotal: 8},
		{BatchID: 4, ISBN: "9780140449136", Available: 0, LedgerTotal: 1},
		{BatchID: 5, ISBN: "9780140449136", Available: 2, LedgerTotal: 2},
	}

	mockRepo := ledgerrepo.NewMockRepo()
	mockRepo.GetBatchLedgerTotalsFunc = func(ctx context.Context, limit int, offset int, options ...core.QueryOptions) ([]ledger.BatchDrift, error) {
		if offset >= len(all) {
			return nil, nil
		}
		end := offset + limit
		if end > len(all) {
			end = len(all)
		}
		return all[offset:end], nil
	}

	mockResolver := bundle.NewMockService()
	service := ledger.NewService(mockRepo, queue.NewMockQueue(), &mockResolver, user.ScopePolicy{})

	got, err := service.ReconcileAll(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}

	want := []ledger.BatchDrift{all[1], all[3]}
	if len(got) != len(want) {
		t.Fatalf("unexpected drift count got=%d want=%d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("unexpected drift at %d got=%+v want=%+v", i, got[i], want[i])
		}
	}

	// Pages of 2, 2 and the final short page of 1.
	mockRepo.VerifyCount("GetBatchLedgerTotals", 3, t)
}

func TestReconcileAllStopsOnError(t *testing.T) {
	mockRepo := ledgerrepo.NewMockRepo()
	mockRepo.GetBatchLedgerTotalsFunc = func(ctx context.Context, limit int, offset int, options ...core.QueryOptions) ([]ledger.BatchDrift, error) {
		if offset > 0 {
			return nil, errors.New("some unexpected error")
		}
		return []ledger.BatchDrift{
			{BatchID: 1, ISBN: "9780141182636", Available: 4, LedgerTotal: 6},
			{BatchID: 2, ISBN: "9780141182636", Available: 5, LedgerTotal: 5},
		}, nil
	}

	mockResolver := bundle.NewMockService()
	service := ledger.NewService(mockRepo, queue.NewMockQueue(), &mockResolver, user.ScopePolicy{})

	got, err := service.ReconcileAll(context.Background(), 2)
	if err == nil {
		t.Error("expected error, got none")
	}
	if len(got) != 1 {
		t.Errorf("unexpected drift count got=%d want=%d", len(got), 1)
	}
}
