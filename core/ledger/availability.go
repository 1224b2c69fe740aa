package ledger

import (
	"context"

	"github.com/bookdepot/stock-service/core"
	"github.com/bookdepot/stock-service/core/user"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// GetAvailability projects the ledger onto the requested titles as seen by
// one consumer. Reads are lock-free; a projection taken while a fulfillment
// commits is a consistent snapshot of whichever state came first.
func (s *service) GetAvailability(ctx context.Context, actor user.Actor, consumer ConsumerRef, isbns []string) ([]TitleAvailability, error) {
	const funcName = "GetAvailability"

	log.Info().
		Str("func", funcName).
		Str("consumerKind", string(consumer.Kind)).
		Uint64("consumerId", consumer.ID).
		Int("titles", len(isbns)).
		Msg("projecting availability")

	if len(isbns) == 0 {
		return nil, core.Invalidf("isbns", "at least one title is required")
	}
	if err := s.authorizeConsumer(ctx, actor, consumer); err != nil {
		return nil, err
	}

	availability := make([]TitleAvailability, 0, len(isbns))
	for _, isbn := range isbns {
		ta, err := s.titleAvailability(ctx, consumer, isbn)
		if err != nil {
			return nil, err
		}
		availability = append(availability, ta)
	}

	return availability, nil
}

func (s *service) titleAvailability(ctx context.Context, consumer ConsumerRef, isbn string) (TitleAvailability, error) {
	if _, err := s.repo.GetBook(ctx, isbn); err != nil {
		return TitleAvailability{}, errors.WithMessage(err, "failed to get book for availability")
	}

	available, err := s.repo.SumBatchAvailable(ctx, isbn)
	if err != nil {
		return TitleAvailability{}, errors.WithMessage(err, "failed to sum batch availability")
	}

	reserved, err := s.repo.SumOutstandingReserve(ctx, isbn, &consumer)
	if err != nil {
		return TitleAvailability{}, errors.WithMessage(err, "failed to sum consumer reservation")
	}
	if reserved < 0 {
		reserved = 0
	}

	globalReserve, err := s.repo.SumOutstandingReserve(ctx, isbn, nil)
	if err != nil {
		return TitleAvailability{}, errors.WithMessage(err, "failed to sum global reservation")
	}
	if globalReserve < 0 {
		globalReserve = 0
	}

	withdrawn, err := s.repo.SumWithdrawn(ctx, isbn, consumer)
	if err != nil {
		return TitleAvailability{}, errors.WithMessage(err, "failed to sum withdrawals")
	}

	free := available - globalReserve
	if free < 0 {
		free = 0
	}

	return TitleAvailability{
		ISBN:      isbn,
		Required:  reserved + withdrawn,
		Available: available,
		Reserved:  reserved,
		Withdrawn: withdrawn,
		Free:      free,
	}, nil
}

// ReconcileBatches sweeps one page of batches comparing each running
// availability figure against the sum of its ledger entries and reports
// every mismatch. It never repairs anything on its own.
func (s *service) ReconcileBatches(ctx context.Context, limit, offset int) ([]BatchDrift, error) {
	totals, err := s.repo.GetBatchLedgerTotals(ctx, limit, offset)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to get batch ledger totals")
	}

	return driftIn(totals), nil
}

// ReconcileAll sweeps every batch, a page at a time. The periodic job runs
// this.
func (s *service) ReconcileAll(ctx context.Context, pageSize int) ([]BatchDrift, error) {
	var drifted []BatchDrift
	for offset := 0; ; offset += pageSize {
		totals, err := s.repo.GetBatchLedgerTotals(ctx, pageSize, offset)
		if err != nil {
			return drifted, errors.WithMessage(err, "failed to get batch ledger totals")
		}

		drifted = append(drifted, driftIn(totals)...)
		if len(totals) < pageSize {
			return drifted, nil
		}
	}
}

func driftIn(totals []BatchDrift) []BatchDrift {
	var drifted []BatchDrift
	for _, t := range totals {
		if t.Available == t.LedgerTotal {
			continue
		}

		log.Warn().
			Uint64("batchId", t.BatchID).
			Str("isbn", t.ISBN).
			Int64("available", t.Available).
			Int64("ledgerTotal", t.LedgerTotal).
			Msg("batch availability drifted from ledger")

		drifted = append(drifted, t)
	}
	return drifted
}
