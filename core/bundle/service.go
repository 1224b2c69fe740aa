package bundle

import (
	"context"
	"time"

	"github.com/bookdepot/stock-service/core"
	"github.com/bookdepot/stock-service/core/ledger"
	"github.com/bookdepot/stock-service/core/user"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

func NewService(repo Repository, policy user.AccessPolicy) *service {
	return &service{repo: repo, policy: policy}
}

type Service interface {
	Create(ctx context.Context, actor user.Actor, bundle Bundle) (Bundle, error)
	Get(ctx context.Context, actor user.Actor, id uint64) (Bundle, error)
	GetSchoolBundles(ctx context.Context, actor user.Actor, schoolID uint64, limit, offset int) ([]Bundle, error)

	SchoolFor(ctx context.Context, consumer ledger.ConsumerRef) (uint64, error)
}

type service struct {
	repo   Repository
	policy user.AccessPolicy
}

func (s *service) Create(ctx context.Context, actor user.Actor, b Bundle) (Bundle, error) {
	const funcName = "Create"

	log.Info().
		Str("func", funcName).
		Uint64("schoolId", b.SchoolID).
		Str("name", b.Name).
		Int("lines", len(b.Lines)).
		Msg("creating bundle")

	if err := validateBundle(b); err != nil {
		return Bundle{}, err
	}
	if !s.policy.CanActFor(actor, b.SchoolID) {
		return Bundle{}, core.ErrPermission
	}

	tx, err := s.repo.BeginTransaction(ctx)
	if err != nil {
		return Bundle{}, errors.WithMessage(err, "failed to start transaction")
	}
	defer func() {
		if err != nil {
			rollback(ctx, tx, err)
		}
	}()

	b.Status = StatusNone
	b.Created = time.Now()

	if err = s.repo.SaveBundle(ctx, &b, core.UpdateOptions{Tx: tx}); err != nil {
		return Bundle{}, errors.WithMessage(err, "failed to save bundle")
	}

	if err = tx.Commit(ctx); err != nil {
		return Bundle{}, errors.WithMessage(err, "failed to commit bundle")
	}

	return b, nil
}

func validateBundle(b Bundle) error {
	if b.SchoolID == 0 {
		return core.Invalidf("schoolId", "school is required")
	}
	if b.Name == "" {
		return core.Invalidf("name", "name is required")
	}
	if len(b.Lines) == 0 {
		return core.Invalidf("lines", "at least one line is required")
	}
	for i, line := range b.Lines {
		if line.Title == "" {
			return core.Invalidf("lines", "line %d requires a title", i)
		}
		if line.Quantity < 1 {
			return core.Invalidf("lines", "line %d quantity must be greater than zero", i)
		}
		if line.UnitPrice.IsNegative() {
			return core.Invalidf("lines", "line %d unit price may not be negative", i)
		}
	}
	return nil
}

func (s *service) Get(ctx context.Context, actor user.Actor, id uint64) (Bundle, error) {
	const funcName = "Get"

	log.Info().
		Str("func", funcName).
		Uint64("id", id).
		Msg("getting bundle")

	b, err := s.repo.GetBundle(ctx, id)
	if err != nil {
		return b, errors.WithStack(err)
	}
	if !s.policy.CanActFor(actor, b.SchoolID) {
		return Bundle{}, core.ErrPermission
	}
	return b, nil
}

func (s *service) GetSchoolBundles(ctx context.Context, actor user.Actor, schoolID uint64, limit, offset int) ([]Bundle, error) {
	const funcName = "GetSchoolBundles"

	log.Info().
		Str("func", funcName).
		Uint64("schoolId", schoolID).
		Msg("getting school bundles")

	if schoolID == 0 {
		return nil, core.Invalidf("schoolId", "school is required")
	}
	if !s.policy.CanActFor(actor, schoolID) {
		return nil, core.ErrPermission
	}

	bundles, err := s.repo.GetSchoolBundles(ctx, schoolID, limit, offset)
	if err != nil {
		return bundles, errors.WithStack(err)
	}
	return bundles, nil
}

// SchoolFor satisfies ledger.ConsumerResolver so reservations held by a
// bundle can be scope-checked against its school.
func (s *service) SchoolFor(ctx context.Context, consumer ledger.ConsumerRef) (uint64, error) {
	switch consumer.Kind {
	case ledger.ConsumerSchool:
		return consumer.ID, nil
	case ledger.ConsumerBundle:
		b, err := s.repo.GetBundle(ctx, consumer.ID)
		if err != nil {
			return 0, errors.WithStack(err)
		}
		return b.SchoolID, nil
	default:
		return 0, core.Invalidf("consumer", "unsupported consumer kind")
	}
}
