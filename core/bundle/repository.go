package bundle

import (
	"context"

	"github.com/bookdepot/stock-service/core"
	"github.com/rs/zerolog/log"
)

func rollback(ctx context.Context, tx core.Transaction, err error) {
	if tx == nil {
		return
	}
	e := tx.Rollback(ctx)
	if e != nil {
		log.Warn().Err(err).Msg("failed to rollback")
	}
}

type Transactional interface {
	BeginTransaction(ctx context.Context) (core.Transaction, error)
}

type Repository interface {
	Transactional
	GetBundle(ctx context.Context, id uint64, options ...core.QueryOptions) (Bundle, error)
	GetSchoolBundles(ctx context.Context, schoolID uint64, limit, offset int, options ...core.QueryOptions) ([]Bundle, error)

	SaveBundle(ctx context.Context, bundle *Bundle, options ...core.UpdateOptions) error
}
