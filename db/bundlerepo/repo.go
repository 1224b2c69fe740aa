package bundlerepo

import (
	"context"

	"github.com/bookdepot/stock-service/core"
	"github.com/bookdepot/stock-service/core/bundle"
	"github.com/bookdepot/stock-service/db"
	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
)

type dbRepo struct {
	conn core.Conn
}

func NewPostgresRepo(conn core.Conn) bundle.Repository {
	return &dbRepo{
		conn: conn,
	}
}

func (d *dbRepo) GetBundle(ctx context.Context, id uint64, options ...core.QueryOptions) (bundle.Bundle, error) {
	m := db.StartMetric("GetBundle")
	tx, forUpdate := db.GetQueryOptions(d.conn, options...)

	b := bundle.Bundle{}
	err := tx.QueryRow(ctx, `
		SELECT id, school_id, name, status, created
		  FROM bundles
		 WHERE id = $1 `+forUpdate, id).
		Scan(&b.ID, &b.SchoolID, &b.Name, &b.Status, &b.Created)

	if err != nil {
		m.Complete(err)
		if err == pgx.ErrNoRows {
			return b, errors.WithStack(core.ErrNotFound)
		}
		return b, errors.WithStack(err)
	}

	b.Lines, err = d.getLines(ctx, tx, b.ID)
	if err != nil {
		m.Complete(err)
		return b, errors.WithStack(err)
	}

	m.Complete(nil)
	return b, nil
}

func (d *dbRepo) GetSchoolBundles(ctx context.Context, schoolID uint64, limit, offset int, options ...core.QueryOptions) ([]bundle.Bundle, error) {
	m := db.StartMetric("GetSchoolBundles")
	tx, _ := db.GetQueryOptions(d.conn, options...)

	bundles := make([]bundle.Bundle, 0)
	rows, err := tx.Query(ctx, `
		SELECT id, school_id, name, status, created
		  FROM bundles
		 WHERE school_id = $1
		 ORDER BY id
		 LIMIT $2 OFFSET $3`,
		schoolID, limit, offset)
	if err != nil {
		m.Complete(err)
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	for rows.Next() {
		b := bundle.Bundle{}
		err = rows.Scan(&b.ID, &b.SchoolID, &b.Name, &b.Status, &b.Created)
		if err != nil {
			m.Complete(err)
			return nil, errors.WithStack(err)
		}
		bundles = append(bundles, b)
	}
	rows.Close()

	for i := range bundles {
		bundles[i].Lines, err = d.getLines(ctx, tx, bundles[i].ID)
		if err != nil {
			m.Complete(err)
			return nil, errors.WithStack(err)
		}
	}

	m.Complete(nil)
	return bundles, nil
}

func (d *dbRepo) getLines(ctx context.Context, tx core.Conn, bundleID uint64) ([]bundle.Line, error) {
	lines := make([]bundle.Line, 0)
	rows, err := tx.Query(ctx, `
		SELECT id, isbn, title, quantity, unit_price
		  FROM bundle_lines
		 WHERE bundle_id = $1
		 ORDER BY id`,
		bundleID)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	for rows.Next() {
		line := bundle.Line{}
		err = rows.Scan(&line.ID, &line.ISBN, &line.Title, &line.Quantity, &line.UnitPrice)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		lines = append(lines, line)
	}

	return lines, nil
}

func (d *dbRepo) SaveBundle(ctx context.Context, b *bundle.Bundle, options ...core.UpdateOptions) error {
	m := db.StartMetric("SaveBundle")
	tx := db.GetUpdateOptions(d.conn, options...)

	err := tx.QueryRow(ctx, `
		INSERT INTO bundles (school_id, name, status, created)
		       VALUES ($1, $2, $3, $4) RETURNING id;`,
		b.SchoolID, b.Name, b.Status, b.Created).
		Scan(&b.ID)
	if err != nil {
		m.Complete(err)
		return errors.WithStack(err)
	}

	for i := range b.Lines {
		line := &b.Lines[i]
		err = tx.QueryRow(ctx, `
			INSERT INTO bundle_lines (bundle_id, isbn, title, quantity, unit_price)
			       VALUES ($1, $2, $3, $4, $5) RETURNING id;`,
			b.ID, line.ISBN, line.Title, line.Quantity, line.UnitPrice).
			Scan(&line.ID)
		if err != nil {
			m.Complete(err)
			return errors.WithStack(err)
		}
	}

	m.Complete(nil)
	return nil
}

func (d *dbRepo) BeginTransaction(ctx context.Context) (core.Transaction, error) {
	return d.conn.Begin(ctx)
}
