package fulfillrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/bookdepot/stock-service/core"
	"github.com/bookdepot/stock-service/core/bundle"
	"github.com/bookdepot/stock-service/core/fulfillment"
	"github.com/bookdepot/stock-service/core/ledger"
	"github.com/bookdepot/stock-service/db"
	"github.com/bookdepot/stock-service/db/bundlerepo"
	"github.com/bookdepot/stock-service/db/ledgerrepo"
	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
)

type dbRepo struct {
	conn    core.Conn
	stock   ledger.Repository
	bundles bundle.Repository
}

func NewPostgresRepo(conn core.Conn) fulfillment.Repository {
	return &dbRepo{
		conn:    conn,
		stock:   ledgerrepo.NewPostgresRepo(conn),
		bundles: bundlerepo.NewPostgresRepo(conn),
	}
}

func (d *dbRepo) GetRecord(ctx context.Context, id uint64, options ...core.QueryOptions) (fulfillment.Record, error) {
	m := db.StartMetric("GetRecord")
	tx, forUpdate := db.GetQueryOptions(d.conn, options...)

	r := fulfillment.Record{}
	err := tx.QueryRow(ctx, `
		SELECT id, request_id, consumer_kind, consumer_id, school_id, multiplier, status, note, created, created_by
		  FROM fulfillments
		 WHERE id = $1 `+forUpdate, id).
		Scan(&r.ID, &r.RequestID, &r.Consumer.Kind, &r.Consumer.ID, &r.SchoolID,
			&r.Multiplier, &r.Status, &r.Note, &r.Created, &r.CreatedBy)

	if err != nil {
		m.Complete(err)
		if err == pgx.ErrNoRows {
			return r, errors.WithStack(core.ErrNotFound)
		}
		return r, errors.WithStack(err)
	}

	if err = d.attachDetails(ctx, tx, &r); err != nil {
		m.Complete(err)
		return r, errors.WithStack(err)
	}

	m.Complete(nil)
	return r, nil
}

func (d *dbRepo) GetRecordByRequestID(ctx context.Context, requestID string, options ...core.QueryOptions) (fulfillment.Record, error) {
	m := db.StartMetric("GetRecordByRequestID")
	tx, forUpdate := db.GetQueryOptions(d.conn, options...)

	r := fulfillment.Record{}
	err := tx.QueryRow(ctx, `
		SELECT id, request_id, consumer_kind, consumer_id, school_id, multiplier, status, note, created, created_by
		  FROM fulfillments
		 WHERE request_id = $1 `+forUpdate, requestID).
		Scan(&r.ID, &r.RequestID, &r.Consumer.Kind, &r.Consumer.ID, &r.SchoolID,
			&r.Multiplier, &r.Status, &r.Note, &r.Created, &r.CreatedBy)

	if err != nil {
		m.Complete(err)
		if err == pgx.ErrNoRows {
			return r, errors.WithStack(core.ErrNotFound)
		}
		return r, errors.WithStack(err)
	}

	if err = d.attachDetails(ctx, tx, &r); err != nil {
		m.Complete(err)
		return r, errors.WithStack(err)
	}

	m.Complete(nil)
	return r, nil
}

func (d *dbRepo) GetRecords(ctx context.Context, query fulfillment.RecordQuery, limit, offset int, options ...core.QueryOptions) ([]fulfillment.Record, error) {
	m := db.StartMetric("GetRecords")
	tx, _ := db.GetQueryOptions(d.conn, options...)

	params := []interface{}{limit, offset}
	conditions := make([]string, 0)

	if query.SchoolID != 0 {
		params = append(params, query.SchoolID)
		conditions = append(conditions, fmt.Sprintf("school_id = $%d", len(params)))
	}
	if query.Consumer != nil {
		params = append(params, query.Consumer.Kind, query.Consumer.ID)
		conditions = append(conditions, fmt.Sprintf("consumer_kind = $%d AND consumer_id = $%d", len(params)-1, len(params)))
	}
	if query.Status != "" {
		params = append(params, query.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(params)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	records := make([]fulfillment.Record, 0)
	rows, err := tx.Query(ctx,
		`SELECT id, request_id, consumer_kind, consumer_id, school_id, multiplier, status, note, created, created_by FROM fulfillments`+
			whereClause+` ORDER BY id LIMIT $1 OFFSET $2`,
		params...)
	if err != nil {
		m.Complete(err)
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	for rows.Next() {
		r := fulfillment.Record{}
		err = rows.Scan(&r.ID, &r.RequestID, &r.Consumer.Kind, &r.Consumer.ID, &r.SchoolID,
			&r.Multiplier, &r.Status, &r.Note, &r.Created, &r.CreatedBy)
		if err != nil {
			m.Complete(err)
			return nil, errors.WithStack(err)
		}
		records = append(records, r)
	}
	rows.Close()

	for i := range records {
		if err = d.attachDetails(ctx, tx, &records[i]); err != nil {
			m.Complete(err)
			return nil, errors.WithStack(err)
		}
	}

	m.Complete(nil)
	return records, nil
}

func (d *dbRepo) attachDetails(ctx context.Context, tx core.Conn, r *fulfillment.Record) error {
	lines, err := d.getLines(ctx, tx, r.ID)
	if err != nil {
		return err
	}
	r.Lines = lines

	returns, err := d.getReturns(ctx, tx, r.ID)
	if err != nil {
		return err
	}
	r.Returns = returns

	return nil
}

func (d *dbRepo) getLines(ctx context.Context, tx core.Conn, recordID uint64) ([]fulfillment.Line, error) {
	lines := make([]fulfillment.Line, 0)
	rows, err := tx.Query(ctx, `
		SELECT id, isbn, title, requested, achieved, returned, unit_price
		  FROM fulfillment_lines
		 WHERE fulfillment_id = $1
		 ORDER BY id`,
		recordID)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	for rows.Next() {
		line := fulfillment.Line{}
		err = rows.Scan(&line.ID, &line.ISBN, &line.Title, &line.Requested, &line.Achieved, &line.Returned, &line.UnitPrice)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		lines = append(lines, line)
	}

	return lines, nil
}

func (d *dbRepo) getReturns(ctx context.Context, tx core.Conn, recordID uint64) ([]fulfillment.Return, error) {
	returns := make([]fulfillment.Return, 0)
	rows, err := tx.Query(ctx, `
		SELECT id, isbn, quantity, amount, actor, created
		  FROM fulfillment_returns
		 WHERE fulfillment_id = $1
		 ORDER BY id`,
		recordID)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	for rows.Next() {
		ret := fulfillment.Return{}
		err = rows.Scan(&ret.ID, &ret.ISBN, &ret.Quantity, &ret.Amount, &ret.Actor, &ret.Created)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		returns = append(returns, ret)
	}

	return returns, nil
}

func (d *dbRepo) SaveRecord(ctx context.Context, record *fulfillment.Record, options ...core.UpdateOptions) error {
	m := db.StartMetric("SaveRecord")
	tx := db.GetUpdateOptions(d.conn, options...)

	err := tx.QueryRow(ctx, `
		INSERT INTO fulfillments (request_id, consumer_kind, consumer_id, school_id, multiplier, status, note, created, created_by)
		       VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id;`,
		record.RequestID, record.Consumer.Kind, record.Consumer.ID, record.SchoolID,
		record.Multiplier, record.Status, record.Note, record.Created, record.CreatedBy).
		Scan(&record.ID)
	if err != nil {
		m.Complete(err)
		return errors.WithStack(err)
	}

	for i := range record.Lines {
		line := &record.Lines[i]
		err = tx.QueryRow(ctx, `
			INSERT INTO fulfillment_lines (fulfillment_id, isbn, title, requested, achieved, returned, unit_price)
			       VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id;`,
			record.ID, line.ISBN, line.Title, line.Requested, line.Achieved, line.Returned, line.UnitPrice).
			Scan(&line.ID)
		if err != nil {
			m.Complete(err)
			return errors.WithStack(err)
		}
	}

	m.Complete(nil)
	return nil
}

func (d *dbRepo) UpdateRecordStatus(ctx context.Context, id uint64, status fulfillment.Status, options ...core.UpdateOptions) error {
	m := db.StartMetric("UpdateRecordStatus")
	tx := db.GetUpdateOptions(d.conn, options...)

	update := `UPDATE fulfillments SET status = $2 WHERE id = $1;`
	_, err := tx.Exec(ctx, update, id, status)
	m.Complete(err)
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func (d *dbRepo) UpdateLineReturned(ctx context.Context, lineID uint64, returned int64, options ...core.UpdateOptions) error {
	m := db.StartMetric("UpdateLineReturned")
	tx := db.GetUpdateOptions(d.conn, options...)

	update := `UPDATE fulfillment_lines SET returned = $2 WHERE id = $1;`
	_, err := tx.Exec(ctx, update, lineID, returned)
	m.Complete(err)
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func (d *dbRepo) SaveReturn(ctx context.Context, recordID uint64, ret *fulfillment.Return, options ...core.UpdateOptions) error {
	m := db.StartMetric("SaveReturn")
	tx := db.GetUpdateOptions(d.conn, options...)

	insert := `INSERT INTO fulfillment_returns (fulfillment_id, isbn, quantity, amount, actor, created)
                    VALUES ($1, $2, $3, $4, $5, $6) RETURNING id;`

	err := tx.QueryRow(ctx, insert, recordID, ret.ISBN, ret.Quantity, ret.Amount, ret.Actor, ret.Created).Scan(&ret.ID)
	if err != nil {
		m.Complete(err)
		return errors.WithStack(err)
	}
	m.Complete(nil)
	return nil
}

func (d *dbRepo) GetFulfillmentEntries(ctx context.Context, fulfillmentID uint64, options ...core.QueryOptions) ([]ledger.Entry, error) {
	m := db.StartMetric("GetFulfillmentEntries")
	tx, _ := db.GetQueryOptions(d.conn, options...)

	entries := make([]ledger.Entry, 0)
	rows, err := tx.Query(ctx, `
		SELECT id, kind, isbn, batch_id, quantity, consumer_kind, consumer_id, note, created
		  FROM ledger_entries
		 WHERE consumer_id = $1
		   AND consumer_kind IN ('FULFILLMENT', 'FULFILLMENT_RETURN', 'FULFILLMENT_CANCEL')
		 ORDER BY id`,
		fulfillmentID)
	if err != nil {
		m.Complete(err)
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	for rows.Next() {
		e := ledger.Entry{}
		err = rows.Scan(&e.ID, &e.Kind, &e.ISBN, &e.BatchID, &e.Quantity, &e.Consumer.Kind, &e.Consumer.ID, &e.Note, &e.Created)
		if err != nil {
			m.Complete(err)
			return nil, errors.WithStack(err)
		}
		entries = append(entries, e)
	}

	m.Complete(nil)
	return entries, nil
}

func (d *dbRepo) GetBook(ctx context.Context, isbn string, options ...core.QueryOptions) (ledger.Book, error) {
	return d.stock.GetBook(ctx, isbn, options...)
}

func (d *dbRepo) GetBookStock(ctx context.Context, isbn string, options ...core.QueryOptions) (ledger.BookStock, error) {
	return d.stock.GetBookStock(ctx, isbn, options...)
}

func (d *dbRepo) GetBatch(ctx context.Context, id uint64, options ...core.QueryOptions) (ledger.Batch, error) {
	return d.stock.GetBatch(ctx, id, options...)
}

func (d *dbRepo) GetOpenBatches(ctx context.Context, isbn string, options ...core.QueryOptions) ([]ledger.Batch, error) {
	return d.stock.GetOpenBatches(ctx, isbn, options...)
}

func (d *dbRepo) UpdateBatchAvailable(ctx context.Context, id uint64, available int64, options ...core.UpdateOptions) error {
	return d.stock.UpdateBatchAvailable(ctx, id, available, options...)
}

func (d *dbRepo) SaveEntry(ctx context.Context, entry *ledger.Entry, options ...core.UpdateOptions) error {
	return d.stock.SaveEntry(ctx, entry, options...)
}

func (d *dbRepo) GetBundle(ctx context.Context, id uint64, options ...core.QueryOptions) (bundle.Bundle, error) {
	return d.bundles.GetBundle(ctx, id, options...)
}

func (d *dbRepo) GetBundleRecords(ctx context.Context, bundleID uint64, options ...core.QueryOptions) ([]fulfillment.Record, error) {
	m := db.StartMetric("GetBundleRecords")
	tx, _ := db.GetQueryOptions(d.conn, options...)

	records := make([]fulfillment.Record, 0)
	rows, err := tx.Query(ctx, `
		SELECT id, request_id, consumer_kind, consumer_id, school_id, multiplier, status, note, created, created_by
		  FROM fulfillments
		 WHERE consumer_kind = 'BUNDLE'
		   AND consumer_id = $1
		 ORDER BY id`,
		bundleID)
	if err != nil {
		m.Complete(err)
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	for rows.Next() {
		r := fulfillment.Record{}
		err = rows.Scan(&r.ID, &r.RequestID, &r.Consumer.Kind, &r.Consumer.ID, &r.SchoolID,
			&r.Multiplier, &r.Status, &r.Note, &r.Created, &r.CreatedBy)
		if err != nil {
			m.Complete(err)
			return nil, errors.WithStack(err)
		}
		records = append(records, r)
	}

	m.Complete(nil)
	return records, nil
}

func (d *dbRepo) UpdateBundleStatus(ctx context.Context, id uint64, status bundle.Status, options ...core.UpdateOptions) error {
	m := db.StartMetric("UpdateBundleStatus")
	tx := db.GetUpdateOptions(d.conn, options...)

	update := `UPDATE bundles SET status = $2 WHERE id = $1;`
	_, err := tx.Exec(ctx, update, id, status)
	m.Complete(err)
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func (d *dbRepo) BeginTransaction(ctx context.Context) (core.Transaction, error) {
	return d.conn.Begin(ctx)
}
