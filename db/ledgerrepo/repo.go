package ledgerrepo

import (
	"context"
	"fmt"

	"github.com/bookdepot/stock-service/core"
	"github.com/bookdepot/stock-service/core/ledger"
	"github.com/bookdepot/stock-service/db"
	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	lru "github.com/hashicorp/golang-lru"
)

type dbRepo struct {
	conn core.Conn
	c    *lru.Cache
}

func NewPostgresRepo(conn core.Conn) ledger.Repository {
	l, err := lru.New(256)
	if err != nil {
		log.Warn().Err(err).Msg("unable to configure book cache")
	}
	return &dbRepo{
		conn: conn,
		c:    l,
	}
}

func (d *dbRepo) SaveBook(ctx context.Context, book ledger.Book, options ...core.UpdateOptions) error {
	m := db.StartMetric("SaveBook")
	tx := db.GetUpdateOptions(d.conn, options...)

	ct, err := tx.Exec(ctx, `
		UPDATE books
           SET title = $2, subject = $3
         WHERE isbn = $1;`,
		book.ISBN, book.Title, book.Subject)
	if err != nil {
		m.Complete(err)
		return errors.WithStack(err)
	}
	if ct.RowsAffected() == 0 {
		_, err := tx.Exec(ctx, `
		INSERT INTO books (isbn, title, subject)
                  VALUES ($1, $2, $3);`,
			book.ISBN, book.Title, book.Subject)
		if err != nil {
			m.Complete(err)
			return errors.WithStack(err)
		}
	}
	d.cache(book)
	m.Complete(nil)
	return nil
}

func (d *dbRepo) GetBook(ctx context.Context, isbn string, options ...core.QueryOptions) (ledger.Book, error) {
	m := db.StartMetric("GetBook")
	tx, forUpdate := db.GetQueryOptions(d.conn, options...)

	// Transactional and locking reads bypass the cache.
	if len(options) == 0 {
		if book, ok := d.getcache(isbn); ok {
			m.Complete(nil)
			return book, nil
		}
	}

	book := ledger.Book{}
	err := tx.QueryRow(ctx, `SELECT isbn, title, subject FROM books WHERE isbn = $1 `+forUpdate, isbn).
		Scan(&book.ISBN, &book.Title, &book.Subject)

	if err != nil {
		m.Complete(err)
		if err == pgx.ErrNoRows {
			return book, errors.WithStack(core.ErrNotFound)
		}
		return book, errors.WithStack(err)
	}

	d.cache(book)
	m.Complete(nil)
	return book, nil
}

func (d *dbRepo) cache(book ledger.Book) {
	if d.c == nil {
		return
	}
	d.c.Add(book.ISBN, book)
}

func (d *dbRepo) getcache(isbn string) (ledger.Book, bool) {
	if d.c == nil {
		return ledger.Book{}, false
	}

	v, ok := d.c.Get(isbn)
	if !ok {
		return ledger.Book{}, false
	}
	book, ok := v.(ledger.Book)
	return book, ok
}

func (d *dbRepo) GetBookStock(ctx context.Context, isbn string, options ...core.QueryOptions) (ledger.BookStock, error) {
	m := db.StartMetric("GetBookStock")
	tx, _ := db.GetQueryOptions(d.conn, options...)

	stock := ledger.BookStock{}
	err := tx.QueryRow(ctx, `
		SELECT b.isbn, b.title, b.subject, COALESCE(SUM(bt.available), 0)
		  FROM books b
		  LEFT JOIN batches bt ON bt.isbn = b.isbn
		 WHERE b.isbn = $1
		 GROUP BY b.isbn, b.title, b.subject`, isbn).
		Scan(&stock.ISBN, &stock.Title, &stock.Subject, &stock.Available)

	if err != nil {
		m.Complete(err)
		if err == pgx.ErrNoRows {
			return stock, errors.WithStack(core.ErrNotFound)
		}
		return stock, errors.WithStack(err)
	}

	m.Complete(nil)
	return stock, nil
}

func (d *dbRepo) GetAllBookStock(ctx context.Context, limit int, offset int, options ...core.QueryOptions) ([]ledger.BookStock, error) {
	m := db.StartMetric("GetAllBookStock")
	tx, _ := db.GetQueryOptions(d.conn, options...)

	stocks := make([]ledger.BookStock, 0)
	rows, err := tx.Query(ctx, `
		SELECT b.isbn, b.title, b.subject, COALESCE(SUM(bt.available), 0)
		  FROM books b
		  LEFT JOIN batches bt ON bt.isbn = b.isbn
		 GROUP BY b.isbn, b.title, b.subject
		 ORDER BY b.isbn
		 LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		m.Complete(err)
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	for rows.Next() {
		stock := ledger.BookStock{}
		err = rows.Scan(&stock.ISBN, &stock.Title, &stock.Subject, &stock.Available)
		if err != nil {
			m.Complete(err)
			return nil, errors.WithStack(err)
		}
		stocks = append(stocks, stock)
	}

	m.Complete(nil)
	return stocks, nil
}

func (d *dbRepo) GetBatch(ctx context.Context, id uint64, options ...core.QueryOptions) (ledger.Batch, error) {
	m := db.StartMetric("GetBatch")
	tx, forUpdate := db.GetQueryOptions(d.conn, options...)

	batch := ledger.Batch{}
	err := tx.QueryRow(ctx, `SELECT id, isbn, available, request_id, note, received_at FROM batches WHERE id = $1 `+forUpdate, id).
		Scan(&batch.ID, &batch.ISBN, &batch.Available, &batch.RequestID, &batch.Note, &batch.ReceivedAt)

	if err != nil {
		m.Complete(err)
		if err == pgx.ErrNoRows {
			return batch, errors.WithStack(core.ErrNotFound)
		}
		return batch, errors.WithStack(err)
	}

	m.Complete(nil)
	return batch, nil
}

func (d *dbRepo) GetBatchByRequestID(ctx context.Context, requestID string, options ...core.QueryOptions) (ledger.Batch, error) {
	m := db.StartMetric("GetBatchByRequestID")
	tx, forUpdate := db.GetQueryOptions(d.conn, options...)

	batch := ledger.Batch{}
	err := tx.QueryRow(ctx, `SELECT id, isbn, available, request_id, note, received_at FROM batches WHERE request_id = $1 `+forUpdate, requestID).
		Scan(&batch.ID, &batch.ISBN, &batch.Available, &batch.RequestID, &batch.Note, &batch.ReceivedAt)

	if err != nil {
		m.Complete(err)
		if err == pgx.ErrNoRows {
			return batch, errors.WithStack(core.ErrNotFound)
		}
		return batch, errors.WithStack(err)
	}

	m.Complete(nil)
	return batch, nil
}

func (d *dbRepo) GetBatches(ctx context.Context, isbn string, options ...core.QueryOptions) ([]ledger.Batch, error) {
	m := db.StartMetric("GetBatches")
	tx, forUpdate := db.GetQueryOptions(d.conn, options...)

	return d.queryBatches(ctx, m, tx,
		`SELECT id, isbn, available, request_id, note, received_at FROM batches WHERE isbn = $1 ORDER BY id `+forUpdate, isbn)
}

func (d *dbRepo) GetOpenBatches(ctx context.Context, isbn string, options ...core.QueryOptions) ([]ledger.Batch, error) {
	m := db.StartMetric("GetOpenBatches")
	tx, forUpdate := db.GetQueryOptions(d.conn, options...)

	return d.queryBatches(ctx, m, tx,
		`SELECT id, isbn, available, request_id, note, received_at FROM batches WHERE isbn = $1 AND available > 0 ORDER BY id `+forUpdate, isbn)
}

func (d *dbRepo) queryBatches(ctx context.Context, m *db.Metric, tx core.Conn, query string, args ...interface{}) ([]ledger.Batch, error) {
	batches := make([]ledger.Batch, 0)
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		m.Complete(err)
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	for rows.Next() {
		batch := ledger.Batch{}
		err = rows.Scan(&batch.ID, &batch.ISBN, &batch.Available, &batch.RequestID, &batch.Note, &batch.ReceivedAt)
		if err != nil {
			m.Complete(err)
			return nil, errors.WithStack(err)
		}
		batches = append(batches, batch)
	}

	m.Complete(nil)
	return batches, nil
}

func (d *dbRepo) SaveBatch(ctx context.Context, batch *ledger.Batch, options ...core.UpdateOptions) error {
	m := db.StartMetric("SaveBatch")
	tx := db.GetUpdateOptions(d.conn, options...)

	insert := `INSERT INTO batches (isbn, available, request_id, note, received_at)
                    VALUES ($1, $2, $3, $4, $5) RETURNING id;`

	err := tx.QueryRow(ctx, insert, batch.ISBN, batch.Available, batch.RequestID, batch.Note, batch.ReceivedAt).Scan(&batch.ID)
	if err != nil {
		m.Complete(err)
		return errors.WithStack(err)
	}
	m.Complete(nil)
	return nil
}

func (d *dbRepo) UpdateBatchAvailable(ctx context.Context, id uint64, available int64, options ...core.UpdateOptions) error {
	m := db.StartMetric("UpdateBatchAvailable")
	tx := db.GetUpdateOptions(d.conn, options...)

	update := `UPDATE batches SET available = $2 WHERE id = $1;`
	_, err := tx.Exec(ctx, update, id, available)
	m.Complete(err)
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func (d *dbRepo) GetBatchLedgerTotals(ctx context.Context, limit int, offset int, options ...core.QueryOptions) ([]ledger.BatchDrift, error) {
	m := db.StartMetric("GetBatchLedgerTotals")
	tx, _ := db.GetQueryOptions(d.conn, options...)

	totals := make([]ledger.BatchDrift, 0)
	rows, err := tx.Query(ctx, `
		SELECT b.id, b.isbn, b.available,
		       COALESCE(SUM(CASE e.kind
		                        WHEN 'RECEIPT' THEN e.quantity
		                        WHEN 'RETURN' THEN e.quantity
		                        WHEN 'WITHDRAW' THEN -e.quantity
		                        ELSE 0
		                    END), 0)
		  FROM batches b
		  LEFT JOIN ledger_entries e ON e.batch_id = b.id
		 GROUP BY b.id, b.isbn, b.available
		 ORDER BY b.id
		 LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		m.Complete(err)
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	for rows.Next() {
		t := ledger.BatchDrift{}
		err = rows.Scan(&t.BatchID, &t.ISBN, &t.Available, &t.LedgerTotal)
		if err != nil {
			m.Complete(err)
			return nil, errors.WithStack(err)
		}
		totals = append(totals, t)
	}

	m.Complete(nil)
	return totals, nil
}

func (d *dbRepo) SaveEntry(ctx context.Context, entry *ledger.Entry, options ...core.UpdateOptions) error {
	m := db.StartMetric("SaveEntry")
	tx := db.GetUpdateOptions(d.conn, options...)

	insert := `INSERT INTO ledger_entries (kind, isbn, batch_id, quantity, consumer_kind, consumer_id, note, created)
                    VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id;`

	err := tx.QueryRow(ctx, insert,
		entry.Kind, entry.ISBN, entry.BatchID, entry.Quantity,
		entry.Consumer.Kind, entry.Consumer.ID, entry.Note, entry.Created).Scan(&entry.ID)
	if err != nil {
		m.Complete(err)
		return errors.WithStack(err)
	}
	m.Complete(nil)
	return nil
}

func (d *dbRepo) GetEntries(ctx context.Context, query ledger.EntryQuery, limit, offset int, options ...core.QueryOptions) ([]ledger.Entry, error) {
	m := db.StartMetric("GetEntries")
	tx, forUpdate := db.GetQueryOptions(d.conn, options...)

	params := []interface{}{query.ISBN, limit, offset}
	whereClause := ` WHERE isbn = $1`

	if query.Kind != "" {
		params = append(params, query.Kind)
		whereClause += fmt.Sprintf(" AND kind = $%d", len(params))
	}
	if query.Consumer != nil {
		params = append(params, query.Consumer.Kind, query.Consumer.ID)
		whereClause += fmt.Sprintf(" AND consumer_kind = $%d AND consumer_id = $%d", len(params)-1, len(params))
	}

	entries := make([]ledger.Entry, 0)
	rows, err := tx.Query(ctx,
		`SELECT id, kind, isbn, batch_id, quantity, consumer_kind, consumer_id, note, created FROM ledger_entries`+
			whereClause+` ORDER BY id LIMIT $2 OFFSET $3 `+forUpdate,
		params...)
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

func (d *dbRepo) SumBatchAvailable(ctx context.Context, isbn string, options ...core.QueryOptions) (int64, error) {
	m := db.StartMetric("SumBatchAvailable")
	tx, _ := db.GetQueryOptions(d.conn, options...)

	var total int64
	err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(available), 0) FROM batches WHERE isbn = $1`, isbn).Scan(&total)
	if err != nil {
		m.Complete(err)
		return 0, errors.WithStack(err)
	}

	m.Complete(nil)
	return total, nil
}

func (d *dbRepo) SumOutstandingReserve(ctx context.Context, isbn string, consumer *ledger.ConsumerRef, options ...core.QueryOptions) (int64, error) {
	m := db.StartMetric("SumOutstandingReserve")
	tx, _ := db.GetQueryOptions(d.conn, options...)

	query := `SELECT COALESCE(SUM(CASE WHEN kind = 'RESERVE' THEN quantity ELSE -quantity END), 0)
                FROM ledger_entries
               WHERE isbn = $1 AND kind IN ('RESERVE', 'RELEASE_RESERVE')`
	params := []interface{}{isbn}

	if consumer != nil {
		if consumer.Kind == ledger.ConsumerSchool {
			// A school's holdings include reservations made by its bundles.
			query += ` AND (consumer_kind = 'SCHOOL' AND consumer_id = $2
                        OR consumer_kind = 'BUNDLE' AND consumer_id IN (SELECT id FROM bundles WHERE school_id = $2))`
			params = append(params, consumer.ID)
		} else {
			query += ` AND consumer_kind = $2 AND consumer_id = $3`
			params = append(params, consumer.Kind, consumer.ID)
		}
	}

	var total int64
	err := tx.QueryRow(ctx, query, params...).Scan(&total)
	if err != nil {
		m.Complete(err)
		return 0, errors.WithStack(err)
	}

	m.Complete(nil)
	return total, nil
}

func (d *dbRepo) SumWithdrawn(ctx context.Context, isbn string, consumer ledger.ConsumerRef, options ...core.QueryOptions) (int64, error) {
	m := db.StartMetric("SumWithdrawn")
	tx, _ := db.GetQueryOptions(d.conn, options...)

	query := `SELECT COALESCE(SUM(e.quantity), 0)
                FROM ledger_entries e
                JOIN fulfillments f ON f.id = e.consumer_id
               WHERE e.kind = 'WITHDRAW' AND e.consumer_kind = 'FULFILLMENT' AND e.isbn = $1`

	switch consumer.Kind {
	case ledger.ConsumerSchool:
		query += ` AND f.school_id = $2`
	case ledger.ConsumerBundle:
		query += ` AND f.consumer_kind = 'BUNDLE' AND f.consumer_id = $2`
	case ledger.ConsumerFulfillment:
		query += ` AND f.id = $2`
	default:
		m.Complete(nil)
		return 0, errors.New("unsupported consumer kind")
	}

	var total int64
	err := tx.QueryRow(ctx, query, consumer.ID).Scan(&total)
	if err != nil {
		m.Complete(err)
		return 0, errors.WithStack(err)
	}

	m.Complete(nil)
	return total, nil
}

func (d *dbRepo) BeginTransaction(ctx context.Context) (core.Transaction, error) {
	tx, err := d.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}
