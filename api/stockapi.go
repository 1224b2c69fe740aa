package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/rs/zerolog/log"

	"github.com/bookdepot/stock-service/core/ledger"
	"github.com/bookdepot/stock-service/core/user"
)

type StockService interface {
	CreateBook(ctx context.Context, book ledger.Book) error
	GetBook(ctx context.Context, isbn string) (ledger.Book, error)
	GetStock(ctx context.Context, isbn string) (ledger.BookStock, error)
	GetAllStock(ctx context.Context, limit, offset int) ([]ledger.BookStock, error)
	GetBatches(ctx context.Context, isbn string) ([]ledger.Batch, error)
	GetEntries(ctx context.Context, query ledger.EntryQuery, limit, offset int) ([]ledger.Entry, error)

	ReceiveBatch(ctx context.Context, actor user.Actor, req ledger.ReceiptRequest) (ledger.Batch, error)
	Reserve(ctx context.Context, actor user.Actor, req ledger.ReserveRequest) (ledger.Entry, error)
	ReleaseReserve(ctx context.Context, actor user.Actor, req ledger.ReserveRequest) (ledger.Entry, error)
	ReconcileBatches(ctx context.Context, limit, offset int) ([]ledger.BatchDrift, error)

	SubscribeStock(ch chan<- ledger.BookStock) (id ledger.StockSubscriptionID)
	UnsubscribeStock(id ledger.StockSubscriptionID)
}

type StockApi struct {
	service StockService
}

func NewStockApi(service StockService) *StockApi {
	return &StockApi{service: service}
}

func (a *StockApi) ConfigureRouter(r chi.Router) {
	r.HandleFunc("/subscribe", a.Subscribe)

	r.Route("/", func(r chi.Router) {
		r.With(Paginate).Get("/", a.List)
		r.With(AdminOnly).Put("/", a.CreateBook)
		r.With(AdminOnly, Paginate).Get("/reconcile", a.Reconcile)

		r.Route("/{isbn}", func(r chi.Router) {
			r.Use(a.BookCtx)
			r.Get("/", a.GetStock)
			r.Get("/batches", a.GetBatches)
			r.With(Paginate).Get("/ledger", a.GetEntries)
			r.With(AdminOnly).Put("/receipt", a.ReceiveBatch)
			r.Put("/reservation", a.Reserve)
			r.Put("/reservationRelease", a.Release)
		})
	})
}

func (a *StockApi) BookCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		isbn := chi.URLParam(r, "isbn")
		if isbn == "" {
			Render(w, r, ErrInvalidRequest(errors.New("isbn is required")))
			return
		}

		book, err := a.service.GetBook(r.Context(), isbn)
		if err != nil {
			RenderError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), "book", book)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *StockApi) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := getLimitAndOffset(r)

	stock, err := a.service.GetAllStock(r.Context(), limit, offset)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	RenderList(w, r, NewBookStockListResponse(stock))
}

func (a *StockApi) CreateBook(w http.ResponseWriter, r *http.Request) {
	data := &CreateBookRequest{}
	if err := render.Bind(r, data); err != nil {
		Render(w, r, ErrInvalidRequest(err))
		return
	}

	if err := a.service.CreateBook(r.Context(), *data.Book); err != nil {
		RenderError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (a *StockApi) GetStock(w http.ResponseWriter, r *http.Request) {
	book := r.Context().Value("book").(ledger.Book)

	stock, err := a.service.GetStock(r.Context(), book.ISBN)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	Render(w, r, NewBookStockResponse(stock))
}

func (a *StockApi) GetBatches(w http.ResponseWriter, r *http.Request) {
	book := r.Context().Value("book").(ledger.Book)

	batches, err := a.service.GetBatches(r.Context(), book.ISBN)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	RenderList(w, r, NewBatchListResponse(batches))
}

func (a *StockApi) GetEntries(w http.ResponseWriter, r *http.Request) {
	book := r.Context().Value("book").(ledger.Book)
	limit, offset := getLimitAndOffset(r)

	query := ledger.EntryQuery{ISBN: book.ISBN}
	if v := r.URL.Query().Get("kind"); v != "" {
		kind, err := ledger.ParseEntryKind(v)
		if err != nil {
			Render(w, r, ErrInvalidRequest(err))
			return
		}
		query.Kind = kind
	}
	consumer, err := consumerFromQuery(r)
	if err != nil {
		Render(w, r, ErrInvalidRequest(err))
		return
	}
	query.Consumer = consumer

	entries, err := a.service.GetEntries(r.Context(), query, limit, offset)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	RenderList(w, r, NewEntryListResponse(entries))
}

func (a *StockApi) ReceiveBatch(w http.ResponseWriter, r *http.Request) {
	book := r.Context().Value("book").(ledger.Book)

	data := &ReceiveBatchRequest{}
	if err := render.Bind(r, data); err != nil {
		Render(w, r, ErrInvalidRequest(err))
		return
	}
	data.ISBN = book.ISBN

	batch, err := a.service.ReceiveBatch(r.Context(), actorFor(r), *data.ReceiptRequest)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	Render(w, r, NewBatchResponse(batch))
}

func (a *StockApi) Reserve(w http.ResponseWriter, r *http.Request) {
	book := r.Context().Value("book").(ledger.Book)

	data := &ReservationRequest{}
	if err := render.Bind(r, data); err != nil {
		Render(w, r, ErrInvalidRequest(err))
		return
	}
	data.ISBN = book.ISBN

	entry, err := a.service.Reserve(r.Context(), actorFor(r), *data.ReserveRequest)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	Render(w, r, NewEntryResponse(entry))
}

func (a *StockApi) Release(w http.ResponseWriter, r *http.Request) {
	book := r.Context().Value("book").(ledger.Book)

	data := &ReservationRequest{}
	if err := render.Bind(r, data); err != nil {
		Render(w, r, ErrInvalidRequest(err))
		return
	}
	data.ISBN = book.ISBN

	entry, err := a.service.ReleaseReserve(r.Context(), actorFor(r), *data.ReserveRequest)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	Render(w, r, NewEntryResponse(entry))
}

func (a *StockApi) Reconcile(w http.ResponseWriter, r *http.Request) {
	limit, offset := getLimitAndOffset(r)

	drift, err := a.service.ReconcileBatches(r.Context(), limit, offset)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	RenderList(w, r, NewDriftListResponse(drift))
}

func (a *StockApi) Subscribe(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.Err(err).Msg("failed to establish stock subscription connection")
		return
	}
	go func() {
		defer func() {
			if err := conn.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close connection")
			}
		}()

		ch := make(chan ledger.BookStock, 1)

		id := a.service.SubscribeStock(ch)
		defer a.service.UnsubscribeStock(id)

		for stock := range ch {
			body, err := json.Marshal(NewBookStockResponse(stock))
			if err != nil {
				log.Err(err).Msg("failed to marshal stock update")
			}
			if err := wsutil.WriteServerText(conn, body); err != nil {
				log.Err(err).Msg("failed to write stock update to client, disconnecting")
				return
			}
		}
	}()
}

// consumerFromQuery reads the consumerKind and consumerId query parameters.
// Nil when neither is present.
func consumerFromQuery(r *http.Request) (*ledger.ConsumerRef, error) {
	kindStr := r.URL.Query().Get("consumerKind")
	idStr := r.URL.Query().Get("consumerId")
	if kindStr == "" && idStr == "" {
		return nil, nil
	}

	kind, err := ledger.ParseConsumerKind(kindStr)
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return nil, errors.New("invalid consumerId")
	}
	return &ledger.ConsumerRef{Kind: kind, ID: id}, nil
}
