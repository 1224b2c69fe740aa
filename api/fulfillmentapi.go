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

	"github.com/bookdepot/stock-service/core/fulfillment"
	"github.com/bookdepot/stock-service/core/user"
)

type FulfillmentService interface {
	Fulfill(ctx context.Context, actor user.Actor, req fulfillment.FulfillmentRequest) (fulfillment.Record, error)
	Return(ctx context.Context, actor user.Actor, fulfillmentID uint64, items []fulfillment.ReturnItem) ([]fulfillment.Return, error)
	Cancel(ctx context.Context, actor user.Actor, fulfillmentID uint64) ([]fulfillment.BatchCredit, error)

	GetRecord(ctx context.Context, actor user.Actor, id uint64) (fulfillment.Record, error)
	GetRecords(ctx context.Context, actor user.Actor, query fulfillment.RecordQuery, limit, offset int) ([]fulfillment.Record, error)

	SubscribeFulfillments(ch chan<- fulfillment.Record) (id fulfillment.FulfillmentSubscriptionID)
	UnsubscribeFulfillments(id fulfillment.FulfillmentSubscriptionID)
}

type FulfillmentApi struct {
	service FulfillmentService
}

func NewFulfillmentApi(service FulfillmentService) *FulfillmentApi {
	return &FulfillmentApi{service: service}
}

func (a *FulfillmentApi) ConfigureRouter(r chi.Router) {
	r.HandleFunc("/subscribe", a.Subscribe)

	r.Route("/", func(r chi.Router) {
		r.With(Paginate).Get("/", a.List)
		r.Post("/", a.Create)

		r.Route("/{fulfillmentID}", func(r chi.Router) {
			r.Get("/", a.Get)
			r.Post("/returns", a.Return)
			r.Post("/cancel", a.Cancel)
		})
	})
}

func (a *FulfillmentApi) Create(w http.ResponseWriter, r *http.Request) {
	data := &CreateFulfillmentRequest{}
	if err := render.Bind(r, data); err != nil {
		Render(w, r, ErrInvalidRequest(err))
		return
	}

	record, err := a.service.Fulfill(r.Context(), actorFor(r), *data.FulfillmentRequest)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	Render(w, r, NewRecordResponse(record))
}

func (a *FulfillmentApi) Get(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		Render(w, r, ErrInvalidRequest(err))
		return
	}

	record, err := a.service.GetRecord(r.Context(), actorFor(r), id)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	Render(w, r, NewRecordResponse(record))
}

func (a *FulfillmentApi) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := getLimitAndOffset(r)

	query := fulfillment.RecordQuery{}
	if v := r.URL.Query().Get("schoolId"); v != "" {
		schoolID, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			Render(w, r, ErrInvalidRequest(errors.New("invalid schoolId")))
			return
		}
		query.SchoolID = schoolID
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status, err := fulfillment.ParseStatus(v)
		if err != nil {
			Render(w, r, ErrInvalidRequest(err))
			return
		}
		query.Status = status
	}
	consumer, err := consumerFromQuery(r)
	if err != nil {
		Render(w, r, ErrInvalidRequest(err))
		return
	}
	query.Consumer = consumer

	records, err := a.service.GetRecords(r.Context(), actorFor(r), query, limit, offset)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	RenderList(w, r, NewRecordListResponse(records))
}

func (a *FulfillmentApi) Return(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		Render(w, r, ErrInvalidRequest(err))
		return
	}

	data := &ReturnRequest{}
	if err := render.Bind(r, data); err != nil {
		Render(w, r, ErrInvalidRequest(err))
		return
	}

	returns, err := a.service.Return(r.Context(), actorFor(r), id, data.Items)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	RenderList(w, r, NewReturnListResponse(returns))
}

func (a *FulfillmentApi) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		Render(w, r, ErrInvalidRequest(err))
		return
	}

	credits, err := a.service.Cancel(r.Context(), actorFor(r), id)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	RenderList(w, r, NewBatchCreditListResponse(credits))
}

func (a *FulfillmentApi) Subscribe(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.Err(err).Msg("failed to establish fulfillment subscription connection")
		return
	}
	go func() {
		defer func() {
			if err := conn.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close connection")
			}
		}()

		ch := make(chan fulfillment.Record, 1)

		id := a.service.SubscribeFulfillments(ch)
		defer a.service.UnsubscribeFulfillments(id)

		for record := range ch {
			body, err := json.Marshal(NewRecordResponse(record))
			if err != nil {
				log.Err(err).Msg("failed to marshal fulfillment update")
			}
			if err := wsutil.WriteServerText(conn, body); err != nil {
				log.Err(err).Msg("failed to write fulfillment update to client, disconnecting")
				return
			}
		}
	}()
}

func recordID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "fulfillmentID"), 10, 64)
	if err != nil {
		return 0, errors.New("invalid fulfillment id")
	}
	return id, nil
}
