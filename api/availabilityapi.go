package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"github.com/bookdepot/stock-service/core/ledger"
	"github.com/bookdepot/stock-service/core/user"
)

type AvailabilityService interface {
	GetAvailability(ctx context.Context, actor user.Actor, consumer ledger.ConsumerRef, isbns []string) ([]ledger.TitleAvailability, error)
}

type AvailabilityApi struct {
	service AvailabilityService
}

func NewAvailabilityApi(service AvailabilityService) *AvailabilityApi {
	return &AvailabilityApi{service: service}
}

func (a *AvailabilityApi) ConfigureRouter(r chi.Router) {
	r.Get("/", a.Get)
}

// Get reports per-title availability as seen by one consumer. Titles come
// in through repeated isbn query parameters.
func (a *AvailabilityApi) Get(w http.ResponseWriter, r *http.Request) {
	consumer, err := consumerFromQuery(r)
	if err != nil {
		Render(w, r, ErrInvalidRequest(err))
		return
	}
	if consumer == nil {
		Render(w, r, ErrInvalidRequest(errors.New("consumerKind and consumerId are required")))
		return
	}

	isbns := r.URL.Query()["isbn"]

	availability, err := a.service.GetAvailability(r.Context(), actorFor(r), *consumer, isbns)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	RenderList(w, r, NewAvailabilityListResponse(availability))
}

type AvailabilityResponse struct {
	ledger.TitleAvailability
}

func NewAvailabilityResponse(availability ledger.TitleAvailability) *AvailabilityResponse {
	return &AvailabilityResponse{TitleAvailability: availability}
}

func (*AvailabilityResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

func NewAvailabilityListResponse(availability []ledger.TitleAvailability) []render.Renderer {
	list := []render.Renderer{}
	for _, a := range availability {
		list = append(list, NewAvailabilityResponse(a))
	}
	return list
}
