package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"github.com/bookdepot/stock-service/core/bundle"
	"github.com/bookdepot/stock-service/core/user"
)

type BundleService interface {
	Create(ctx context.Context, actor user.Actor, b bundle.Bundle) (bundle.Bundle, error)
	Get(ctx context.Context, actor user.Actor, id uint64) (bundle.Bundle, error)
	GetSchoolBundles(ctx context.Context, actor user.Actor, schoolID uint64, limit, offset int) ([]bundle.Bundle, error)
}

type BundleApi struct {
	service BundleService
}

func NewBundleApi(service BundleService) *BundleApi {
	return &BundleApi{service: service}
}

func (a *BundleApi) ConfigureRouter(r chi.Router) {
	r.With(Paginate).Get("/", a.List)
	r.Post("/", a.Create)
	r.Get("/{bundleID}", a.Get)
}

func (a *BundleApi) Create(w http.ResponseWriter, r *http.Request) {
	data := &CreateBundleRequest{}
	if err := render.Bind(r, data); err != nil {
		Render(w, r, ErrInvalidRequest(err))
		return
	}

	b, err := a.service.Create(r.Context(), actorFor(r), *data.Bundle)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	Render(w, r, NewBundleResponse(b))
}

func (a *BundleApi) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "bundleID"), 10, 64)
	if err != nil {
		Render(w, r, ErrInvalidRequest(errors.New("invalid bundle id")))
		return
	}

	b, err := a.service.Get(r.Context(), actorFor(r), id)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	Render(w, r, NewBundleResponse(b))
}

// List returns a school's bundles. School users get their own school when no
// schoolId parameter is given.
func (a *BundleApi) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := getLimitAndOffset(r)

	var schoolID uint64
	if v := r.URL.Query().Get("schoolId"); v != "" {
		var err error
		schoolID, err = strconv.ParseUint(v, 10, 64)
		if err != nil {
			Render(w, r, ErrInvalidRequest(errors.New("invalid schoolId")))
			return
		}
	} else {
		schoolID = actorFor(r).SchoolID
	}

	bundles, err := a.service.GetSchoolBundles(r.Context(), actorFor(r), schoolID, limit, offset)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	RenderList(w, r, NewBundleListResponse(bundles))
}
