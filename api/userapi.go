package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	"github.com/bookdepot/stock-service/core/user"
)

type UserService interface {
	Create(ctx context.Context, req user.CreateUserRequest) (user.User, error)
	Get(ctx context.Context, username string) (user.User, error)
	Delete(ctx context.Context, username string) error
	Login(ctx context.Context, username, password string) (user.User, error)
}

type UserApi struct {
	service UserService
}

func NewUserApi(service UserService) *UserApi {
	return &UserApi{service: service}
}

func (a *UserApi) ConfigureRouter(r chi.Router) {
	r.With(AdminOnly).Post("/", a.Create)

	r.Route("/{username}", func(r chi.Router) {
		r.Get("/", a.Get)
		r.With(AdminOnly).Delete("/", a.Delete)
	})
}

func (a *UserApi) Create(w http.ResponseWriter, r *http.Request) {
	data := &CreateUserRequestDto{}
	if err := render.Bind(r, data); err != nil {
		Render(w, r, ErrInvalidRequest(err))
		return
	}

	u, err := a.service.Create(r.Context(), *data.CreateUserRequest)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	Render(w, r, NewUserResponse(u))
}

// Get returns a single user. Admins can look at anyone, everyone else only
// at themselves.
func (a *UserApi) Get(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	actor := actorFor(r)
	if actor.Role != user.RoleAdmin && actor.Username != username {
		Render(w, r, ErrForbidden)
		return
	}

	u, err := a.service.Get(r.Context(), username)
	if err != nil {
		RenderError(w, r, err)
		return
	}

	Render(w, r, NewUserResponse(u))
}

func (a *UserApi) Delete(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	if err := a.service.Delete(r.Context(), username); err != nil {
		RenderError(w, r, err)
		return
	}

	render.NoContent(w, r)
}
