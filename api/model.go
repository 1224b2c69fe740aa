package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/rs/zerolog/log"

	"github.com/bookdepot/stock-service/core"
)

//--
// Error response payloads & renderers
//--

// ErrResponse renderer type for handling all sorts of errors.
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText string `json:"status"`              // user-level status message
	AppCode    int64  `json:"code,omitempty"`      // application-specific error code
	ErrorText  string `json:"error,omitempty"`     // application-level error message, for debugging
	Remaining  int64  `json:"remaining,omitempty"` // what is left when a request overdraws
}

func (e *ErrResponse) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

func ErrConflict(err *core.ConflictError) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusConflict,
		StatusText:     "Conflict.",
		ErrorText:      err.Error(),
		Remaining:      err.Remaining,
	}
}

var ErrNotFound = &ErrResponse{HTTPStatusCode: http.StatusNotFound, StatusText: "Resource not found."}
var ErrForbidden = &ErrResponse{HTTPStatusCode: http.StatusForbidden, StatusText: "Forbidden."}
var ErrInternalServer = &ErrResponse{
	HTTPStatusCode: http.StatusInternalServerError,
	StatusText:     "Internal server error.",
	ErrorText:      "An internal server error has occurred.",
}

// RenderError maps service errors onto the wire. Validation failures render
// as 400, permission denials as 403, missing records as 404, and overdraws
// as 409 carrying the remaining figure. Anything unrecognized is logged and
// hidden behind a 500.
func RenderError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *core.ValidationError
	var conflict *core.ConflictError

	switch {
	case errors.As(err, &invalid):
		Render(w, r, ErrInvalidRequest(invalid))
	case errors.As(err, &conflict):
		Render(w, r, ErrConflict(conflict))
	case errors.Is(err, core.ErrPermission):
		Render(w, r, ErrForbidden)
	case errors.Is(err, core.ErrNotFound):
		Render(w, r, ErrNotFound)
	default:
		log.Err(err).Send()
		Render(w, r, ErrInternalServer)
	}
}

func Render(w http.ResponseWriter, r *http.Request, rnd render.Renderer) {
	if err := render.Render(w, r, rnd); err != nil {
		log.Warn().Err(err).Msg("failed to render")
	}
}

func RenderList(w http.ResponseWriter, r *http.Request, l []render.Renderer) {
	if err := render.RenderList(w, r, l); err != nil {
		log.Warn().Err(err).Msg("failed to render")
	}
}
