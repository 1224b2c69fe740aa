package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/bookdepot/stock-service/core/bundle"
)

type CreateBundleRequest struct {
	*bundle.Bundle
}

func (b *CreateBundleRequest) Bind(_ *http.Request) error {
	if b.Bundle == nil || b.Name == "" || b.SchoolID == 0 {
		return errors.New("missing required bundle fields")
	}
	if len(b.Lines) == 0 {
		return errors.New("a bundle needs at least one line")
	}
	for _, line := range b.Lines {
		if line.Title == "" || line.Quantity < 1 {
			return errors.New("bundle lines need a title and a positive quantity")
		}
	}
	return nil
}

type BundleResponse struct {
	bundle.Bundle
}

func NewBundleResponse(b bundle.Bundle) *BundleResponse {
	return &BundleResponse{Bundle: b}
}

func (*BundleResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

func NewBundleListResponse(bundles []bundle.Bundle) []render.Renderer {
	list := []render.Renderer{}
	for _, b := range bundles {
		list = append(list, NewBundleResponse(b))
	}
	return list
}
