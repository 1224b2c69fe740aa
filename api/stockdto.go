package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/bookdepot/stock-service/core/ledger"
)

type CreateBookRequest struct {
	*ledger.Book
}

func (b *CreateBookRequest) Bind(_ *http.Request) error {
	if b.Book == nil || b.ISBN == "" || b.Title == "" {
		return errors.New("missing required book fields")
	}
	return nil
}

type ReceiveBatchRequest struct {
	*ledger.ReceiptRequest
}

func (rb *ReceiveBatchRequest) Bind(_ *http.Request) error {
	if rb.ReceiptRequest == nil || rb.RequestID == "" {
		return errors.New("missing required receipt fields")
	}
	if rb.Quantity < 1 {
		return errors.New("quantity must be greater than zero")
	}
	return nil
}

type ReservationRequest struct {
	*ledger.ReserveRequest
}

func (rr *ReservationRequest) Bind(_ *http.Request) error {
	if rr.ReserveRequest == nil || rr.Consumer.Kind == "" {
		return errors.New("missing required reservation fields")
	}
	if rr.Quantity < 1 {
		return errors.New("quantity must be greater than zero")
	}
	return nil
}

type BookStockResponse struct {
	ledger.BookStock
}

func NewBookStockResponse(stock ledger.BookStock) *BookStockResponse {
	return &BookStockResponse{BookStock: stock}
}

func (*BookStockResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

func NewBookStockListResponse(stock []ledger.BookStock) []render.Renderer {
	list := []render.Renderer{}
	for _, s := range stock {
		list = append(list, NewBookStockResponse(s))
	}
	return list
}

type BatchResponse struct {
	ledger.Batch
}

func NewBatchResponse(batch ledger.Batch) *BatchResponse {
	return &BatchResponse{Batch: batch}
}

func (*BatchResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

func NewBatchListResponse(batches []ledger.Batch) []render.Renderer {
	list := []render.Renderer{}
	for _, b := range batches {
		list = append(list, NewBatchResponse(b))
	}
	return list
}

type EntryResponse struct {
	ledger.Entry
}

func NewEntryResponse(entry ledger.Entry) *EntryResponse {
	return &EntryResponse{Entry: entry}
}

func (*EntryResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

func NewEntryListResponse(entries []ledger.Entry) []render.Renderer {
	list := []render.Renderer{}
	for _, e := range entries {
		list = append(list, NewEntryResponse(e))
	}
	return list
}

type DriftResponse struct {
	ledger.BatchDrift
}

func NewDriftResponse(drift ledger.BatchDrift) *DriftResponse {
	return &DriftResponse{BatchDrift: drift}
}

func (*DriftResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

func NewDriftListResponse(drift []ledger.BatchDrift) []render.Renderer {
	list := []render.Renderer{}
	for _, d := range drift {
		list = append(list, NewDriftResponse(d))
	}
	return list
}
