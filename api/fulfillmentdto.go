package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/bookdepot/stock-service/core/fulfillment"
)

type CreateFulfillmentRequest struct {
	*fulfillment.FulfillmentRequest
}

func (f *CreateFulfillmentRequest) Bind(_ *http.Request) error {
	if f.FulfillmentRequest == nil || f.RequestID == "" || f.Consumer.Kind == "" {
		return errors.New("missing required fulfillment fields")
	}
	if f.Multiplier == 0 {
		f.Multiplier = 1
	}
	return nil
}

type ReturnRequest struct {
	Items []fulfillment.ReturnItem `json:"items"`
}

func (rr *ReturnRequest) Bind(_ *http.Request) error {
	if len(rr.Items) == 0 {
		return errors.New("at least one item is required")
	}
	return nil
}

type RecordResponse struct {
	fulfillment.Record
}

func NewRecordResponse(record fulfillment.Record) *RecordResponse {
	return &RecordResponse{Record: record}
}

func (*RecordResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

func NewRecordListResponse(records []fulfillment.Record) []render.Renderer {
	list := []render.Renderer{}
	for _, rec := range records {
		list = append(list, NewRecordResponse(rec))
	}
	return list
}

type ReturnResponse struct {
	fulfillment.Return
}

func NewReturnResponse(ret fulfillment.Return) *ReturnResponse {
	return &ReturnResponse{Return: ret}
}

func (*ReturnResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

func NewReturnListResponse(returns []fulfillment.Return) []render.Renderer {
	list := []render.Renderer{}
	for _, ret := range returns {
		list = append(list, NewReturnResponse(ret))
	}
	return list
}

type BatchCreditResponse struct {
	fulfillment.BatchCredit
}

func NewBatchCreditResponse(credit fulfillment.BatchCredit) *BatchCreditResponse {
	return &BatchCreditResponse{BatchCredit: credit}
}

func (*BatchCreditResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	return nil
}

func NewBatchCreditListResponse(credits []fulfillment.BatchCredit) []render.Renderer {
	list := []render.Renderer{}
	for _, c := range credits {
		list = append(list, NewBatchCreditResponse(c))
	}
	return list
}
