// Package fulfillment issues book stock against school demand and unwinds it
// again through returns and cancellation. Issuing is best-effort: whatever
// stock exists is taken, the rest is recorded as shortfall rather than
// failing the request.
package fulfillment

import (
	"time"

	"github.com/bookdepot/stock-service/core/ledger"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusFulfilled Status = "FULFILLED"
	StatusPartial   Status = "PARTIAL"
	StatusBlocked   Status = "BLOCKED"
	StatusCancelled Status = "CANCELLED"
)

func ParseStatus(v string) (Status, error) {
	switch v {
	case string(StatusFulfilled):
		return StatusFulfilled, nil
	case string(StatusPartial):
		return StatusPartial, nil
	case string(StatusBlocked):
		return StatusBlocked, nil
	case string(StatusCancelled):
		return StatusCancelled, nil
	default:
		return "", errors.New("invalid fulfillment status")
	}
}

// DemandLine is a value object. One title as requested, before the
// multiplier is applied.
type DemandLine struct {
	ISBN      string          `json:"isbn,omitempty"`
	Title     string          `json:"title"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Line is an entity. One title of the fulfillment after allocation.
// Requested is the scaled demand, Achieved what allocation actually covered
// and Returned what has since come back.
type Line struct {
	ID        uint64          `json:"id"`
	ISBN      string          `json:"isbn,omitempty"`
	Title     string          `json:"title"`
	Requested int64           `json:"requested"`
	Achieved  int64           `json:"achieved"`
	Returned  int64           `json:"returned"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

func (l Line) Shortfall() int64 {
	return l.Requested - l.Achieved
}

// Return is an entity. One accepted return against a fulfillment, priced at
// the line's unit price.
type Return struct {
	ID       uint64          `json:"id"`
	ISBN     string          `json:"isbn"`
	Quantity int64           `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
	Actor    string          `json:"actor"`
	Created  time.Time       `json:"created"`
}

// Record is an entity. One issuing of stock for a consumer, the unit the
// return and cancel workflows operate on.
type Record struct {
	ID         uint64             `json:"id"`
	RequestID  string             `json:"requestId,omitempty"`
	Consumer   ledger.ConsumerRef `json:"consumer"`
	SchoolID   uint64             `json:"schoolId"`
	Multiplier int64              `json:"multiplier"`
	Status     Status             `json:"status"`
	Note       string             `json:"note,omitempty"`
	Lines      []Line             `json:"lines"`
	Returns    []Return           `json:"returns,omitempty"`
	Created    time.Time          `json:"created"`
	CreatedBy  string             `json:"createdBy"`
}

// FulfillmentRequest is a value object. Lines may be empty when the consumer
// is a bundle, in which case the bundle's own lines are used.
type FulfillmentRequest struct {
	RequestID  string             `json:"requestId"`
	Consumer   ledger.ConsumerRef `json:"consumer"`
	Lines      []DemandLine       `json:"lines,omitempty"`
	Multiplier int64              `json:"multiplier"`
	Note       string             `json:"note"`
}

// ReturnItem is a value object. One title and quantity coming back.
type ReturnItem struct {
	ISBN     string `json:"isbn"`
	Quantity int64  `json:"quantity"`
}

// BatchCredit is a value object. Units credited back to one batch by a
// return or cancellation.
type BatchCredit struct {
	BatchID  uint64 `json:"batchId"`
	ISBN     string `json:"isbn"`
	Quantity int64  `json:"quantity"`
}

// RecordQuery narrows a fulfillment listing. Zero values match everything.
type RecordQuery struct {
	SchoolID uint64
	Consumer *ledger.ConsumerRef
	Status   Status
}
