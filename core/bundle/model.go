// Package bundle models the book lists schools order against. A bundle is
// the named set of titles and quantities for one school year; fulfillments
// reference it and its status reflects how far the school has been supplied.
package bundle

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type Status string

const (
	// StatusNone means no fulfillment has ever been issued for the bundle.
	StatusNone      Status = "NONE"
	StatusFulfilled Status = "FULFILLED"
	StatusPartial   Status = "PARTIAL"
	StatusBlocked   Status = "BLOCKED"
)

func ParseStatus(v string) (Status, error) {
	switch v {
	case string(StatusNone):
		return StatusNone, nil
	case string(StatusFulfilled):
		return StatusFulfilled, nil
	case string(StatusPartial):
		return StatusPartial, nil
	case string(StatusBlocked):
		return StatusBlocked, nil
	default:
		return "", errors.New("invalid bundle status")
	}
}

// Line is a value object. One title in the bundle with the per-student
// quantity and its list price. Lines without an ISBN are ancillary items
// that never touch stock.
type Line struct {
	ID        uint64          `json:"id"`
	ISBN      string          `json:"isbn,omitempty"`
	Title     string          `json:"title"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Bundle is an entity. The owning aggregate for fulfillments issued against
// it; Status is recomputed whenever one of them changes.
type Bundle struct {
	ID       uint64    `json:"id"`
	SchoolID uint64    `json:"schoolId"`
	Name     string    `json:"name"`
	Status   Status    `json:"status"`
	Lines    []Line    `json:"lines"`
	Created  time.Time `json:"created"`
}
