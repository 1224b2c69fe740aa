// Package ledger tracks physical book stock for the depot. Every unit that
// enters or leaves the warehouse is recorded as an append-only LedgerEntry
// against the Batch it came from, and batch availability is kept as a running
// figure so reads never have to replay history.
package ledger

import (
	"time"

	"github.com/pkg/errors"
)

// Book is a value object. A title the depot is able to stock.
type Book struct {
	ISBN    string `json:"isbn"`
	Title   string `json:"title"`
	Subject string `json:"subject"`
}

// BookStock represents the current on-hand level for the associated book.
type BookStock struct {
	Book
	Available int64 `json:"available"`
}

// Batch is an entity. A physical delivery of a single title, drawn down as
// units are withdrawn and credited back on returns. Available never goes
// negative and never exceeds what the ledger accounts for.
type Batch struct {
	ID         uint64    `json:"id"`
	ISBN       string    `json:"isbn"`
	Available  int64     `json:"available"`
	RequestID  string    `json:"requestId,omitempty"`
	Note       string    `json:"note,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}

type EntryKind string

const (
	KindReceipt        EntryKind = "RECEIPT"
	KindReserve        EntryKind = "RESERVE"
	KindReleaseReserve EntryKind = "RELEASE_RESERVE"
	KindWithdraw       EntryKind = "WITHDRAW"
	KindReturn         EntryKind = "RETURN"
)

func ParseEntryKind(v string) (EntryKind, error) {
	switch v {
	case string(KindReceipt):
		return KindReceipt, nil
	case string(KindReserve):
		return KindReserve, nil
	case string(KindReleaseReserve):
		return KindReleaseReserve, nil
	case string(KindWithdraw):
		return KindWithdraw, nil
	case string(KindReturn):
		return KindReturn, nil
	default:
		return "", errors.New("invalid entry kind")
	}
}

type ConsumerKind string

const (
	ConsumerSchool            ConsumerKind = "SCHOOL"
	ConsumerBundle            ConsumerKind = "BUNDLE"
	ConsumerFulfillment       ConsumerKind = "FULFILLMENT"
	ConsumerFulfillmentReturn ConsumerKind = "FULFILLMENT_RETURN"
	ConsumerFulfillmentCancel ConsumerKind = "FULFILLMENT_CANCEL"
)

func ParseConsumerKind(v string) (ConsumerKind, error) {
	switch v {
	case string(ConsumerSchool):
		return ConsumerSchool, nil
	case string(ConsumerBundle):
		return ConsumerBundle, nil
	case string(ConsumerFulfillment):
		return ConsumerFulfillment, nil
	case string(ConsumerFulfillmentReturn):
		return ConsumerFulfillmentReturn, nil
	case string(ConsumerFulfillmentCancel):
		return ConsumerFulfillmentCancel, nil
	default:
		return "", errors.New("invalid consumer kind")
	}
}

// ConsumerRef names who or what a ledger entry was written for.
type ConsumerRef struct {
	Kind ConsumerKind `json:"kind"`
	ID   uint64       `json:"id"`
}

// Entry is an entity. One immutable line in the stock ledger. Entries are
// only ever appended; corrections are new entries, never edits.
type Entry struct {
	ID       uint64      `json:"id"`
	Kind     EntryKind   `json:"kind"`
	ISBN     string      `json:"isbn"`
	BatchID  *uint64     `json:"batchId,omitempty"`
	Quantity int64       `json:"quantity"`
	Consumer ConsumerRef `json:"consumer"`
	Note     string      `json:"note,omitempty"`
	Created  time.Time   `json:"created"`
}

// Allocation is a value object. A slice of one batch claimed by the
// allocator.
type Allocation struct {
	BatchID  uint64 `json:"batchId"`
	Quantity int64  `json:"quantity"`
}

// ReceiptRequest is a value object. A request to book a delivery into stock.
type ReceiptRequest struct {
	RequestID string `json:"requestId"`
	ISBN      string `json:"isbn"`
	Quantity  int64  `json:"quantity"`
	Note      string `json:"note"`
}

// ReserveRequest is a value object. A request to earmark or release stock
// for a consumer without moving any physical units.
type ReserveRequest struct {
	ISBN     string      `json:"isbn"`
	Quantity int64       `json:"quantity"`
	Consumer ConsumerRef `json:"consumer"`
	Note     string      `json:"note"`
}

// TitleAvailability is the read-side projection for one title as seen by one
// consumer. Required and Withdrawn are scoped to the consumer; Available and
// Free describe the whole depot.
type TitleAvailability struct {
	ISBN      string `json:"isbn"`
	Required  int64  `json:"required"`
	Available int64  `json:"available"`
	Reserved  int64  `json:"reserved"`
	Withdrawn int64  `json:"withdrawn"`
	Free      int64  `json:"free"`
}

// BatchDrift reports a batch whose running availability disagrees with what
// its ledger entries sum to.
type BatchDrift struct {
	BatchID     uint64 `json:"batchId"`
	ISBN        string `json:"isbn"`
	Available   int64  `json:"available"`
	LedgerTotal int64  `json:"ledgerTotal"`
}

// EntryQuery narrows a ledger listing. Zero values match everything.
type EntryQuery struct {
	ISBN     string
	Kind     EntryKind
	Consumer *ConsumerRef
}
