package queue

import (
	"context"
	"encoding/json"

	"github.com/bookdepot/stock-service/core/fulfillment"
	"github.com/bookdepot/stock-service/core/ledger"
	"github.com/bookdepot/stock-service/core/user"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sksmith/bunnyq"
	"github.com/streadway/amqp"
)

// Queue is everything the services publish, gathered up for wiring.
type Queue interface {
	ledger.Queue
	fulfillment.Queue
}

type stockQueue struct {
	queue               *bunnyq.BunnyQ
	stockExchange       string
	fulfillmentExchange string
}

func New(bq *bunnyq.BunnyQ, stockExchange, fulfillmentExchange string) *stockQueue {
	return &stockQueue{queue: bq, stockExchange: stockExchange, fulfillmentExchange: fulfillmentExchange}
}

func (s *stockQueue) PublishStock(ctx context.Context, stock ledger.BookStock) error {
	body, err := json.Marshal(stock)
	if err != nil {
		return errors.WithMessage(err, "failed to serialize message for queue")
	}
	if err = s.queue.Publish(ctx, s.stockExchange, body); err != nil {
		return errors.WithMessage(err, "failed to send stock update to queue")
	}
	return nil
}

func (s *stockQueue) PublishFulfillment(ctx context.Context, record fulfillment.Record) error {
	body, err := json.Marshal(record)
	if err != nil {
		return errors.WithMessage(err, "error marshalling fulfillment to send to queue")
	}
	err = s.queue.Publish(ctx, s.fulfillmentExchange, body)
	if err != nil {
		return errors.WithMessage(err, "error publishing fulfillment")
	}
	return nil
}

type ReceiptQueue struct {
	queue        *bunnyq.BunnyQ
	receiptQueue string
	dltExchange  string
}

func NewReceiptQueue(bq *bunnyq.BunnyQ, receiptQueue, dltExchange string) *ReceiptQueue {
	return &ReceiptQueue{queue: bq, receiptQueue: receiptQueue, dltExchange: dltExchange}
}

type ReceiptHandler interface {
	ReceiveBatch(ctx context.Context, actor user.Actor, req ledger.ReceiptRequest) (ledger.Batch, error)
}

// receiptActor is the identity batches arriving over the wire are booked
// under. Receiving is an admin operation.
var receiptActor = user.Actor{Username: "receiving", Role: user.RoleAdmin}

func (p *ReceiptQueue) ConsumeReceipts(ctx context.Context, handler ReceiptHandler) {
	p.queue.Stream(ctx, p.receiptQueue, func(delivery amqp.Delivery) {
		req := ledger.ReceiptRequest{}
		err := json.Unmarshal(delivery.Body, &req)
		if err != nil {
			log.Error().Err(err).Msg("error unmarshalling receipt, writing to dlt")
			p.sendToDlt(ctx, delivery.Body)
			return
		}

		if _, err = handler.ReceiveBatch(ctx, receiptActor, req); err != nil {
			log.Error().Err(err).Msg("error handling receipt, writing to dlt")
			p.sendToDlt(ctx, delivery.Body)
		}
	}, bunnyq.StreamOpAutoAck)
}

func (p *ReceiptQueue) sendToDlt(ctx context.Context, data []byte) {
	err := p.queue.Publish(ctx, p.dltExchange, data)
	if err != nil {
		log.Error().Err(err).Msg("error writing to dlt")
	}
}
