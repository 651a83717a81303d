package kafka

import (
	"context"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/soleshop/checkout/internal/orders"
)

// Bus publishes checkout domain events, one producer per topic. Events trail
// already-committed transactions; delivery is best-effort.
type Bus struct {
	created *Producer
	paid    *Producer
	failed  *Producer
	service string
}

func NewBus(brokers []string, service string) *Bus {
	return &Bus{
		created: NewProducer(brokers, orders.TopicOrderCreated, 1024),
		paid:    NewProducer(brokers, orders.TopicOrderPaid, 1024),
		failed:  NewProducer(brokers, orders.TopicPaymentFailed, 1024),
		service: service,
	}
}

func (b *Bus) Start(ctx context.Context) {
	b.created.Start(ctx)
	b.paid.Start(ctx)
	b.failed.Start(ctx)
}

func (b *Bus) Close() {
	b.created.Close()
	b.paid.Close()
	b.failed.Close()
}

func (b *Bus) WaitClosed() {
	b.created.WaitClosed()
	b.paid.WaitClosed()
	b.failed.WaitClosed()
}

func (b *Bus) OrderCreated(ctx context.Context, p orders.OrderCreatedPayload) {
	b.publish(b.created, orders.EventOrderCreated, p.OrderID, p)
}

func (b *Bus) OrderPaid(ctx context.Context, p orders.OrderPaidPayload) {
	b.publish(b.paid, orders.EventOrderPaid, p.OrderID, p)
}

func (b *Bus) PaymentFailed(ctx context.Context, p orders.PaymentFailedPayload) {
	b.publish(b.failed, orders.EventPaymentFailed, p.OrderID, p)
}

func (b *Bus) publish(p *Producer, eventType string, orderID int64, payload any) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      b.service,
		CorrelationID: string(orders.PartitionKey(orderID)),
		Payload:       MustMarshal(payload),
	}
	p.Publish(orders.PartitionKey(orderID), MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
