package notify

import (
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gofrs/uuid"
	"github.com/ramenya/ordering-service/internal/order"
	"github.com/rs/zerolog/log"
)

// Topics. Every order has its own channel for the customer's status page;
// kitchen sees everything; payment tracks orders awaiting payment.
const (
	TopicKitchen = "kitchen"
	TopicPayment = "payment"

	orderTopicPrefix = "order."
)

// OrderTopic returns the per-order channel name.
func OrderTopic(orderID uuid.UUID) string {
	return orderTopicPrefix + orderID.String()
}

// Event names carried in message metadata under MetaEvent.
const (
	MetaEvent = "event"

	EventOrderCreated       = "order-created"
	EventOrderStatusUpdated = "order-status-updated"
	EventGroupStatusUpdated = "group-status-updated"
	EventOrderPaid          = "order-paid"
	EventOrderReady         = "order-ready"
)

// Emitter publishes lifecycle events to the configured channels. Publishes
// are fire-and-forget: they run after the underlying write has committed and
// a transport failure is logged, never propagated to the lifecycle call.
type Emitter struct {
	publisher message.Publisher
}

func NewEmitter(publisher message.Publisher) *Emitter {
	return &Emitter{publisher: publisher}
}

func (e *Emitter) OrderCreated(o *order.Order) {
	payload := OrderCreatedEvent{
		OrderID:   o.ID,
		CallNum:   o.CallNum,
		Status:    o.Status,
		Groups:    summarizeGroups(o.Groups),
		CreatedAt: o.CreatedAt,
	}
	e.publish(TopicKitchen, EventOrderCreated, payload)
	if o.Status == order.StatusOrdered {
		e.publish(TopicPayment, EventOrderCreated, payload)
	}
}

func (e *Emitter) OrderStatusUpdated(orderID uuid.UUID, callNum int, status order.OrderStatus) {
	payload := OrderStatusUpdatedEvent{
		OrderID:   orderID,
		CallNum:   callNum,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
	e.publish(OrderTopic(orderID), EventOrderStatusUpdated, payload)
	e.publish(TopicKitchen, EventOrderStatusUpdated, payload)
	e.publish(TopicPayment, EventOrderStatusUpdated, payload)
}

func (e *Emitter) GroupStatusUpdated(orderID, groupID uuid.UUID, status order.GroupStatus) {
	payload := GroupStatusUpdatedEvent{
		OrderID:   orderID,
		GroupID:   groupID,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
	e.publish(OrderTopic(orderID), EventGroupStatusUpdated, payload)
	e.publish(TopicKitchen, EventGroupStatusUpdated, payload)
}

func (e *Emitter) OrderPaid(o *order.Order) {
	payload := OrderPaidEvent{
		OrderID:   o.ID,
		CallNum:   o.CallNum,
		Groups:    summarizeGroups(o.Groups),
		Timestamp: time.Now().UTC(),
	}
	e.publish(TopicKitchen, EventOrderPaid, payload)
}

func (e *Emitter) OrderReady(orderID uuid.UUID, callNum int) {
	payload := OrderReadyEvent{
		OrderID:   orderID,
		CallNum:   callNum,
		Timestamp: time.Now().UTC(),
	}
	e.publish(OrderTopic(orderID), EventOrderReady, payload)
	e.publish(TopicKitchen, EventOrderReady, payload)
}

func (e *Emitter) publish(topic, event string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("notify: failed to marshal event payload")
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), body)
	msg.Metadata.Set(MetaEvent, event)

	if err := e.publisher.Publish(topic, msg); err != nil {
		log.Warn().Err(err).Str("topic", topic).Str("event", event).Msg("notify: failed to publish event")
		return
	}
	log.Debug().Str("topic", topic).Str("event", event).Msg("notify: event published")
}
