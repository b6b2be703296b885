package notify

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/ramenya/ordering-service/internal/catalog"
	"github.com/ramenya/ordering-service/internal/order"
)

// Event payloads are denormalized so a subscriber can render a notification
// without a follow-up read.

type MerchandiseSummary struct {
	ID    uuid.UUID        `json:"id"`
	Name  string           `json:"name"`
	Type  catalog.ItemType `json:"type"`
	Price int64            `json:"price"`
}

type ItemSummary struct {
	ID          uuid.UUID          `json:"id"`
	Merchandise MerchandiseSummary `json:"merchandise"`
}

type GroupSummary struct {
	ID     uuid.UUID         `json:"id"`
	Status order.GroupStatus `json:"status"`
	Items  []ItemSummary     `json:"items"`
}

type OrderCreatedEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	CallNum   int               `json:"call_num"`
	Status    order.OrderStatus `json:"status"`
	Groups    []GroupSummary    `json:"groups"`
	CreatedAt time.Time         `json:"created_at"`
}

type OrderStatusUpdatedEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	CallNum   int               `json:"call_num"`
	Status    order.OrderStatus `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
}

type GroupStatusUpdatedEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	GroupID   uuid.UUID         `json:"group_id"`
	Status    order.GroupStatus `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
}

type OrderPaidEvent struct {
	OrderID   uuid.UUID      `json:"order_id"`
	CallNum   int            `json:"call_num"`
	Groups    []GroupSummary `json:"groups"`
	Timestamp time.Time      `json:"timestamp"`
}

type OrderReadyEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	CallNum   int       `json:"call_num"`
	Timestamp time.Time `json:"timestamp"`
}

func summarizeGroups(groups []order.Group) []GroupSummary {
	out := make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		gs := GroupSummary{
			ID:     g.ID,
			Status: g.Status,
			Items:  make([]ItemSummary, 0, len(g.Items)),
		}
		for _, it := range g.Items {
			summary := ItemSummary{ID: it.ID}
			if it.Merchandise != nil {
				summary.Merchandise = MerchandiseSummary{
					ID:    it.Merchandise.ID,
					Name:  it.Merchandise.Name,
					Type:  it.Merchandise.Type,
					Price: it.Merchandise.Price,
				}
			}
			gs.Items = append(gs.Items, summary)
		}
		out = append(out, gs)
	}
	return out
}
