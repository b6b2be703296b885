package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/ramenya/ordering-service/internal/catalog"
)

type OrderStatus string

const (
	StatusOrdered OrderStatus = "ORDERED"
	StatusPaid    OrderStatus = "PAID"
	StatusReady   OrderStatus = "READY"
)

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusOrdered, StatusPaid, StatusReady:
		return true
	}
	return false
}

type GroupStatus string

const (
	GroupNotReady  GroupStatus = "NOT_READY"
	GroupPreparing GroupStatus = "PREPARING"
	GroupReady     GroupStatus = "READY"
)

func (s GroupStatus) String() string {
	return string(s)
}

func (s GroupStatus) Valid() bool {
	switch s {
	case GroupNotReady, GroupPreparing, GroupReady:
		return true
	}
	return false
}

// Item references a catalog entry. There is no quantity field: repetition is
// modeled by multiple rows. Merchandise is resolved from the catalog at read
// time, so a later price edit shows up in historical orders.
type Item struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	GroupID       uuid.UUID     `json:"group_id" db:"group_id"`
	MerchandiseID uuid.UUID     `json:"merchandise_id" db:"merchandise_id"`
	Merchandise   *catalog.Item `json:"merchandise,omitempty" db:"-"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// Group models one dish and its modifiers, the unit of kitchen preparation.
type Group struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	OrderID   uuid.UUID   `json:"order_id" db:"order_id"`
	Status    GroupStatus `json:"status" db:"status"`
	Items     []Item      `json:"items" db:"-"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

type Order struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	CallNum   int         `json:"call_num" db:"call_num"`
	Status    OrderStatus `json:"status" db:"status"`
	Groups    []Group     `json:"groups" db:"-"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// Total sums the live catalog prices of every hydrated item. Items whose
// merchandise could not be resolved contribute nothing.
func (o *Order) Total() int64 {
	var total int64
	for _, g := range o.Groups {
		for _, it := range g.Items {
			if it.Merchandise != nil {
				total += it.Merchandise.Price
			}
		}
	}
	return total
}

// ShouldAdvanceToReady is the order completion rule: an order becomes READY
// only when every group is READY and the order has been PAID. Cooking
// completion alone never implies payment, so an unpaid order stays ORDERED.
func ShouldAdvanceToReady(orderStatus OrderStatus, groupStatuses []GroupStatus) bool {
	if orderStatus != StatusPaid {
		return false
	}
	if len(groupStatuses) == 0 {
		return false
	}
	for _, s := range groupStatuses {
		if s != GroupReady {
			return false
		}
	}
	return true
}

// CreateOrderInput is the proposed shape of a new order: one item spec per
// referenced catalog entry, grouped by dish.
type CreateOrderInput struct {
	Groups []GroupSpec `json:"groups"`
}

type GroupSpec struct {
	Items []ItemSpec `json:"items"`
}

type ItemSpec struct {
	MerchandiseID uuid.UUID `json:"merchandise_id"`
}

// MerchandiseIDs flattens every referenced catalog id across all groups.
func (in CreateOrderInput) MerchandiseIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0)
	for _, g := range in.Groups {
		for _, it := range g.Items {
			ids = append(ids, it.MerchandiseID)
		}
	}
	return ids
}

// GroupedMerchandiseIDs keeps the per-group structure for composition checks.
func (in CreateOrderInput) GroupedMerchandiseIDs() [][]uuid.UUID {
	groups := make([][]uuid.UUID, 0, len(in.Groups))
	for _, g := range in.Groups {
		ids := make([]uuid.UUID, 0, len(g.Items))
		for _, it := range g.Items {
			ids = append(ids, it.MerchandiseID)
		}
		groups = append(groups, ids)
	}
	return groups
}

// ListOptions filters and pages the order list. Orders are always returned
// newest first.
type ListOptions struct {
	Status *OrderStatus
	Limit  int
	Offset int
}
