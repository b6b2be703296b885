package catalog

import (
	"time"

	"github.com/gofrs/uuid"
)

type ItemType string

const (
	TypeBaseItem ItemType = "BASE_ITEM"
	TypeTopping  ItemType = "TOPPING"
	TypeDiscount ItemType = "DISCOUNT"
)

func (t ItemType) String() string {
	return string(t)
}

func (t ItemType) Valid() bool {
	switch t {
	case TypeBaseItem, TypeTopping, TypeDiscount:
		return true
	}
	return false
}

// Item is a sellable catalog entry. Price is in currency minor units;
// a discount carries a negative price.
type Item struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Price       int64     `json:"price" db:"price"`
	Type        ItemType  `json:"type" db:"type"`
	IsAvailable bool      `json:"is_available" db:"is_available"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
