package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/ramenya/ordering-service/internal/catalog"
)

// CatalogLookup is the read-only slice of the catalog the validator needs.
type CatalogLookup interface {
	GetMany(ctx context.Context, ids []uuid.UUID) ([]catalog.Item, error)
}

// Validator checks proposed item groupings before any write. Structural
// (composition) and referential (existence/availability) checks are separate
// operations so callers can run them independently; the lifecycle engine
// runs both and joins the failures.
type Validator struct {
	catalog CatalogLookup
}

func NewValidator(lookup CatalogLookup) *Validator {
	return &Validator{catalog: lookup}
}

// ValidateGroupComposition verifies the grouping rules for every group and
// returns a *CompositionError carrying the complete list of violations.
// Ids that resolve to nothing do not partition into any category here;
// existence is ValidateAvailability's concern.
func (v *Validator) ValidateGroupComposition(ctx context.Context, groups [][]uuid.UUID) error {
	violations := make([]string, 0)

	if len(groups) == 0 {
		violations = append(violations, "order must contain at least one group")
		return &CompositionError{Violations: violations}
	}

	all := make([]uuid.UUID, 0)
	for _, group := range groups {
		all = append(all, group...)
	}

	items, err := v.catalog.GetMany(ctx, all)
	if err != nil {
		return fmt.Errorf("validator: failed to resolve catalog items: %w", err)
	}

	typeByID := make(map[uuid.UUID]catalog.ItemType, len(items))
	for _, item := range items {
		typeByID[item.ID] = item.Type
	}

	for i, group := range groups {
		if len(group) == 0 {
			violations = append(violations, fmt.Sprintf("group %d must contain at least one item", i+1))
			continue
		}

		var baseItems, toppings, discounts int
		for _, id := range group {
			switch typeByID[id] {
			case catalog.TypeBaseItem:
				baseItems++
			case catalog.TypeTopping:
				toppings++
			case catalog.TypeDiscount:
				discounts++
			}
		}

		if baseItems > 1 {
			violations = append(violations, fmt.Sprintf("group %d can contain at most one BASE_ITEM", i+1))
		}
		if (toppings > 0 || discounts > 0) && baseItems == 0 {
			violations = append(violations, fmt.Sprintf("group %d: TOPPING or DISCOUNT items can only be added to a group that contains a BASE_ITEM", i+1))
		}
	}

	if len(violations) > 0 {
		return &CompositionError{Violations: violations}
	}
	return nil
}

// ValidateAvailability resolves every referenced id in one pass and reports
// all missing ids and all unavailable item names together. Both failure
// kinds may co-occur; they come back joined.
func (v *Validator) ValidateAvailability(ctx context.Context, ids []uuid.UUID) error {
	items, err := v.catalog.GetMany(ctx, ids)
	if err != nil {
		return fmt.Errorf("validator: failed to resolve catalog items: %w", err)
	}

	found := make(map[uuid.UUID]bool, len(items))
	for _, item := range items {
		found[item.ID] = true
	}

	missing := make([]uuid.UUID, 0)
	seen := make(map[uuid.UUID]bool)
	for _, id := range ids {
		if !found[id] && !seen[id] {
			missing = append(missing, id)
			seen[id] = true
		}
	}

	unavailable := make([]string, 0)
	for _, item := range items {
		if !item.IsAvailable {
			unavailable = append(unavailable, item.Name)
		}
	}

	var nfErr, unavailErr error
	if len(missing) > 0 {
		nfErr = &NotFoundError{IDs: missing}
	}
	if len(unavailable) > 0 {
		unavailErr = &UnavailableError{Names: unavailable}
	}
	return errors.Join(nfErr, unavailErr)
}
