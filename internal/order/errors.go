package order

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrGroupNotFound = errors.New("order group not found")
)

// CompositionError reports every grouping-rule violation across the whole
// proposed order, not just the first.
type CompositionError struct {
	Violations []string
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("group validation failed: %s", strings.Join(e.Violations, ", "))
}

// NotFoundError reports every referenced catalog id that resolved to nothing.
type NotFoundError struct {
	IDs []uuid.UUID
}

func (e *NotFoundError) Error() string {
	ids := make([]string, 0, len(e.IDs))
	for _, id := range e.IDs {
		ids = append(ids, id.String())
	}
	return fmt.Sprintf("merchandise not found: %s", strings.Join(ids, ", "))
}

// UnavailableError reports every referenced item that exists but is marked
// unavailable, by display name.
type UnavailableError struct {
	Names []string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("unavailable merchandise: %s", strings.Join(e.Names, ", "))
}

// IsValidationError reports whether err carries any of the business
// validation kinds, possibly joined.
func IsValidationError(err error) bool {
	var compErr *CompositionError
	var nfErr *NotFoundError
	var unavailErr *UnavailableError
	return errors.As(err, &compErr) || errors.As(err, &nfErr) || errors.As(err, &unavailErr)
}
