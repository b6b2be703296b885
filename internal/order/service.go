package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

// Emitter receives committed lifecycle events; emitting never fails the
// operation that triggered it.
type Emitter interface {
	OrderCreated(o *Order)
	OrderStatusUpdated(orderID uuid.UUID, callNum int, status OrderStatus)
	GroupStatusUpdated(orderID, groupID uuid.UUID, status GroupStatus)
	OrderPaid(o *Order)
	OrderReady(orderID uuid.UUID, callNum int)
}

type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListOrders(ctx context.Context, opts ListOptions) ([]Order, error)
	Pay(ctx context.Context, orderID uuid.UUID) (*Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status OrderStatus) (*Order, error)
	SetGroupStatus(ctx context.Context, groupID uuid.UUID, status GroupStatus) error
	Prepare(ctx context.Context, groupID uuid.UUID) error
	MarkReady(ctx context.Context, groupID uuid.UUID) error
}

type service struct {
	repo      Repository
	validator *Validator
	emitter   Emitter
}

func NewService(repo Repository, validator *Validator, emitter Emitter) Service {
	return &service{
		repo:      repo,
		validator: validator,
		emitter:   emitter,
	}
}

// CreateOrder validates the whole proposed order and writes nothing on
// failure; one rejection carries every violated rule, missing id and
// unavailable name.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error) {
	var validationErrs []error

	if err := s.validator.ValidateGroupComposition(ctx, input.GroupedMerchandiseIDs()); err != nil {
		if !IsValidationError(err) {
			return nil, fmt.Errorf("service: failed to validate group composition: %w", err)
		}
		validationErrs = append(validationErrs, err)
	}

	if err := s.validator.ValidateAvailability(ctx, input.MerchandiseIDs()); err != nil {
		if !IsValidationError(err) {
			return nil, fmt.Errorf("service: failed to validate merchandise availability: %w", err)
		}
		validationErrs = append(validationErrs, err)
	}

	if len(validationErrs) > 0 {
		err := errors.Join(validationErrs...)
		log.Warn().Err(err).Msg("service: order rejected by validation")
		return nil, err
	}

	orderID, err := s.repo.CreateOrder(ctx, input)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	created, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load created order %s: %w", orderID, err)
	}

	log.Info().Stringer("order_id", created.ID).Int("call_num", created.CallNum).Msg("service: order created")
	s.emitter.OrderCreated(created)

	return created, nil
}

func (s *service) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}
	return o, nil
}

func (s *service) ListOrders(ctx context.Context, opts ListOptions) ([]Order, error) {
	orders, err := s.repo.ListOrders(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return orders, nil
}

// Pay models "ensure paid": it writes PAID unconditionally, so paying an
// already-PAID order succeeds, and paying a READY order reverts it to PAID.
func (s *service) Pay(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	if _, err := s.repo.GetOrderByID(ctx, orderID); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Stringer("order_id", orderID).Msg("service: order not found, cannot pay")
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch order for payment: %w", err)
	}

	if err := s.repo.UpdateOrderStatus(ctx, orderID, StatusPaid); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to mark order paid: %w", err)
	}

	paid, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to reload paid order: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Msg("service: order paid")
	s.emitter.OrderPaid(paid)
	s.emitter.OrderStatusUpdated(paid.ID, paid.CallNum, paid.Status)

	return paid, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status OrderStatus) (*Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("service: invalid order status %q", status)
	}

	if _, err := s.repo.GetOrderByID(ctx, orderID); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch order for status update: %w", err)
	}

	if err := s.repo.UpdateOrderStatus(ctx, orderID, status); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to update order status: %w", err)
	}

	updated, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to reload order after status update: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Stringer("status", status).Msg("service: order status updated")
	s.emitter.OrderStatusUpdated(updated.ID, updated.CallNum, updated.Status)

	return updated, nil
}

// SetGroupStatus writes the group status without a transition table, backward
// moves included. Only a write of READY triggers order recomputation.
func (s *service) SetGroupStatus(ctx context.Context, groupID uuid.UUID, status GroupStatus) error {
	if !status.Valid() {
		return fmt.Errorf("service: invalid group status %q", status)
	}

	change, err := s.repo.UpdateGroupStatus(ctx, groupID, status)
	if err != nil {
		if errors.Is(err, ErrGroupNotFound) {
			log.Warn().Stringer("group_id", groupID).Msg("service: group not found, cannot update status")
			return ErrGroupNotFound
		}
		return fmt.Errorf("service: failed to update group status: %w", err)
	}

	log.Info().
		Stringer("order_id", change.OrderID).
		Stringer("group_id", groupID).
		Stringer("status", status).
		Msg("service: group status updated")
	s.emitter.GroupStatusUpdated(change.OrderID, groupID, status)

	if change.OrderAdvanced {
		log.Info().Stringer("order_id", change.OrderID).Msg("service: all groups ready, order advanced to READY")
		s.emitter.OrderReady(change.OrderID, change.OrderCallNum)
		s.emitter.OrderStatusUpdated(change.OrderID, change.OrderCallNum, change.OrderStatus)
	}

	return nil
}

func (s *service) Prepare(ctx context.Context, groupID uuid.UUID) error {
	return s.SetGroupStatus(ctx, groupID, GroupPreparing)
}

func (s *service) MarkReady(ctx context.Context, groupID uuid.UUID) error {
	return s.SetGroupStatus(ctx, groupID, GroupReady)
}
