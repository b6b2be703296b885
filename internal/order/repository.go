package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ramenya/ordering-service/internal/catalog"
	"github.com/rs/zerolog/log"
)

// GroupStatusChange reports what a group-status write did to the parent
// order. OrderStatus is only populated when the write triggered order
// recomputation (new status READY).
type GroupStatusChange struct {
	OrderID       uuid.UUID
	GroupID       uuid.UUID
	GroupStatus   GroupStatus
	OrderStatus   OrderStatus
	OrderCallNum  int
	OrderAdvanced bool
}

type Repository interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (uuid.UUID, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListOrders(ctx context.Context, opts ListOptions) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status OrderStatus) error
	UpdateGroupStatus(ctx context.Context, groupID uuid.UUID, status GroupStatus) (*GroupStatusChange, error)
}

type postgresRepository struct {
	db  *pgxpool.Pool
	loc *time.Location
}

// NewRepository builds a postgres-backed repository. loc is the deployment's
// local timezone used for call-number day boundaries; nil means time.Local.
func NewRepository(db *pgxpool.Pool, loc *time.Location) Repository {
	if loc == nil {
		loc = time.Local
	}
	return &postgresRepository{db: db, loc: loc}
}

// CreateOrder inserts the order, its groups and items in one transaction,
// allocating the per-day call number inside it. A concurrent creation that
// races to the same number trips the unique index and is retried with a
// fresh read; the conflict is never surfaced.
func (r *postgresRepository) CreateOrder(ctx context.Context, input CreateOrderInput) (uuid.UUID, error) {
	var lastErr error
	for attempt := 0; attempt < callNumAttempts; attempt++ {
		orderID, err := r.tryCreateOrder(ctx, input)
		if err == nil {
			return orderID, nil
		}
		if !isCallNumConflict(err) {
			return uuid.Nil, err
		}
		lastErr = err
		log.Warn().Int("attempt", attempt+1).Msg("repository: call number conflict, retrying allocation")
	}
	return uuid.Nil, fmt.Errorf("repository: call number allocation exhausted retries: %w", lastErr)
}

func (r *postgresRepository) tryCreateOrder(ctx context.Context, input CreateOrderInput) (orderID uuid.UUID, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Msg("repository: failed to rollback order creation")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("repository: failed to commit order creation: %w", commitErr)
		}
	}()

	now := time.Now().UTC()
	day := DayOf(now, r.loc)

	callNum, err := nextCallNumber(ctx, tx, day)
	if err != nil {
		return uuid.Nil, err
	}

	orderID, err = uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to generate order ID: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, call_num, day, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, orderID, callNum, day, string(StatusOrdered), now, now)
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to insert order: %w", err)
	}

	for _, groupSpec := range input.Groups {
		groupID, genErr := uuid.NewV4()
		if genErr != nil {
			return uuid.Nil, fmt.Errorf("repository: failed to generate group ID: %w", genErr)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO order_groups (id, order_id, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`, groupID, orderID, string(GroupNotReady), now, now)
		if err != nil {
			return uuid.Nil, fmt.Errorf("repository: failed to insert order group for order %s: %w", orderID, err)
		}

		for _, itemSpec := range groupSpec.Items {
			itemID, genErr := uuid.NewV4()
			if genErr != nil {
				return uuid.Nil, fmt.Errorf("repository: failed to generate order item ID: %w", genErr)
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO order_items (id, group_id, merchandise_id, created_at)
				VALUES ($1, $2, $3, $4)
			`, itemID, groupID, itemSpec.MerchandiseID, now)
			if err != nil {
				return uuid.Nil, fmt.Errorf("repository: failed to insert order item for group %s: %w", groupID, err)
			}
		}
	}

	return orderID, nil
}

func isCallNumConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == pgerrcode.UniqueViolation &&
		pgErr.ConstraintName == "orders_day_call_num_idx"
}

func (r *postgresRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var order Order
	err := r.db.QueryRow(ctx, `
		SELECT id, call_num, status, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.CallNum, &order.Status, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", id, err)
	}

	if err := r.hydrateOrders(ctx, []*Order{&order}); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *postgresRepository) ListOrders(ctx context.Context, opts ListOptions) ([]Order, error) {
	query := `SELECT id, call_num, status, created_at, updated_at FROM orders`
	args := []any{}
	if opts.Status != nil {
		query += ` WHERE status = $1`
		args = append(args, string(*opts.Status))
	}
	query += ` ORDER BY created_at DESC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		var order Order
		if err := rows.Scan(&order.ID, &order.CallNum, &order.Status, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders: %w", err)
	}

	refs := make([]*Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	if err := r.hydrateOrders(ctx, refs); err != nil {
		return nil, err
	}
	return orders, nil
}

// hydrateOrders attaches groups, items and live catalog details to the given
// orders. Merchandise is resolved at read time on purpose: a price edit
// after checkout changes a historical order's displayed total.
func (r *postgresRepository) hydrateOrders(ctx context.Context, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}

	ordersByID := make(map[uuid.UUID]*Order, len(orders))
	orderIDs := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		o.Groups = make([]Group, 0)
		ordersByID[o.ID] = o
		orderIDs = append(orderIDs, o.ID)
	}

	groupRows, err := r.db.Query(ctx, `
		SELECT id, order_id, status, created_at, updated_at
		FROM order_groups
		WHERE order_id = ANY($1)
		ORDER BY created_at ASC
	`, orderIDs)
	if err != nil {
		return fmt.Errorf("repository: failed to query order groups: %w", err)
	}
	defer groupRows.Close()

	groupsByID := make(map[uuid.UUID]*Group)
	groupIDs := make([]uuid.UUID, 0)
	for groupRows.Next() {
		var g Group
		if err := groupRows.Scan(&g.ID, &g.OrderID, &g.Status, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return fmt.Errorf("repository: failed to scan order group: %w", err)
		}
		g.Items = make([]Item, 0)
		groupsByID[g.ID] = &g
		groupIDs = append(groupIDs, g.ID)
	}
	if err := groupRows.Err(); err != nil {
		return fmt.Errorf("repository: error iterating order groups: %w", err)
	}

	if len(groupIDs) > 0 {
		itemRows, err := r.db.Query(ctx, `
			SELECT i.id, i.group_id, i.merchandise_id, i.created_at,
			       m.id, m.name, m.price, m.type, m.is_available, m.created_at, m.updated_at
			FROM order_items i
			JOIN merchandise m ON m.id = i.merchandise_id
			WHERE i.group_id = ANY($1)
			ORDER BY i.created_at ASC
		`, groupIDs)
		if err != nil {
			return fmt.Errorf("repository: failed to query order items: %w", err)
		}
		defer itemRows.Close()

		for itemRows.Next() {
			var item Item
			var m catalog.Item
			err := itemRows.Scan(
				&item.ID, &item.GroupID, &item.MerchandiseID, &item.CreatedAt,
				&m.ID, &m.Name, &m.Price, &m.Type, &m.IsAvailable, &m.CreatedAt, &m.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("repository: failed to scan order item: %w", err)
			}
			item.Merchandise = &m
			if g, ok := groupsByID[item.GroupID]; ok {
				g.Items = append(g.Items, item)
			}
		}
		if err := itemRows.Err(); err != nil {
			return fmt.Errorf("repository: error iterating order items: %w", err)
		}
	}

	for _, id := range groupIDs {
		g := groupsByID[id]
		if o, ok := ordersByID[g.OrderID]; ok {
			o.Groups = append(o.Groups, *g)
		}
	}
	return nil
}

func (r *postgresRepository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status OrderStatus) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3
	`, string(status), time.Now().UTC(), orderID)
	if err != nil {
		return fmt.Errorf("repository: failed to update order status for %s: %w", orderID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// UpdateGroupStatus writes the group status unconditionally; backward moves
// are allowed. When the new status is READY, the same transaction locks the
// parent order, re-reads its groups and advances the order to READY iff
// every group is READY and the order is PAID. Cooking completion alone never
// implies payment, so an unpaid order stays ORDERED.
func (r *postgresRepository) UpdateGroupStatus(ctx context.Context, groupID uuid.UUID, status GroupStatus) (change *GroupStatusChange, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Stringer("group_id", groupID).Msg("repository: failed to rollback group status update")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("repository: failed to commit group status update: %w", commitErr)
			change = nil
		}
	}()

	now := time.Now().UTC()

	var orderID uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE order_groups
		SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING order_id
	`, string(status), now, groupID).Scan(&orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("repository: failed to update status for group %s: %w", groupID, err)
	}

	change = &GroupStatusChange{
		OrderID:     orderID,
		GroupID:     groupID,
		GroupStatus: status,
	}

	if status != GroupReady {
		return change, nil
	}

	// Lock the order row so a concurrent group write for the same order
	// serializes here and the group re-read below observes its commit.
	var orderStatus OrderStatus
	var callNum int
	err = tx.QueryRow(ctx, `
		SELECT status, call_num FROM orders WHERE id = $1 FOR UPDATE
	`, orderID).Scan(&orderStatus, &callNum)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to lock order %s: %w", orderID, err)
	}
	change.OrderStatus = orderStatus
	change.OrderCallNum = callNum

	groupRows, err := tx.Query(ctx, `SELECT status FROM order_groups WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query group statuses for order %s: %w", orderID, err)
	}
	defer groupRows.Close()

	groupStatuses := make([]GroupStatus, 0)
	for groupRows.Next() {
		var s GroupStatus
		if err := groupRows.Scan(&s); err != nil {
			return nil, fmt.Errorf("repository: failed to scan group status: %w", err)
		}
		groupStatuses = append(groupStatuses, s)
	}
	if err := groupRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating group statuses: %w", err)
	}
	groupRows.Close()

	if ShouldAdvanceToReady(orderStatus, groupStatuses) {
		_, err = tx.Exec(ctx, `
			UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3
		`, string(StatusReady), now, orderID)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to advance order %s to READY: %w", orderID, err)
		}
		change.OrderStatus = StatusReady
		change.OrderAdvanced = true
	}

	return change, nil
}
