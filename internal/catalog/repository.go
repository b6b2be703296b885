package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrMerchandiseNotFound = errors.New("merchandise not found")

type Repository interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)
	GetMany(ctx context.Context, ids []uuid.UUID) ([]Item, error)
	List(ctx context.Context, available *bool) ([]Item, error)
	ListByType(ctx context.Context, itemType ItemType) ([]Item, error)
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const itemColumns = "id, name, price, type, is_available, created_at, updated_at"

func scanItem(row pgx.Row) (*Item, error) {
	var item Item
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Price,
		&item.Type,
		&item.IsAvailable,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *postgresRepository) Create(ctx context.Context, item *Item) error {
	if item.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate merchandise ID: %w", err)
		}
		item.ID = id
	}

	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	query := `
		INSERT INTO merchandise (id, name, price, type, is_available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		item.ID,
		item.Name,
		item.Price,
		string(item.Type),
		item.IsAvailable,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert merchandise: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM merchandise WHERE id = $1`

	item, err := scanItem(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMerchandiseNotFound
		}
		return nil, fmt.Errorf("repository: failed to select merchandise by id %s: %w", id, err)
	}
	return item, nil
}

// GetMany returns the items that exist for the given ids; unknown ids are
// silently omitted and the caller is expected to diff.
func (r *postgresRepository) GetMany(ctx context.Context, ids []uuid.UUID) ([]Item, error) {
	if len(ids) == 0 {
		return []Item{}, nil
	}

	query := `SELECT ` + itemColumns + ` FROM merchandise WHERE id = ANY($1)`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query merchandise: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

func (r *postgresRepository) List(ctx context.Context, available *bool) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM merchandise`
	args := []any{}
	if available != nil {
		query += ` WHERE is_available = $1`
		args = append(args, *available)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query merchandise list: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

func (r *postgresRepository) ListByType(ctx context.Context, itemType ItemType) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM merchandise WHERE type = $1 ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, string(itemType))
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query merchandise by type %s: %w", itemType, err)
	}
	defer rows.Close()

	return collectItems(rows)
}

func (r *postgresRepository) Update(ctx context.Context, item *Item) error {
	item.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE merchandise
		SET name = $1, price = $2, type = $3, is_available = $4, updated_at = $5
		WHERE id = $6
	`
	cmdTag, err := r.db.Exec(ctx, query,
		item.Name,
		item.Price,
		string(item.Type),
		item.IsAvailable,
		item.UpdatedAt,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to update merchandise %s: %w", item.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrMerchandiseNotFound
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM merchandise WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete merchandise %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrMerchandiseNotFound
	}
	return nil
}

func collectItems(rows pgx.Rows) ([]Item, error) {
	items := make([]Item, 0)
	for rows.Next() {
		var item Item
		err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.Price,
			&item.Type,
			&item.IsAvailable,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan merchandise: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating merchandise: %w", err)
	}
	return items, nil
}
