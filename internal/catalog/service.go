package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

type CreateItemInput struct {
	Name        string   `json:"name"`
	Price       int64    `json:"price"`
	Type        ItemType `json:"type"`
	IsAvailable *bool    `json:"is_available,omitempty"`
}

type UpdateItemInput struct {
	Name        *string   `json:"name,omitempty"`
	Price       *int64    `json:"price,omitempty"`
	Type        *ItemType `json:"type,omitempty"`
	IsAvailable *bool     `json:"is_available,omitempty"`
}

type Service interface {
	CreateItem(ctx context.Context, input CreateItemInput) (*Item, error)
	GetItemByID(ctx context.Context, id uuid.UUID) (*Item, error)
	GetItems(ctx context.Context, ids []uuid.UUID) ([]Item, error)
	ListItems(ctx context.Context, available *bool) ([]Item, error)
	ListItemsByType(ctx context.Context, itemType ItemType) ([]Item, error)
	UpdateItem(ctx context.Context, id uuid.UUID, input UpdateItemInput) (*Item, error)
	SetPrice(ctx context.Context, id uuid.UUID, price int64) (*Item, error)
	ToggleAvailability(ctx context.Context, id uuid.UUID) (*Item, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreateItem(ctx context.Context, input CreateItemInput) (*Item, error) {
	if input.Name == "" {
		return nil, errors.New("service: merchandise name is required")
	}
	if !input.Type.Valid() {
		return nil, fmt.Errorf("service: invalid merchandise type %q", input.Type)
	}

	item := &Item{
		Name:        input.Name,
		Price:       input.Price,
		Type:        input.Type,
		IsAvailable: true,
	}
	if input.IsAvailable != nil {
		item.IsAvailable = *input.IsAvailable
	}

	if err := s.repo.Create(ctx, item); err != nil {
		log.Error().Err(err).Msg("service: failed to create merchandise")
		return nil, fmt.Errorf("service: failed to create merchandise: %w", err)
	}

	log.Info().Stringer("merchandise_id", item.ID).Str("name", item.Name).Msg("service: merchandise created")
	return item, nil
}

func (s *service) GetItemByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrMerchandiseNotFound) {
			return nil, ErrMerchandiseNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch merchandise: %w", err)
	}
	return item, nil
}

func (s *service) GetItems(ctx context.Context, ids []uuid.UUID) ([]Item, error) {
	items, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch merchandise items: %w", err)
	}
	return items, nil
}

func (s *service) ListItems(ctx context.Context, available *bool) ([]Item, error) {
	items, err := s.repo.List(ctx, available)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list merchandise: %w", err)
	}
	return items, nil
}

func (s *service) ListItemsByType(ctx context.Context, itemType ItemType) ([]Item, error) {
	if !itemType.Valid() {
		return nil, fmt.Errorf("service: invalid merchandise type %q", itemType)
	}
	items, err := s.repo.ListByType(ctx, itemType)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list merchandise by type: %w", err)
	}
	return items, nil
}

func (s *service) UpdateItem(ctx context.Context, id uuid.UUID, input UpdateItemInput) (*Item, error) {
	item, err := s.GetItemByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		item.Name = *input.Name
	}
	if input.Price != nil {
		item.Price = *input.Price
	}
	if input.Type != nil {
		if !input.Type.Valid() {
			return nil, fmt.Errorf("service: invalid merchandise type %q", *input.Type)
		}
		item.Type = *input.Type
	}
	if input.IsAvailable != nil {
		item.IsAvailable = *input.IsAvailable
	}

	if err := s.repo.Update(ctx, item); err != nil {
		if errors.Is(err, ErrMerchandiseNotFound) {
			return nil, ErrMerchandiseNotFound
		}
		return nil, fmt.Errorf("service: failed to update merchandise: %w", err)
	}
	return item, nil
}

// SetPrice changes the live price. Already-placed orders resolve prices at
// read time, so this retroactively changes their displayed totals.
func (s *service) SetPrice(ctx context.Context, id uuid.UUID, price int64) (*Item, error) {
	return s.UpdateItem(ctx, id, UpdateItemInput{Price: &price})
}

func (s *service) ToggleAvailability(ctx context.Context, id uuid.UUID) (*Item, error) {
	item, err := s.GetItemByID(ctx, id)
	if err != nil {
		return nil, err
	}
	toggled := !item.IsAvailable
	return s.UpdateItem(ctx, id, UpdateItemInput{IsAvailable: &toggled})
}

func (s *service) DeleteItem(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrMerchandiseNotFound) {
			return ErrMerchandiseNotFound
		}
		return fmt.Errorf("service: failed to delete merchandise: %w", err)
	}
	log.Info().Stringer("merchandise_id", id).Msg("service: merchandise deleted")
	return nil
}
