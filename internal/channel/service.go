package channel

import (
	"context"

	"inkroom/internal/apperr"
)

type Store interface {
	Create(ctx context.Context, name, createdBy string) (*Channel, error)
	GetByID(ctx context.Context, id string) (*Channel, error)
	FindByName(ctx context.Context, name string) (*Channel, error)
	ListForUser(ctx context.Context, userID string) ([]Channel, error)
	AddMember(ctx context.Context, channelID, userID string) (*Member, error)
	ListMembers(ctx context.Context, channelID string) ([]Member, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Create(ctx context.Context, name, createdBy string) (*Channel, error) {
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	return s.store.Create(ctx, name, createdBy)
}

func (s *Service) FindByName(ctx context.Context, name string) (*Channel, error) {
	return s.store.FindByName(ctx, name)
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]Channel, error) {
	return s.store.ListForUser(ctx, userID)
}

func (s *Service) Join(ctx context.Context, channelID, userID string) (*Member, error) {
	if _, err := s.store.GetByID(ctx, channelID); err != nil {
		return nil, err
	}
	return s.store.AddMember(ctx, channelID, userID)
}

func (s *Service) Members(ctx context.Context, channelID string) ([]Member, error) {
	if _, err := s.store.GetByID(ctx, channelID); err != nil {
		return nil, err
	}
	return s.store.ListMembers(ctx, channelID)
}
