package profiles

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/validate"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service reads and edits the signed-in shopper's profile.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*Profile, error)
	Update(ctx context.Context, userID uuid.UUID, input UpdateInput) (*Profile, error)
	IsComplete(ctx context.Context, userID uuid.UUID) (bool, error)
}

type profileRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	Update(ctx context.Context, id uuid.UUID, columns map[string]any) (*models.Profile, error)
}

type service struct {
	repo profileRepository
}

func NewService(repo profileRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	row, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, mapRepoErr(err, "load profile")
	}
	return FromModel(row), nil
}

func (s *service) Update(ctx context.Context, userID uuid.UUID, input UpdateInput) (*Profile, error) {
	if err := validate.Struct(&input); err != nil {
		return nil, err
	}
	row, err := s.repo.Update(ctx, userID, input.columns())
	if err != nil {
		return nil, mapRepoErr(err, "update profile")
	}
	return FromModel(row), nil
}

func (s *service) IsComplete(ctx context.Context, userID uuid.UUID) (bool, error) {
	row, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	return IsComplete(row), nil
}

func mapRepoErr(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
