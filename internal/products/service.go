package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is the read-only catalog surface.
type Service interface {
	ListProducts(ctx context.Context, filter Filter) (*ListResult, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error)
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
}

// ListResult carries the filtered products plus the brand facet of the unfiltered catalog.
type ListResult struct {
	Products []Product `json:"products"`
	Brands   []string  `json:"brands"`
}

type catalogRepository interface {
	ListActive(ctx context.Context) ([]models.Product, error)
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
}

type ServiceParams struct {
	Repo   catalogRepository
	Logger *logger.Logger
}

type service struct {
	repo catalogRepository
	logg *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: params.Repo, logg: params.Logger}, nil
}

func (s *service) ListProducts(ctx context.Context, filter Filter) (*ListResult, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load products")
	}
	all := FromRecords(rows)
	return &ListResult{
		Products: Apply(all, filter),
		Brands:   Brands(all),
	}, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	row, err := s.repo.FindActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load product")
	}
	out := FromRecord(*row)
	return &out, nil
}

func (s *service) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error) {
	rows, err := s.repo.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load products")
	}
	out := make(map[uuid.UUID]Product, len(rows))
	for _, row := range rows {
		out[row.ID] = FromRecord(row)
	}
	return out, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, categoryFromRecord(row))
	}
	return out, nil
}
