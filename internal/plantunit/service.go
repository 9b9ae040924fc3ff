package plantunit

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/plant-operations/internal"
	plantunitDatamodel "github.com/frahmantamala/plant-operations/internal/core/datamodel/plantunit"
)

type RepositoryAPI interface {
	List(ctx context.Context, category string, includeInactive bool) ([]*plantunitDatamodel.PlantUnit, error)
	GetByID(ctx context.Context, id int64) (*plantunitDatamodel.PlantUnit, error)
	GetByScope(ctx context.Context, category, unit string) (*plantunitDatamodel.PlantUnit, error)
	Create(ctx context.Context, p *plantunitDatamodel.PlantUnit) error
	Delete(ctx context.Context, id int64) (bool, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// List returns active units, optionally narrowed to one category.
func (s *Service) List(ctx context.Context, category string) ([]*PlantUnit, error) {
	rows, err := s.repo.List(ctx, category, false)
	if err != nil {
		s.logger.Error("failed to list plant units", "error", err)
		return nil, errors.NewInternalError("failed to list plant units", err)
	}

	units := make([]*PlantUnit, 0, len(rows))
	for _, row := range rows {
		units = append(units, FromDataModel(row))
	}
	return units, nil
}

func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	units, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}
	return GroupByCategory(units), nil
}

func (s *Service) Create(ctx context.Context, dto CreatePlantUnitDTO) (*PlantUnit, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByScope(ctx, dto.Category, dto.Unit)
	if err != nil {
		return nil, errors.NewInternalError("failed to check plant unit", err)
	}
	if existing != nil {
		return nil, errors.NewConflictError("plant unit already exists", errors.ErrCodeDuplicatePlantUnit)
	}

	now := time.Now()
	row := &plantunitDatamodel.PlantUnit{
		Category:    dto.Category,
		Unit:        dto.Unit,
		Description: dto.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create plant unit", "category", dto.Category, "unit", dto.Unit, "error", err)
		return nil, errors.NewInternalError("failed to create plant unit", err)
	}

	s.logger.Info("plant unit created", "id", row.ID, "category", row.Category, "unit", row.Unit)
	return FromDataModel(row), nil
}

// Delete retires the unit. Grants that name it stay in place and simply stop matching any record.
func (s *Service) Delete(ctx context.Context, id int64) error {
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete plant unit", "id", id, "error", err)
		return errors.NewInternalError("failed to delete plant unit", err)
	}
	if !found {
		return errors.ErrPlantUnitNotFound
	}
	s.logger.Info("plant unit deleted", "id", id)
	return nil
}

// Exists reports whether (category, unit) is an active plant unit.
func (s *Service) Exists(ctx context.Context, category, unit string) (bool, error) {
	row, err := s.repo.GetByScope(ctx, category, unit)
	if err != nil {
		return false, errors.NewInternalError("failed to check plant unit", err)
	}
	return row != nil && row.IsActive, nil
}
