package downtime

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/plant-operations/internal"
	downtimeDatamodel "github.com/frahmantamala/plant-operations/internal/core/datamodel/downtime"
	"github.com/frahmantamala/plant-operations/internal/core/events"
	"github.com/frahmantamala/plant-operations/internal/permission"
	"github.com/frahmantamala/plant-operations/internal/user"
)

type RepositoryAPI interface {
	// List returns rows matching filter whose (category, unit) is one of scopes.
	List(ctx context.Context, filter ListFilter, scopes []permission.Scope) ([]*downtimeDatamodel.Downtime, error)
	GetByID(ctx context.Context, id int64) (*downtimeDatamodel.Downtime, error)
	Create(ctx context.Context, d *downtimeDatamodel.Downtime) error
	Update(ctx context.Context, d *downtimeDatamodel.Downtime) error
	Delete(ctx context.Context, id int64) (bool, error)
}

// PlantUnits confirms that a scope names a known plant unit.
type PlantUnits interface {
	Exists(ctx context.Context, category, unit string) (bool, error)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Service enforces plant_operations access per (category, unit) on every downtime operation.
type Service struct {
	repo       RepositoryAPI
	plantUnits PlantUnits
	publisher  Publisher
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, plantUnits PlantUnits, publisher Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:       repo,
		plantUnits: plantUnits,
		publisher:  publisher,
		logger:     logger,
	}
}

// List returns only records in scopes the caller can read. Asking for an unreadable scope is forbidden.
func (s *Service) List(ctx context.Context, caller *user.User, filter ListFilter) ([]*Downtime, error) {
	checker := caller.Checker()
	if filter.Category != "" && filter.Unit != "" && !checker.CanReadPlant(filter.Category, filter.Unit) {
		permission.ObserveCheck(string(permission.ModulePlantOperations), false)
		return nil, errors.ErrInsufficientPermission
	}

	scopes := checker.ReadablePlantScopes()
	if len(scopes) == 0 {
		return []*Downtime{}, nil
	}

	rows, err := s.repo.List(ctx, filter, scopes)
	if err != nil {
		s.logger.Error("failed to list downtimes", "error", err)
		return nil, errors.NewInternalError("failed to list downtimes", err)
	}

	out := make([]*Downtime, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, caller *user.User, id int64) (*Downtime, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(caller, row.Category, row.Unit, permission.LevelRead); err != nil {
		return nil, err
	}
	return FromDataModel(row), nil
}

func (s *Service) Create(ctx context.Context, caller *user.User, dto DowntimeDTO) (*Downtime, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if err := s.authorize(caller, dto.Category, dto.Unit, permission.LevelWrite); err != nil {
		return nil, err
	}
	if err := s.requirePlantUnit(ctx, dto.Category, dto.Unit); err != nil {
		return nil, err
	}

	now := time.Now()
	d := &Downtime{
		Date:             dto.Date,
		StartTime:        dto.StartTime,
		EndTime:          dto.EndTime,
		Category:         dto.Category,
		Unit:             dto.Unit,
		PIC:              dto.PIC,
		Problem:          dto.Problem,
		Action:           dto.Action,
		CorrectiveAction: dto.CorrectiveAction,
		Status:           Status(dto.Status),
		CreatedBy:        caller.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	row, err := ToDataModel(d)
	if err != nil {
		return nil, errors.NewValidationFieldError("date", "date must use YYYY-MM-DD format", errors.ErrCodeInvalidDate)
	}
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create downtime", "category", d.Category, "unit", d.Unit, "error", err)
		return nil, errors.NewInternalError("failed to create downtime", err)
	}

	s.logger.Info("downtime created", "id", row.ID, "category", row.Category, "unit", row.Unit, "created_by", caller.ID)
	s.publish(ctx, events.NewDowntimeChangedEvent(row.ID, row.Category, row.Unit, events.OperationInsert, &caller.ID))
	return FromDataModel(row), nil
}

// Update replaces the record. Moving it to another unit needs WRITE on both units.
func (s *Service) Update(ctx context.Context, caller *user.User, id int64, dto DowntimeDTO) (*Downtime, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(caller, row.Category, row.Unit, permission.LevelWrite); err != nil {
		return nil, err
	}
	if row.Category != dto.Category || row.Unit != dto.Unit {
		if err := s.authorize(caller, dto.Category, dto.Unit, permission.LevelWrite); err != nil {
			return nil, err
		}
		if err := s.requirePlantUnit(ctx, dto.Category, dto.Unit); err != nil {
			return nil, err
		}
	}

	date, err := time.Parse(dateLayout, dto.Date)
	if err != nil {
		return nil, errors.NewValidationFieldError("date", "date must use YYYY-MM-DD format", errors.ErrCodeInvalidDate)
	}
	row.Date = date
	row.StartTime = dto.StartTime
	row.EndTime = dto.EndTime
	row.Category = dto.Category
	row.Unit = dto.Unit
	row.PIC = dto.PIC
	row.Problem = dto.Problem
	row.Action = dto.Action
	row.CorrectiveAction = dto.CorrectiveAction
	row.Status = dto.Status
	row.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, row); err != nil {
		s.logger.Error("failed to update downtime", "id", id, "error", err)
		return nil, errors.NewInternalError("failed to update downtime", err)
	}

	s.publish(ctx, events.NewDowntimeChangedEvent(row.ID, row.Category, row.Unit, events.OperationUpdate, &caller.ID))
	return FromDataModel(row), nil
}

func (s *Service) Delete(ctx context.Context, caller *user.User, id int64) error {
	row, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(caller, row.Category, row.Unit, permission.LevelWrite); err != nil {
		return err
	}

	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete downtime", "id", id, "error", err)
		return errors.NewInternalError("failed to delete downtime", err)
	}
	if !found {
		return errors.ErrDowntimeNotFound
	}

	s.publish(ctx, events.NewDowntimeChangedEvent(id, row.Category, row.Unit, events.OperationDelete, &caller.ID))
	return nil
}

func (s *Service) load(ctx context.Context, id int64) (*downtimeDatamodel.Downtime, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewInternalError("failed to get downtime", err)
	}
	if row == nil {
		return nil, errors.ErrDowntimeNotFound
	}
	return row, nil
}

func (s *Service) authorize(caller *user.User, category, unit string, level permission.Level) error {
	scope := permission.Scope{Category: category, Unit: unit}
	allowed := caller.Checker().HasPermission(string(permission.ModulePlantOperations), level, &scope)
	permission.ObserveCheck(string(permission.ModulePlantOperations), allowed)
	if !allowed {
		var callerID int64
		if caller != nil {
			callerID = caller.ID
		}
		s.logger.Warn("downtime access denied", "user_id", callerID, "category", category, "unit", unit, "required_level", level)
		return errors.ErrInsufficientPermission
	}
	return nil
}

func (s *Service) requirePlantUnit(ctx context.Context, category, unit string) error {
	if s.plantUnits == nil {
		return nil
	}
	ok, err := s.plantUnits.Exists(ctx, category, unit)
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrPlantUnitNotFound
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}
