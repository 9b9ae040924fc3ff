package activity

import (
	"context"
	"fmt"
	"log/slog"

	errors "github.com/frahmantamala/plant-operations/internal"
	activityDatamodel "github.com/frahmantamala/plant-operations/internal/core/datamodel/activity"
	"github.com/frahmantamala/plant-operations/internal/core/events"
)

type RepositoryAPI interface {
	// Insert ignores a row whose event id is already stored.
	Insert(ctx context.Context, row *activityDatamodel.ActivityLog) error
	List(ctx context.Context, filter ListFilter) ([]*activityDatamodel.ActivityLog, error)
}

type ListFilter struct {
	Module string
	UserID *int64
	Limit  int
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Recorder persists one audit row per change notification.
type Recorder struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewRecorder(repo RepositoryAPI, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		repo:   repo,
		logger: logger,
	}
}

func (r *Recorder) Handle(ctx context.Context, event events.Event) error {
	row, ok := FromEvent(event)
	if !ok {
		r.logger.Debug("event not audited", "event_type", event.EventType())
		return nil
	}

	if err := r.repo.Insert(ctx, row); err != nil {
		r.logger.Error("failed to record activity",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"error", err)
		return fmt.Errorf("record activity for %s: %w", event.EventID(), err)
	}
	return nil
}

// RegisterEventHandlers subscribes to every audited event type. Close the subscription to stop recording.
func (r *Recorder) RegisterEventHandlers(bus *events.EventBus) *events.Subscription {
	types := []string{
		events.EventTypeUserPermissionsChanged,
		events.EventTypePermissionsChanged,
		events.EventTypeUserChanged,
		events.EventTypeDowntimeChanged,
	}
	sub := bus.Subscribe(r.Handle, types...)
	r.logger.Info("activity recorder registered", "handlers", types)
	return sub
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// List returns the newest entries first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*ActivityLog, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list activity", "error", err)
		return nil, errors.NewInternalError("failed to list activity", err)
	}

	out := make([]*ActivityLog, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out, nil
}
