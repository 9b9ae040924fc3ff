package permission

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	errors "github.com/frahmantamala/plant-operations/internal"
	permissionDatamodel "github.com/frahmantamala/plant-operations/internal/core/datamodel/permission"
	"github.com/frahmantamala/plant-operations/internal/core/events"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RepositoryAPI interface {
	ListRawRecords(ctx context.Context, userID int64) ([]RawRecord, error)
	ListPermissions(ctx context.Context) ([]*permissionDatamodel.Permission, error)
	GetPermission(ctx context.Context, id int64) (*permissionDatamodel.Permission, error)
	CreatePermission(ctx context.Context, p *permissionDatamodel.Permission) error
	DeletePermission(ctx context.Context, id int64) ([]int64, error)
	HasAssignment(ctx context.Context, userID, permissionID int64) (bool, error)
	Assign(ctx context.Context, up *permissionDatamodel.UserPermission) error
	Revoke(ctx context.Context, userID, permissionID int64) (bool, error)
	ReplaceUserData(ctx context.Context, userID int64, data string, grantedBy *int64) error
	DeleteUserGrants(ctx context.Context, userID int64) error
}

// ErrStaleMatrix is returned by MatrixCache.Set when the user was invalidated after version was read.
var ErrStaleMatrix = stderrors.New("permission matrix is stale")

// MatrixCache stores built matrices per user. Implementations must treat a miss as (zero, false, nil).
// Set only stores m when the user's version still equals the token Version returned before the load.
type MatrixCache interface {
	Get(ctx context.Context, userID int64) (Matrix, bool, error)
	Version(ctx context.Context, userID int64) (string, error)
	Set(ctx context.Context, userID int64, version string, m Matrix) error
	Invalidate(ctx context.Context, userIDs ...int64) error
	InvalidateAll(ctx context.Context) error
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo      RepositoryAPI
	cache     MatrixCache
	publisher Publisher
	builder   *Builder
	logger    *slog.Logger
}

// NewService wires the permission service. cache and publisher may be nil.
func NewService(repo RepositoryAPI, cache MatrixCache, publisher Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		builder:   NewBuilder(logger),
		logger:    logger,
	}
}

// UserMatrix resolves the effective matrix for a user. With no stored grants the role default applies.
func (s *Service) UserMatrix(ctx context.Context, userID int64, role string) (Matrix, error) {
	var (
		version   string
		cacheable bool
	)
	if s.cache != nil {
		m, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.logger.Warn("matrix cache read failed", "user_id", userID, "error", err)
		} else if ok {
			return m, nil
		}

		// the version is read before the grants so a concurrent invalidation blocks the write below
		if version, err = s.cache.Version(ctx, userID); err != nil {
			s.logger.Warn("matrix cache version read failed", "user_id", userID, "error", err)
		} else {
			cacheable = true
		}
	}

	records, err := s.repo.ListRawRecords(ctx, userID)
	if err != nil {
		return NewMatrix(), fmt.Errorf("load permission records: %w", err)
	}

	input := RecordsInput(records...)
	if len(records) == 0 {
		input = RoleInput(role)
	}
	m := s.builder.Build(input)

	if cacheable {
		err := s.cache.Set(ctx, userID, version, m)
		switch {
		case stderrors.Is(err, ErrStaleMatrix):
			s.logger.Debug("matrix changed during build, not cached", "user_id", userID)
		case err != nil:
			s.logger.Warn("matrix cache write failed", "user_id", userID, "error", err)
		}
	}
	return m, nil
}

// Invalidate drops cached matrices, e.g. after a role change.
func (s *Service) Invalidate(ctx context.Context, userIDs ...int64) {
	if s.cache == nil || len(userIDs) == 0 {
		return
	}
	if err := s.cache.Invalidate(ctx, userIDs...); err != nil {
		s.logger.Warn("matrix cache invalidation failed", "user_ids", userIDs, "error", err)
	}
}

func (s *Service) ListPermissions(ctx context.Context) ([]PermissionResponse, error) {
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		s.logger.Error("failed to list permissions", "error", err)
		return nil, errors.NewInternalError("failed to list permissions", err)
	}

	out := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, ToResponse(p))
	}
	return out, nil
}

func (s *Service) CreatePermission(ctx context.Context, dto CreatePermissionDTO) (*PermissionResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	level, _ := ParseLevel(dto.PermissionLevel)
	row := &permissionDatamodel.Permission{
		ModuleName:      strings.TrimSpace(dto.ModuleName),
		PermissionLevel: level.String(),
		Description:     dto.Description,
	}
	if len(dto.PlantUnits) > 0 {
		raw, err := json.Marshal(dto.PlantUnits)
		if err != nil {
			return nil, errors.NewInternalError("failed to encode plant units", err)
		}
		row.PlantUnits = datatypes.JSON(raw)
	}

	if err := s.repo.CreatePermission(ctx, row); err != nil {
		s.logger.Error("failed to create permission", "module", row.ModuleName, "error", err)
		return nil, errors.NewInternalError("failed to create permission", err)
	}

	s.logger.Info("permission created", "permission_id", row.ID, "module", row.ModuleName, "level", row.PermissionLevel)
	s.publish(ctx, events.NewPermissionsChangedEvent(row.ID, events.OperationInsert, errors.ActorIDFromContext(ctx)))

	resp := ToResponse(row)
	return &resp, nil
}

func (s *Service) DeletePermission(ctx context.Context, id int64) error {
	holders, err := s.repo.DeletePermission(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrPermissionNotFound
		}
		s.logger.Error("failed to delete permission", "permission_id", id, "error", err)
		return errors.NewInternalError("failed to delete permission", err)
	}

	s.Invalidate(ctx, holders...)
	s.logger.Info("permission deleted", "permission_id", id, "holders", len(holders))
	s.publish(ctx, events.NewPermissionsChangedEvent(id, events.OperationDelete, errors.ActorIDFromContext(ctx)))
	return nil
}

func (s *Service) AssignToUser(ctx context.Context, userID, permissionID int64) error {
	perm, err := s.repo.GetPermission(ctx, permissionID)
	if err != nil {
		return errors.NewInternalError("failed to load permission", err)
	}
	if perm == nil {
		return errors.ErrPermissionNotFound
	}

	exists, err := s.repo.HasAssignment(ctx, userID, permissionID)
	if err != nil {
		return errors.NewInternalError("failed to check assignment", err)
	}
	if exists {
		return errors.NewConflictError("permission already assigned to user", errors.ErrCodeAlreadyAssigned)
	}

	actor := errors.ActorIDFromContext(ctx)
	if err := s.repo.Assign(ctx, &permissionDatamodel.UserPermission{
		UserID:       userID,
		PermissionID: &permissionID,
		GrantedBy:    actor,
	}); err != nil {
		s.logger.Error("failed to assign permission", "user_id", userID, "permission_id", permissionID, "error", err)
		return errors.NewInternalError("failed to assign permission", err)
	}

	s.Invalidate(ctx, userID)
	s.publish(ctx, events.NewUserPermissionsChangedEvent(userID, events.OperationInsert, actor))
	return nil
}

func (s *Service) RevokeFromUser(ctx context.Context, userID, permissionID int64) error {
	removed, err := s.repo.Revoke(ctx, userID, permissionID)
	if err != nil {
		s.logger.Error("failed to revoke permission", "user_id", userID, "permission_id", permissionID, "error", err)
		return errors.NewInternalError("failed to revoke permission", err)
	}
	if !removed {
		return errors.ErrPermissionNotFound
	}

	s.Invalidate(ctx, userID)
	s.publish(ctx, events.NewUserPermissionsChangedEvent(userID, events.OperationDelete, errors.ActorIDFromContext(ctx)))
	return nil
}

// SetUserMatrix stores m as the user's permissions_data document, replacing any earlier document.
func (s *Service) SetUserMatrix(ctx context.Context, userID int64, m Matrix) error {
	doc, err := EncodeMatrix(m)
	if err != nil {
		return errors.NewInternalError("failed to encode permission matrix", err)
	}

	actor := errors.ActorIDFromContext(ctx)
	if err := s.repo.ReplaceUserData(ctx, userID, doc, actor); err != nil {
		s.logger.Error("failed to store permission matrix", "user_id", userID, "error", err)
		return errors.NewInternalError("failed to store permission matrix", err)
	}

	s.Invalidate(ctx, userID)
	s.logger.Info("permission matrix replaced", "user_id", userID)
	s.publish(ctx, events.NewUserPermissionsChangedEvent(userID, events.OperationUpdate, actor))
	return nil
}

// ClearUser removes every grant a user holds. Used when the user itself is deleted.
func (s *Service) ClearUser(ctx context.Context, userID int64) error {
	if err := s.repo.DeleteUserGrants(ctx, userID); err != nil {
		return fmt.Errorf("delete grants for user %d: %w", userID, err)
	}
	s.Invalidate(ctx, userID)
	s.publish(ctx, events.NewUserPermissionsChangedEvent(userID, events.OperationDelete, errors.ActorIDFromContext(ctx)))
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
