package user

import (
	"context"
	"log/slog"
	"strings"
	"time"

	errors "github.com/frahmantamala/plant-operations/internal"
	userDatamodel "github.com/frahmantamala/plant-operations/internal/core/datamodel/user"
	"github.com/frahmantamala/plant-operations/internal/core/events"
	"github.com/frahmantamala/plant-operations/internal/permission"
	"golang.org/x/crypto/bcrypt"
)

type RepositoryAPI interface {
	List(ctx context.Context, filter ListFilter) ([]*userDatamodel.User, error)
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error)
	Create(ctx context.Context, u *userDatamodel.User) error
	Update(ctx context.Context, u *userDatamodel.User) error
	SetActive(ctx context.Context, id int64, active bool) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// PermissionResolver is the slice of the permission service the user service depends on.
type PermissionResolver interface {
	UserMatrix(ctx context.Context, userID int64, role string) (permission.Matrix, error)
	Invalidate(ctx context.Context, userIDs ...int64)
	ClearUser(ctx context.Context, userID int64) error
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo        RepositoryAPI
	permissions PermissionResolver
	publisher   Publisher
	logger      *slog.Logger
	bcryptCost  int
}

func NewService(repo RepositoryAPI, permissions PermissionResolver, publisher Publisher, logger *slog.Logger, bcryptCost int) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:        repo,
		permissions: permissions,
		publisher:   publisher,
		logger:      logger,
		bcryptCost:  bcryptCost,
	}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*User, error) {
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, errors.NewInternalError("failed to list users", err)
	}

	users := make([]*User, 0, len(rows))
	for _, row := range rows {
		users = append(users, FromDataModel(row))
	}
	return users, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewInternalError("failed to get user", err)
	}
	if row == nil {
		return nil, errors.ErrUserNotFound
	}
	return FromDataModel(row), nil
}

// GetWithPermissions loads the user and attaches the matrix built from their stored grants.
func (s *Service) GetWithPermissions(ctx context.Context, id int64) (*User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	m, err := s.permissions.UserMatrix(ctx, u.ID, string(u.Role))
	if err != nil {
		s.logger.Error("failed to resolve permission matrix", "user_id", id, "error", err)
		return nil, errors.NewInternalError("failed to load permissions", err)
	}
	u.Permissions = m
	return u, nil
}

func (s *Service) Create(ctx context.Context, dto CreateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByUsername(ctx, dto.Username)
	if err != nil {
		return nil, errors.NewInternalError("failed to check username", err)
	}
	if existing != nil {
		return nil, errors.NewConflictError("username already taken", errors.ErrCodeDuplicateUsername)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, errors.NewInternalError("failed to hash password", err)
	}

	role, _ := ParseRole(dto.Role)
	now := time.Now()
	row := &userDatamodel.User{
		Username:     dto.Username,
		FullName:     dto.FullName,
		Email:        strings.TrimSpace(dto.Email),
		PasswordHash: string(hash),
		Role:         string(role),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create user", "username", dto.Username, "error", err)
		return nil, errors.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user created", "user_id", row.ID, "username", row.Username, "role", row.Role)
	s.publish(ctx, events.NewUserChangedEvent(row.ID, events.OperationInsert, errors.ActorIDFromContext(ctx)))
	return FromDataModel(row), nil
}

func (s *Service) Update(ctx context.Context, id int64, dto UpdateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewInternalError("failed to get user", err)
	}
	if row == nil {
		return nil, errors.ErrUserNotFound
	}

	roleChanged := false
	if dto.FullName != nil {
		row.FullName = strings.TrimSpace(*dto.FullName)
	}
	if dto.Email != nil {
		row.Email = strings.TrimSpace(*dto.Email)
	}
	if dto.Role != nil {
		role, _ := ParseRole(*dto.Role)
		roleChanged = string(role) != row.Role
		row.Role = string(role)
	}
	if dto.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*dto.Password), s.bcryptCost)
		if err != nil {
			return nil, errors.NewInternalError("failed to hash password", err)
		}
		row.PasswordHash = string(hash)
	}
	row.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, row); err != nil {
		s.logger.Error("failed to update user", "user_id", id, "error", err)
		return nil, errors.NewInternalError("failed to update user", err)
	}

	if roleChanged {
		// a cached matrix may be the old role default
		s.permissions.Invalidate(ctx, id)
	}
	s.publish(ctx, events.NewUserChangedEvent(id, events.OperationUpdate, errors.ActorIDFromContext(ctx)))
	return FromDataModel(row), nil
}

func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	found, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		s.logger.Error("failed to change user status", "user_id", id, "active", active, "error", err)
		return errors.NewInternalError("failed to change user status", err)
	}
	if !found {
		return errors.ErrUserNotFound
	}

	s.logger.Info("user status changed", "user_id", id, "active", active)
	s.publish(ctx, events.NewUserChangedEvent(id, events.OperationUpdate, errors.ActorIDFromContext(ctx)))
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if actor := errors.ActorIDFromContext(ctx); actor != nil && *actor == id {
		return errors.NewValidationError("cannot delete your own account", errors.ErrCodeValidationFailed)
	}

	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	if err := s.permissions.ClearUser(ctx, id); err != nil {
		s.logger.Error("failed to clear user grants", "user_id", id, "error", err)
		return errors.NewInternalError("failed to delete user", err)
	}

	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete user", "user_id", id, "error", err)
		return errors.NewInternalError("failed to delete user", err)
	}
	if !found {
		return errors.ErrUserNotFound
	}

	s.publish(ctx, events.NewUserChangedEvent(id, events.OperationDelete, errors.ActorIDFromContext(ctx)))
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
