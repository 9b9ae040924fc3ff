package user

import (
	"strings"

	errors "github.com/frahmantamala/plant-operations/internal"
	"github.com/frahmantamala/plant-operations/internal/core/common/validation"
	"github.com/frahmantamala/plant-operations/internal/permission"
)

type CreateUserDTO struct {
	Username string `json:"username" validate:"required"`
	FullName string `json:"full_name" validate:"required,max=120"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required"`
}

func (dto *CreateUserDTO) Validate() *errors.AppError {
	dto.Username = strings.TrimSpace(dto.Username)
	dto.FullName = strings.TrimSpace(dto.FullName)

	if err := validation.Struct(dto); err != nil {
		return err
	}
	if err := validation.ValidateUsername(dto.Username); err != nil {
		return err
	}
	if err := validation.ValidatePassword(dto.Password); err != nil {
		return err
	}
	if _, ok := ParseRole(dto.Role); !ok {
		return errors.NewValidationFieldError("role", "unknown role "+dto.Role, errors.ErrCodeInvalidRole)
	}
	return nil
}

// UpdateUserDTO changes only the fields that are present.
type UpdateUserDTO struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,max=120"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Password *string `json:"password,omitempty"`
	Role     *string `json:"role,omitempty"`
}

func (dto *UpdateUserDTO) Validate() *errors.AppError {
	if err := validation.Struct(dto); err != nil {
		return err
	}
	if dto.FullName != nil && strings.TrimSpace(*dto.FullName) == "" {
		return errors.NewValidationFieldError("full_name", "full_name cannot be empty", errors.ErrCodeValidationFailed)
	}
	if dto.Password != nil {
		if err := validation.ValidatePassword(*dto.Password); err != nil {
			return err
		}
	}
	if dto.Role != nil {
		if _, ok := ParseRole(*dto.Role); !ok {
			return errors.NewValidationFieldError("role", "unknown role "+*dto.Role, errors.ErrCodeInvalidRole)
		}
	}
	return nil
}

type ListFilter struct {
	Role   string
	Active *bool
	Search string
}

type UsersResponse struct {
	Users []*User `json:"users"`
}

type PermissionsResponse struct {
	UserID      int64             `json:"user_id"`
	Role        Role              `json:"role"`
	Permissions permission.Matrix `json:"permissions"`
}
