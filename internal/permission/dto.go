package permission

import (
	"encoding/json"
	"time"

	errors "github.com/frahmantamala/plant-operations/internal"
	"github.com/frahmantamala/plant-operations/internal/core/common/validation"
	permissionDatamodel "github.com/frahmantamala/plant-operations/internal/core/datamodel/permission"
)

type CreatePermissionDTO struct {
	ModuleName      string         `json:"module_name" validate:"required"`
	PermissionLevel string         `json:"permission_level" validate:"required"`
	PlantUnits      []PlantUnitRef `json:"plant_units,omitempty" validate:"omitempty,dive"`
	Description     string         `json:"description" validate:"max=255"`
}

func (dto CreatePermissionDTO) Validate() *errors.AppError {
	if err := validation.Struct(dto); err != nil {
		return err
	}

	module, ok := ParseModule(dto.ModuleName)
	if !ok {
		return errors.NewValidationFieldError("module_name", "unknown module "+dto.ModuleName, errors.ErrCodeInvalidModule)
	}
	if lvl, ok := ParseLevel(dto.PermissionLevel); !ok || lvl == LevelNone {
		return errors.NewValidationFieldError("permission_level", "permission_level must be READ, WRITE or ADMIN", errors.ErrCodeInvalidLevel)
	}

	if module == ModulePlantOperations && len(dto.PlantUnits) == 0 {
		return errors.NewValidationFieldError("plant_units", "plant_units is required for plant_operations", errors.ErrCodeInvalidScope)
	}
	if module != ModulePlantOperations && len(dto.PlantUnits) > 0 {
		return errors.NewValidationFieldError("plant_units", "plant_units only applies to plant_operations", errors.ErrCodeInvalidScope)
	}
	return nil
}

type PermissionResponse struct {
	ID              int64          `json:"id"`
	ModuleName      string         `json:"module_name"`
	PermissionLevel string         `json:"permission_level"`
	PlantUnits      []PlantUnitRef `json:"plant_units"`
	Description     string         `json:"description,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

type PermissionsResponse struct {
	Permissions []PermissionResponse `json:"permissions"`
}

func ToResponse(p *permissionDatamodel.Permission) PermissionResponse {
	resp := PermissionResponse{
		ID:              p.ID,
		ModuleName:      p.ModuleName,
		PermissionLevel: p.PermissionLevel,
		Description:     p.Description,
		CreatedAt:       p.CreatedAt,
	}
	if len(p.PlantUnits) > 0 {
		var refs []PlantUnitRef
		if err := json.Unmarshal(p.PlantUnits, &refs); err == nil {
			resp.PlantUnits = refs
		}
	}
	return resp
}

// MatrixResponse wraps a user's effective matrix for the admin API.
type MatrixResponse struct {
	UserID      int64  `json:"user_id"`
	Permissions Matrix `json:"permissions"`
}
