package plantunit

import (
	"strings"

	errors "github.com/frahmantamala/plant-operations/internal"
	"github.com/frahmantamala/plant-operations/internal/core/common/validation"
)

type CreatePlantUnitDTO struct {
	Category    string `json:"category" validate:"required,max=100"`
	Unit        string `json:"unit" validate:"required,max=100"`
	Description string `json:"description" validate:"max=255"`
}

func (dto *CreatePlantUnitDTO) Validate() *errors.AppError {
	dto.Category = strings.TrimSpace(dto.Category)
	dto.Unit = strings.TrimSpace(dto.Unit)
	dto.Description = strings.TrimSpace(dto.Description)

	if err := validation.Struct(dto); err != nil {
		return err
	}
	return validation.ValidatePlantScope(dto.Category, dto.Unit)
}

type PlantUnitsResponse struct {
	PlantUnits []*PlantUnit `json:"plant_units"`
}

type CategoriesResponse struct {
	Categories []Category `json:"categories"`
}
