package downtime

import (
	"strings"
	"time"

	errors "github.com/frahmantamala/plant-operations/internal"
	"github.com/frahmantamala/plant-operations/internal/core/common/validation"
)

// DowntimeDTO is the body of both create and full update.
type DowntimeDTO struct {
	Date             string `json:"date" validate:"required"`
	StartTime        string `json:"start_time" validate:"required"`
	EndTime          string `json:"end_time" validate:"required"`
	Category         string `json:"category" validate:"required,max=100"`
	Unit             string `json:"unit" validate:"required,max=100"`
	PIC              string `json:"pic" validate:"max=100"`
	Problem          string `json:"problem" validate:"required,max=1000"`
	Action           string `json:"action" validate:"max=1000"`
	CorrectiveAction string `json:"corrective_action" validate:"max=1000"`
	Status           string `json:"status"`
}

func (dto *DowntimeDTO) Validate() *errors.AppError {
	dto.Category = strings.TrimSpace(dto.Category)
	dto.Unit = strings.TrimSpace(dto.Unit)
	dto.Problem = strings.TrimSpace(dto.Problem)
	if dto.Status == "" {
		dto.Status = string(StatusOpen)
	}

	if err := validation.Struct(dto); err != nil {
		return err
	}

	date, err := time.Parse(dateLayout, dto.Date)
	if err != nil {
		return errors.NewValidationFieldError("date", "date must use YYYY-MM-DD format", errors.ErrCodeInvalidDate)
	}

	validator := validation.NewValidator()
	validator.Field("status", dto.Status).
		OneOf([]string{string(StatusOpen), string(StatusClose)}, errors.ErrCodeInvalidStatus)
	if err := validator.Validate(); err != nil {
		return err
	}
	return validation.ValidateDowntimeWindow(date, dto.StartTime, dto.EndTime)
}

type ListFilter struct {
	Category string
	Unit     string
	Status   string
	From     *time.Time
	To       *time.Time
}

type DowntimesResponse struct {
	Downtimes []*Downtime `json:"downtimes"`
}
