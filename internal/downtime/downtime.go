package downtime

import (
	"time"

	downtimeDatamodel "github.com/frahmantamala/plant-operations/internal/core/datamodel/downtime"
	"github.com/frahmantamala/plant-operations/internal/permission"
)

type Status string

const (
	StatusOpen  Status = "Open"
	StatusClose Status = "Close"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// Downtime is one stoppage of a plant unit.
type Downtime struct {
	ID               int64     `json:"id"`
	Date             string    `json:"date"`
	StartTime        string    `json:"start_time"`
	EndTime          string    `json:"end_time"`
	DurationMinutes  int       `json:"duration_minutes"`
	Category         string    `json:"category"`
	Unit             string    `json:"unit"`
	PIC              string    `json:"pic,omitempty"`
	Problem          string    `json:"problem"`
	Action           string    `json:"action,omitempty"`
	CorrectiveAction string    `json:"corrective_action,omitempty"`
	Status           Status    `json:"status"`
	CreatedBy        int64     `json:"created_by"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (d *Downtime) Scope() permission.Scope {
	return permission.Scope{Category: d.Category, Unit: d.Unit}
}

// Duration is the span between start and end. An end before the start wraps past midnight.
func Duration(start, end string) time.Duration {
	s, err := time.Parse(clockLayout, start)
	if err != nil {
		return 0
	}
	e, err := time.Parse(clockLayout, end)
	if err != nil {
		return 0
	}
	d := e.Sub(s)
	if d < 0 {
		d += 24 * time.Hour
	}
	return d
}

func ToDataModel(d *Downtime) (*downtimeDatamodel.Downtime, error) {
	date, err := time.Parse(dateLayout, d.Date)
	if err != nil {
		return nil, err
	}
	return &downtimeDatamodel.Downtime{
		ID:               d.ID,
		Date:             date,
		StartTime:        d.StartTime,
		EndTime:          d.EndTime,
		Category:         d.Category,
		Unit:             d.Unit,
		PIC:              d.PIC,
		Problem:          d.Problem,
		Action:           d.Action,
		CorrectiveAction: d.CorrectiveAction,
		Status:           string(d.Status),
		CreatedBy:        d.CreatedBy,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}, nil
}

func FromDataModel(d *downtimeDatamodel.Downtime) *Downtime {
	return &Downtime{
		ID:               d.ID,
		Date:             d.Date.Format(dateLayout),
		StartTime:        d.StartTime,
		EndTime:          d.EndTime,
		DurationMinutes:  int(Duration(d.StartTime, d.EndTime).Minutes()),
		Category:         d.Category,
		Unit:             d.Unit,
		PIC:              d.PIC,
		Problem:          d.Problem,
		Action:           d.Action,
		CorrectiveAction: d.CorrectiveAction,
		Status:           Status(d.Status),
		CreatedBy:        d.CreatedBy,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}
