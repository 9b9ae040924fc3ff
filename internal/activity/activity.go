package activity

import (
	"fmt"
	"strconv"
	"time"

	activityDatamodel "github.com/frahmantamala/plant-operations/internal/core/datamodel/activity"
	"github.com/frahmantamala/plant-operations/internal/core/events"
)

const (
	ModulePermissions = "permissions"
	ModuleUsers       = "users"
	ModuleDowntime    = "plant_operations"
)

type ActivityLog struct {
	ID          int64     `json:"id"`
	UserID      *int64    `json:"user_id,omitempty"`
	Action      string    `json:"action"`
	Module      string    `json:"module"`
	EntityID    string    `json:"entity_id,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// FromEvent maps a change notification to an audit row. ok is false for events that are not audited.
func FromEvent(event events.Event) (*activityDatamodel.ActivityLog, bool) {
	row := &activityDatamodel.ActivityLog{
		EventID:   event.EventID(),
		CreatedAt: event.OccurredAt(),
	}

	switch e := event.(type) {
	case *events.UserPermissionsChangedEvent:
		row.UserID = e.ActorID
		row.Action = e.Operation
		row.Module = ModulePermissions
		row.EntityID = strconv.FormatInt(e.UserID, 10)
		row.Description = fmt.Sprintf("grants of user %d changed (%s)", e.UserID, e.Operation)
	case *events.PermissionsChangedEvent:
		row.UserID = e.ActorID
		row.Action = e.Operation
		row.Module = ModulePermissions
		row.EntityID = strconv.FormatInt(e.PermissionID, 10)
		row.Description = fmt.Sprintf("permission %d changed (%s)", e.PermissionID, e.Operation)
	case *events.UserChangedEvent:
		row.UserID = e.ActorID
		row.Action = e.Operation
		row.Module = ModuleUsers
		row.EntityID = strconv.FormatInt(e.UserID, 10)
		row.Description = fmt.Sprintf("user %d changed (%s)", e.UserID, e.Operation)
	case *events.DowntimeChangedEvent:
		row.UserID = e.ActorID
		row.Action = e.Operation
		row.Module = ModuleDowntime
		row.EntityID = strconv.FormatInt(e.DowntimeID, 10)
		row.Description = fmt.Sprintf("downtime %d on %s/%s changed (%s)", e.DowntimeID, e.Category, e.Unit, e.Operation)
	default:
		return nil, false
	}
	return row, true
}

func FromDataModel(a *activityDatamodel.ActivityLog) *ActivityLog {
	return &ActivityLog{
		ID:          a.ID,
		UserID:      a.UserID,
		Action:      a.Action,
		Module:      a.Module,
		EntityID:    a.EntityID,
		Description: a.Description,
		CreatedAt:   a.CreatedAt,
	}
}
