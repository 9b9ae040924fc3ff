package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeUserPermissionsChanged = "user_permissions.changed"
	EventTypePermissionsChanged     = "permissions.changed"
	EventTypeUserChanged            = "user.changed"
	EventTypeDowntimeChanged        = "downtime.changed"
)

// Change operations carried by the events below.
const (
	OperationInsert = "INSERT"
	OperationUpdate = "UPDATE"
	OperationDelete = "DELETE"
)

func newBase(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// UserPermissionsChangedEvent fires on any insert, update or delete of a user_permissions row.
type UserPermissionsChangedEvent struct {
	BaseEvent
	UserID    int64  `json:"user_id"`
	Operation string `json:"operation"`
	ActorID   *int64 `json:"actor_id,omitempty"`
}

func NewUserPermissionsChangedEvent(userID int64, operation string, actorID *int64) *UserPermissionsChangedEvent {
	return &UserPermissionsChangedEvent{
		BaseEvent: newBase(EventTypeUserPermissionsChanged, map[string]interface{}{
			"user_id":   userID,
			"operation": operation,
		}),
		UserID:    userID,
		Operation: operation,
		ActorID:   actorID,
	}
}

// PermissionsChangedEvent fires when a shared permissions row changes. Every holder may be affected.
type PermissionsChangedEvent struct {
	BaseEvent
	PermissionID int64  `json:"permission_id"`
	Operation    string `json:"operation"`
	ActorID      *int64 `json:"actor_id,omitempty"`
}

func NewPermissionsChangedEvent(permissionID int64, operation string, actorID *int64) *PermissionsChangedEvent {
	return &PermissionsChangedEvent{
		BaseEvent: newBase(EventTypePermissionsChanged, map[string]interface{}{
			"permission_id": permissionID,
			"operation":     operation,
		}),
		PermissionID: permissionID,
		Operation:    operation,
		ActorID:      actorID,
	}
}

type UserChangedEvent struct {
	BaseEvent
	UserID    int64  `json:"user_id"`
	Operation string `json:"operation"`
	ActorID   *int64 `json:"actor_id,omitempty"`
}

func NewUserChangedEvent(userID int64, operation string, actorID *int64) *UserChangedEvent {
	return &UserChangedEvent{
		BaseEvent: newBase(EventTypeUserChanged, map[string]interface{}{
			"user_id":   userID,
			"operation": operation,
		}),
		UserID:    userID,
		Operation: operation,
		ActorID:   actorID,
	}
}

type DowntimeChangedEvent struct {
	BaseEvent
	DowntimeID int64  `json:"downtime_id"`
	Category   string `json:"category"`
	Unit       string `json:"unit"`
	Operation  string `json:"operation"`
	ActorID    *int64 `json:"actor_id,omitempty"`
}

func NewDowntimeChangedEvent(downtimeID int64, category, unit, operation string, actorID *int64) *DowntimeChangedEvent {
	return &DowntimeChangedEvent{
		BaseEvent: newBase(EventTypeDowntimeChanged, map[string]interface{}{
			"downtime_id": downtimeID,
			"category":    category,
			"unit":        unit,
			"operation":   operation,
		}),
		DowntimeID: downtimeID,
		Category:   category,
		Unit:       unit,
		Operation:  operation,
		ActorID:    actorID,
	}
}
