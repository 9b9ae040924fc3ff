package activity

import "time"

type ActivityLog struct {
	ID          int64     `gorm:"primaryKey"`
	UserID      *int64    `gorm:"column:user_id;index"`
	Action      string    `gorm:"column:action;not null"`
	Module      string    `gorm:"column:module;not null"`
	EntityID    string    `gorm:"column:entity_id"`
	Description string    `gorm:"column:description"`
	EventID     string    `gorm:"column:event_id;uniqueIndex"`
	CreatedAt   time.Time `gorm:"column:created_at;index"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
