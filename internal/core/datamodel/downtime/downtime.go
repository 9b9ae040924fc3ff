package downtime

import "time"

type Downtime struct {
	ID               int64     `gorm:"primaryKey"`
	Date             time.Time `gorm:"column:date;not null;index"`
	StartTime        string    `gorm:"column:start_time;not null"`
	EndTime          string    `gorm:"column:end_time;not null"`
	Category         string    `gorm:"column:category;not null;index:idx_downtimes_scope"`
	Unit             string    `gorm:"column:unit;not null;index:idx_downtimes_scope"`
	PIC              string    `gorm:"column:pic"`
	Problem          string    `gorm:"column:problem;not null"`
	Action           string    `gorm:"column:action"`
	CorrectiveAction string    `gorm:"column:corrective_action"`
	Status           string    `gorm:"column:status;not null"`
	CreatedBy        int64     `gorm:"column:created_by"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (Downtime) TableName() string {
	return "downtimes"
}
