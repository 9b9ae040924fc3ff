package permission

import (
	"time"

	"gorm.io/datatypes"
)

// Permission is a reusable grant of one level on one module. PlantUnits lists the
// {category, unit} pairs a plant_operations grant applies to and is null otherwise.
type Permission struct {
	ID              int64          `gorm:"primaryKey"`
	ModuleName      string         `gorm:"column:module_name;not null"`
	PermissionLevel string         `gorm:"column:permission_level;not null"`
	PlantUnits      datatypes.JSON `gorm:"column:plant_units"`
	Description     string         `gorm:"column:description"`
	CreatedAt       time.Time      `gorm:"column:created_at"`
}

func (Permission) TableName() string {
	return "permissions"
}

// UserPermission links a user either to a Permission row or to a full permissions_data document.
type UserPermission struct {
	ID              int64     `gorm:"primaryKey"`
	UserID          int64     `gorm:"column:user_id;not null;index"`
	PermissionID    *int64    `gorm:"column:permission_id;index"`
	PermissionsData *string   `gorm:"column:permissions_data;type:text"`
	GrantedBy       *int64    `gorm:"column:granted_by"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (UserPermission) TableName() string {
	return "user_permissions"
}
