package plantunit

import "time"

type PlantUnit struct {
	ID          int64     `gorm:"primaryKey"`
	Category    string    `gorm:"column:category;not null;uniqueIndex:idx_plant_units_category_unit"`
	Unit        string    `gorm:"column:unit;not null;uniqueIndex:idx_plant_units_category_unit"`
	Description string    `gorm:"column:description"`
	IsActive    bool      `gorm:"column:is_active;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (PlantUnit) TableName() string {
	return "plant_units"
}
