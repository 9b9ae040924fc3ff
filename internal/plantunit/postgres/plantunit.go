package postgres

import (
	"context"
	"errors"

	plantunitDatamodel "github.com/frahmantamala/plant-operations/internal/core/datamodel/plantunit"
	"github.com/frahmantamala/plant-operations/internal/plantunit"
	"gorm.io/gorm"
)

type PlantUnitRepository struct {
	db *gorm.DB
}

func NewPlantUnitRepository(db *gorm.DB) plantunit.RepositoryAPI {
	return &PlantUnitRepository{db: db}
}

func (r *PlantUnitRepository) List(ctx context.Context, category string, includeInactive bool) ([]*plantunitDatamodel.PlantUnit, error) {
	q := r.db.WithContext(ctx).Model(&plantunitDatamodel.PlantUnit{})
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}

	var units []*plantunitDatamodel.PlantUnit
	err := q.Order("category ASC").Order("unit ASC").Find(&units).Error
	return units, err
}

func (r *PlantUnitRepository) GetByID(ctx context.Context, id int64) (*plantunitDatamodel.PlantUnit, error) {
	var p plantunitDatamodel.PlantUnit
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PlantUnitRepository) GetByScope(ctx context.Context, category, unit string) (*plantunitDatamodel.PlantUnit, error) {
	var p plantunitDatamodel.PlantUnit
	err := r.db.WithContext(ctx).Where("category = ? AND unit = ?", category, unit).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PlantUnitRepository) Create(ctx context.Context, p *plantunitDatamodel.PlantUnit) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PlantUnitRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&plantunitDatamodel.PlantUnit{})
	return res.RowsAffected > 0, res.Error
}
