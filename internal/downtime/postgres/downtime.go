package postgres

import (
	"context"
	"errors"
	"strings"

	downtimeDatamodel "github.com/frahmantamala/plant-operations/internal/core/datamodel/downtime"
	"github.com/frahmantamala/plant-operations/internal/downtime"
	"github.com/frahmantamala/plant-operations/internal/permission"
	"gorm.io/gorm"
)

type DowntimeRepository struct {
	db *gorm.DB
}

func NewDowntimeRepository(db *gorm.DB) downtime.RepositoryAPI {
	return &DowntimeRepository{db: db}
}

func (r *DowntimeRepository) List(ctx context.Context, filter downtime.ListFilter, scopes []permission.Scope) ([]*downtimeDatamodel.Downtime, error) {
	var rows []*downtimeDatamodel.Downtime
	if len(scopes) == 0 {
		return rows, nil
	}

	clauses := make([]string, 0, len(scopes))
	args := make([]interface{}, 0, len(scopes)*2)
	for _, s := range scopes {
		clauses = append(clauses, "(category = ? AND unit = ?)")
		args = append(args, s.Category, s.Unit)
	}

	q := r.db.WithContext(ctx).
		Model(&downtimeDatamodel.Downtime{}).
		Where(strings.Join(clauses, " OR "), args...)
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Unit != "" {
		q = q.Where("unit = ?", filter.Unit)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		q = q.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("date <= ?", *filter.To)
	}

	err := q.Order("date DESC").Order("start_time DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

func (r *DowntimeRepository) GetByID(ctx context.Context, id int64) (*downtimeDatamodel.Downtime, error) {
	var d downtimeDatamodel.Downtime
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (r *DowntimeRepository) Create(ctx context.Context, d *downtimeDatamodel.Downtime) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DowntimeRepository) Update(ctx context.Context, d *downtimeDatamodel.Downtime) error {
	return r.db.WithContext(ctx).Save(d).Error
}

func (r *DowntimeRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&downtimeDatamodel.Downtime{})
	return res.RowsAffected > 0, res.Error
}
