package postgres

import (
	"context"

	"github.com/frahmantamala/plant-operations/internal/activity"
	activityDatamodel "github.com/frahmantamala/plant-operations/internal/core/datamodel/activity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) activity.RepositoryAPI {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Insert(ctx context.Context, row *activityDatamodel.ActivityLog) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(row).Error
}

func (r *ActivityRepository) List(ctx context.Context, filter activity.ListFilter) ([]*activityDatamodel.ActivityLog, error) {
	q := r.db.WithContext(ctx).Model(&activityDatamodel.ActivityLog{})
	if filter.Module != "" {
		q = q.Where("module = ?", filter.Module)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}

	var rows []*activityDatamodel.ActivityLog
	err := q.Order("created_at DESC").Order("id DESC").Limit(filter.Limit).Find(&rows).Error
	return rows, err
}
