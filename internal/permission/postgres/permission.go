package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	permissionDatamodel "github.com/frahmantamala/plant-operations/internal/core/datamodel/permission"
	"github.com/frahmantamala/plant-operations/internal/permission"
	"gorm.io/gorm"
)

type PermissionRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewPermissionRepository(db *gorm.DB, logger *slog.Logger) permission.RepositoryAPI {
	if logger == nil {
		logger = slog.Default()
	}
	return &PermissionRepository{db: db, logger: logger}
}

type recordRow struct {
	ID              int64
	PermissionsData *string
	ModuleName      *string
	PermissionLevel *string
	PlantUnits      []byte
}

// ListRawRecords returns the user's grants in insertion order. Rows that fail to decode are logged and dropped.
func (r *PermissionRepository) ListRawRecords(ctx context.Context, userID int64) ([]permission.RawRecord, error) {
	var rows []recordRow
	err := r.db.WithContext(ctx).
		Table("user_permissions AS up").
		Select("up.id, up.permissions_data, p.module_name, p.permission_level, p.plant_units").
		Joins("LEFT JOIN permissions p ON p.id = up.permission_id").
		Where("up.user_id = ?", userID).
		Order("up.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list raw records for user %d: %w", userID, err)
	}

	records := make([]permission.RawRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := permission.DecodeRecord(permission.StoredRecord{
			PermissionsData: row.PermissionsData,
			ModuleName:      deref(row.ModuleName),
			PermissionLevel: deref(row.PermissionLevel),
			PlantUnits:      row.PlantUnits,
		})
		if err != nil {
			r.logger.Warn("dropping undecodable permission record",
				"user_id", userID,
				"user_permission_id", row.ID,
				"error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *PermissionRepository) ListPermissions(ctx context.Context) ([]*permissionDatamodel.Permission, error) {
	var perms []*permissionDatamodel.Permission
	err := r.db.WithContext(ctx).Order("module_name ASC, id ASC").Find(&perms).Error
	return perms, err
}

func (r *PermissionRepository) GetPermission(ctx context.Context, id int64) (*permissionDatamodel.Permission, error) {
	var p permissionDatamodel.Permission
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PermissionRepository) CreatePermission(ctx context.Context, p *permissionDatamodel.Permission) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// DeletePermission removes the permission and every assignment of it, returning the affected user ids.
func (r *PermissionRepository) DeletePermission(ctx context.Context, id int64) ([]int64, error) {
	var holders []int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&permissionDatamodel.UserPermission{}).
			Where("permission_id = ?", id).
			Distinct().
			Pluck("user_id", &holders).Error; err != nil {
			return err
		}
		if err := tx.Where("permission_id = ?", id).Delete(&permissionDatamodel.UserPermission{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&permissionDatamodel.Permission{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return holders, nil
}

func (r *PermissionRepository) HasAssignment(ctx context.Context, userID, permissionID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&permissionDatamodel.UserPermission{}).
		Where("user_id = ? AND permission_id = ?", userID, permissionID).
		Count(&count).Error
	return count > 0, err
}

func (r *PermissionRepository) Assign(ctx context.Context, up *permissionDatamodel.UserPermission) error {
	return r.db.WithContext(ctx).Create(up).Error
}

func (r *PermissionRepository) Revoke(ctx context.Context, userID, permissionID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND permission_id = ?", userID, permissionID).
		Delete(&permissionDatamodel.UserPermission{})
	return res.RowsAffected > 0, res.Error
}

// ReplaceUserData swaps the user's permissions_data documents for a single new one. Legacy rows stay.
func (r *PermissionRepository) ReplaceUserData(ctx context.Context, userID int64, data string, grantedBy *int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND permissions_data IS NOT NULL", userID).
			Delete(&permissionDatamodel.UserPermission{}).Error; err != nil {
			return err
		}
		return tx.Create(&permissionDatamodel.UserPermission{
			UserID:          userID,
			PermissionsData: &data,
			GrantedBy:       grantedBy,
		}).Error
	})
}

func (r *PermissionRepository) DeleteUserGrants(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&permissionDatamodel.UserPermission{}).Error
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
