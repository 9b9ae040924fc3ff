package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	permissionDatamodel "github.com/frahmantamala/plant-operations/internal/core/datamodel/permission"
	plantunitDatamodel "github.com/frahmantamala/plant-operations/internal/core/datamodel/plantunit"
	userDatamodel "github.com/frahmantamala/plant-operations/internal/core/datamodel/user"
	"github.com/frahmantamala/plant-operations/internal/permission"
	"github.com/frahmantamala/plant-operations/internal/user"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	clearData    bool
	seedPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed plant units, users and permission grants for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		deps, err := initializeDependencies(cmd.Context())
		if err != nil {
			log.Fatalf("failed to init dependencies: %v", err)
		}
		defer deps.Close()

		if err := deps.Gorm.Transaction(func(tx *gorm.DB) error {
			if clearData {
				if err := clearSeedData(tx); err != nil {
					return err
				}
			}
			return seed(tx, deps.Config.Security.BCryptCost)
		}); err != nil {
			log.Fatalf("seeding failed: %v", err)
		}

		fmt.Println("Seed data written successfully")
	},
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing data before seeding")
	seedCmd.Flags().StringVar(&seedPassword, "password", "password", "Password given to every seeded user")
}

var seedPlantUnits = []struct{ Category, Unit, Description string }{
	{"Packing", "Unit1", "Packer line 1"},
	{"Packing", "Unit2", "Packer line 2"},
	{"Milling", "Raw Mill", "Raw material grinding"},
	{"Milling", "Cement Mill", "Finish grinding"},
	{"Kiln", "Kiln 1", "Rotary kiln"},
	{"Utility", "Compressor", "Plant air compressor"},
}

var seedUsers = []struct {
	Username string
	FullName string
	Role     user.Role
}{
	{"superadmin", "Super Administrator", user.RoleSuperAdmin},
	{"admin", "Plant Administrator", user.RoleAdmin},
	{"packing.operator", "Packing Operator", user.RoleOperator},
	{"viewer", "Read-only Viewer", user.RoleGuest},
}

func clearSeedData(tx *gorm.DB) error {
	for _, table := range []string{"activity_logs", "downtimes", "user_permissions", "permissions", "users", "plant_units"} {
		if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
		fmt.Println("Cleared table:", table)
	}
	return nil
}

func seed(tx *gorm.DB, bcryptCost int) error {
	for _, pu := range seedPlantUnits {
		row := plantunitDatamodel.PlantUnit{Category: pu.Category, Unit: pu.Unit, Description: pu.Description, IsActive: true}
		res := tx.Where("category = ? AND unit = ?", pu.Category, pu.Unit).FirstOrCreate(&row)
		if res.Error != nil {
			return fmt.Errorf("seed plant unit %s/%s: %w", pu.Category, pu.Unit, res.Error)
		}
		if res.RowsAffected > 0 {
			fmt.Printf("Seeded plant unit: %s/%s\n", pu.Category, pu.Unit)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	ids := make(map[string]int64, len(seedUsers))
	for _, su := range seedUsers {
		row := userDatamodel.User{
			Username:     su.Username,
			FullName:     su.FullName,
			PasswordHash: string(hash),
			Role:         string(su.Role),
			IsActive:     true,
		}
		res := tx.Where("username = ?", su.Username).FirstOrCreate(&row)
		if res.Error != nil {
			return fmt.Errorf("seed user %s: %w", su.Username, res.Error)
		}
		if res.RowsAffected > 0 {
			fmt.Println("Seeded user:", su.Username)
		} else {
			fmt.Println("user already exists; will ensure permissions:", su.Username)
		}
		ids[su.Username] = row.ID
	}

	// packing.operator gets per-row grants, viewer a permissions_data document.
	dashboardRead, err := ensurePermission(tx, permission.ModuleDashboard, permission.LevelRead, nil, "Dashboard read")
	if err != nil {
		return err
	}
	packingWrite, err := ensurePermission(tx, permission.ModulePlantOperations, permission.LevelWrite, []permission.PlantUnitRef{
		{Category: "Packing", Unit: "Unit1"},
		{Category: "Packing", Unit: "Unit2"},
	}, "Packing lines write")
	if err != nil {
		return err
	}
	for _, pid := range []int64{dashboardRead, packingWrite} {
		if err := ensureAssignment(tx, ids["packing.operator"], pid); err != nil {
			return err
		}
	}

	viewer := permission.NewMatrix()
	viewer.Dashboard = permission.LevelRead
	for _, pu := range seedPlantUnits {
		viewer.PlantOperations.Set(pu.Category, pu.Unit, permission.LevelRead)
	}
	doc, err := permission.EncodeMatrix(viewer)
	if err != nil {
		return fmt.Errorf("encode viewer matrix: %w", err)
	}
	if err := tx.Where("user_id = ? AND permissions_data IS NOT NULL", ids["viewer"]).
		Delete(&permissionDatamodel.UserPermission{}).Error; err != nil {
		return fmt.Errorf("reset viewer matrix: %w", err)
	}
	if err := tx.Create(&permissionDatamodel.UserPermission{UserID: ids["viewer"], PermissionsData: &doc}).Error; err != nil {
		return fmt.Errorf("seed viewer matrix: %w", err)
	}
	fmt.Println("Seeded permission matrix for viewer")

	return nil
}

func ensurePermission(tx *gorm.DB, module permission.Module, level permission.Level, units []permission.PlantUnitRef, desc string) (int64, error) {
	var existing permissionDatamodel.Permission
	err := tx.Where("module_name = ? AND permission_level = ? AND description = ?", string(module), level.String(), desc).
		Take(&existing).Error
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("lookup permission %s: %w", desc, err)
	}

	row := permissionDatamodel.Permission{
		ModuleName:      string(module),
		PermissionLevel: level.String(),
		Description:     desc,
	}
	if len(units) > 0 {
		raw, err := json.Marshal(units)
		if err != nil {
			return 0, err
		}
		row.PlantUnits = datatypes.JSON(raw)
	}
	if err := tx.Create(&row).Error; err != nil {
		return 0, fmt.Errorf("insert permission %s: %w", desc, err)
	}
	fmt.Println("Seeded permission:", desc)
	return row.ID, nil
}

func ensureAssignment(tx *gorm.DB, userID, permissionID int64) error {
	var count int64
	if err := tx.Model(&permissionDatamodel.UserPermission{}).
		Where("user_id = ? AND permission_id = ?", userID, permissionID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	pid := permissionID
	return tx.Create(&permissionDatamodel.UserPermission{UserID: userID, PermissionID: &pid}).Error
}
