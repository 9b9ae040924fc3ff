package permission_test

import (
	"github.com/frahmantamala/plant-operations/internal/permission"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type subject struct {
	matrix permission.Matrix
}

func (s subject) PermissionMatrix() permission.Matrix { return s.matrix.Clone() }

var _ = Describe("Checker", func() {
	var matrix permission.Matrix

	BeforeEach(func() {
		matrix = permission.NewMatrix()
		matrix.Dashboard = permission.LevelWrite
		matrix.Inspection = permission.LevelRead
		matrix.PlantOperations.Set("Packing", "Unit1", permission.LevelWrite)
		matrix.PlantOperations.Set("Packing", "Unit2", permission.LevelRead)
		matrix.PlantOperations.Set("Kiln", "K1", permission.LevelNone)
	})

	Context("scalar modules", func() {
		It("should allow lower levels than the stored one", func() {
			checker := permission.NewChecker(matrix)
			Expect(checker.HasPermission("dashboard", permission.LevelRead, nil)).To(BeTrue())
			Expect(checker.HasPermission("dashboard", permission.LevelWrite, nil)).To(BeTrue())
			Expect(checker.HasPermission("dashboard", permission.LevelAdmin, nil)).To(BeFalse())
		})

		It("should deny READ when the stored level is NONE", func() {
			checker := permission.NewChecker(permission.NewMatrix())
			Expect(checker.HasPermission("dashboard", permission.LevelRead, nil)).To(BeFalse())
		})

		It("should always allow NONE", func() {
			checker := permission.NewChecker(permission.NewMatrix())
			Expect(checker.HasPermission("project_management", permission.LevelNone, nil)).To(BeTrue())
		})

		It("should ignore the scope for scalar modules", func() {
			checker := permission.NewChecker(matrix)
			Expect(checker.HasPermission("inspection", permission.LevelRead, &permission.Scope{Category: "x", Unit: "y"})).To(BeTrue())
			Expect(checker.CanWrite(permission.ModuleInspection)).To(BeFalse())
		})
	})

	Context("plant_operations with a scope", func() {
		It("should compare the scoped level", func() {
			checker := permission.NewChecker(matrix)
			Expect(checker.CanWritePlant("Packing", "Unit1")).To(BeTrue())
			Expect(checker.CanReadPlant("Packing", "Unit2")).To(BeTrue())
			Expect(checker.CanWritePlant("Packing", "Unit2")).To(BeFalse())
		})

		It("should default to NONE on a missing category or unit", func() {
			checker := permission.NewChecker(matrix)
			Expect(checker.CanReadPlant("Raw Mill", "RM1")).To(BeFalse())
			Expect(checker.CanReadPlant("Packing", "Unit9")).To(BeFalse())
			Expect(checker.CanReadPlant("Kiln", "K1")).To(BeFalse())
		})
	})

	Context("plant_operations without a scope", func() {
		It("should allow when any scope satisfies the level", func() {
			checker := permission.NewChecker(matrix)
			Expect(checker.HasPermission("plant_operations", permission.LevelRead, nil)).To(BeTrue())
			Expect(checker.HasPermission("plant_operations", permission.LevelWrite, nil)).To(BeTrue())
			Expect(checker.HasPermission("plant_operations", permission.LevelAdmin, nil)).To(BeFalse())
		})

		It("should deny on an empty plant map", func() {
			checker := permission.NewChecker(permission.NewMatrix())
			Expect(checker.HasPermission("plant_operations", permission.LevelRead, nil)).To(BeFalse())
		})
	})

	Context("default deny", func() {
		It("should deny unknown modules", func() {
			checker := permission.NewChecker(matrix)
			Expect(checker.HasPermission("silo_capacity", permission.LevelNone, nil)).To(BeFalse())
			Expect(checker.HasPermission("", permission.LevelRead, nil)).To(BeFalse())
		})

		It("should deny everything on a nil checker", func() {
			var checker *permission.Checker
			Expect(checker.HasPermission("dashboard", permission.LevelNone, nil)).To(BeFalse())
			Expect(checker.CanReadPlant("Packing", "Unit1")).To(BeFalse())
			Expect(checker.ReadablePlantScopes()).To(BeEmpty())
		})

		It("should survive a matrix with a nil plant map", func() {
			checker := permission.NewChecker(permission.Matrix{Dashboard: permission.LevelRead})
			Expect(checker.CanRead(permission.ModuleDashboard)).To(BeTrue())
			Expect(checker.HasPermission("plant_operations", permission.LevelRead, nil)).To(BeFalse())
			Expect(checker.CanReadPlant("Packing", "Unit1")).To(BeFalse())
		})
	})

	Context("required levels outside the order", func() {
		It("should deny lowercase, empty and unknown levels on scalar modules", func() {
			checker := permission.NewChecker(permission.NewMatrix())
			for _, required := range []permission.Level{"write", "", "BOGUS"} {
				Expect(checker.HasPermission("dashboard", required, nil)).To(BeFalse(), "required %q", required)
			}

			checker = permission.NewChecker(matrix)
			Expect(checker.HasPermission("dashboard", permission.Level("read"), nil)).To(BeFalse())
		})

		It("should deny them on plant_operations with and without a scope", func() {
			checker := permission.NewChecker(matrix)
			scope := &permission.Scope{Category: "Packing", Unit: "Unit1"}
			for _, required := range []permission.Level{"write", "", "BOGUS"} {
				Expect(checker.HasPermission("plant_operations", required, scope)).To(BeFalse(), "required %q", required)
				Expect(checker.HasPermission("plant_operations", required, nil)).To(BeFalse(), "required %q", required)
			}
		})
	})

	It("should list readable plant scopes in order", func() {
		checker := permission.CheckerFor(subject{matrix: matrix})
		Expect(checker.ReadablePlantScopes()).To(Equal([]permission.Scope{
			{Category: "Packing", Unit: "Unit1"},
			{Category: "Packing", Unit: "Unit2"},
		}))
	})

	It("should not be affected by later changes to the source matrix", func() {
		checker := permission.NewChecker(matrix)
		matrix.PlantOperations.Set("Packing", "Unit1", permission.LevelNone)
		Expect(checker.CanWritePlant("Packing", "Unit1")).To(BeTrue())
	})

	It("should own the subject's copy", func() {
		checker := permission.CheckerFor(subject{matrix: matrix})
		matrix.Dashboard = permission.LevelNone
		matrix.PlantOperations.Set("Packing", "Unit1", permission.LevelNone)

		Expect(checker.CanWrite(permission.ModuleDashboard)).To(BeTrue())
		Expect(checker.CanWritePlant("Packing", "Unit1")).To(BeTrue())
	})
})
