package permission_test

import (
	"log/slog"
	"os"

	"github.com/frahmantamala/plant-operations/internal/permission"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func strPtr(s string) *string { return &s }

var _ = Describe("BuildMatrix", func() {
	expectDefault := func(m permission.Matrix) {
		Expect(m.Dashboard).To(Equal(permission.LevelNone))
		Expect(m.Inspection).To(Equal(permission.LevelNone))
		Expect(m.ProjectManagement).To(Equal(permission.LevelNone))
		Expect(m.PlantOperations).NotTo(BeNil())
		Expect(m.PlantOperations).To(BeEmpty())
	}

	Context("when there is no usable input", func() {
		It("should return the default matrix for no input", func() {
			expectDefault(permission.BuildMatrix(permission.NoInput()))
		})

		It("should return the default matrix for the zero Input", func() {
			expectDefault(permission.BuildMatrix(permission.Input{}))
		})

		It("should return the default matrix for an empty record list", func() {
			m := permission.BuildMatrix(permission.RecordsInput())
			expectDefault(m)
			Expect(m.Equal(permission.NewMatrix())).To(BeTrue())
		})

		It("should return the default matrix when every record is malformed", func() {
			m := permission.BuildMatrix(permission.RecordsInput(
				permission.DataRecord{Raw: "{not json"},
				permission.DataRecord{Raw: "null"},
				permission.DataRecord{Raw: "[1,2]"},
				permission.LegacyRecord{ModuleName: "reports", Level: permission.LevelWrite},
				nil,
			))
			expectDefault(m)
		})
	})

	Context("with a role name", func() {
		DescribeTable("grants dashboard READ only to admin and operator roles",
			func(role string, expected permission.Level) {
				m := permission.BuildMatrix(permission.RoleInput(role))
				Expect(m.Dashboard).To(Equal(expected))
				Expect(m.Inspection).To(Equal(permission.LevelNone))
				Expect(m.ProjectManagement).To(Equal(permission.LevelNone))
				Expect(m.PlantOperations).To(BeEmpty())
			},
			Entry("super admin", "Super Admin", permission.LevelRead),
			Entry("lower-case admin", "admin", permission.LevelRead),
			Entry("site admin", "Admin Tonasa 2", permission.LevelRead),
			Entry("operator", "OPERATOR", permission.LevelRead),
			Entry("guest", "Guest", permission.LevelNone),
			Entry("empty", "", permission.LevelNone),
		)
	})

	Context("with legacy records", func() {
		It("should assign a scalar module level", func() {
			m := permission.BuildMatrix(permission.RecordsInput(
				permission.LegacyRecord{ModuleName: "dashboard", Level: permission.LevelRead},
			))
			Expect(m.Dashboard).To(Equal(permission.LevelRead))
		})

		It("should expand plant units into the plant_operations map", func() {
			m := permission.BuildMatrix(permission.RecordsInput(
				permission.LegacyRecord{
					ModuleName: "plant_operations",
					Level:      permission.LevelWrite,
					PlantUnits: []permission.PlantUnitRef{
						{Category: "Packing", Unit: "Unit1"},
						{Category: "Packing", Unit: "Unit2"},
					},
				},
			))
			Expect(m.PlantOperations["Packing"]["Unit1"]).To(Equal(permission.LevelWrite))
			Expect(m.PlantOperations["Packing"]["Unit2"]).To(Equal(permission.LevelWrite))
		})

		It("should leave plant_operations empty when plant units are null", func() {
			m := permission.BuildMatrix(permission.RecordsInput(
				permission.LegacyRecord{ModuleName: "plant_operations", Level: permission.LevelWrite},
			))
			Expect(m.PlantOperations).To(BeEmpty())
		})

		It("should merge plant units across records and keep other categories", func() {
			m := permission.BuildMatrix(permission.RecordsInput(
				permission.LegacyRecord{
					ModuleName: "plant_operations",
					Level:      permission.LevelRead,
					PlantUnits: []permission.PlantUnitRef{{Category: "Cement Mill", Unit: "CM1"}},
				},
				permission.LegacyRecord{
					ModuleName: "plant_operations",
					Level:      permission.LevelWrite,
					PlantUnits: []permission.PlantUnitRef{{Category: "Packing", Unit: "Unit1"}},
				},
			))
			Expect(m.PlantOperations).To(HaveLen(2))
			Expect(m.PlantLevel("Cement Mill", "CM1")).To(Equal(permission.LevelRead))
			Expect(m.PlantLevel("Packing", "Unit1")).To(Equal(permission.LevelWrite))
		})

		It("should apply last-write-wins in input order", func() {
			m := permission.BuildMatrix(permission.RecordsInput(
				permission.LegacyRecord{ModuleName: "dashboard", Level: permission.LevelRead},
				permission.LegacyRecord{ModuleName: "dashboard", Level: permission.LevelWrite},
			))
			Expect(m.Dashboard).To(Equal(permission.LevelWrite))

			m = permission.BuildMatrix(permission.RecordsInput(
				permission.LegacyRecord{ModuleName: "dashboard", Level: permission.LevelWrite},
				permission.LegacyRecord{ModuleName: "dashboard", Level: permission.LevelRead},
			))
			Expect(m.Dashboard).To(Equal(permission.LevelRead))
		})

		It("should ignore unknown modules", func() {
			m := permission.BuildMatrix(permission.RecordsInput(
				permission.LegacyRecord{ModuleName: "silo_capacity", Level: permission.LevelWrite},
				permission.LegacyRecord{ModuleName: "inspection", Level: permission.LevelRead},
			))
			Expect(m.Inspection).To(Equal(permission.LevelRead))
			Expect(m.Dashboard).To(Equal(permission.LevelNone))
		})

		It("should accept pointer records", func() {
			m := permission.BuildMatrix(permission.RecordsInput(
				&permission.LegacyRecord{ModuleName: "project_management", Level: permission.LevelWrite},
				(*permission.LegacyRecord)(nil),
			))
			Expect(m.ProjectManagement).To(Equal(permission.LevelWrite))
		})
	})

	Context("with permissions_data records", func() {
		It("should assign scalar levels and replace plant_operations", func() {
			m := permission.BuildMatrix(permission.RecordsInput(
				permission.LegacyRecord{
					ModuleName: "plant_operations",
					Level:      permission.LevelWrite,
					PlantUnits: []permission.PlantUnitRef{{Category: "Kiln", Unit: "K1"}},
				},
				permission.DataRecord{Raw: `{
					"dashboard": "WRITE",
					"inspection": "READ",
					"plant_operations": {"Packing": {"Unit1": "READ", "Unit2": "WRITE"}}
				}`},
			))
			Expect(m.Dashboard).To(Equal(permission.LevelWrite))
			Expect(m.Inspection).To(Equal(permission.LevelRead))
			Expect(m.ProjectManagement).To(Equal(permission.LevelNone))
			Expect(m.PlantOperations).To(HaveLen(1))
			Expect(m.PlantOperations).NotTo(HaveKey("Kiln"))
			Expect(m.PlantLevel("Packing", "Unit1")).To(Equal(permission.LevelRead))
			Expect(m.PlantLevel("Packing", "Unit2")).To(Equal(permission.LevelWrite))
		})

		It("should skip a malformed document without touching other records", func() {
			m := permission.BuildMatrix(permission.RecordsInput(
				permission.LegacyRecord{ModuleName: "dashboard", Level: permission.LevelRead},
				permission.DataRecord{Raw: `{"dashboard": "WRITE",`},
				permission.LegacyRecord{ModuleName: "inspection", Level: permission.LevelWrite},
			))
			Expect(m.Dashboard).To(Equal(permission.LevelRead))
			Expect(m.Inspection).To(Equal(permission.LevelWrite))
		})

		It("should ignore unknown modules and invalid entries inside a document", func() {
			m := permission.BuildMatrix(permission.RecordsInput(
				permission.DataRecord{Raw: `{
					"reports": "WRITE",
					"dashboard": 3,
					"inspection": "SUPERUSER",
					"project_management": "read",
					"plant_operations": "WRITE"
				}`},
			))
			Expect(m.Dashboard).To(Equal(permission.LevelNone))
			Expect(m.Inspection).To(Equal(permission.LevelNone))
			Expect(m.ProjectManagement).To(Equal(permission.LevelRead))
			Expect(m.PlantOperations).NotTo(BeNil())
			Expect(m.PlantOperations).To(BeEmpty())
		})

		It("should accept an empty plant_operations object", func() {
			m := permission.BuildMatrix(permission.RecordsInput(
				permission.LegacyRecord{
					ModuleName: "plant_operations",
					Level:      permission.LevelRead,
					PlantUnits: []permission.PlantUnitRef{{Category: "Kiln", Unit: "K1"}},
				},
				permission.DataRecord{Raw: `{"plant_operations": {}}`},
			))
			Expect(m.PlantOperations).NotTo(BeNil())
			Expect(m.PlantOperations).To(BeEmpty())
		})
	})

	Context("idempotence", func() {
		It("should produce structurally identical matrices for the same input", func() {
			input := permission.RecordsInput(
				permission.LegacyRecord{ModuleName: "dashboard", Level: permission.LevelRead},
				permission.LegacyRecord{
					ModuleName: "plant_operations",
					Level:      permission.LevelWrite,
					PlantUnits: []permission.PlantUnitRef{{Category: "Packing", Unit: "Unit1"}},
				},
				permission.DataRecord{Raw: `{"inspection": "WRITE"}`},
			)
			first := permission.BuildMatrix(input)
			second := permission.BuildMatrix(input)
			Expect(first.Equal(second)).To(BeTrue())
			Expect(first).To(Equal(second))
		})

		It("should not share plant maps between builds", func() {
			input := permission.RecordsInput(permission.LegacyRecord{
				ModuleName: "plant_operations",
				Level:      permission.LevelRead,
				PlantUnits: []permission.PlantUnitRef{{Category: "Packing", Unit: "Unit1"}},
			})
			first := permission.BuildMatrix(input)
			first.PlantOperations.Set("Packing", "Unit1", permission.LevelWrite)

			second := permission.BuildMatrix(input)
			Expect(second.PlantLevel("Packing", "Unit1")).To(Equal(permission.LevelRead))
		})
	})

	Describe("Builder", func() {
		It("should build the same matrix as BuildMatrix", func() {
			logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
			builder := permission.NewBuilder(logger)

			input := permission.RecordsInput(
				permission.DataRecord{Raw: "garbage"},
				permission.LegacyRecord{ModuleName: "dashboard", Level: permission.LevelWrite},
			)
			Expect(builder.Build(input).Equal(permission.BuildMatrix(input))).To(BeTrue())
		})

		It("should tolerate a nil logger", func() {
			builder := permission.NewBuilder(nil)
			m := builder.Build(permission.RoleInput("operator"))
			Expect(m.Dashboard).To(Equal(permission.LevelRead))
		})
	})
})

var _ = Describe("DecodeRecord", func() {
	It("should decode a permissions_data row into a DataRecord", func() {
		rec, err := permission.DecodeRecord(permission.StoredRecord{PermissionsData: strPtr(`{"dashboard":"READ"}`)})
		Expect(err).NotTo(HaveOccurred())
		Expect(rec).To(Equal(permission.DataRecord{Raw: `{"dashboard":"READ"}`}))
	})

	It("should keep malformed permissions_data for the builder to skip", func() {
		rec, err := permission.DecodeRecord(permission.StoredRecord{PermissionsData: strPtr(`{oops`)})
		Expect(err).NotTo(HaveOccurred())
		Expect(permission.BuildMatrix(permission.RecordsInput(rec)).Equal(permission.NewMatrix())).To(BeTrue())
	})

	It("should decode a legacy row with plant units", func() {
		rec, err := permission.DecodeRecord(permission.StoredRecord{
			ModuleName:      "plant_operations",
			PermissionLevel: "write",
			PlantUnits:      []byte(`[{"category":"Packing","unit":"Unit1"}]`),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(rec).To(Equal(permission.LegacyRecord{
			ModuleName: "plant_operations",
			Level:      permission.LevelWrite,
			PlantUnits: []permission.PlantUnitRef{{Category: "Packing", Unit: "Unit1"}},
		}))
	})

	It("should decode null plant units as nil", func() {
		rec, err := permission.DecodeRecord(permission.StoredRecord{
			ModuleName:      "dashboard",
			PermissionLevel: "READ",
			PlantUnits:      []byte("null"),
		})
		Expect(err).NotTo(HaveOccurred())
		legacy, ok := rec.(permission.LegacyRecord)
		Expect(ok).To(BeTrue())
		Expect(legacy.PlantUnits).To(BeNil())
	})

	It("should fall back to the legacy columns when permissions_data is blank", func() {
		rec, err := permission.DecodeRecord(permission.StoredRecord{
			PermissionsData: strPtr("  "),
			ModuleName:      "inspection",
			PermissionLevel: "READ",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(rec).To(BeAssignableToTypeOf(permission.LegacyRecord{}))
	})

	DescribeTable("rejects invalid legacy rows",
		func(row permission.StoredRecord) {
			_, err := permission.DecodeRecord(row)
			Expect(err).To(MatchError(permission.ErrInvalidRecord))
		},
		Entry("missing module", permission.StoredRecord{PermissionLevel: "READ"}),
		Entry("missing level", permission.StoredRecord{ModuleName: "dashboard"}),
		Entry("unknown level", permission.StoredRecord{ModuleName: "dashboard", PermissionLevel: "OWNER"}),
		Entry("plant units not an array", permission.StoredRecord{
			ModuleName: "plant_operations", PermissionLevel: "READ", PlantUnits: []byte(`{"category":"Packing"}`),
		}),
		Entry("plant unit without unit", permission.StoredRecord{
			ModuleName: "plant_operations", PermissionLevel: "READ", PlantUnits: []byte(`[{"category":"Packing"}]`),
		}),
	)
})
