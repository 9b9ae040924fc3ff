package permission_test

import (
	"encoding/json"

	"github.com/frahmantamala/plant-operations/internal/permission"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Level", func() {
	It("should order NONE < READ < WRITE < ADMIN", func() {
		Expect(permission.LevelRead.AtLeast(permission.LevelNone)).To(BeTrue())
		Expect(permission.LevelWrite.AtLeast(permission.LevelRead)).To(BeTrue())
		Expect(permission.LevelAdmin.AtLeast(permission.LevelWrite)).To(BeTrue())
		Expect(permission.LevelRead.AtLeast(permission.LevelWrite)).To(BeFalse())
		Expect(permission.LevelNone.AtLeast(permission.LevelRead)).To(BeFalse())
	})

	It("should parse names case-insensitively", func() {
		lvl, ok := permission.ParseLevel(" write ")
		Expect(ok).To(BeTrue())
		Expect(lvl).To(Equal(permission.LevelWrite))

		lvl, ok = permission.ParseLevel("owner")
		Expect(ok).To(BeFalse())
		Expect(lvl).To(Equal(permission.LevelNone))
	})

	It("should rank invalid levels as NONE", func() {
		Expect(permission.Level("bogus").Rank()).To(Equal(permission.LevelNone.Rank()))
		Expect(permission.Level("").String()).To(Equal("NONE"))
	})
})

var _ = Describe("Matrix", func() {
	It("should marshal all four keys with plant_operations as an object", func() {
		b, err := json.Marshal(permission.Matrix{})
		Expect(err).NotTo(HaveOccurred())
		Expect(b).To(MatchJSON(`{
			"dashboard": "NONE",
			"plant_operations": {},
			"inspection": "NONE",
			"project_management": "NONE"
		}`))
	})

	It("should unmarshal missing keys to defaults", func() {
		var m permission.Matrix
		Expect(json.Unmarshal([]byte(`{"dashboard":"READ"}`), &m)).To(Succeed())
		Expect(m.Dashboard).To(Equal(permission.LevelRead))
		Expect(m.Inspection).To(Equal(permission.LevelNone))
		Expect(m.PlantOperations).NotTo(BeNil())
	})

	It("should round-trip through the permissions_data encoding", func() {
		m := permission.NewMatrix()
		m.ProjectManagement = permission.LevelWrite
		m.PlantOperations.Set("Packing", "Unit1", permission.LevelRead)

		doc, err := permission.EncodeMatrix(m)
		Expect(err).NotTo(HaveOccurred())

		rebuilt := permission.BuildMatrix(permission.RecordsInput(permission.DataRecord{Raw: doc}))
		Expect(rebuilt.Equal(m)).To(BeTrue())
	})

	It("should deep copy on Clone", func() {
		m := permission.NewMatrix()
		m.PlantOperations.Set("Packing", "Unit1", permission.LevelRead)
		cp := m.Clone()
		cp.PlantOperations.Set("Packing", "Unit1", permission.LevelWrite)
		Expect(m.PlantLevel("Packing", "Unit1")).To(Equal(permission.LevelRead))
	})

	It("should treat a nil plant map as equal to an empty one", func() {
		Expect(permission.Matrix{Dashboard: permission.LevelNone, Inspection: permission.LevelNone, ProjectManagement: permission.LevelNone}.
			Equal(permission.NewMatrix())).To(BeTrue())
	})

	It("should parse only the fixed modules", func() {
		_, ok := permission.ParseModule("plant_operations")
		Expect(ok).To(BeTrue())
		_, ok = permission.ParseModule("Plant_Operations")
		Expect(ok).To(BeFalse())
		Expect(permission.Modules()).To(HaveLen(4))
	})
})
