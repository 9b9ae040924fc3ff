package plantunit_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	errors "github.com/frahmantamala/plant-operations/internal"
	plantunitDatamodel "github.com/frahmantamala/plant-operations/internal/core/datamodel/plantunit"
	"github.com/frahmantamala/plant-operations/internal/plantunit"
	"github.com/frahmantamala/plant-operations/internal/plantunit/postgres"
	"github.com/frahmantamala/plant-operations/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestPlantUnit(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Plant Unit Suite")
}

func newService() *plantunit.Service {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	Expect(err).NotTo(HaveOccurred())
	sqlDB, err := db.DB()
	Expect(err).NotTo(HaveOccurred())
	sqlDB.SetMaxOpenConns(1)
	Expect(db.AutoMigrate(&plantunitDatamodel.PlantUnit{})).To(Succeed())

	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	return plantunit.NewService(postgres.NewPlantUnitRepository(db), lg)
}

var _ = Describe("Service", func() {
	var (
		service *plantunit.Service
		ctx     context.Context
	)

	BeforeEach(func() {
		service = newService()
		ctx = context.Background()
		for _, dto := range []plantunit.CreatePlantUnitDTO{
			{Category: "Packing", Unit: "Unit2"},
			{Category: "Packing", Unit: "Unit1"},
			{Category: "Kiln", Unit: "Kiln 4"},
		} {
			_, err := service.Create(ctx, dto)
			Expect(err).NotTo(HaveOccurred())
		}
	})

	It("lists units ordered by category then unit", func() {
		units, err := service.List(ctx, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(units).To(HaveLen(3))
		Expect(units[0].Category).To(Equal("Kiln"))
		Expect(units[1].Unit).To(Equal("Unit1"))
		Expect(units[2].Unit).To(Equal("Unit2"))

		packing, err := service.List(ctx, "Packing")
		Expect(err).NotTo(HaveOccurred())
		Expect(packing).To(HaveLen(2))
	})

	It("groups units by category", func() {
		cats, err := service.Categories(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(cats).To(Equal([]plantunit.Category{
			{Name: "Kiln", Units: []string{"Kiln 4"}},
			{Name: "Packing", Units: []string{"Unit1", "Unit2"}},
		}))
	})

	It("rejects duplicates and blank scopes", func() {
		_, err := service.Create(ctx, plantunit.CreatePlantUnitDTO{Category: " Packing ", Unit: "Unit1"})
		Expect(err).To(MatchError(errors.NewConflictError("plant unit already exists", errors.ErrCodeDuplicatePlantUnit)))

		_, err = service.Create(ctx, plantunit.CreatePlantUnitDTO{Category: "  ", Unit: "Unit9"})
		appErr, ok := errors.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Type).To(Equal(errors.ErrorTypeValidation))
	})

	It("reports existence and forgets deleted units", func() {
		units, _ := service.List(ctx, "Kiln")
		ok, err := service.Exists(ctx, "Kiln", "Kiln 4")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())

		Expect(service.Delete(ctx, units[0].ID)).To(Succeed())
		ok, err = service.Exists(ctx, "Kiln", "Kiln 4")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		Expect(service.Delete(ctx, units[0].ID)).To(MatchError(errors.ErrPlantUnitNotFound))
	})
})

var _ = Describe("Handler", func() {
	var router *chi.Mux

	BeforeEach(func() {
		handler := plantunit.NewHandler(transport.NewBaseHandler(slog.New(slog.NewTextHandler(io.Discard, nil))), newService())
		router = chi.NewRouter()
		router.Get("/plant-units", handler.ListPlantUnits)
		router.Get("/plant-units/categories", handler.ListCategories)
		router.Post("/plant-units", handler.CreatePlantUnit)
		router.Delete("/plant-units/{id}", handler.DeletePlantUnit)
	})

	do := func(req *http.Request) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("creates and lists plant units", func() {
		w := do(httptest.NewRequest(http.MethodPost, "/plant-units", strings.NewReader(`{"category":"Packing","unit":"Unit1"}`)))
		Expect(w.Code).To(Equal(http.StatusCreated))

		w = do(httptest.NewRequest(http.MethodGet, "/plant-units", nil))
		Expect(w.Code).To(Equal(http.StatusOK))
		var got plantunit.PlantUnitsResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &got)).To(Succeed())
		Expect(got.PlantUnits).To(HaveLen(1))
		Expect(got.PlantUnits[0].Scope().Category).To(Equal("Packing"))

		w = do(httptest.NewRequest(http.MethodGet, "/plant-units/categories", nil))
		Expect(w.Body.String()).To(ContainSubstring(`"units":["Unit1"]`))
	})

	It("maps errors to status codes", func() {
		Expect(do(httptest.NewRequest(http.MethodPost, "/plant-units", strings.NewReader(`{`))).Code).To(Equal(http.StatusBadRequest))
		Expect(do(httptest.NewRequest(http.MethodDelete, "/plant-units/x", nil)).Code).To(Equal(http.StatusBadRequest))
		Expect(do(httptest.NewRequest(http.MethodDelete, "/plant-units/99", nil)).Code).To(Equal(http.StatusNotFound))
	})
})
