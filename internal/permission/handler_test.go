package permission_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"

	errors "github.com/frahmantamala/plant-operations/internal"
	permissionDatamodel "github.com/frahmantamala/plant-operations/internal/core/datamodel/permission"
	"github.com/frahmantamala/plant-operations/internal/core/events"
	"github.com/frahmantamala/plant-operations/internal/permission"
	permissionPostgres "github.com/frahmantamala/plant-operations/internal/permission/postgres"
	"github.com/frahmantamala/plant-operations/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ = Describe("Handler", func() {
	var (
		router    *chi.Mux
		service   *permission.Service
		publisher *recordingPublisher
	)

	BeforeEach(func() {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&permissionDatamodel.Permission{}, &permissionDatamodel.UserPermission{})).To(Succeed())

		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		publisher = &recordingPublisher{}
		service = permission.NewService(permissionPostgres.NewPermissionRepository(db, lg), newMemoryCache(), publisher, lg)
		handler := permission.NewHandler(transport.NewBaseHandler(lg), service)

		router = chi.NewRouter()
		router.Get("/permissions", handler.ListPermissions)
		router.Post("/permissions", handler.CreatePermission)
		router.Delete("/permissions/{id}", handler.DeletePermission)
		router.Put("/users/{id}/permissions", handler.SetUserMatrix)
		router.Post("/users/{id}/permissions/{permissionID}", handler.AssignToUser)
		router.Delete("/users/{id}/permissions/{permissionID}", handler.RevokeFromUser)
	})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		var r io.Reader
		if body != "" {
			r = strings.NewReader(body)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(method, path, r))
		return w
	}

	createPlantWrite := func() int64 {
		w := do(http.MethodPost, "/permissions",
			`{"module_name":"plant_operations","permission_level":"WRITE","plant_units":[{"category":"Packing","unit":"Unit1"}]}`)
		Expect(w.Code).To(Equal(http.StatusCreated))

		var created permission.PermissionResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &created)).To(Succeed())
		return created.ID
	}

	It("creates and lists permissions", func() {
		createPlantWrite()

		w := do(http.MethodGet, "/permissions", "")
		Expect(w.Code).To(Equal(http.StatusOK))

		var resp permission.PermissionsResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Permissions).To(HaveLen(1))
		Expect(resp.Permissions[0].PlantUnits).To(ConsistOf(permission.PlantUnitRef{Category: "Packing", Unit: "Unit1"}))
	})

	It("rejects plant_operations without units", func() {
		w := do(http.MethodPost, "/permissions", `{"module_name":"plant_operations","permission_level":"READ"}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring(string(errors.ErrCodeInvalidScope)))
	})

	It("assigns once and reports a conflict on repeat", func() {
		id := createPlantWrite()
		path := "/users/5/permissions/" + strconv.FormatInt(id, 10)

		Expect(do(http.MethodPost, path, "").Code).To(Equal(http.StatusNoContent))
		Expect(do(http.MethodPost, path, "").Code).To(Equal(http.StatusConflict))

		m, err := service.UserMatrix(context.Background(), 5, "Guest")
		Expect(err).NotTo(HaveOccurred())
		Expect(m.PlantLevel("Packing", "Unit1")).To(Equal(permission.LevelWrite))

		Expect(do(http.MethodDelete, path, "").Code).To(Equal(http.StatusNoContent))
		Expect(do(http.MethodDelete, path, "").Code).To(Equal(http.StatusNotFound))
	})

	It("replaces a user's matrix from a JSON body", func() {
		w := do(http.MethodPut, "/users/9/permissions",
			`{"dashboard":"READ","plant_operations":{"Kiln":{"Kiln 1":"WRITE"}}}`)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"inspection":"NONE"`))

		m, err := service.UserMatrix(context.Background(), 9, "Guest")
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Dashboard).To(Equal(permission.LevelRead))
		Expect(m.PlantLevel("Kiln", "Kiln 1")).To(Equal(permission.LevelWrite))
		Expect(publisher.types()).To(ContainElement(events.EventTypeUserPermissionsChanged))
	})

	It("rejects bad ids and bodies", func() {
		Expect(do(http.MethodDelete, "/permissions/abc", "").Code).To(Equal(http.StatusBadRequest))
		Expect(do(http.MethodPut, "/users/1/permissions", "{").Code).To(Equal(http.StatusBadRequest))
		Expect(do(http.MethodDelete, "/permissions/404", "").Code).To(Equal(http.StatusNotFound))
	})
})
