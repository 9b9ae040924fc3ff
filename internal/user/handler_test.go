package user_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/plant-operations/internal/permission"
	"github.com/frahmantamala/plant-operations/internal/transport"
	"github.com/frahmantamala/plant-operations/internal/user"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Handler", func() {
	var (
		f       *fixture
		handler *user.Handler
		router  *chi.Mux
	)

	BeforeEach(func() {
		f = newFixture()
		handler = user.NewHandler(&transport.BaseHandler{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}, f.service)

		router = chi.NewRouter()
		router.Get("/users/me", handler.GetCurrentUser)
		router.Get("/users", handler.ListUsers)
		router.Post("/users", handler.CreateUser)
		router.Get("/users/{id}", handler.GetUser)
		router.Get("/users/{id}/permissions", handler.GetUserPermissions)
		router.Put("/users/{id}", handler.UpdateUser)
		router.Patch("/users/{id}/deactivate", handler.DeactivateUser)
		router.Delete("/users/{id}", handler.DeleteUser)
	})

	do := func(req *http.Request) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("creates a user and hides the password hash", func() {
		body := `{"username":"budi","full_name":"Budi","password":"s3cret-pass","role":"Operator"}`
		w := do(httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body)))

		Expect(w.Code).To(Equal(http.StatusCreated))
		Expect(w.Body.String()).NotTo(ContainSubstring("password"))

		var got map[string]interface{}
		Expect(json.Unmarshal(w.Body.Bytes(), &got)).To(Succeed())
		Expect(got["username"]).To(Equal("budi"))
		Expect(got["role"]).To(Equal("Operator"))
	})

	It("returns a validation envelope for bad input", func() {
		w := do(httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"username":"b"}`)))
		Expect(w.Code).To(Equal(http.StatusBadRequest))

		var got map[string]map[string]interface{}
		Expect(json.Unmarshal(w.Body.Bytes(), &got)).To(Succeed())
		Expect(got["error"]["type"]).To(Equal("VALIDATION_ERROR"))
	})

	It("returns the effective matrix for a user", func() {
		u, err := f.service.Create(context.Background(), user.CreateUserDTO{
			Username: "op", FullName: "Op", Password: "s3cret-pass", Role: "Operator",
		})
		Expect(err).NotTo(HaveOccurred())

		w := do(httptest.NewRequest(http.MethodGet, "/users/1/permissions", nil))
		Expect(w.Code).To(Equal(http.StatusOK))

		var got user.PermissionsResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &got)).To(Succeed())
		Expect(got.UserID).To(Equal(u.ID))
		Expect(got.Permissions.Dashboard).To(Equal(permission.LevelRead))
		Expect(got.Permissions.PlantOperations).NotTo(BeNil())
	})

	It("maps missing users to 404", func() {
		Expect(do(httptest.NewRequest(http.MethodGet, "/users/42", nil)).Code).To(Equal(http.StatusNotFound))
		Expect(do(httptest.NewRequest(http.MethodPatch, "/users/42/deactivate", nil)).Code).To(Equal(http.StatusNotFound))
		Expect(do(httptest.NewRequest(http.MethodDelete, "/users/42", nil)).Code).To(Equal(http.StatusNotFound))
	})

	It("rejects non-numeric ids", func() {
		Expect(do(httptest.NewRequest(http.MethodGet, "/users/abc", nil)).Code).To(Equal(http.StatusBadRequest))
	})

	It("serves the user stored in the request context for /users/me", func() {
		Expect(do(httptest.NewRequest(http.MethodGet, "/users/me", nil)).Code).To(Equal(http.StatusUnauthorized))

		me := &user.User{ID: 7, Username: "me", Role: user.RoleGuest, Permissions: permission.NewMatrix()}
		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req = req.WithContext(user.NewContext(req.Context(), me))

		w := do(req)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"username":"me"`))
	})

	It("rejects an invalid active filter", func() {
		Expect(do(httptest.NewRequest(http.MethodGet, "/users?active=maybe", nil)).Code).To(Equal(http.StatusBadRequest))
		Expect(do(httptest.NewRequest(http.MethodGet, "/users?active=true", nil)).Code).To(Equal(http.StatusOK))
	})
})
