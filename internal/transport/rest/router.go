package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/plant-operations/internal/activity"
	"github.com/frahmantamala/plant-operations/internal/auth"
	"github.com/frahmantamala/plant-operations/internal/downtime"
	"github.com/frahmantamala/plant-operations/internal/permission"
	"github.com/frahmantamala/plant-operations/internal/plantunit"
	"github.com/frahmantamala/plant-operations/internal/transport/middleware"
	"github.com/frahmantamala/plant-operations/internal/transport/swagger"
	"github.com/frahmantamala/plant-operations/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Handlers groups everything the router mounts. Nil handlers are skipped.
type Handlers struct {
	Health     *HealthHandler
	Auth       *auth.Handler
	User       *user.Handler
	Permission *permission.Handler
	PlantUnit  *plantunit.Handler
	Downtime   *downtime.Handler
	Activity   *activity.Handler
	Docs       *swagger.Document
	Metrics    http.Handler
	MetricsURL string
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.Metrics)
	router.Use(middleware.LoggingMiddleware(logger))

	if h.Metrics != nil {
		path := h.MetricsURL
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, h.Metrics)
	}

	if h.Docs != nil {
		router.Get("/openapi.yml", h.Docs.ServeHTTP)
		router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))
	}

	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
			r.Get("/ping", h.Health.pingHandler)
		}

		if h.Auth == nil {
			return
		}

		r.Route("/auth", func(ar chi.Router) {
			ar.Post("/login", h.Auth.Login)
			ar.Post("/refresh", h.Auth.RefreshToken)
			ar.Post("/logout", h.Auth.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)
			pr.Use(middleware.UserContext)

			if h.User != nil {
				pr.Get("/users/me", h.User.GetCurrentUser)
			}

			if h.PlantUnit != nil {
				pr.Get("/plant-units", h.PlantUnit.ListPlantUnits)
				pr.Get("/plant-units/categories", h.PlantUnit.ListCategories)
			}

			if h.Downtime != nil {
				pr.Route("/downtimes", func(dr chi.Router) {
					// exact (category, unit) checks happen in the service
					dr.Use(middleware.RequireModule(permission.ModulePlantOperations, permission.LevelRead))
					dr.Get("/", h.Downtime.ListDowntimes)
					dr.Get("/{id}", h.Downtime.GetDowntime)
					dr.Post("/", h.Downtime.CreateDowntime)
					dr.Put("/{id}", h.Downtime.UpdateDowntime)
					dr.Delete("/{id}", h.Downtime.DeleteDowntime)
				})
			}

			if h.Activity != nil {
				pr.With(middleware.RequireModule(permission.ModuleDashboard, permission.LevelRead)).
					Get("/activity-logs", h.Activity.ListActivityLogs)
			}

			pr.Group(func(admin chi.Router) {
				admin.Use(middleware.RequireAdmin)

				if h.User != nil {
					admin.Get("/users", h.User.ListUsers)
					admin.Post("/users", h.User.CreateUser)
					admin.Get("/users/{id}", h.User.GetUser)
					admin.Put("/users/{id}", h.User.UpdateUser)
					admin.Patch("/users/{id}/activate", h.User.ActivateUser)
					admin.Patch("/users/{id}/deactivate", h.User.DeactivateUser)
					admin.Delete("/users/{id}", h.User.DeleteUser)
					admin.Get("/users/{id}/permissions", h.User.GetUserPermissions)
				}

				if h.Permission != nil {
					admin.Get("/permissions", h.Permission.ListPermissions)
					admin.Post("/permissions", h.Permission.CreatePermission)
					admin.Delete("/permissions/{id}", h.Permission.DeletePermission)
					admin.Put("/users/{id}/permissions", h.Permission.SetUserMatrix)
					admin.Post("/users/{id}/permissions/{permissionID}", h.Permission.AssignToUser)
					admin.Delete("/users/{id}/permissions/{permissionID}", h.Permission.RevokeFromUser)
				}

				if h.PlantUnit != nil {
					admin.Post("/plant-units", h.PlantUnit.CreatePlantUnit)
					admin.Delete("/plant-units/{id}", h.PlantUnit.DeletePlantUnit)
				}
			})
		})
	})
}
