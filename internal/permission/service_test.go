package permission_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	errors "github.com/frahmantamala/plant-operations/internal"
	permissionDatamodel "github.com/frahmantamala/plant-operations/internal/core/datamodel/permission"
	"github.com/frahmantamala/plant-operations/internal/core/events"
	"github.com/frahmantamala/plant-operations/internal/permission"
	permissionPostgres "github.com/frahmantamala/plant-operations/internal/permission/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type memoryCache struct {
	mu       sync.Mutex
	entries  map[int64]permission.Matrix
	versions map[int64]int
	epoch    int
	gets     int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[int64]permission.Matrix), versions: make(map[int64]int)}
}

func (c *memoryCache) Get(_ context.Context, userID int64) (permission.Matrix, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	m, ok := c.entries[userID]
	return m, ok, nil
}

func (c *memoryCache) Version(_ context.Context, userID int64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token(userID), nil
}

func (c *memoryCache) token(userID int64) string {
	return fmt.Sprintf("%d:%d", c.epoch, c.versions[userID])
}

func (c *memoryCache) Set(_ context.Context, userID int64, version string, m permission.Matrix) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token(userID) != version {
		return permission.ErrStaleMatrix
	}
	c.entries[userID] = m
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, userIDs ...int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range userIDs {
		c.versions[id]++
		delete(c.entries, id)
	}
	return nil
}

func (c *memoryCache) InvalidateAll(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.entries = make(map[int64]permission.Matrix)
	return nil
}

func (c *memoryCache) has(userID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[userID]
	return ok
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

var _ = Describe("Service", func() {
	var (
		db        *gorm.DB
		service   *permission.Service
		cache     *memoryCache
		publisher *recordingPublisher
		ctx       context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&permissionDatamodel.Permission{}, &permissionDatamodel.UserPermission{})).To(Succeed())

		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		cache = newMemoryCache()
		publisher = &recordingPublisher{}
		service = permission.NewService(permissionPostgres.NewPermissionRepository(db, lg), cache, publisher, lg)
		ctx = errors.ContextWithUserID(context.Background(), "1")
	})

	Describe("UserMatrix", func() {
		It("falls back to the role default when no grants exist", func() {
			m, err := service.UserMatrix(ctx, 10, "Operator Tonasa 2")
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Dashboard).To(Equal(permission.LevelRead))
			Expect(m.PlantOperations).To(BeEmpty())
		})

		It("builds from stored grants and caches the result", func() {
			Expect(service.SetUserMatrix(ctx, 10, permission.Matrix{
				Dashboard:       permission.LevelWrite,
				PlantOperations: permission.PlantOperationsPermissions{"Packing": {"Unit1": permission.LevelRead}},
			})).To(Succeed())

			m, err := service.UserMatrix(ctx, 10, "Guest")
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Dashboard).To(Equal(permission.LevelWrite))
			Expect(m.PlantLevel("Packing", "Unit1")).To(Equal(permission.LevelRead))
			Expect(cache.has(10)).To(BeTrue())
		})
	})

	Describe("CreatePermission", func() {
		It("rejects unknown modules and levels", func() {
			_, err := service.CreatePermission(ctx, permission.CreatePermissionDTO{ModuleName: "billing", PermissionLevel: "READ"})
			Expect(err).To(HaveOccurred())
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(errors.ErrCodeInvalidModule))

			_, err = service.CreatePermission(ctx, permission.CreatePermissionDTO{ModuleName: "dashboard", PermissionLevel: "ROOT"})
			appErr, ok = errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(errors.ErrCodeInvalidLevel))
		})

		It("requires plant units for plant_operations", func() {
			_, err := service.CreatePermission(ctx, permission.CreatePermissionDTO{ModuleName: "plant_operations", PermissionLevel: "WRITE"})
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(errors.ErrCodeInvalidScope))
		})

		It("validates each plant unit", func() {
			_, err := service.CreatePermission(ctx, permission.CreatePermissionDTO{
				ModuleName:      "plant_operations",
				PermissionLevel: "WRITE",
				PlantUnits:      []permission.PlantUnitRef{{Category: "Packing"}},
			})
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeValidation))
		})

		It("stores a normalised level and publishes a change", func() {
			resp, err := service.CreatePermission(ctx, permission.CreatePermissionDTO{
				ModuleName:      "plant_operations",
				PermissionLevel: "write",
				PlantUnits:      []permission.PlantUnitRef{{Category: "Packing", Unit: "Unit1"}},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.PermissionLevel).To(Equal("WRITE"))
			Expect(resp.PlantUnits).To(Equal([]permission.PlantUnitRef{{Category: "Packing", Unit: "Unit1"}}))
			Expect(publisher.types()).To(Equal([]string{events.EventTypePermissionsChanged}))

			list, err := service.ListPermissions(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
		})
	})

	Describe("assignment lifecycle", func() {
		var permID int64

		BeforeEach(func() {
			resp, err := service.CreatePermission(ctx, permission.CreatePermissionDTO{ModuleName: "inspection", PermissionLevel: "WRITE"})
			Expect(err).NotTo(HaveOccurred())
			permID = resp.ID
		})

		It("assigns, invalidates the cache and refuses duplicates", func() {
			_, err := service.UserMatrix(ctx, 20, "Guest")
			Expect(err).NotTo(HaveOccurred())
			Expect(cache.has(20)).To(BeTrue())

			Expect(service.AssignToUser(ctx, 20, permID)).To(Succeed())
			Expect(cache.has(20)).To(BeFalse())

			m, err := service.UserMatrix(ctx, 20, "Guest")
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Inspection).To(Equal(permission.LevelWrite))

			err = service.AssignToUser(ctx, 20, permID)
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(errors.ErrCodeAlreadyAssigned))
		})

		It("reports unknown permissions", func() {
			Expect(service.AssignToUser(ctx, 20, 9999)).To(MatchError(errors.ErrPermissionNotFound))
			Expect(service.RevokeFromUser(ctx, 20, permID)).To(MatchError(errors.ErrPermissionNotFound))
			Expect(service.DeletePermission(ctx, 9999)).To(MatchError(errors.ErrPermissionNotFound))
		})

		It("revokes and publishes a user change", func() {
			Expect(service.AssignToUser(ctx, 21, permID)).To(Succeed())
			Expect(service.RevokeFromUser(ctx, 21, permID)).To(Succeed())

			Expect(publisher.types()).To(Equal([]string{
				events.EventTypePermissionsChanged,
				events.EventTypeUserPermissionsChanged,
				events.EventTypeUserPermissionsChanged,
			}))

			last := publisher.events[len(publisher.events)-1].(*events.UserPermissionsChangedEvent)
			Expect(last.UserID).To(Equal(int64(21)))
			Expect(last.Operation).To(Equal(events.OperationDelete))
			Expect(last.ActorID).NotTo(BeNil())
			Expect(*last.ActorID).To(Equal(int64(1)))
		})

		It("invalidates every holder when a permission is deleted", func() {
			Expect(service.AssignToUser(ctx, 30, permID)).To(Succeed())
			_, err := service.UserMatrix(ctx, 30, "Guest")
			Expect(err).NotTo(HaveOccurred())
			Expect(cache.has(30)).To(BeTrue())

			Expect(service.DeletePermission(ctx, permID)).To(Succeed())
			Expect(cache.has(30)).To(BeFalse())

			m, err := service.UserMatrix(ctx, 30, "Guest")
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Equal(permission.NewMatrix())).To(BeTrue())
		})
	})

	It("clears grants for a removed user", func() {
		Expect(service.SetUserMatrix(ctx, 40, permission.Matrix{Dashboard: permission.LevelRead})).To(Succeed())
		Expect(service.ClearUser(ctx, 40)).To(Succeed())

		m, err := service.UserMatrix(ctx, 40, "Guest")
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Dashboard).To(Equal(permission.LevelNone))
	})
})
