package cache_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	permissionDatamodel "github.com/frahmantamala/plant-operations/internal/core/datamodel/permission"
	"github.com/frahmantamala/plant-operations/internal/permission"
	"github.com/frahmantamala/plant-operations/internal/permission/cache"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
)

// gatedRepo serves permissions_data documents per user. When gate is set the next
// ListRawRecords call snapshots its records, signals entered and waits for release.
type gatedRepo struct {
	mu      sync.Mutex
	docs    map[int64]string
	gate    bool
	entered chan struct{}
	release chan struct{}
}

func (r *gatedRepo) ListRawRecords(_ context.Context, userID int64) ([]permission.RawRecord, error) {
	r.mu.Lock()
	doc, ok := r.docs[userID]
	gated := r.gate
	r.gate = false
	r.mu.Unlock()

	if gated {
		close(r.entered)
		<-r.release
	}
	if !ok {
		return nil, nil
	}
	return []permission.RawRecord{permission.DataRecord{Raw: doc}}, nil
}

func (r *gatedRepo) ReplaceUserData(_ context.Context, userID int64, data string, _ *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[userID] = data
	return nil
}

func (r *gatedRepo) ListPermissions(context.Context) ([]*permissionDatamodel.Permission, error) {
	return nil, nil
}

func (r *gatedRepo) GetPermission(context.Context, int64) (*permissionDatamodel.Permission, error) {
	return nil, nil
}

func (r *gatedRepo) CreatePermission(context.Context, *permissionDatamodel.Permission) error {
	return nil
}

func (r *gatedRepo) DeletePermission(context.Context, int64) ([]int64, error) { return nil, nil }

func (r *gatedRepo) HasAssignment(context.Context, int64, int64) (bool, error) { return false, nil }

func (r *gatedRepo) Assign(context.Context, *permissionDatamodel.UserPermission) error { return nil }

func (r *gatedRepo) Revoke(context.Context, int64, int64) (bool, error) { return false, nil }

func (r *gatedRepo) DeleteUserGrants(context.Context, int64) error { return nil }

var _ = Describe("Service with RedisMatrixCache", func() {
	var (
		mr      *miniredis.Miniredis
		client  *redis.Client
		repo    *gatedRepo
		service *permission.Service
		ctx     context.Context
	)

	BeforeEach(func() {
		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})

		repo = &gatedRepo{
			docs:    map[int64]string{7: `{"dashboard":"WRITE"}`},
			entered: make(chan struct{}),
			release: make(chan struct{}),
		}
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = permission.NewService(repo, cache.NewRedisMatrixCache(client, time.Minute), nil, lg)
		ctx = context.Background()
	})

	AfterEach(func() {
		_ = client.Close()
		mr.Close()
	})

	It("does not cache a matrix built from grants replaced during the build", func() {
		repo.gate = true

		done := make(chan permission.Matrix, 1)
		go func() {
			defer GinkgoRecover()
			m, err := service.UserMatrix(ctx, 7, "Guest")
			Expect(err).NotTo(HaveOccurred())
			done <- m
		}()

		Eventually(repo.entered).Should(BeClosed())
		Expect(service.SetUserMatrix(ctx, 7, permission.NewMatrix())).To(Succeed())
		close(repo.release)

		var stale permission.Matrix
		Eventually(done).Should(Receive(&stale))
		Expect(stale.Level(permission.ModuleDashboard)).To(Equal(permission.LevelWrite))

		m, err := service.UserMatrix(ctx, 7, "Guest")
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Level(permission.ModuleDashboard)).To(Equal(permission.LevelNone))
	})

	It("caches a matrix when nothing changed during the build", func() {
		_, err := service.UserMatrix(ctx, 7, "Guest")
		Expect(err).NotTo(HaveOccurred())
		Expect(mr.Exists("plantops:matrix:7")).To(BeTrue())
	})
})
