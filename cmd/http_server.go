package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/plant-operations/internal"
	"github.com/frahmantamala/plant-operations/internal/activity"
	activityPostgres "github.com/frahmantamala/plant-operations/internal/activity/postgres"
	"github.com/frahmantamala/plant-operations/internal/auth"
	authPostgres "github.com/frahmantamala/plant-operations/internal/auth/postgres"
	"github.com/frahmantamala/plant-operations/internal/core/events"
	"github.com/frahmantamala/plant-operations/internal/downtime"
	downtimePostgres "github.com/frahmantamala/plant-operations/internal/downtime/postgres"
	"github.com/frahmantamala/plant-operations/internal/permission"
	"github.com/frahmantamala/plant-operations/internal/permission/cache"
	permissionPostgres "github.com/frahmantamala/plant-operations/internal/permission/postgres"
	"github.com/frahmantamala/plant-operations/internal/plantunit"
	plantunitPostgres "github.com/frahmantamala/plant-operations/internal/plantunit/postgres"
	"github.com/frahmantamala/plant-operations/internal/transport"
	"github.com/frahmantamala/plant-operations/internal/transport/rest"
	"github.com/frahmantamala/plant-operations/internal/transport/swagger"
	"github.com/frahmantamala/plant-operations/internal/user"
	userPostgres "github.com/frahmantamala/plant-operations/internal/user/postgres"
	"github.com/frahmantamala/plant-operations/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var openAPIPath string

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func init() {
	httpServerCmd.Flags().StringVar(&openAPIPath, "openapi", "api/openapi.yml", "OpenAPI document served at /openapi.yml")
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Gorm     *gorm.DB
	Redis    *redis.Client
	Bus      *events.EventBus
	Logger   *slog.Logger
	Services *Services
}

type Services struct {
	Permission *permission.Service
	User       *user.Service
	Auth       *auth.Service
	PlantUnit  *plantunit.Service
	Downtime   *downtime.Service
	Activity   *activity.Service
	Recorder   *activity.Recorder
}

func (d *Dependencies) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("redis close error", "error", err)
		}
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("database close error", "error", err)
	}
}

func startHTTPServer() {
	ctx := context.Background()
	deps, err := initializeDependencies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	audit := deps.Services.Recorder.RegisterEventHandlers(deps.Bus)
	defer audit.Close()

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, buildHandlers(ctx, deps), deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("server failed to start", "error", err)
			return
		}
	}

	deps.Logger.Info("server stopped")
}

func buildHandlers(ctx context.Context, deps *Dependencies) rest.Handlers {
	base := transport.NewBaseHandler(deps.Logger)

	components := map[string]rest.Pinger{"postgres": deps.DB}
	if deps.Redis != nil {
		components["redis"] = redisPinger{deps.Redis}
	}

	h := rest.Handlers{
		Health:     rest.NewHealthHandler(components),
		Auth:       auth.NewHandler(base, deps.Services.Auth),
		User:       user.NewHandler(base, deps.Services.User),
		Permission: permission.NewHandler(base, deps.Services.Permission),
		PlantUnit:  plantunit.NewHandler(base, deps.Services.PlantUnit),
		Downtime:   downtime.NewHandler(base, deps.Services.Downtime),
		Activity:   activity.NewHandler(base, deps.Services.Activity),
	}

	if deps.Config.Observability.Metrics.Enabled {
		h.Metrics = promhttp.Handler()
		h.MetricsURL = deps.Config.Observability.Metrics.Path
	}

	doc, err := swagger.Load(ctx, openAPIPath)
	if err != nil {
		deps.Logger.Warn("api docs disabled", "path", openAPIPath, "error", err)
	} else {
		h.Docs = doc
	}
	return h
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// initializeDependencies loads config and opens every backing store the commands share.
func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	lg := logger.Configure(os.Stdout, config.Observability.Logging.Level, config.Observability.Logging.Format)

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	deps := &Dependencies{
		Config: config,
		DB:     db,
		Gorm:   gormDB,
		Bus:    events.NewEventBus(lg),
		Logger: lg,
	}

	var matrixCache permission.MatrixCache
	if config.Redis.Enabled {
		client, err := cache.Connect(ctx, config.Redis.Addr, config.Redis.Password, config.Redis.DB)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.Redis = client
		matrixCache = cache.NewRedisMatrixCache(client, config.Redis.MatrixTTL)
		lg.Info("permission matrix cache enabled", "addr", config.Redis.Addr, "ttl", config.Redis.MatrixTTL)
	}

	deps.Services = buildServices(deps, matrixCache)
	return deps, nil
}

func buildServices(deps *Dependencies, matrixCache permission.MatrixCache) *Services {
	lg := deps.Logger
	cfg := deps.Config

	permissionService := permission.NewService(
		permissionPostgres.NewPermissionRepository(deps.Gorm, lg), matrixCache, deps.Bus, lg)
	userService := user.NewService(
		userPostgres.NewUserRepository(deps.Gorm), permissionService, deps.Bus, lg, cfg.Security.BCryptCost)

	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authPostgres.NewRepository(deps.Gorm), userService, tokens, lg)

	plantUnitService := plantunit.NewService(plantunitPostgres.NewPlantUnitRepository(deps.Gorm), lg)
	downtimeService := downtime.NewService(
		downtimePostgres.NewDowntimeRepository(deps.Gorm), plantUnitService, deps.Bus, lg)

	activityRepo := activityPostgres.NewActivityRepository(deps.Gorm)

	return &Services{
		Permission: permissionService,
		User:       userService,
		Auth:       authService,
		PlantUnit:  plantUnitService,
		Downtime:   downtimeService,
		Activity:   activity.NewService(activityRepo, lg),
		Recorder:   activity.NewRecorder(activityRepo, lg),
	}
}

// initDB opens the pgx-backed pool shared by sqlx and gorm.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm session: %w", err)
	}
	return gormDB, nil
}
