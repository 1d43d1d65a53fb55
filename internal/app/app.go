package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"quiz_arena_backend/internal/config"
	"quiz_arena_backend/internal/controller"
	"quiz_arena_backend/internal/repository"
	"quiz_arena_backend/internal/repository/memory"
	"quiz_arena_backend/internal/service"
	"quiz_arena_backend/internal/task"
	"quiz_arena_backend/internal/util"
	"quiz_arena_backend/pkg/configwatcher"
	"quiz_arena_backend/pkg/database"
	"quiz_arena_backend/pkg/logger"
	"quiz_arena_backend/pkg/monitoring"
	"quiz_arena_backend/pkg/security"
	"quiz_arena_backend/pkg/tracing"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	Services *Services

	tracer          *sdktrace.TracerProvider
	scheduler       *task.Scheduler
	configCallbacks []func(*config.Config)
}

type stores struct {
	teams    service.TeamStore
	admins   service.AdminStore
	quizzes  service.QuizStore
	attempts service.AttemptStore
	reports  service.ReportCache
	tokens   service.TokenStore
}

// Services 导出给命令行使用，与 HTTP 接口共用同一套业务逻辑
type Services struct {
	Auth      *service.AuthService
	Attempts  *service.AttemptService
	QuizAdmin *service.QuizAdminService
	Reports   *service.ReportService
	Storage   *service.StorageService
	Hub       *service.ResultsHub
}

type controllers struct {
	auth      *controller.AuthController
	quiz      *controller.QuizController
	dashboard *controller.AdminDashboardController
	image     *controller.ImageController
	health    *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig 将热加载的配置交给所有已注册的回调
func (a *App) ApplyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initStores(db *gorm.DB, rdb *redis.Client) *stores {
	s := &stores{}
	if db != nil {
		s.teams = repository.NewTeamRepository(db)
		s.admins = repository.NewAdminRepository(db)
		s.quizzes = repository.NewQuizRepository(db)
		s.attempts = repository.NewAttemptRepository(db)
	} else {
		s.teams = memory.NewTeamStore()
		s.admins = memory.NewAdminStore()
		s.quizzes = memory.NewQuizStore()
		s.attempts = memory.NewAttemptStore()
	}

	if rdb != nil {
		s.reports = repository.NewReportCacheRepository(rdb)
		s.tokens = repository.NewTokenRepository(rdb)
	} else {
		s.reports = memory.NewReportCache()
		s.tokens = memory.NewTokenStore()
	}
	return s
}

func (a *App) initServices(st *stores, cfg *config.Config, rdb *redis.Client) *Services {
	s := &Services{}

	s.Hub = service.NewResultsHub(rdb)
	s.Storage = service.NewStorageService(cfg)
	s.Auth = service.NewAuthService(st.teams, st.admins, st.tokens, cfg)
	s.Attempts = service.NewAttemptService(st.quizzes, st.attempts, cfg.Quiz)
	s.Reports = service.NewReportService(st.quizzes, st.attempts, st.teams, st.reports, s.Hub, cfg.Quiz)
	s.QuizAdmin = service.NewQuizAdminService(st.quizzes, st.attempts, st.teams, s.Reports)

	s.Attempts.OnSubmitted(s.Reports.HandleSubmission)

	a.RegisterConfigCallback(func(c *config.Config) {
		s.Attempts.UpdateConfig(c.Quiz)
		s.Reports.UpdateConfig(c.Quiz)
	})

	return s
}

func (a *App) initControllers(s *Services) *controllers {
	return &controllers{
		auth:      controller.NewAuthController(s.Auth, a.Config),
		quiz:      controller.NewQuizController(s.Attempts),
		dashboard: controller.NewAdminDashboardController(s.QuizAdmin, s.Reports, s.Hub),
		image:     controller.NewImageController(s.Storage),
		health:    controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	if cfg.RateLimit.MaxRequests > 0 {
		window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
		if window <= 0 {
			window = time.Minute
		}
		router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, window))
	}

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// OpenDatabase 连接 MySQL，内存驱动时返回 nil
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Log.Warn("Using in-memory stores, data is lost on restart")
		return nil, nil
	}
	return database.InitDB(&cfg.Database, cfg.Server.Mode == gin.DebugMode)
}

// NewApp 初始化存储并构建路由，后台任务在 Run 中启动
func NewApp(cfg *config.Config) (*App, error) {
	gin.SetMode(cfg.Server.Mode)

	db, err := OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if db != nil && cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			return nil, err
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	st := app.initStores(db, rdb)
	app.Services = app.initServices(st, cfg, rdb)
	controllers := app.initControllers(app.Services)

	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("quiz-arena", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return nil, err
		}
		app.tracer = tp
	}

	router := gin.Default()
	router.MaxMultipartMemory = int64(cfg.Storage.MaxImageMB+1) << 20
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app, nil
}

func (a *App) startBackgroundTasks(ctx context.Context) {
	go a.Services.Hub.Run(ctx)

	interval := time.Duration(a.Config.Quiz.ReportRefreshSeconds) * time.Second
	a.scheduler = task.NewScheduler(a.Services.Reports, interval)
	if err := a.scheduler.Start(); err != nil {
		logger.Log.Error("Failed to schedule report warm-up", zap.Error(err))
	}
}

// ConfigWatcher 监听配置文件直到 ctx 结束，并把每次重新加载的配置交给 reload。
// 生产环境使用 configwatcher.WatchConfig
type ConfigWatcher func(ctx context.Context, file string, reload configwatcher.ConfigReloader) error

// Run 启动服务器，收到 SIGINT 或 SIGTERM 后优雅关闭。
// configFile 不为空时监听其变化并重新加载
func (a *App) Run(configFile string, watch ConfigWatcher) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundTasks(ctx)

	if configFile != "" && watch != nil {
		go func() {
			if err := watch(ctx, configFile, a.ApplyConfig); err != nil {
				logger.Log.Error("Config watcher stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		a.Close()
		return err
	}
	logger.Log.Info("Shutting down server...")

	// 清理 WebSocket 连接，Shutdown 不会关闭被劫持的连接
	a.Services.Hub.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	err := srv.Shutdown(shutdownCtx)
	a.Close()
	if err != nil {
		return err
	}

	logger.Log.Info("Server exiting")
	return nil
}

// Close 释放定时任务、追踪和数据库连接
func (a *App) Close() {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
