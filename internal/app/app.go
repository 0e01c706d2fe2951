package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edu_portal_backend/internal/config"
	"edu_portal_backend/internal/controller"
	"edu_portal_backend/internal/repository"
	"edu_portal_backend/internal/service"
	"edu_portal_backend/pkg/database"
	"edu_portal_backend/pkg/logger"
	"edu_portal_backend/pkg/monitoring"
	"edu_portal_backend/pkg/security"
	"edu_portal_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services
}

type repositories struct {
	user       *repository.UserRepository
	cycle      *repository.CycleRepository
	lesson     *repository.LessonRepository
	assignment *repository.AssignmentRepository
	chat       *repository.ChatRepository
}

type services struct {
	auth       *service.AuthService
	user       *service.UserService
	cycle      *service.CycleService
	lesson     *service.LessonService
	assignment *service.AssignmentService
	annotation *service.AnnotationService
	storage    *service.StorageService
	email      service.EmailService
	chat       *service.ChatService
	chatHub    *service.ChatHub
}

type controllers struct {
	auth       *controller.AuthController
	user       *controller.UserController
	cycle      *controller.CycleController
	lesson     *controller.LessonController
	assignment *controller.AssignmentController
	feedback   *controller.FeedbackController
	chat       *controller.ChatController
	health     *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		cycle:      repository.NewCycleRepository(db),
		lesson:     repository.NewLessonRepository(db),
		assignment: repository.NewAssignmentRepository(db),
		chat:       repository.NewChatRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.email = service.NewEmailService(cfg.Email)

	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user)
	s.cycle = service.NewCycleService(repos.cycle)
	s.lesson = service.NewLessonService(repos.lesson, s.storage)
	s.assignment = service.NewAssignmentService(repos.assignment, repos.user, s.email)
	s.annotation = service.NewAnnotationService(repos.assignment)

	s.chatHub = service.NewChatHub(rdb)
	go s.chatHub.Run()
	s.chat = service.NewChatService(repos.chat, s.chatHub)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth),
		user:       controller.NewUserController(s.user),
		cycle:      controller.NewCycleController(s.cycle, s.user),
		lesson:     controller.NewLessonController(s.lesson),
		assignment: controller.NewAssignmentController(s.assignment),
		feedback:   controller.NewFeedbackController(s.annotation, s.assignment),
		chat:       controller.NewChatController(s.chat, s.chatHub, s.assignment),
		health:     controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(&cfg.RateLimit))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// Redis 只承载跨实例聊天广播,单实例部署允许降级
		logger.Log.Warn("Redis unavailable, chat fan-out falls back to in-process", zap.Error(err))
		rdb = nil
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("learning-portal", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, services, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

// ReloadConfig 将新配置写入中间件共享的配置对象,实现 JWT 密钥等字段的热更新。
// 端口、数据库连接等启动期字段需要重启才会生效。
func (a *App) ReloadConfig(cfg *config.Config) {
	*a.Config = *cfg
	logger.Log.Info("配置热更新完成")
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if a.services != nil && a.services.chatHub != nil {
		a.services.chatHub.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
