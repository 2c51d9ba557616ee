package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rental_listing_v1/internal/client"
	"rental_listing_v1/internal/config"
	"rental_listing_v1/internal/controller"
	"rental_listing_v1/internal/middleware"
	"rental_listing_v1/internal/model"
	"rental_listing_v1/internal/repository"
	"rental_listing_v1/internal/router"
	"rental_listing_v1/internal/service"
	"rental_listing_v1/internal/smartform"
	"rental_listing_v1/internal/task"
	"rental_listing_v1/pkg/database"
	applog "rental_listing_v1/pkg/logger"
	"rental_listing_v1/pkg/net"
	"rental_listing_v1/pkg/utils"
)

func main() {
	configPath := flag.String("config", getEnv("CONFIG_FILE", ""), "配置文件路径")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := applog.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	// 2. 初始化数据库
	db, err := initDatabase(cfg, logger)
	if err != nil {
		logger.Fatal("数据库初始化失败", zap.Error(err))
	}

	// 3. 初始化依赖
	deps, err := initDependencies(cfg, db, logger)
	if err != nil {
		logger.Fatal("依赖初始化失败", zap.Error(err))
	}
	defer deps.Close()

	// 4. 启动定时任务
	tasks := initTasks(cfg, deps, logger)
	tasks.Start()
	defer tasks.Stop()

	// 5. 初始化路由
	gin.SetMode(cfg.Server.GinMode)
	r := router.SetupRouter(deps.Controllers, router.Options{
		Logger:   logger,
		Limiter:  deps.Limiter,
		Cooldown: cfg.AI.Cooldown,
	})

	// 6. 启动服务
	startServer(cfg, r, deps, logger)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Dispatcher  net.Dispatcher
	Limiter     *middleware.CooldownLimiter
	Controllers *router.Controllers
	Services    *Services

	closers []io.Closer
	caches  []task.CachePurger
}

// Close 释放外部客户端
func (d *Dependencies) Close() {
	for _, c := range d.closers {
		_ = c.Close()
	}
}

// Repositories 仓库集合
type Repositories struct {
	Draft     repository.DraftRepository
	Feedback  repository.FeedbackRepository
	AiCallLog repository.AICallLogRepository
}

// Services 服务集合
type Services struct {
	AI        client.AIClient
	Recorder  *service.AICallRecorder
	History   *service.HistoryService
	Location  *service.LocationService
	Pricing   *service.PricingAdvisor
	Wizard    *service.WizardService
	Content   *service.ContentService
	SmartForm *service.SmartFormService
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	db, err := database.InitDB(database.Options{
		DSN:         cfg.Database.DSN,
		AutoMigrate: cfg.Database.AutoMigrate,
		Logger:      logger,
	},
		// Wizard
		&model.ListingDraft{},
		// SmartForm
		&model.SuggestionFeedback{},
		// AI
		&model.AICallLog{},
	)
	if err != nil {
		return nil, err
	}
	if err := middleware.RegisterAuditCallbacks(db); err != nil {
		return nil, err
	}
	return db, nil
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, db *gorm.DB, logger *zap.Logger) (*Dependencies, error) {
	// -------- Repo 层 --------
	repos := initRepositories(db)

	// -------- 基础组件 --------
	dispatcher := net.NewDispatcher(net.Options{Timeout: cfg.AI.Timeout})
	deps := &Dependencies{
		DB:         db,
		Repos:      repos,
		Dispatcher: dispatcher,
		Limiter:    middleware.NewCooldownLimiter(),
	}

	// -------- AI & 外部服务 --------
	ai, err := initAI(cfg, dispatcher, logger)
	if err != nil {
		return nil, err
	}
	if closer, ok := ai.(io.Closer); ok {
		deps.closers = append(deps.closers, closer)
	}

	placeCache := utils.NewTTLCache[[]client.Place](cfg.Location.CacheTTL)
	marketCache := utils.NewTTLCache[*client.MarketData](cfg.Market.CacheTTL)
	deps.caches = append(deps.caches, placeCache, marketCache)

	locationClient := client.NewLocationClient(
		utils.NewRestClient(utils.ClientOptions{
			BaseURL: cfg.Location.URL,
			APIKey:  cfg.Location.APIKey,
			Timeout: cfg.Location.Timeout,
		}),
		placeCache,
	)
	marketClient := client.NewMarketClient(
		utils.NewRestClient(utils.ClientOptions{
			BaseURL: cfg.Market.URL,
			APIKey:  cfg.Market.APIKey,
			Timeout: cfg.Market.Timeout,
		}),
		marketCache,
	)

	static, err := smartform.NewStaticHistory()
	if err != nil {
		return nil, err
	}

	// -------- 业务服务 --------
	services := &Services{
		AI:       ai,
		Recorder: service.NewAICallRecorder(repos.AiCallLog, logger),
		History:  service.NewHistoryService(static, repos.Feedback, logger),
		Location: service.NewLocationService(locationClient, logger),
		Pricing:  service.NewPricingAdvisor(marketClient, logger),
	}

	services.Wizard = service.NewWizardService(repos.Draft, service.LoggedValidator(ai, services.Recorder), logger)
	services.Content = service.NewContentService(ai, marketClient, repos.AiCallLog, logger)
	services.SmartForm = service.NewSmartFormService(service.SmartFormDeps{
		AI:       ai,
		Location: services.Location,
		History:  services.History,
		Pricer:   services.Pricing,
		Feedback: repos.Feedback,
		Recorder: services.Recorder,
		Drafts:   services.Wizard,
		Options: smartform.Options{
			ValidationDelay:   cfg.SmartForm.ValidationDelay,
			AutocompleteDelay: cfg.SmartForm.AutocompleteDelay,
			BlurGrace:         cfg.SmartForm.BlurGrace,
			MaxAutocomplete:   cfg.SmartForm.MaxAutocomplete,
		},
		TTL:    cfg.SmartForm.SessionTTL,
		Logger: logger,
	})

	// -------- Controller 层 --------
	deps.Services = services
	deps.Controllers = initControllers(services)
	return deps, nil
}

// initAI 按配置选择 AI 实现
func initAI(cfg *config.Config, dispatcher net.Dispatcher, logger *zap.Logger) (client.AIClient, error) {
	switch cfg.AI.Provider {
	case "gemini":
		gemini, err := client.NewGeminiAI(context.Background(), cfg.AI.GeminiKey, cfg.AI.Model, logger)
		if err != nil {
			return nil, err
		}
		return gemini, nil
	case "remote":
		if cfg.AI.ServiceURL == "" {
			logger.Warn("AI_SERVICE_URL 未配置，AI 功能已禁用")
			return client.DisabledAI{}, nil
		}
		return client.NewRemoteAI(client.RemoteAIConfig{
			BaseURL: cfg.AI.ServiceURL,
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
		}, dispatcher, logger), nil
	default:
		return client.DisabledAI{}, nil
	}
}

// initRepositories 初始化所有仓库
func initRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Draft:     repository.NewDraftRepository(db),
		Feedback:  repository.NewFeedbackRepository(db),
		AiCallLog: repository.NewAICallLogRepository(db),
	}
}

// initControllers 初始化所有控制器
func initControllers(svc *Services) *router.Controllers {
	return &router.Controllers{
		SmartForm: controller.NewSmartFormController(svc.SmartForm),
		Draft:     controller.NewDraftController(svc.Wizard),
		Content:   controller.NewContentController(svc.Content),
		Location:  controller.NewLocationController(svc.Location),
	}
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(cfg *config.Config, deps *Dependencies, logger *zap.Logger) *task.TaskManager {
	taskCfg := task.DefaultConfig()
	if cfg.Tasks.SessionSweepSpec != "" {
		taskCfg.SessionSpec = cfg.Tasks.SessionSweepSpec
	}
	if cfg.Tasks.DraftCleanupSpec != "" {
		taskCfg.DraftSpec = cfg.Tasks.DraftCleanupSpec
	}
	if cfg.Tasks.DraftRetention > 0 {
		taskCfg.DraftRetention = cfg.Tasks.DraftRetention
	}

	return task.NewTaskManager(&task.TaskManagerDeps{
		Sessions: deps.Services.SmartForm,
		Limiter:  deps.Limiter,
		Drafts:   deps.Services.Wizard,
		Caches:   deps.caches,
		Logger:   logger.With(zap.String("component", "task")),
	}, taskCfg)
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(cfg *config.Config, r *gin.Engine, deps *Dependencies, logger *zap.Logger) {
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		logger.Info("服务启动", zap.String("addr", srv.Addr), zap.String("ai", cfg.AI.Provider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("服务启动失败", zap.Error(err))
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 先关闭会话，SSE 连接随之结束
	deps.Services.SmartForm.Shutdown(ctx)

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务强制关闭", zap.Error(err))
	}

	logger.Info("服务已退出")
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
