package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"menuboard/config"
	"menuboard/database"
	"menuboard/logger"
	"menuboard/middleware"
	"menuboard/router"
	"menuboard/service"
	"menuboard/storage"
)

// @title 菜单发布 API
// @version 1.0
// @description 餐厅菜单发布服务：上传菜单图片/PDF，生成公开页面，并保持存储与数据库一致
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const version = "1.0.0"

var (
	configFile   string
	port         string
	showVersion  bool
	runReconcile bool
	setupStorage bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "外部配置文件路径（可选）")
	flag.StringVar(&configFile, "c", "", "外部配置文件路径（简写）")
	flag.StringVar(&port, "port", "", "监听端口，如: 8080 或 :8080")
	flag.StringVar(&port, "p", "", "监听端口（简写）")
	flag.BoolVar(&showVersion, "version", false, "显示版本信息")
	flag.BoolVar(&showVersion, "v", false, "显示版本信息（简写）")
	flag.BoolVar(&runReconcile, "reconcile", false, "从存储对账一次后退出")
	flag.BoolVar(&setupStorage, "setup-storage", false, "创建存储桶（已存在则跳过）后退出")
}

func main() {
	flag.Parse()

	if showVersion {
		log.Printf("菜单发布服务 v%s", version)
		return
	}

	// 加载配置（内置配置 + 可选的外部配置覆盖）
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 命令行参数覆盖端口配置
	if port != "" {
		// 自动添加冒号前缀
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Server.Port = port
	}

	appLog, err := logger.New(cfg.Server.Mode)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer appLog.Sync()
	appLog.Info("配置已加载", cfg.Summary()...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLog); err != nil {
		appLog.Error("退出", "error", err)
		stop()
		appLog.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, appLog *logger.Logger) error {
	// 对象存储
	objects, err := storage.New(ctx, &cfg.Storage, appLog)
	if err != nil {
		return err
	}
	if closer, ok := objects.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	if setupStorage || cfg.Storage.EnsureBucket {
		if err := objects.EnsureBucket(ctx); err != nil {
			return err
		}
		if setupStorage {
			appLog.Info("存储桶已就绪", "bucket", cfg.Storage.Bucket)
			return nil
		}
	}

	// 数据库
	db, err := database.Open(cfg, appLog)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	// slug 锁：启用 Redis 时跨实例生效
	var locker service.Locker = service.NewLocalLocker()
	if cfg.Redis.Enabled {
		rdb, err := service.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		locker = service.NewRedisLocker(rdb, time.Duration(cfg.Redis.LockTTLSeconds)*time.Second)
		appLog.Info("使用 Redis slug 锁", "addr", cfg.Redis.Addr)
	}

	notifier := service.MultiNotifier{
		service.NewLogNotifier(appLog),
		service.NewEmailNotifier(&cfg.Email, appLog),
	}

	menus := service.NewMenuService(appLog, database.NewMenuStore(db), objects, locker, notifier, service.MenuOptions{
		UploadConcurrency: cfg.Menu.UploadConcurrency,
		MaxFileSize:       cfg.Storage.MaxFileSize,
		AllowedMimeTypes:  cfg.Storage.AllowedMimeTypes,
		SeedPlaceholder:   cfg.Menu.SeedPlaceholder,
	})

	if runReconcile {
		report, err := menus.ReconcileFromStorage(ctx)
		if err != nil {
			return err
		}
		appLog.Info("对账结果", "created", report.Created, "skipped", report.Skipped, "failed", report.Failed)
		if len(report.Failed) > 0 {
			return errors.New("部分目录对账失败")
		}
		return nil
	}

	// 初始化 JWT
	middleware.InitJWT(cfg)

	// 设置路由
	r := router.SetupRouter(cfg, router.Dependencies{
		Log:   appLog,
		Menus: menus,
		Auth:  service.NewAuthService(database.NewAdminStore(db)),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	appLog.Info("菜单发布服务已启动",
		"admin", "http://localhost"+cfg.Server.Port+"/admin",
		"swagger", "http://localhost"+cfg.Server.Port+"/swagger/index.html",
		"api", "http://localhost"+cfg.Server.Port+"/api/menus",
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		appLog.Info("正在关闭服务")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
