package router

import (
	"net/http"
	"time"

	"menuboard/api"
	"menuboard/config"
	_ "menuboard/docs"
	"menuboard/logger"
	"menuboard/middleware"
	"menuboard/web"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// 登录限流：每个 IP 每 15 分钟最多 10 次
const (
	loginMaxAttempts = 10
	loginWindow      = 15 * time.Minute
)

// Dependencies 路由所需的服务
type Dependencies struct {
	Log   *logger.Logger
	Menus api.MenuPipeline
	Auth  api.Authenticator
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	// 设置运行模式
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(middleware.CORS(cfg.Server.AllowOrigins))

	r.MaxMultipartMemory = cfg.Server.MaxUploadMB << 20
	r.HandleMethodNotAllowed = true
	r.NoMethod(api.MethodNotAllowed)
	r.SetHTMLTemplate(web.MustTemplates())

	// 公开页面
	pageHandler := api.NewPageHandler(deps.Log, deps.Menus, cfg.Server.Brand)
	r.GET("/", pageHandler.Index)
	r.GET("/menu/:slug", pageHandler.Menu)

	// 菜单接口：读取公开，写入需要管理员登录
	menusHandler := api.NewMenusHandler(deps.Log, deps.Menus)
	menus := r.Group("/api/menus")
	{
		menus.GET("", menusHandler.List)

		writes := menus.Group("")
		writes.Use(middleware.JWTAuth())
		{
			writes.POST("", menusHandler.Create)
			writes.PUT("", menusHandler.Update)
			writes.DELETE("", menusHandler.Delete)
		}
	}

	// 后台管理
	authHandler := api.NewAuthHandler(deps.Log, deps.Auth, cfg.JWT.ExpireTime)
	r.GET("/admin", pageHandler.Admin)
	admin := r.Group("/admin")
	{
		admin.POST("/login", middleware.LoginRateLimit(loginMaxAttempts, loginWindow), authHandler.Login)
		admin.POST("/logout", authHandler.Logout)

		adminAuth := admin.Group("")
		adminAuth.Use(middleware.JWTAuth())
		{
			adminAuth.GET("/session", authHandler.Session)
			adminAuth.GET("/menus/export", api.NewExportHandler(deps.Log, deps.Menus).ExportExcel)
			adminAuth.POST("/menus/reconcile", api.NewReconcileHandler(deps.Log, deps.Menus).Run)
		}
	}

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	return r
}
