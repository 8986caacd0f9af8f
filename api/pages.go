package api

import (
	"context"
	"errors"
	"net/http"

	"menuboard/apperr"
	"menuboard/logger"
	"menuboard/models"

	"github.com/gin-gonic/gin"
)

// MenuReader 公开页面所需的只读接口
type MenuReader interface {
	ListMenus(ctx context.Context) ([]models.Menu, error)
	GetMenuBySlug(ctx context.Context, slug string) (*models.Menu, error)
}

// PageHandler 公开页面与后台页面
type PageHandler struct {
	log   *logger.Logger
	menus MenuReader
	brand string
}

// NewPageHandler 创建页面处理器，模板需已通过 engine.SetHTMLTemplate 加载
func NewPageHandler(log *logger.Logger, menus MenuReader, brand string) *PageHandler {
	if brand == "" {
		brand = "Menuboard"
	}
	return &PageHandler{log: log.With("handler", "pages"), menus: menus, brand: brand}
}

// Index 首页：全部菜单的链接
func (h *PageHandler) Index(c *gin.Context) {
	menus, err := h.menus.ListMenus(c.Request.Context())
	if err != nil {
		h.log.Error("首页读取菜单失败", "error", err)
		c.HTML(http.StatusInternalServerError, "menu.html", gin.H{"Brand": h.brand, "Error": "Failed to load menus"})
		return
	}
	c.HTML(http.StatusOK, "index.html", gin.H{"Brand": h.brand, "Menus": menus})
}

// Menu 按 slug 展示菜单的全部页面
func (h *PageHandler) Menu(c *gin.Context) {
	menu, err := h.menus.GetMenuBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			c.HTML(http.StatusNotFound, "menu.html", gin.H{"Brand": h.brand, "Error": "Menu not found"})
			return
		}
		h.log.Error("读取菜单失败", "slug", c.Param("slug"), "error", err)
		c.HTML(http.StatusInternalServerError, "menu.html", gin.H{"Brand": h.brand, "Error": "Failed to load menu"})
		return
	}
	c.HTML(http.StatusOK, "menu.html", gin.H{"Brand": h.brand, "Menu": menu})
}

// Admin 后台上传页面，登录态由页面脚本通过 /admin/session 判断
func (h *PageHandler) Admin(c *gin.Context) {
	c.HTML(http.StatusOK, "admin.html", nil)
}
