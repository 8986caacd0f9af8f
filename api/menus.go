package api

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"menuboard/logger"
	"menuboard/models"
	"menuboard/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MenusAllow /api/menus 支持的方法
const MenusAllow = "GET, POST, PUT, DELETE"

// MenuPipeline 菜单流水线
type MenuPipeline interface {
	AddMenu(ctx context.Context, name string, files []service.FileUpload) (*models.Menu, error)
	UpdateMenu(ctx context.Context, id uuid.UUID, name string, files []service.FileUpload) (*models.Menu, error)
	DeleteMenu(ctx context.Context, id uuid.UUID) error
	ListMenus(ctx context.Context) ([]models.Menu, error)
	GetMenu(ctx context.Context, id uuid.UUID) (*models.Menu, error)
	GetMenuBySlug(ctx context.Context, slug string) (*models.Menu, error)
	ReconcileFromStorage(ctx context.Context) (*service.ReconcileReport, error)
}

// MenusHandler /api/menus 处理器
type MenusHandler struct {
	log      *logger.Logger
	pipeline MenuPipeline
}

// NewMenusHandler 创建菜单接口处理器
func NewMenusHandler(log *logger.Logger, pipeline MenuPipeline) *MenusHandler {
	return &MenusHandler{log: log.With("handler", "menus"), pipeline: pipeline}
}

// List 获取全部菜单；带 id 时只返回该菜单
// @Summary 菜单列表
// @Description 按创建时间返回全部菜单；传入 id 时返回单个菜单
// @Tags 菜单
// @Produce json
// @Param id query string false "菜单 ID"
// @Success 200 {array} models.Menu "菜单列表"
// @Failure 400 {object} ErrorResponse "id 无效"
// @Failure 404 {object} ErrorResponse "菜单不存在"
// @Failure 500 {object} ErrorResponse "服务器错误"
// @Router /api/menus [get]
func (h *MenusHandler) List(c *gin.Context) {
	if raw, ok := c.GetQuery("id"); ok {
		h.get(c, raw)
		return
	}
	menus, err := h.pipeline.ListMenus(c.Request.Context())
	if err != nil {
		h.log.Error("获取菜单列表失败", "error", err)
		abortWithError(c, err)
		return
	}
	if menus == nil {
		menus = []models.Menu{}
	}
	c.JSON(http.StatusOK, menus)
}

func (h *MenusHandler) get(c *gin.Context, raw string) {
	id, err := parseMenuID(raw)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	menu, err := h.pipeline.GetMenu(c.Request.Context(), id)
	if err != nil {
		if StatusFor(err) >= http.StatusInternalServerError {
			h.log.Error("获取菜单失败", "id", id, "error", err)
		}
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, menu)
}

// Create 新建菜单
// @Summary 新建菜单
// @Description 上传一个或多个文件创建菜单，slug 由名称生成，文件顺序即展示顺序
// @Tags 菜单
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param name formData string true "菜单名称"
// @Param menuFiles formData file true "菜单文件（可多个）"
// @Success 201 {object} models.Menu "创建成功"
// @Failure 400 {object} ErrorResponse "名称或文件无效"
// @Failure 401 {object} ErrorResponse "未登录"
// @Failure 409 {object} ErrorResponse "slug 已存在"
// @Failure 500 {object} ErrorResponse "存储或数据库错误"
// @Router /api/menus [post]
func (h *MenusHandler) Create(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "请求必须为 multipart/form-data")
		return
	}
	files, closeAll, err := openUploads(form.File["menuFiles"])
	defer closeAll()
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	menu, err := h.pipeline.AddMenu(c.Request.Context(), formValue(form, "name"), files)
	if err != nil {
		h.log.Warn("新建菜单失败", "error", err)
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, menu)
}

// Update 修改菜单
// @Summary 修改菜单
// @Description 修改名称；提供文件时整体替换原有文件。slug 不变
// @Tags 菜单
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id formData string true "菜单 ID"
// @Param name formData string true "菜单名称"
// @Param menuFiles formData file false "新的菜单文件（可多个）"
// @Success 200 {object} models.Menu "修改成功"
// @Failure 400 {object} ErrorResponse "参数错误"
// @Failure 401 {object} ErrorResponse "未登录"
// @Failure 404 {object} ErrorResponse "菜单不存在"
// @Failure 409 {object} ErrorResponse "并发修改冲突"
// @Failure 500 {object} ErrorResponse "存储或数据库错误"
// @Router /api/menus [put]
func (h *MenusHandler) Update(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "请求必须为 multipart/form-data")
		return
	}
	raw := formValue(form, "id")
	if raw == "" {
		raw = c.Query("id")
	}
	id, err := parseMenuID(raw)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	files, closeAll, err := openUploads(form.File["menuFiles"])
	defer closeAll()
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	menu, err := h.pipeline.UpdateMenu(c.Request.Context(), id, formValue(form, "name"), files)
	if err != nil {
		h.log.Warn("修改菜单失败", "id", id, "error", err)
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, menu)
}

// Delete 删除菜单
// @Summary 删除菜单
// @Description 删除菜单的全部文件与数据库记录
// @Tags 菜单
// @Produce json
// @Security BearerAuth
// @Param id query string true "菜单 ID"
// @Success 200 {object} map[string]bool "删除成功"
// @Failure 400 {object} ErrorResponse "参数错误"
// @Failure 401 {object} ErrorResponse "未登录"
// @Failure 404 {object} ErrorResponse "菜单不存在"
// @Router /api/menus [delete]
func (h *MenusHandler) Delete(c *gin.Context) {
	id, err := parseMenuID(c.Query("id"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.pipeline.DeleteMenu(c.Request.Context(), id); err != nil {
		h.log.Warn("删除菜单失败", "id", id, "error", err)
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// MethodNotAllowed 405，/api/menus 返回固定的 Allow 头
func MethodNotAllowed(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/menus") {
		c.Header("Allow", MenusAllow)
	}
	c.AbortWithStatusJSON(http.StatusMethodNotAllowed, ErrorResponse{
		Error: fmt.Sprintf("不支持的请求方法 %s", c.Request.Method),
	})
}

func parseMenuID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, errors.New("缺少菜单 id")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("无效的菜单 id: %s", raw)
	}
	return id, nil
}

func formValue(form *multipart.Form, key string) string {
	if vs := form.Value[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// openUploads 按表单顺序打开上传文件；返回的 close 函数总是可调用
func openUploads(headers []*multipart.FileHeader) ([]service.FileUpload, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	files := make([]service.FileUpload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, fmt.Errorf("读取上传文件 %s 失败", fh.Filename)
		}
		opened = append(opened, f)
		files = append(files, service.FileUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Content:     f,
		})
	}
	return files, closeAll, nil
}
