package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"menuboard/config"
	"menuboard/logger"
	"menuboard/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// MenuLister 列出全部菜单
type MenuLister interface {
	ListMenus(ctx context.Context) ([]models.Menu, error)
}

// ExportHandler 导出处理器
type ExportHandler struct {
	log   *logger.Logger
	menus MenuLister
	now   func() time.Time
}

// NewExportHandler 创建导出处理器
func NewExportHandler(log *logger.Logger, menus MenuLister) *ExportHandler {
	return &ExportHandler{log: log.With("handler", "export"), menus: menus, now: time.Now}
}

// ExportExcel 导出全部菜单为 Excel
// @Summary 导出菜单
// @Description 导出全部菜单（名称、slug、文件数、文件地址、时间）为 xlsx 文件
// @Tags 后台管理
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file "Excel 文件"
// @Failure 401 {object} ErrorResponse "未登录"
// @Failure 500 {object} Result "导出失败"
// @Router /admin/menus/export [get]
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	menus, err := h.menus.ListMenus(c.Request.Context())
	if err != nil {
		h.log.Error("导出读取菜单失败", "error", err)
		fail(c, http.StatusInternalServerError, config.SafeErrorMessage(err, "读取菜单失败"))
		return
	}

	f, err := buildMenuWorkbook(menus)
	if err != nil {
		h.log.Error("生成 Excel 失败", "error", err)
		fail(c, http.StatusInternalServerError, "生成 Excel 失败")
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("menus_%s.xlsx", h.now().Format("20060102"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", filename))

	if err := f.Write(c.Writer); err != nil {
		h.log.Error("写出 Excel 失败", "error", err)
	}
}

const menuSheet = "菜单"

func buildMenuWorkbook(menus []models.Menu) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", menuSheet); err != nil {
		f.Close()
		return nil, err
	}

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	// 表头样式
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		f.Close()
		return nil, err
	}
	// 数据样式，文件地址列需要换行
	dataStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "center", WrapText: true},
		Border:    border,
	})
	if err != nil {
		f.Close()
		return nil, err
	}

	widths := map[string]float64{"A": 24, "B": 24, "C": 10, "D": 80, "E": 20, "F": 20}
	for col, w := range widths {
		f.SetColWidth(menuSheet, col, col, w)
	}

	headers := []string{"名称", "Slug", "文件数", "文件地址", "创建时间", "更新时间"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(menuSheet, cell, header)
		f.SetCellStyle(menuSheet, cell, cell, headerStyle)
	}

	for i, m := range menus {
		row := i + 2
		f.SetCellValue(menuSheet, fmt.Sprintf("A%d", row), m.Name)
		f.SetCellValue(menuSheet, fmt.Sprintf("B%d", row), m.Slug)
		f.SetCellValue(menuSheet, fmt.Sprintf("C%d", row), len(m.FileURLs))
		f.SetCellValue(menuSheet, fmt.Sprintf("D%d", row), strings.Join(m.URLs(), "\n"))
		f.SetCellValue(menuSheet, fmt.Sprintf("E%d", row), m.CreatedAt.Format("2006-01-02 15:04:05"))
		f.SetCellValue(menuSheet, fmt.Sprintf("F%d", row), m.UpdatedAt.Format("2006-01-02 15:04:05"))
		f.SetCellStyle(menuSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("F%d", row), dataStyle)
	}
	return f, nil
}
