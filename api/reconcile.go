package api

import (
	"context"

	"menuboard/logger"
	"menuboard/service"

	"github.com/gin-gonic/gin"
)

// Reconciler 存储对账
type Reconciler interface {
	ReconcileFromStorage(ctx context.Context) (*service.ReconcileReport, error)
}

// ReconcileHandler 对账接口
type ReconcileHandler struct {
	log        *logger.Logger
	reconciler Reconciler
}

func NewReconcileHandler(log *logger.Logger, reconciler Reconciler) *ReconcileHandler {
	return &ReconcileHandler{log: log.With("handler", "reconcile"), reconciler: reconciler}
}

// Run 为存储中存在但缺少记录的目录补建菜单
// @Summary 从存储对账
// @Description 扫描存储桶的顶层目录，为缺少数据库记录的目录补建菜单；可重复执行
// @Tags 后台管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Result{data=service.ReconcileReport} "对账结果"
// @Failure 401 {object} ErrorResponse "未登录"
// @Failure 500 {object} ErrorResponse "存储或数据库不可用"
// @Router /admin/menus/reconcile [post]
func (h *ReconcileHandler) Run(c *gin.Context) {
	report, err := h.reconciler.ReconcileFromStorage(c.Request.Context())
	if err != nil {
		h.log.Error("对账失败", "error", err)
		abortWithError(c, err)
		return
	}
	ok(c, "对账完成", report)
}
