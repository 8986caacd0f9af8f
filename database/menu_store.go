package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"menuboard/apperr"
	"menuboard/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MenuStore menus 表的读写网关，只负责行的增删改查
type MenuStore struct {
	db *gorm.DB
}

// NewMenuStore 创建菜单记录网关
func NewMenuStore(db *gorm.DB) *MenuStore {
	return &MenuStore{db: db}
}

// MenuFields 部分更新字段，Name/FileURLs 为 nil 表示不修改
type MenuFields struct {
	Name      *string
	FileURLs  []string
	UpdatedAt time.Time
}

// Insert 插入菜单，ID 由 BeforeCreate 分配；slug 冲突返回 DuplicateSlug
func (s *MenuStore) Insert(ctx context.Context, menu *models.Menu) error {
	if err := s.db.WithContext(ctx).Create(menu).Error; err != nil {
		return translate("Insert", err)
	}
	return nil
}

// SelectAll 按创建时间返回全部菜单
func (s *MenuStore) SelectAll(ctx context.Context) ([]models.Menu, error) {
	var menus []models.Menu
	if err := s.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&menus).Error; err != nil {
		return nil, translate("SelectAll", err)
	}
	return menus, nil
}

// SelectBySlug 按 slug 查询
func (s *MenuStore) SelectBySlug(ctx context.Context, slug string) (*models.Menu, error) {
	var menu models.Menu
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&menu).Error; err != nil {
		return nil, translate("SelectBySlug", err)
	}
	return &menu, nil
}

// SelectByID 按 ID 查询
func (s *MenuStore) SelectByID(ctx context.Context, id uuid.UUID) (*models.Menu, error) {
	var menu models.Menu
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&menu).Error; err != nil {
		return nil, translate("SelectByID", err)
	}
	return &menu, nil
}

// Update 带版本校验的部分更新，版本不符返回 VersionConflict
func (s *MenuStore) Update(ctx context.Context, id uuid.UUID, expectedVersion int, fields MenuFields) (*models.Menu, error) {
	updates := map[string]interface{}{
		"updated_at": fields.UpdatedAt,
		"version":    gorm.Expr("version + 1"),
	}
	if fields.Name != nil {
		updates["name"] = *fields.Name
	}
	if fields.FileURLs != nil {
		updates["file_urls"] = datatypes.NewJSONSlice(fields.FileURLs)
	}

	res := s.db.WithContext(ctx).Model(&models.Menu{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return nil, translate("Update", res.Error)
	}
	if res.RowsAffected == 0 {
		// 区分记录不存在与版本冲突
		if _, err := s.SelectByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, apperr.New(apperr.KindVersionConflict, "Update", nil)
	}
	return s.SelectByID(ctx, id)
}

// Delete 删除菜单记录
func (s *MenuStore) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Menu{})
	if res.Error != nil {
		return translate("Delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, "Delete", gorm.ErrRecordNotFound)
	}
	return nil
}

// translate 将 gorm/驱动错误映射为业务错误类别
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.New(apperr.KindNotFound, op, err)
	case isDuplicateKey(err):
		return apperr.New(apperr.KindDuplicateSlug, op, err)
	default:
		return apperr.New(apperr.KindStoreUnavailable, op, err)
	}
}

// isDuplicateKey TranslateError 覆盖不到时（如 sqlmock 返回的原始错误）按驱动错误文本兜底
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "sqlstate 23505")
}
