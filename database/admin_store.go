package database

import (
	"context"
	"strings"

	"menuboard/models"

	"gorm.io/gorm"
)

// AdminStore 管理员账号查询
type AdminStore struct {
	db *gorm.DB
}

func NewAdminStore(db *gorm.DB) *AdminStore {
	return &AdminStore{db: db}
}

// FindByEmail 按邮箱（不区分大小写）查找管理员
func (s *AdminStore) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var user models.AdminUser
	email = strings.TrimSpace(strings.ToLower(email))
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate("FindByEmail", err)
	}
	return &user, nil
}

// FindByID 按 ID 查找管理员
func (s *AdminStore) FindByID(ctx context.Context, id uint) (*models.AdminUser, error) {
	var user models.AdminUser
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate("FindByID", err)
	}
	return &user, nil
}
