package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Menu 菜单：一组按上传顺序展示的图片/PDF
// Slug 创建时由名称生成，之后不随改名变化，同时作为存储目录与公开页面路径
type Menu struct {
	ID        uuid.UUID                   `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name      string                      `json:"name" gorm:"size:200;not null"`
	Slug      string                      `json:"slug" gorm:"size:200;not null;uniqueIndex"`
	FileURLs  datatypes.JSONSlice[string] `json:"fileUrls" gorm:"column:file_urls"`
	Version   int                         `json:"version" gorm:"not null;default:1"` // 乐观锁版本号
	CreatedAt time.Time                   `json:"createdAt"`
	UpdatedAt time.Time                   `json:"updatedAt"`
}

// TableName 设置表名
func (Menu) TableName() string {
	return "menus"
}

// BeforeCreate 由记录存储分配 ID
func (m *Menu) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Version == 0 {
		m.Version = 1
	}
	if m.FileURLs == nil {
		m.FileURLs = datatypes.JSONSlice[string]{}
	}
	return nil
}

// URLs 返回文件 URL 的普通切片副本
func (m *Menu) URLs() []string {
	out := make([]string, len(m.FileURLs))
	copy(out, m.FileURLs)
	return out
}
