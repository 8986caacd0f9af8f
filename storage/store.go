package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"menuboard/config"
	"menuboard/logger"
)

// Provider 存储后端类型
type Provider string

const (
	ProviderSupabase    Provider = "supabase"
	ProviderGCS         Provider = "gcs"
	ProviderGCSEmulator Provider = "gcs_emulator"
)

// Object 存储中的一个对象，Name 为桶内完整路径（slug/文件名）
type Object struct {
	Name         string
	Size         int64
	LastModified time.Time
}

// Store 对象存储网关，桶内以 {slug}/{fileName} 组织菜单文件
type Store interface {
	// Upload 写入 prefix/fileName，返回桶内路径
	Upload(ctx context.Context, prefix, fileName string, body io.Reader, contentType string) (string, error)
	// List 列出 prefix 目录下的对象，返回顺序不做保证
	List(ctx context.Context, prefix string) ([]Object, error)
	// ListPrefixes 列出桶根目录下的全部目录名
	ListPrefixes(ctx context.Context) ([]string, error)
	// PublicURL 由路径推导公开访问地址，不发起网络请求
	PublicURL(objectPath string) string
	// Delete 批量删除，部分失败时错误中列出未删除的路径
	Delete(ctx context.Context, paths []string) error
	// EnsureBucket 桶不存在时按配置创建（公开、限制类型与大小）
	EnsureBucket(ctx context.Context) error
}

// New 按配置创建存储网关
func New(ctx context.Context, cfg *config.StorageConfig, log *logger.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("storage.bucket 未配置")
	}
	switch Provider(strings.ToLower(strings.TrimSpace(cfg.Provider))) {
	case "", ProviderSupabase:
		return NewSupabaseStore(cfg, log)
	case ProviderGCS, ProviderGCSEmulator:
		return NewGCSStore(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("不支持的存储类型: %s", cfg.Provider)
	}
}

// ObjectPath 拼接桶内路径
func ObjectPath(prefix, fileName string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	fileName = strings.TrimLeft(strings.TrimSpace(fileName), "/")
	if prefix == "" {
		return fileName
	}
	return prefix + "/" + fileName
}

// ContentTypeFor 按扩展名推断内容类型，上传未给出类型时使用
func ContentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

func timeoutOf(cfg *config.StorageConfig) time.Duration {
	if cfg.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(cfg.TimeoutSeconds) * time.Second
}

func cacheControlHeader(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "=") {
		return raw
	}
	return "max-age=" + raw
}
