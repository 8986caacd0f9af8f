package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"menuboard/apperr"
	"menuboard/config"
	"menuboard/logger"
)

// GCSStore 基于 Google Cloud Storage（或 fake-gcs 模拟器）的存储网关
type GCSStore struct {
	log           *logger.Logger
	client        *storage.Client
	bucket        string
	projectID     string
	emulator      bool
	emulatorHost  string
	publicBaseURL string
	cdnDomain     string
	upsert        bool
	cacheControl  string
}

// NewGCSStore 创建 GCS 存储网关；provider 为 gcs_emulator 时免鉴权连接模拟器
func NewGCSStore(ctx context.Context, cfg *config.StorageConfig, log *logger.Logger) (*GCSStore, error) {
	emulator := Provider(strings.ToLower(cfg.Provider)) == ProviderGCSEmulator
	emulatorHost := strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/")
	if emulator && emulatorHost == "" {
		return nil, fmt.Errorf("provider=%s 需要配置 storage.emulator_host", ProviderGCSEmulator)
	}

	publicBase := strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if publicBase != "" {
		parsed, err := url.Parse(publicBase)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return nil, fmt.Errorf("storage.public_base_url=%q 不是绝对地址", cfg.PublicBaseURL)
		}
	}

	var opts []option.ClientOption
	if emulator {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", emulatorHost)
		opts = append(opts, option.WithoutAuthentication())
	} else {
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("创建 GCS 客户端失败: %w", err)
	}

	s := &GCSStore{
		log:           log.With("service", "GCSStore"),
		client:        client,
		bucket:        cfg.Bucket,
		projectID:     cfg.ProjectID,
		emulator:      emulator,
		emulatorHost:  emulatorHost,
		publicBaseURL: publicBase,
		cdnDomain:     strings.TrimSpace(cfg.CDNDomain),
		upsert:        cfg.Upsert,
		cacheControl:  cacheControlHeader(cfg.CacheControl),
	}
	s.log.Info("对象存储初始化完成",
		"provider", cfg.Provider,
		"bucket", cfg.Bucket,
		"emulator_host", emulatorHost,
		"public_base_url", publicBase,
	)
	return s, nil
}

// Upload 写入对象；upsert 关闭时仅在对象不存在时写入
func (s *GCSStore) Upload(ctx context.Context, prefix, fileName string, body io.Reader, contentType string) (string, error) {
	objectPath := ObjectPath(prefix, fileName)
	if contentType == "" {
		contentType = ContentTypeFor(fileName)
	}

	obj := s.client.Bucket(s.bucket).Object(objectPath)
	if !s.upsert {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	}
	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if s.cacheControl != "" {
		w.CacheControl = "public, " + s.cacheControl
	}
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return "", s.writeError(objectPath, fmt.Errorf("写入 GCS 失败: %w", err))
	}
	if err := w.Close(); err != nil {
		return "", s.writeError(objectPath, fmt.Errorf("关闭 GCS writer 失败: %w", err))
	}
	s.log.Debug("对象已上传", "path", objectPath, "content_type", contentType)
	return objectPath, nil
}

// List 列出 prefix/ 下的直接子对象
func (s *GCSStore) List(ctx context.Context, prefix string) ([]Object, error) {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	query := &storage.Query{Prefix: prefix + "/", Delimiter: "/"}
	it := s.client.Bucket(s.bucket).Objects(ctx, query)

	out := []Object{}
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, apperr.New(apperr.KindStoreUnavailable, "List", err).WithSlug(prefix)
		}
		if attrs.Prefix != "" {
			continue
		}
		out = append(out, Object{Name: attrs.Name, Size: attrs.Size, LastModified: attrs.Updated})
	}
	return out, nil
}

// ListPrefixes 以 "/" 为分隔符列出根目录
func (s *GCSStore) ListPrefixes(ctx context.Context) ([]string, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Delimiter: "/"})
	var out []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, apperr.New(apperr.KindStoreUnavailable, "ListPrefixes", err)
		}
		if attrs.Prefix != "" {
			out = append(out, strings.TrimSuffix(attrs.Prefix, "/"))
		}
	}
	return out, nil
}

// PublicURL 优先 CDN 域名，其次模拟器/自定义地址，最后是 storage.googleapis.com
func (s *GCSStore) PublicURL(objectPath string) string {
	objectPath = strings.TrimLeft(strings.TrimSpace(objectPath), "/")
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, objectPath)
	}
	if s.emulator {
		base := s.publicBaseURL
		if base == "" {
			base = s.emulatorHost
		}
		return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", base, url.PathEscape(s.bucket), url.PathEscape(objectPath))
	}
	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, objectPath)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, objectPath)
}

// Delete 逐个删除，已不存在的对象视为删除成功
func (s *GCSStore) Delete(ctx context.Context, paths []string) error {
	var remaining []string
	var firstErr error
	for _, p := range paths {
		err := s.client.Bucket(s.bucket).Object(p).Delete(ctx)
		if err == nil || errors.Is(err, storage.ErrObjectNotExist) {
			continue
		}
		s.log.Warn("删除对象失败", "path", p, "error", err)
		remaining = append(remaining, p)
		if firstErr == nil {
			firstErr = err
		}
	}
	if len(remaining) > 0 {
		return &apperr.Error{Kind: apperr.KindStorageDelete, Op: "Delete", Step: -1, Paths: remaining, Err: firstErr}
	}
	return nil
}

// EnsureBucket 桶不存在时创建，对象默认公开可读
func (s *GCSStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.Bucket(s.bucket).Attrs(ctx)
	if err == nil {
		s.log.Info("存储桶已存在", "bucket", s.bucket)
		return nil
	}
	if !errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("查询存储桶失败: %w", err)
	}
	projectID := s.projectID
	if projectID == "" && s.emulator {
		projectID = "test"
	}
	attrs := &storage.BucketAttrs{
		PredefinedACL:              "publicRead",
		PredefinedDefaultObjectACL: "publicRead",
	}
	if err := s.client.Bucket(s.bucket).Create(ctx, projectID, attrs); err != nil {
		return fmt.Errorf("创建存储桶失败: %w", err)
	}
	s.log.Info("存储桶已创建", "bucket", s.bucket, "project_id", projectID)
	return nil
}

// Close 关闭底层客户端
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) writeError(objectPath string, err error) error {
	return &apperr.Error{Kind: apperr.KindStorageWrite, Op: "Upload", Step: -1, Paths: []string{objectPath}, Err: err}
}
