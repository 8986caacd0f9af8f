package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"menuboard/apperr"
	"menuboard/config"
	"menuboard/logger"
)

// listPageSize Supabase 单次 list 返回上限
const listPageSize = 1000

// SupabaseStore 通过 Supabase Storage REST 接口读写桶
// 写操作使用 service key，公开地址形如 {url}/storage/v1/object/public/{bucket}/{path}
type SupabaseStore struct {
	log          *logger.Logger
	client       *http.Client
	baseURL      string
	apiKey       string
	bucket       string
	upsert       bool
	cacheControl string
	maxFileSize  int64
	allowedMimes []string
}

// NewSupabaseStore 创建 Supabase 存储网关
func NewSupabaseStore(cfg *config.StorageConfig, log *logger.Logger) (*SupabaseStore, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, fmt.Errorf("storage.url 未配置（SUPABASE_URL）")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("storage.url 格式错误: %w", err)
	}
	key := strings.TrimSpace(cfg.ServiceKey)
	if key == "" {
		// 没有 service key 时退回 anon key，写操作可能被行级权限拒绝
		key = strings.TrimSpace(cfg.AnonKey)
		log.Warn("未配置 service key，使用 anon key 访问存储")
	}
	s := &SupabaseStore{
		log:          log.With("service", "SupabaseStore"),
		client:       &http.Client{Timeout: timeoutOf(cfg)},
		baseURL:      base,
		apiKey:       key,
		bucket:       cfg.Bucket,
		upsert:       cfg.Upsert,
		cacheControl: cacheControlHeader(cfg.CacheControl),
		maxFileSize:  cfg.MaxFileSize,
		allowedMimes: cfg.AllowedMimeTypes,
	}
	s.log.Info("对象存储初始化完成", "provider", ProviderSupabase, "url", base, "bucket", cfg.Bucket, "upsert", cfg.Upsert)
	return s, nil
}

// supabaseError Storage 接口的错误响应
type supabaseError struct {
	StatusCode string `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// supabaseObject list 接口返回的条目，目录条目的 id 为空
type supabaseObject struct {
	Name      string     `json:"name"`
	ID        *string    `json:"id"`
	UpdatedAt *time.Time `json:"updated_at"`
	CreatedAt *time.Time `json:"created_at"`
	Metadata  *struct {
		Size     int64  `json:"size"`
		Mimetype string `json:"mimetype"`
	} `json:"metadata"`
}

type listRequest struct {
	Prefix string `json:"prefix"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
	SortBy struct {
		Column string `json:"column"`
		Order  string `json:"order"`
	} `json:"sortBy"`
}

// Upload 上传对象
func (s *SupabaseStore) Upload(ctx context.Context, prefix, fileName string, body io.Reader, contentType string) (string, error) {
	objectPath := ObjectPath(prefix, fileName)
	if contentType == "" {
		contentType = ContentTypeFor(fileName)
	}

	req, err := s.newRequest(ctx, http.MethodPost, "/object/"+s.bucket+"/"+escapePath(objectPath), body)
	if err != nil {
		return "", s.writeError(objectPath, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", strconv.FormatBool(s.upsert))
	if s.cacheControl != "" {
		req.Header.Set("Cache-Control", s.cacheControl)
	}

	if err := s.do(req, nil); err != nil {
		return "", s.writeError(objectPath, err)
	}
	s.log.Debug("对象已上传", "path", objectPath, "content_type", contentType)
	return objectPath, nil
}

// List 分页列出 prefix 下的文件（不含子目录）
func (s *SupabaseStore) List(ctx context.Context, prefix string) ([]Object, error) {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	items, err := s.listAll(ctx, prefix)
	if err != nil {
		return nil, apperr.New(apperr.KindStoreUnavailable, "List", err).WithSlug(prefix)
	}
	out := make([]Object, 0, len(items))
	for _, item := range items {
		if item.ID == nil {
			continue
		}
		obj := Object{Name: ObjectPath(prefix, item.Name)}
		if item.Metadata != nil {
			obj.Size = item.Metadata.Size
		}
		if item.UpdatedAt != nil {
			obj.LastModified = *item.UpdatedAt
		} else if item.CreatedAt != nil {
			obj.LastModified = *item.CreatedAt
		}
		out = append(out, obj)
	}
	return out, nil
}

// ListPrefixes 列出根目录下的目录（list 结果中 id 为空的条目）
func (s *SupabaseStore) ListPrefixes(ctx context.Context) ([]string, error) {
	items, err := s.listAll(ctx, "")
	if err != nil {
		return nil, apperr.New(apperr.KindStoreUnavailable, "ListPrefixes", err)
	}
	var out []string
	for _, item := range items {
		if item.ID == nil && item.Name != "" {
			out = append(out, item.Name)
		}
	}
	return out, nil
}

func (s *SupabaseStore) listAll(ctx context.Context, prefix string) ([]supabaseObject, error) {
	var all []supabaseObject
	for offset := 0; ; offset += listPageSize {
		payload := listRequest{Prefix: prefix, Limit: listPageSize, Offset: offset}
		payload.SortBy.Column = "name"
		payload.SortBy.Order = "asc"

		req, err := s.newJSONRequest(ctx, http.MethodPost, "/object/list/"+s.bucket, payload)
		if err != nil {
			return nil, err
		}
		var page []supabaseObject
		if err := s.do(req, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < listPageSize {
			return all, nil
		}
	}
}

// PublicURL 公开桶的访问地址
func (s *SupabaseStore) PublicURL(objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, escapePath(strings.TrimLeft(objectPath, "/")))
}

// Delete 批量删除；接口返回实际删除的对象，据此找出未删除的路径
func (s *SupabaseStore) Delete(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	req, err := s.newJSONRequest(ctx, http.MethodDelete, "/object/"+s.bucket, map[string][]string{"prefixes": paths})
	if err != nil {
		return &apperr.Error{Kind: apperr.KindStorageDelete, Op: "Delete", Step: -1, Paths: paths, Err: err}
	}
	var removed []supabaseObject
	if err := s.do(req, &removed); err != nil {
		return &apperr.Error{Kind: apperr.KindStorageDelete, Op: "Delete", Step: -1, Paths: paths, Err: err}
	}

	gone := make(map[string]bool, len(removed))
	for _, obj := range removed {
		gone[obj.Name] = true
	}
	var remaining []string
	for _, p := range paths {
		if !gone[p] {
			remaining = append(remaining, p)
		}
	}
	if len(remaining) > 0 {
		return &apperr.Error{
			Kind:  apperr.KindStorageDelete,
			Op:    "Delete",
			Step:  -1,
			Paths: remaining,
			Err:   fmt.Errorf("%d/%d 个对象未删除", len(remaining), len(paths)),
		}
	}
	s.log.Debug("对象已删除", "count", len(paths))
	return nil
}

// EnsureBucket 桶不存在时创建公开桶
func (s *SupabaseStore) EnsureBucket(ctx context.Context) error {
	req, err := s.newRequest(ctx, http.MethodGet, "/bucket/"+s.bucket, nil)
	if err != nil {
		return err
	}
	err = s.do(req, nil)
	if err == nil {
		s.log.Info("存储桶已存在", "bucket", s.bucket)
		return nil
	}
	var se *statusError
	if !errors.As(err, &se) || (se.Code != http.StatusNotFound && se.Code != http.StatusBadRequest) {
		return fmt.Errorf("查询存储桶失败: %w", err)
	}

	payload := map[string]interface{}{
		"id":     s.bucket,
		"name":   s.bucket,
		"public": true,
	}
	if s.maxFileSize > 0 {
		payload["file_size_limit"] = s.maxFileSize
	}
	if len(s.allowedMimes) > 0 {
		payload["allowed_mime_types"] = s.allowedMimes
	}
	req, err = s.newJSONRequest(ctx, http.MethodPost, "/bucket", payload)
	if err != nil {
		return err
	}
	if err := s.do(req, nil); err != nil {
		return fmt.Errorf("创建存储桶失败: %w", err)
	}
	s.log.Info("存储桶已创建", "bucket", s.bucket)
	return nil
}

func (s *SupabaseStore) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+"/storage/v1"+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	return req, nil
}

func (s *SupabaseStore) newJSONRequest(ctx context.Context, method, endpoint string, payload interface{}) (*http.Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}
	req, err := s.newRequest(ctx, method, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// statusError 非 2xx 响应
type statusError struct {
	Code    int
	Message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("supabase storage %d: %s", e.Code, e.Message)
}

func (s *SupabaseStore) do(req *http.Request, out interface{}) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("请求存储服务失败: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp supabaseError
		_ = json.Unmarshal(data, &errResp)
		msg := errResp.Message
		if msg == "" {
			msg = errResp.Error
		}
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		// 存储服务有时在 body 中给出真实状态码
		code := resp.StatusCode
		if n, convErr := strconv.Atoi(errResp.StatusCode); convErr == nil && n > 0 {
			code = n
		}
		return &statusError{Code: code, Message: msg}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return nil
}

func (s *SupabaseStore) writeError(objectPath string, err error) error {
	return &apperr.Error{Kind: apperr.KindStorageWrite, Op: "Upload", Step: -1, Paths: []string{objectPath}, Err: err}
}

// escapePath 逐段转义，保留路径分隔符
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
