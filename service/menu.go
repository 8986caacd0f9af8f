package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"menuboard/apperr"
	"menuboard/database"
	"menuboard/logger"
	"menuboard/models"
	"menuboard/storage"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// 空库时写入的占位菜单
const (
	PlaceholderName = "Test Menu"
	PlaceholderSlug = "test-menu"
)

// RecordStore menus 表网关
type RecordStore interface {
	Insert(ctx context.Context, menu *models.Menu) error
	SelectAll(ctx context.Context) ([]models.Menu, error)
	SelectBySlug(ctx context.Context, slug string) (*models.Menu, error)
	SelectByID(ctx context.Context, id uuid.UUID) (*models.Menu, error)
	Update(ctx context.Context, id uuid.UUID, expectedVersion int, fields database.MenuFields) (*models.Menu, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// FileUpload 一个待上传的菜单文件，切片顺序即展示顺序
type FileUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// MenuOptions 流水线参数
type MenuOptions struct {
	UploadConcurrency int
	MaxFileSize       int64
	AllowedMimeTypes  []string
	SeedPlaceholder   bool
	Clock             func() time.Time
}

// MenuService 菜单发布流水线：保证每个菜单的数据库行与存储目录 {slug}/ 描述同一组文件
type MenuService struct {
	log             *logger.Logger
	records         RecordStore
	objects         storage.Store
	locker          Locker
	notifier        Notifier
	concurrency     int
	maxFileSize     int64
	allowedMimes    map[string]bool
	seedPlaceholder bool
	now             func() time.Time
}

// NewMenuService 创建菜单流水线
func NewMenuService(log *logger.Logger, records RecordStore, objects storage.Store, locker Locker, notifier Notifier, opts MenuOptions) *MenuService {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if notifier == nil {
		notifier = NewLogNotifier(log)
	}
	if opts.UploadConcurrency <= 0 {
		opts.UploadConcurrency = 1
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	allowed := make(map[string]bool, len(opts.AllowedMimeTypes))
	for _, m := range opts.AllowedMimeTypes {
		allowed[strings.ToLower(strings.TrimSpace(m))] = true
	}
	return &MenuService{
		log:             log.With("service", "MenuService"),
		records:         records,
		objects:         objects,
		locker:          locker,
		notifier:        notifier,
		concurrency:     opts.UploadConcurrency,
		maxFileSize:     opts.MaxFileSize,
		allowedMimes:    allowed,
		seedPlaceholder: opts.SeedPlaceholder,
		now:             opts.Clock,
	}
}

// AddMenu 创建菜单：生成 slug，上传文件到 {slug}/，再写入数据库行
func (s *MenuService) AddMenu(ctx context.Context, name string, files []FileUpload) (*models.Menu, error) {
	const op = "AddMenu"
	name = strings.TrimSpace(name)
	slug := Slugify(name)
	if slug == "" {
		return nil, apperr.New(apperr.KindInvalidName, op, fmt.Errorf("名称 %q 无法生成有效的 slug", name))
	}
	if len(files) == 0 {
		return nil, apperr.New(apperr.KindInvalidFile, op, errors.New("至少需要上传一个文件")).WithSlug(slug)
	}
	if err := s.validateFiles(op, slug, files); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, slug)
	if err != nil {
		return nil, wrap(op, slug, err)
	}
	defer unlock()

	// 先查重，避免上传后才发现 slug 冲突而留下孤儿文件
	if _, err := s.records.SelectBySlug(ctx, slug); err == nil {
		return nil, apperr.New(apperr.KindDuplicateSlug, op, fmt.Errorf("slug %q 已存在", slug)).WithSlug(slug)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, wrap(op, slug, err)
	}

	// 没有行的目录里只可能是此前失败留下的孤儿文件
	if err := s.clearPrefix(ctx, op, slug); err != nil {
		return nil, err
	}

	now := s.now()
	uploaded, urls, err := s.uploadAll(ctx, op, slug, files, now)
	if err != nil {
		return nil, s.abortUpload(ctx, op, slug, uploaded, err)
	}

	menu := &models.Menu{
		Name:      name,
		Slug:      slug,
		FileURLs:  urls,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.records.Insert(ctx, menu); err != nil {
		return nil, s.partialFailure(ctx, op, slug, uploaded, err)
	}
	s.log.Info("菜单已创建", "id", menu.ID, "slug", slug, "files", len(urls))
	return menu, nil
}

// UpdateMenu 更新名称；提供文件时先清空 {slug}/ 再上传，整体替换 fileUrls。slug 与 id 不变
func (s *MenuService) UpdateMenu(ctx context.Context, id uuid.UUID, name string, files []FileUpload) (*models.Menu, error) {
	const op = "UpdateMenu"
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.KindInvalidName, op, errors.New("名称不能为空"))
	}

	existing, err := s.records.SelectByID(ctx, id)
	if err != nil {
		return nil, wrap(op, "", err)
	}
	slug := existing.Slug
	if err := s.validateFiles(op, slug, files); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, slug)
	if err != nil {
		return nil, wrap(op, slug, err)
	}
	defer unlock()

	// 拿到锁后重新读取，以最新版本号提交
	current, err := s.records.SelectByID(ctx, id)
	if err != nil {
		return nil, wrap(op, slug, err)
	}

	now := s.now()
	fields := database.MenuFields{Name: &name, UpdatedAt: now}
	var uploaded []string
	if len(files) > 0 {
		if err := s.clearPrefix(ctx, op, slug); err != nil {
			return nil, err
		}
		// 旧文件已删除，此后任何失败都意味着行与存储不一致
		var urls []string
		uploaded, urls, err = s.uploadAll(ctx, op, slug, files, now)
		if err != nil {
			return nil, s.partialFailure(ctx, op, slug, uploaded, err)
		}
		fields.FileURLs = urls
	}

	updated, err := s.records.Update(ctx, id, current.Version, fields)
	if err != nil {
		if len(files) > 0 {
			return nil, s.partialFailure(ctx, op, slug, uploaded, err)
		}
		return nil, wrap(op, slug, err)
	}
	s.log.Info("菜单已更新", "id", id, "slug", slug, "replaced_files", len(files) > 0, "version", updated.Version)
	return updated, nil
}

// DeleteMenu 先清理存储（失败只记录并通知），再删除数据库行
func (s *MenuService) DeleteMenu(ctx context.Context, id uuid.UUID) error {
	const op = "DeleteMenu"
	existing, err := s.records.SelectByID(ctx, id)
	if err != nil {
		return wrap(op, "", err)
	}
	slug := existing.Slug

	unlock, err := s.locker.Lock(ctx, slug)
	if err != nil {
		return wrap(op, slug, err)
	}
	defer unlock()

	if err := s.clearPrefix(ctx, op, slug); err != nil {
		s.log.Warn("删除菜单文件失败，继续删除记录", "slug", slug, "error", err)
		// 部分失败已在 clearPrefix 中通知
		if apperr.KindOf(err) != apperr.KindPartialFailure {
			s.notify(ctx, op, slug, err)
		}
	}

	if err := s.records.Delete(ctx, id); err != nil {
		return wrap(op, slug, err)
	}
	s.log.Info("菜单已删除", "id", id, "slug", slug)
	return nil
}

// ListMenus 按创建时间返回全部菜单；库为空且开启占位时写入 Test Menu
func (s *MenuService) ListMenus(ctx context.Context) ([]models.Menu, error) {
	const op = "ListMenus"
	menus, err := s.records.SelectAll(ctx)
	if err != nil {
		return nil, wrap(op, "", err)
	}
	if len(menus) > 0 || !s.seedPlaceholder {
		return menus, nil
	}

	now := s.now()
	placeholder := &models.Menu{
		Name:      PlaceholderName,
		Slug:      PlaceholderSlug,
		FileURLs:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.records.Insert(ctx, placeholder); err != nil {
		if errors.Is(err, apperr.ErrDuplicateSlug) {
			// 并发请求已写入
			return s.records.SelectAll(ctx)
		}
		return nil, wrap(op, PlaceholderSlug, err)
	}
	s.log.Info("已写入占位菜单", "slug", PlaceholderSlug)
	return []models.Menu{*placeholder}, nil
}

// GetMenuBySlug 公开页面按 slug 读取
func (s *MenuService) GetMenuBySlug(ctx context.Context, slug string) (*models.Menu, error) {
	menu, err := s.records.SelectBySlug(ctx, slug)
	if err != nil {
		return nil, wrap("GetMenuBySlug", slug, err)
	}
	return menu, nil
}

// GetMenu 按 id 读取
func (s *MenuService) GetMenu(ctx context.Context, id uuid.UUID) (*models.Menu, error) {
	menu, err := s.records.SelectByID(ctx, id)
	if err != nil {
		return nil, wrap("GetMenu", "", err)
	}
	return menu, nil
}

func (s *MenuService) validateFiles(op, slug string, files []FileUpload) error {
	for i, f := range files {
		if f.Content == nil {
			return stepError(op, slug, i, apperr.New(apperr.KindInvalidFile, op, fmt.Errorf("文件 %q 内容为空", f.Filename)))
		}
		ct := contentTypeOf(f)
		if len(s.allowedMimes) > 0 && !s.allowedMimes[ct] {
			return stepError(op, slug, i, apperr.New(apperr.KindInvalidFile, op, fmt.Errorf("不支持的文件类型 %s（%s）", ct, f.Filename)))
		}
		if s.maxFileSize > 0 && f.Size > s.maxFileSize {
			return stepError(op, slug, i, apperr.New(apperr.KindInvalidFile, op,
				fmt.Errorf("文件 %s 大小 %d 超过上限 %d", f.Filename, f.Size, s.maxFileSize)))
		}
	}
	return nil
}

// uploadAll 并发上传，文件名按 {毫秒时间戳:13位}-{序号:4位}.{ext} 生成，
// fileUrls 按序号回填，与完成先后无关。返回已成功上传的路径（按序号）
func (s *MenuService) uploadAll(ctx context.Context, op, slug string, files []FileUpload, now time.Time) ([]string, []string, error) {
	base := now.UnixMilli()
	paths := make([]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, f := range files {
		fileName := fmt.Sprintf("%013d-%04d%s", base, i, extensionOf(f))
		g.Go(func() error {
			p, err := s.objects.Upload(gctx, slug, fileName, f.Content, contentTypeOf(f))
			if err != nil {
				return stepError(op, slug, i, err)
			}
			paths[i] = p
			return nil
		})
	}
	err := g.Wait()

	uploaded := make([]string, 0, len(paths))
	for _, p := range paths {
		if p != "" {
			uploaded = append(uploaded, p)
		}
	}
	if err != nil {
		return uploaded, nil, err
	}

	urls := make([]string, len(paths))
	for i, p := range paths {
		urls[i] = s.objects.PublicURL(p)
	}
	return uploaded, urls, nil
}

// abortUpload 新建菜单上传中途失败：请求被取消时保留已上传文件并上报部分失败，
// 否则按目录列举后全部删除（目录上传前已清空，其中对象都属于本次上传，
// 包括已落盘但返回错误的文件），删除不干净同样上报部分失败
func (s *MenuService) abortUpload(ctx context.Context, op, slug string, uploaded []string, cause error) error {
	if ctx.Err() != nil {
		if len(uploaded) == 0 {
			return cause
		}
		return s.partialFailure(ctx, op, slug, uploaded, cause)
	}

	leftover := uploaded
	if objects, err := s.objects.List(ctx, slug); err == nil {
		leftover = make([]string, len(objects))
		for i, o := range objects {
			leftover[i] = o.Name
		}
		sort.Strings(leftover)
	} else {
		s.log.Warn("列举上传目录失败，只清理已确认的文件", "slug", slug, "error", err)
	}
	if len(leftover) == 0 {
		return cause
	}

	if err := s.objects.Delete(ctx, leftover); err != nil {
		var de *apperr.Error
		remaining := leftover
		if errors.As(err, &de) && len(de.Paths) > 0 {
			remaining = de.Paths
		}
		return s.partialFailure(ctx, op, slug, remaining, cause)
	}
	s.log.Warn("上传失败，已清理本次上传的文件", "slug", slug, "count", len(leftover), "error", cause)
	return cause
}

// clearPrefix list-then-delete 清空 {slug}/；部分对象已删除时返回 PartialFailure
func (s *MenuService) clearPrefix(ctx context.Context, op, slug string) error {
	objects, err := s.objects.List(ctx, slug)
	if err != nil {
		return wrap(op, slug, err)
	}
	if len(objects) == 0 {
		return nil
	}
	paths := make([]string, len(objects))
	for i, o := range objects {
		paths[i] = o.Name
	}
	sort.Strings(paths)

	if err := s.objects.Delete(ctx, paths); err != nil {
		var de *apperr.Error
		if errors.As(err, &de) && len(de.Paths) > 0 && len(de.Paths) < len(paths) {
			return s.partialFailure(ctx, op, slug, de.Paths, err)
		}
		return wrap(op, slug, err)
	}
	return nil
}

// partialFailure 记录并通知存储与数据库不一致
func (s *MenuService) partialFailure(ctx context.Context, op, slug string, paths []string, cause error) error {
	pf := apperr.PartialFailure(op, slug, paths, cause)
	s.log.Error("部分失败：存储与数据库不一致", "op", op, "slug", slug, "paths", paths, "error", cause)
	s.notify(ctx, op, slug, pf)
	return pf
}

func (s *MenuService) notify(ctx context.Context, op, slug string, err error) {
	ev := ReconcileEvent{
		Op:    op,
		Slug:  slug,
		Kind:  apperr.KindOf(err),
		Cause: err.Error(),
		At:    s.now(),
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		ev.Paths = ae.Paths
	}
	s.notifier.Notify(ctx, ev)
}

// wrap 为网关错误补充操作名与 slug；非业务错误按存储不可用处理
func wrap(op, slug string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		if ae.Op == op && (slug == "" || ae.Slug == slug) {
			return err
		}
		if slug == "" {
			slug = ae.Slug
		}
		return &apperr.Error{Kind: ae.Kind, Op: op, Slug: slug, Step: ae.Step, Paths: ae.Paths, Err: ae.Err}
	}
	return apperr.New(apperr.KindStoreUnavailable, op, err).WithSlug(slug)
}

// stepError 标记出错的文件序号；底层错误的类别与路径保留
func stepError(op, slug string, step int, err error) error {
	out := &apperr.Error{Kind: apperr.KindStorageWrite, Op: op, Slug: slug, Step: step, Err: err}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		out.Kind = ae.Kind
		out.Paths = ae.Paths
		out.Err = ae.Err
	}
	return out
}

func contentTypeOf(f FileUpload) string {
	ct := strings.ToLower(strings.TrimSpace(f.ContentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "" || ct == "application/octet-stream" {
		return storage.ContentTypeFor(f.Filename)
	}
	return ct
}

// extensionOf 优先取原文件扩展名，没有时按内容类型推断
func extensionOf(f FileUpload) string {
	if ext := strings.ToLower(path.Ext(f.Filename)); ext != "" && len(ext) <= 6 {
		return ext
	}
	switch contentTypeOf(f) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	default:
		return ".bin"
	}
}
