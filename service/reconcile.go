package service

import (
	"context"
	"errors"
	"sort"

	"menuboard/apperr"
	"menuboard/models"
)

// ReconcileReport 一次对账的结果
type ReconcileReport struct {
	Created []string          `json:"created"`
	Skipped []string          `json:"skipped"`
	Failed  map[string]string `json:"failed"`
}

// ReconcileFromStorage 为存储中存在、数据库中缺失的目录补建菜单行。
// 已有记录的目录跳过；插入时 slug 冲突（并发对账）同样视为跳过，重复执行结果不变
func (s *MenuService) ReconcileFromStorage(ctx context.Context) (*ReconcileReport, error) {
	const op = "ReconcileFromStorage"
	report := &ReconcileReport{
		Created: []string{},
		Skipped: []string{},
		Failed:  map[string]string{},
	}

	prefixes, err := s.objects.ListPrefixes(ctx)
	if err != nil {
		return nil, wrap(op, "", err)
	}
	sort.Strings(prefixes)

	existing, err := s.records.SelectAll(ctx)
	if err != nil {
		return nil, wrap(op, "", err)
	}
	known := make(map[string]bool, len(existing))
	for _, m := range existing {
		known[m.Slug] = true
	}

	for _, slug := range prefixes {
		if err := ctx.Err(); err != nil {
			return report, wrap(op, slug, err)
		}
		if known[slug] {
			report.Skipped = append(report.Skipped, slug)
			continue
		}
		created, err := s.reconcileOne(ctx, slug)
		switch {
		case err != nil:
			s.log.Warn("对账失败", "slug", slug, "error", err)
			report.Failed[slug] = err.Error()
		case created:
			report.Created = append(report.Created, slug)
		default:
			report.Skipped = append(report.Skipped, slug)
		}
	}

	s.log.Info("对账完成",
		"created", len(report.Created),
		"skipped", len(report.Skipped),
		"failed", len(report.Failed),
	)
	return report, nil
}

// reconcileOne 在 slug 锁内重建一条记录；返回 false 表示无需创建
func (s *MenuService) reconcileOne(ctx context.Context, slug string) (bool, error) {
	const op = "ReconcileFromStorage"
	unlock, err := s.locker.Lock(ctx, slug)
	if err != nil {
		return false, wrap(op, slug, err)
	}
	defer unlock()

	if _, err := s.records.SelectBySlug(ctx, slug); err == nil {
		return false, nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return false, wrap(op, slug, err)
	}

	objects, err := s.objects.List(ctx, slug)
	if err != nil {
		return false, wrap(op, slug, err)
	}
	if len(objects) == 0 {
		return false, nil
	}
	// 文件名由时间戳与序号组成，按名称排序即上传顺序
	paths := make([]string, len(objects))
	for i, o := range objects {
		paths[i] = o.Name
	}
	sort.Strings(paths)
	urls := make([]string, len(paths))
	for i, p := range paths {
		urls[i] = s.objects.PublicURL(p)
	}

	now := s.now()
	menu := &models.Menu{
		Name:      TitleFromSlug(slug),
		Slug:      slug,
		FileURLs:  urls,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.records.Insert(ctx, menu); err != nil {
		if errors.Is(err, apperr.ErrDuplicateSlug) {
			return false, nil
		}
		return false, wrap(op, slug, err)
	}
	s.log.Info("已从存储补建菜单", "slug", slug, "files", len(urls))
	return true, nil
}
