package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"menuboard/apperr"
	"menuboard/database"
	"menuboard/models"
	"menuboard/storage"

	"github.com/google/uuid"
)

// memRecords 内存版 menus 表
type memRecords struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]models.Menu
	insertErr error
	updateErr error
	onInsert  func(menu *models.Menu)
}

func newMemRecords() *memRecords {
	return &memRecords{rows: map[uuid.UUID]models.Menu{}}
}

func (r *memRecords) Insert(_ context.Context, menu *models.Menu) error {
	if r.onInsert != nil {
		r.onInsert(menu)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	for _, row := range r.rows {
		if row.Slug == menu.Slug {
			return apperr.New(apperr.KindDuplicateSlug, "Insert", errors.New("duplicate key value violates unique constraint"))
		}
	}
	if menu.ID == uuid.Nil {
		menu.ID = uuid.New()
	}
	menu.Version = 1
	row := *menu
	row.FileURLs = append([]string{}, menu.FileURLs...)
	r.rows[menu.ID] = row
	return nil
}

func (r *memRecords) SelectAll(_ context.Context) ([]models.Menu, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Menu, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Slug < out[j].Slug
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memRecords) SelectBySlug(_ context.Context, slug string) (*models.Menu, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Slug == slug {
			cp := row
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "SelectBySlug", nil)
}

func (r *memRecords) SelectByID(_ context.Context, id uuid.UUID) (*models.Menu, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "SelectByID", nil)
	}
	return &row, nil
}

func (r *memRecords) Update(_ context.Context, id uuid.UUID, expectedVersion int, fields database.MenuFields) (*models.Menu, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	row, ok := r.rows[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "Update", nil)
	}
	if row.Version != expectedVersion {
		return nil, apperr.New(apperr.KindVersionConflict, "Update", nil)
	}
	if fields.Name != nil {
		row.Name = *fields.Name
	}
	if fields.FileURLs != nil {
		row.FileURLs = append([]string{}, fields.FileURLs...)
	}
	row.UpdatedAt = fields.UpdatedAt
	row.Version++
	r.rows[id] = row
	return &row, nil
}

func (r *memRecords) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return apperr.New(apperr.KindNotFound, "Delete", nil)
	}
	delete(r.rows, id)
	return nil
}

// memObjects 内存版对象存储，List 顺序随机以模拟底层不保证顺序
type memObjects struct {
	mu         sync.Mutex
	objects    map[string]string
	failUpload map[string]bool // 按文件名后缀匹配，如 "-0002.jpg"
	lostAck    map[string]bool // 对象已写入但调用方收到错误，同样按后缀匹配
	failDelete map[string]bool
	failList   bool
	jitter     bool
	uploads    int
}

func newMemObjects() *memObjects {
	return &memObjects{
		objects:    map[string]string{},
		failUpload: map[string]bool{},
		lostAck:    map[string]bool{},
		failDelete: map[string]bool{},
	}
}

func (m *memObjects) Upload(ctx context.Context, prefix, fileName string, body io.Reader, _ string) (string, error) {
	if m.jitter {
		time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
	}
	if err := ctx.Err(); err != nil {
		return "", apperr.New(apperr.KindStorageWrite, "Upload", err)
	}
	p := storage.ObjectPath(prefix, fileName)
	m.mu.Lock()
	defer m.mu.Unlock()
	for suffix := range m.failUpload {
		if strings.HasSuffix(fileName, suffix) {
			return "", &apperr.Error{Kind: apperr.KindStorageWrite, Op: "Upload", Step: -1, Paths: []string{p}, Err: errors.New("quota exceeded")}
		}
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.objects[p] = string(data)
	m.uploads++
	for suffix := range m.lostAck {
		if strings.HasSuffix(fileName, suffix) {
			return "", apperr.New(apperr.KindStorageWrite, "Upload", errors.New("connection reset after write"))
		}
	}
	return p, nil
}

func (m *memObjects) List(_ context.Context, prefix string) ([]storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList {
		return nil, apperr.New(apperr.KindStoreUnavailable, "List", errors.New("connection reset"))
	}
	var out []storage.Object
	for p, data := range m.objects {
		if strings.HasPrefix(p, prefix+"/") && !strings.Contains(strings.TrimPrefix(p, prefix+"/"), "/") {
			out = append(out, storage.Object{Name: p, Size: int64(len(data))})
		}
	}
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out, nil
}

func (m *memObjects) ListPrefixes(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for p := range m.objects {
		if i := strings.Index(p, "/"); i > 0 && !seen[p[:i]] {
			seen[p[:i]] = true
			out = append(out, p[:i])
		}
	}
	return out, nil
}

func (m *memObjects) PublicURL(p string) string {
	return "https://cdn.test/menu-files/" + p
}

func (m *memObjects) Delete(_ context.Context, paths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var remaining []string
	for _, p := range paths {
		if m.failDelete[p] {
			remaining = append(remaining, p)
			continue
		}
		delete(m.objects, p)
	}
	if len(remaining) > 0 {
		return &apperr.Error{Kind: apperr.KindStorageDelete, Op: "Delete", Step: -1, Paths: remaining, Err: fmt.Errorf("%d 个对象未删除", len(remaining))}
	}
	return nil
}

func (m *memObjects) EnsureBucket(context.Context) error { return nil }

// under 返回 prefix 下的全部路径（已排序）
func (m *memObjects) under(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for p := range m.objects {
		if strings.HasPrefix(p, prefix+"/") {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func jpg(name, body string) FileUpload {
	return FileUpload{Filename: name, ContentType: "image/jpeg", Size: int64(len(body)), Content: strings.NewReader(body)}
}
