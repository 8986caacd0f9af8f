package api

import (
	"context"
	"io"
	"sync"

	"menuboard/apperr"
	"menuboard/models"
	"menuboard/service"

	"github.com/google/uuid"
)

// receivedFile 桩流水线收到的文件
type receivedFile struct {
	Filename    string
	ContentType string
	Body        string
}

// stubPipeline 按需替换各操作的结果
type stubPipeline struct {
	mu        sync.Mutex
	menus     []models.Menu
	listErr   error
	addErr    error
	updateErr error
	deleteErr error
	report    *service.ReconcileReport
	files     []receivedFile
	lastName  string
	lastID    uuid.UUID
}

func (s *stubPipeline) record(name string, files []service.FileUpload) error {
	s.lastName = name
	s.files = nil
	for _, f := range files {
		body, err := io.ReadAll(f.Content)
		if err != nil {
			return err
		}
		s.files = append(s.files, receivedFile{Filename: f.Filename, ContentType: f.ContentType, Body: string(body)})
	}
	return nil
}

func (s *stubPipeline) AddMenu(_ context.Context, name string, files []service.FileUpload) (*models.Menu, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(name, files); err != nil {
		return nil, err
	}
	if s.addErr != nil {
		return nil, s.addErr
	}
	m := models.Menu{ID: uuid.New(), Name: name, Slug: service.Slugify(name), Version: 1}
	for _, f := range s.files {
		m.FileURLs = append(m.FileURLs, "https://cdn.test/"+m.Slug+"/"+f.Filename)
	}
	s.menus = append(s.menus, m)
	return &m, nil
}

func (s *stubPipeline) UpdateMenu(_ context.Context, id uuid.UUID, name string, files []service.FileUpload) (*models.Menu, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID = id
	if err := s.record(name, files); err != nil {
		return nil, err
	}
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return &models.Menu{ID: id, Name: name, Slug: "summer-special", Version: 2}, nil
}

func (s *stubPipeline) DeleteMenu(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID = id
	return s.deleteErr
}

func (s *stubPipeline) ListMenus(context.Context) ([]models.Menu, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.menus, s.listErr
}

func (s *stubPipeline) GetMenu(_ context.Context, id uuid.UUID) (*models.Menu, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.menus {
		if m.ID == id {
			cp := m
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "GetMenu", nil)
}

func (s *stubPipeline) GetMenuBySlug(_ context.Context, slug string) (*models.Menu, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.menus {
		if m.Slug == slug {
			cp := m
			return &cp, nil
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "GetMenuBySlug", nil).WithSlug(slug)
}

func (s *stubPipeline) ReconcileFromStorage(context.Context) (*service.ReconcileReport, error) {
	if s.report == nil {
		return nil, apperr.New(apperr.KindStoreUnavailable, "ReconcileFromStorage", nil)
	}
	return s.report, nil
}
