package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"menuboard/apperr"
	"menuboard/config"
	"menuboard/logger"
	"menuboard/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type formFile struct {
	name, contentType, body string
}

func multipartBody(t *testing.T, fields map[string]string, files []formFile) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="menuFiles"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func setupMenusRouter(p *stubPipeline) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoMethod(MethodNotAllowed)
	h := NewMenusHandler(logger.Nop(), p)
	r.GET("/api/menus", h.List)
	r.POST("/api/menus", h.Create)
	r.PUT("/api/menus", h.Update)
	r.DELETE("/api/menus", h.Delete)
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestMenusHandler_List(t *testing.T) {
	p := &stubPipeline{menus: []models.Menu{
		{ID: uuid.New(), Name: "Drinks", Slug: "drinks", FileURLs: []string{"https://cdn.test/drinks/a.jpg"}},
	}}
	r := setupMenusRouter(p)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/menus", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var menus []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &menus))
	require.Len(t, menus, 1)
	assert.Equal(t, "drinks", menus[0]["slug"])
	assert.Equal(t, []interface{}{"https://cdn.test/drinks/a.jpg"}, menus[0]["fileUrls"])
}

func TestMenusHandler_List_EmptyIsArray(t *testing.T) {
	r := setupMenusRouter(&stubPipeline{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/menus", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestMenusHandler_GetByID(t *testing.T) {
	id := uuid.New()
	p := &stubPipeline{menus: []models.Menu{{ID: id, Name: "Drinks", Slug: "drinks"}}}
	r := setupMenusRouter(p)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/menus?id="+id.String(), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var menu map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &menu))
	assert.Equal(t, "drinks", menu["slug"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/menus?id="+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	for _, q := range []string{"?id=", "?id=abc"} {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/menus"+q, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestMenusHandler_HidesInternalErrorsInRelease(t *testing.T) {
	config.GlobalConfig = &config.Config{Server: config.ServerConfig{Mode: "release"}}
	defer func() { config.GlobalConfig = nil }()

	p := &stubPipeline{listErr: apperr.New(apperr.KindStoreUnavailable, "ListMenus", errors.New("dial tcp 10.0.0.5:5432: refused"))}
	r := setupMenusRouter(p)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/menus", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "服务器内部错误", decodeError(t, w))

	p.addErr = apperr.PartialFailure("AddMenu", "brunch", []string{"brunch/a.jpg"}, errors.New("insert failed"))
	body, ct := multipartBody(t, map[string]string{"name": "Brunch"}, []formFile{{"a.jpg", "image/jpeg", "a"}})
	req := httptest.NewRequest(http.MethodPost, "/api/menus", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "存储与数据库不一致，请执行对账", decodeError(t, w))

	// 4xx 信息照常返回
	p.addErr = apperr.ErrDuplicateSlug
	body, ct = multipartBody(t, map[string]string{"name": "Brunch"}, []formFile{{"a.jpg", "image/jpeg", "a"}})
	req = httptest.NewRequest(http.MethodPost, "/api/menus", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.NotEqual(t, "服务器内部错误", decodeError(t, w))
}

func TestMenusHandler_List_StoreUnavailable(t *testing.T) {
	p := &stubPipeline{listErr: apperr.New(apperr.KindStoreUnavailable, "ListMenus", errors.New("dial tcp: refused"))}
	r := setupMenusRouter(p)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/menus", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decodeError(t, w), "store_unavailable")
}

func TestMenusHandler_Create(t *testing.T) {
	p := &stubPipeline{}
	r := setupMenusRouter(p)

	body, ct := multipartBody(t, map[string]string{"name": "Summer Special"}, []formFile{
		{"a.jpg", "image/jpeg", "AAA"},
		{"b.jpg", "image/jpeg", "BBB"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/menus", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var menu models.Menu
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &menu))
	assert.Equal(t, "summer-special", menu.Slug)
	assert.Len(t, menu.FileURLs, 2)

	assert.Equal(t, "Summer Special", p.lastName)
	require.Len(t, p.files, 2)
	assert.Equal(t, receivedFile{Filename: "a.jpg", ContentType: "image/jpeg", Body: "AAA"}, p.files[0])
	assert.Equal(t, "BBB", p.files[1].Body)
}

func TestMenusHandler_Create_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"InvalidName", apperr.New(apperr.KindInvalidName, "AddMenu", errors.New("名称无效")), http.StatusBadRequest},
		{"InvalidFile", apperr.New(apperr.KindInvalidFile, "AddMenu", errors.New("不支持的文件类型")), http.StatusBadRequest},
		{"DuplicateSlug", apperr.New(apperr.KindDuplicateSlug, "AddMenu", errors.New("slug 已存在")), http.StatusConflict},
		{"StorageWrite", apperr.New(apperr.KindStorageWrite, "AddMenu", errors.New("quota")), http.StatusInternalServerError},
		{"PartialFailure", apperr.PartialFailure("AddMenu", "drinks", []string{"drinks/a.jpg"}, errors.New("insert failed")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupMenusRouter(&stubPipeline{addErr: tt.err})
			body, ct := multipartBody(t, map[string]string{"name": "Drinks"}, []formFile{{"a.jpg", "image/jpeg", "A"}})
			req := httptest.NewRequest(http.MethodPost, "/api/menus", body)
			req.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, decodeError(t, w))
		})
	}
}

func TestMenusHandler_Create_NotMultipart(t *testing.T) {
	p := &stubPipeline{}
	r := setupMenusRouter(p)
	req := httptest.NewRequest(http.MethodPost, "/api/menus", strings.NewReader(`{"name":"Drinks"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "请求必须为 multipart/form-data", decodeError(t, w))
	assert.Empty(t, p.lastName)
}

func TestMenusHandler_Update(t *testing.T) {
	p := &stubPipeline{}
	r := setupMenusRouter(p)
	id := uuid.New()

	body, ct := multipartBody(t, map[string]string{"id": id.String(), "name": "Summer Special 2024"},
		[]formFile{{"c.pdf", "application/pdf", "CCC"}})
	req := httptest.NewRequest(http.MethodPut, "/api/menus", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, id, p.lastID)
	assert.Equal(t, "Summer Special 2024", p.lastName)
	require.Len(t, p.files, 1)
	assert.Equal(t, "application/pdf", p.files[0].ContentType)
}

func TestMenusHandler_Update_IDFromQueryWithoutFiles(t *testing.T) {
	p := &stubPipeline{}
	r := setupMenusRouter(p)
	id := uuid.New()

	body, ct := multipartBody(t, map[string]string{"name": "Renamed"}, nil)
	req := httptest.NewRequest(http.MethodPut, "/api/menus?id="+id.String(), body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, p.lastID)
	assert.Empty(t, p.files)
}

func TestMenusHandler_Update_BadID(t *testing.T) {
	r := setupMenusRouter(&stubPipeline{})
	for _, id := range []string{"", "not-a-uuid"} {
		body, ct := multipartBody(t, map[string]string{"id": id, "name": "X"}, nil)
		req := httptest.NewRequest(http.MethodPut, "/api/menus", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, id)
	}
}

func TestMenusHandler_Update_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"NotFound", apperr.New(apperr.KindNotFound, "UpdateMenu", nil), http.StatusNotFound},
		{"VersionConflict", apperr.New(apperr.KindVersionConflict, "UpdateMenu", nil), http.StatusConflict},
		{"StorageDelete", apperr.New(apperr.KindStorageDelete, "UpdateMenu", nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupMenusRouter(&stubPipeline{updateErr: tt.err})
			body, ct := multipartBody(t, map[string]string{"id": uuid.NewString(), "name": "X"}, nil)
			req := httptest.NewRequest(http.MethodPut, "/api/menus", body)
			req.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestMenusHandler_Delete(t *testing.T) {
	p := &stubPipeline{}
	r := setupMenusRouter(p)
	id := uuid.New()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/menus?id="+id.String(), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	assert.Equal(t, id, p.lastID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/menus", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "缺少菜单 id", decodeError(t, w))

	p.deleteErr = apperr.New(apperr.KindNotFound, "DeleteMenu", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/menus?id="+id.String(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMenusHandler_MethodNotAllowed(t *testing.T) {
	r := setupMenusRouter(&stubPipeline{})
	for _, method := range []string{http.MethodPatch, "PROPFIND"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, "/api/menus", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.Equal(t, MenusAllow, w.Header().Get("Allow"))
		assert.Contains(t, decodeError(t, w), method)
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(apperr.ErrInvalidName))
	assert.Equal(t, http.StatusNotFound, StatusFor(apperr.New(apperr.KindNotFound, "x", nil)))
	assert.Equal(t, http.StatusConflict, StatusFor(apperr.ErrDuplicateSlug))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(apperr.ErrStoreUnavailable))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("plain")))
	// 部分失败按外层类别映射
	pf := apperr.PartialFailure("AddMenu", "x", nil, apperr.New(apperr.KindDuplicateSlug, "Insert", nil))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(pf))
}
