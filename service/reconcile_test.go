package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"menuboard/apperr"
	"menuboard/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedObjects(m *memObjects, paths ...string) {
	for _, p := range paths {
		m.objects[p] = p
	}
}

func TestReconcileFromStorage_CreatesMissingRows(t *testing.T) {
	f := newPipeline(t, MenuOptions{})
	ctx := context.Background()

	_, err := f.svc.AddMenu(ctx, "Drinks", []FileUpload{jpg("a.jpg", "a")})
	require.NoError(t, err)
	seedObjects(f.objects,
		"wine-list/1717236000000-0002.jpg",
		"wine-list/1717236000000-0000.jpg",
		"wine-list/1717236000000-0001.pdf",
		"late-night-bites/1717236000000-0000.png",
	)

	report, err := f.svc.ReconcileFromStorage(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"late-night-bites", "wine-list"}, report.Created)
	assert.Equal(t, []string{"drinks"}, report.Skipped)
	assert.Empty(t, report.Failed)

	wine, err := f.svc.GetMenuBySlug(ctx, "wine-list")
	require.NoError(t, err)
	assert.Equal(t, "Wine List", wine.Name)
	assert.Equal(t, []string{
		"https://cdn.test/menu-files/wine-list/1717236000000-0000.jpg",
		"https://cdn.test/menu-files/wine-list/1717236000000-0001.pdf",
		"https://cdn.test/menu-files/wine-list/1717236000000-0002.jpg",
	}, wine.URLs())

	bites, err := f.svc.GetMenuBySlug(ctx, "late-night-bites")
	require.NoError(t, err)
	assert.Equal(t, "Late Night Bites", bites.Name)
	assert.Equal(t, bites.CreatedAt, bites.UpdatedAt)

	// 重复执行不产生新记录
	again, err := f.svc.ReconcileFromStorage(ctx)
	require.NoError(t, err)
	assert.Empty(t, again.Created)
	assert.Equal(t, []string{"drinks", "late-night-bites", "wine-list"}, again.Skipped)

	menus, err := f.svc.ListMenus(ctx)
	require.NoError(t, err)
	assert.Len(t, menus, 3)
}

func TestReconcileFromStorage_EmptyBucket(t *testing.T) {
	f := newPipeline(t, MenuOptions{})
	report, err := f.svc.ReconcileFromStorage(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Created)
	assert.Empty(t, report.Skipped)
	assert.Empty(t, report.Failed)
}

func TestReconcileFromStorage_ConcurrentInsertSkipped(t *testing.T) {
	f := newPipeline(t, MenuOptions{})
	seedObjects(f.objects, "brunch/1717236000000-0000.jpg")

	// 插入前另一实例抢先写入同一 slug
	f.records.onInsert = func(menu *models.Menu) {
		f.records.onInsert = nil
		other := &models.Menu{Name: "Brunch", Slug: menu.Slug, CreatedAt: time.Now(), UpdatedAt: time.Now()}
		require.NoError(t, f.records.Insert(context.Background(), other))
	}

	report, err := f.svc.ReconcileFromStorage(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Created)
	assert.Equal(t, []string{"brunch"}, report.Skipped)
	assert.Empty(t, report.Failed)
}

func TestReconcileFromStorage_ListFailure(t *testing.T) {
	f := newPipeline(t, MenuOptions{})
	seedObjects(f.objects, "brunch/1717236000000-0000.jpg")
	f.objects.failList = true

	report, err := f.svc.ReconcileFromStorage(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Created)
	require.Contains(t, report.Failed, "brunch")
	assert.Contains(t, report.Failed["brunch"], string(apperr.KindStoreUnavailable))
}

func TestReconcileFromStorage_RecordStoreDown(t *testing.T) {
	f := newPipeline(t, MenuOptions{})
	f.records.insertErr = errors.New("unused")
	seedObjects(f.objects, "brunch/1717236000000-0000.jpg")

	report, err := f.svc.ReconcileFromStorage(context.Background())
	require.NoError(t, err)
	require.Contains(t, report.Failed, "brunch")
	assert.Contains(t, report.Failed["brunch"], "ReconcileFromStorage")
}

func TestReconcileFromStorage_Canceled(t *testing.T) {
	f := newPipeline(t, MenuOptions{})
	seedObjects(f.objects, "a/1-0000.jpg", "b/1-0000.jpg")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.ReconcileFromStorage(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
