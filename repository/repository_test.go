package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/basit/filevault-backend/models"
)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.File{}, &models.Fileable{}))
	return New(db)
}

func record(path string) *models.File {
	mt := "text/plain"
	ext := "txt"
	return &models.File{
		UUID:      uuid.New(),
		Path:      path,
		Name:      filepath.Base(path),
		MimeType:  &mt,
		Extension: &ext,
		Size:      int64(len(path)),
		IsPublic:  true,
	}
}

func TestUpsertByPath(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	first := record("docs/a.txt")
	require.NoError(t, repo.UpsertByPath(ctx, first))
	require.NotZero(t, first.ID)

	second := record("docs/a.txt")
	second.Name = "renamed.txt"
	second.Size = 99
	require.NoError(t, repo.UpsertByPath(ctx, second))

	// Conflict resolved into the existing row, not a new one.
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.UUID, second.UUID)
	assert.Equal(t, "renamed.txt", second.Name)
	assert.Equal(t, int64(99), second.Size)
}

func TestInsertIgnore(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	inserted, err := repo.InsertIgnore(ctx, []*models.File{
		record("a.txt"), record("b.txt"), record("c.txt"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), inserted)

	// Two duplicates, one new row.
	inserted, err = repo.InsertIgnore(ctx, []*models.File{
		record("a.txt"), record("b.txt"), record("d.txt"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), inserted)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	inserted, err = repo.InsertIgnore(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, inserted)
}

func TestSoftDeleteAndRestore(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	f := record("a.txt")
	require.NoError(t, repo.UpsertByPath(ctx, f))

	require.NoError(t, repo.SoftDelete(ctx, f))

	_, err := repo.FindByUUID(ctx, f.UUID, false)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	trashed, err := repo.FindByUUID(ctx, f.UUID, true)
	require.NoError(t, err)
	assert.True(t, trashed.DeletedAt.Valid)

	// Soft-deleted rows still hold the path.
	dupe := record("a.txt")
	inserted, err := repo.InsertIgnore(ctx, []*models.File{dupe})
	require.NoError(t, err)
	assert.Zero(t, inserted)

	require.NoError(t, repo.Restore(ctx, trashed))
	restored, err := repo.FindByUUID(ctx, f.UUID, false)
	require.NoError(t, err)
	assert.False(t, restored.DeletedAt.Valid)
}

func TestExpiredPrivate(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	stale := record("stale.txt")
	stale.IsPublic = false
	staleURL := "http://signed/stale"
	stale.URL = &staleURL
	stale.URLExpiresAt = &past
	require.NoError(t, repo.UpsertByPath(ctx, stale))

	fresh := record("fresh.txt")
	fresh.IsPublic = false
	fresh.URLExpiresAt = &future
	require.NoError(t, repo.UpsertByPath(ctx, fresh))

	pub := record("pub.txt")
	require.NoError(t, repo.UpsertByPath(ctx, pub))

	expired, err := repo.ExpiredPrivate(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "stale.txt", expired[0].Path)
}

func TestTruncateAll(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	f := record("a.txt")
	require.NoError(t, repo.UpsertByPath(ctx, f))
	require.NoError(t, repo.Attach(ctx, f, "posts", "1", nil))

	require.NoError(t, repo.TruncateAll(ctx))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	pivots, err := repo.Attachments(ctx, "posts", "1")
	require.NoError(t, err)
	assert.Empty(t, pivots)
}

func TestAttachDetach(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	f := record("a.txt")
	require.NoError(t, repo.UpsertByPath(ctx, f))

	desc := datatypes.JSON(`{"role":"cover"}`)
	require.NoError(t, repo.Attach(ctx, f, "posts", "1", desc))

	// Attaching again only updates the description.
	desc2 := datatypes.JSON(`{"role":"thumbnail"}`)
	require.NoError(t, repo.Attach(ctx, f, "posts", "1", desc2))

	pivots, err := repo.Attachments(ctx, "posts", "1")
	require.NoError(t, err)
	require.Len(t, pivots, 1)
	assert.JSONEq(t, `{"role":"thumbnail"}`, string(pivots[0].Description))
	assert.Equal(t, f.Path, pivots[0].File.Path)

	attached, err := repo.FilesFor(ctx, "posts", "1")
	require.NoError(t, err)
	require.Len(t, attached, 1)
	assert.Equal(t, f.UUID, attached[0].UUID)

	require.NoError(t, repo.Detach(ctx, f, "posts", "1"))
	attached, err = repo.FilesFor(ctx, "posts", "1")
	require.NoError(t, err)
	assert.Empty(t, attached)
}

func TestSyncAttachments(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	a := record("a.txt")
	b := record("b.txt")
	c := record("c.txt")
	for _, f := range []*models.File{a, b, c} {
		require.NoError(t, repo.UpsertByPath(ctx, f))
	}

	require.NoError(t, repo.Attach(ctx, a, "posts", "1", nil))
	require.NoError(t, repo.Attach(ctx, b, "posts", "1", nil))

	// b drops out, c comes in, a gets a description.
	err := repo.SyncAttachments(ctx, "posts", "1", map[uint]datatypes.JSON{
		a.ID: datatypes.JSON(`{"role":"cover"}`),
		c.ID: nil,
	})
	require.NoError(t, err)

	attached, err := repo.FilesFor(ctx, "posts", "1")
	require.NoError(t, err)
	require.Len(t, attached, 2)

	uuids := []string{attached[0].UUID.String(), attached[1].UUID.String()}
	assert.ElementsMatch(t, []string{a.UUID.String(), c.UUID.String()}, uuids)

	pivots, err := repo.Attachments(ctx, "posts", "1")
	require.NoError(t, err)
	for _, p := range pivots {
		if p.FileID == a.ID {
			assert.JSONEq(t, `{"role":"cover"}`, string(p.Description))
		}
	}

	// Empty set detaches everything.
	require.NoError(t, repo.SyncAttachments(ctx, "posts", "1", nil))
	attached, err = repo.FilesFor(ctx, "posts", "1")
	require.NoError(t, err)
	assert.Empty(t, attached)
}
