package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/basit/filevault-backend/models"
)

// Repository is the metadata store for file records and their attachments.
type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// UpsertByPath inserts the record or, when the path is already taken, updates
// the existing row in place. A racing duplicate insert therefore never errors.
// The struct is reloaded afterwards so callers always hold the canonical row.
func (r *Repository) UpsertByPath(ctx context.Context, f *models.File) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "mime_type", "extension", "size", "owner_id",
			"url", "url_expires_at", "tags", "updated_at",
		}),
	}).Create(f).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Unscoped().Where("path = ?", f.Path).First(f).Error
}

// InsertIgnore bulk-inserts records, silently skipping rows whose path is
// already present. Returns how many rows were actually inserted.
func (r *Repository) InsertIgnore(ctx context.Context, files []*models.File) (int64, error) {
	if len(files) == 0 {
		return 0, nil
	}
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&files)
	return tx.RowsAffected, tx.Error
}

func (r *Repository) FindByUUID(ctx context.Context, id uuid.UUID, withTrashed bool) (*models.File, error) {
	q := r.db.WithContext(ctx)
	if withTrashed {
		q = q.Unscoped()
	}
	var f models.File
	if err := q.Where("uuid = ?", id).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *Repository) List(ctx context.Context, owner *uuid.UUID) ([]models.File, error) {
	q := r.db.WithContext(ctx).Order("updated_at DESC")
	if owner != nil {
		q = q.Where("owner_id = ?", owner)
	}
	var files []models.File
	if err := q.Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

func (r *Repository) Save(ctx context.Context, f *models.File) error {
	return r.db.WithContext(ctx).Save(f).Error
}

func (r *Repository) SoftDelete(ctx context.Context, f *models.File) error {
	return r.db.WithContext(ctx).Delete(f).Error
}

// Restore clears the soft-delete marker. The backend object is assumed to
// still exist; nothing is rewritten.
func (r *Repository) Restore(ctx context.Context, f *models.File) error {
	err := r.db.WithContext(ctx).Unscoped().Model(f).Update("deleted_at", nil).Error
	if err != nil {
		return err
	}
	f.DeletedAt = gorm.DeletedAt{}
	return nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.File{}).Count(&n).Error
	return n, err
}

// ExpiredPrivate lists private records whose temporary URL has lapsed.
func (r *Repository) ExpiredPrivate(ctx context.Context, now time.Time) ([]models.File, error) {
	var files []models.File
	err := r.db.WithContext(ctx).
		Where("is_public = ? AND url_expires_at IS NOT NULL AND url_expires_at <= ?", false, now).
		Find(&files).Error
	return files, err
}

// TruncateAll empties the files and fileables tables. On postgres this is a
// cascading TRUNCATE; other dialects fall back to unscoped deletes.
func (r *Repository) TruncateAll(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		return db.Exec("TRUNCATE TABLE fileables, files RESTART IDENTITY CASCADE").Error
	}
	if err := db.Unscoped().Where("1 = 1").Delete(&models.Fileable{}).Error; err != nil {
		return err
	}
	return db.Unscoped().Where("1 = 1").Delete(&models.File{}).Error
}

/***** ATTACHMENTS *****/

// Attach links a file to an owner, updating the description when the link
// already exists.
func (r *Repository) Attach(ctx context.Context, f *models.File, ownerType, ownerID string, description datatypes.JSON) error {
	pivot := models.Fileable{
		FileID:       f.ID,
		FileableType: ownerType,
		FileableID:   ownerID,
		Description:  description,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_id"}, {Name: "fileable_type"}, {Name: "fileable_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "updated_at"}),
	}).Create(&pivot).Error
}

func (r *Repository) Detach(ctx context.Context, f *models.File, ownerType, ownerID string) error {
	return r.db.WithContext(ctx).
		Where("file_id = ? AND fileable_type = ? AND fileable_id = ?", f.ID, ownerType, ownerID).
		Delete(&models.Fileable{}).Error
}

// SyncAttachments replaces an owner's attachment set: files absent from links
// are detached, the rest are attached or have their description updated.
func (r *Repository) SyncAttachments(ctx context.Context, ownerType, ownerID string, links map[uint]datatypes.JSON) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		keep := make([]uint, 0, len(links))
		for fileID := range links {
			keep = append(keep, fileID)
		}

		q := tx.Where("fileable_type = ? AND fileable_id = ?", ownerType, ownerID)
		if len(keep) > 0 {
			q = q.Where("file_id NOT IN ?", keep)
		}
		if err := q.Delete(&models.Fileable{}).Error; err != nil {
			return err
		}

		for fileID, description := range links {
			pivot := models.Fileable{
				FileID:       fileID,
				FileableType: ownerType,
				FileableID:   ownerID,
				Description:  description,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "file_id"}, {Name: "fileable_type"}, {Name: "fileable_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"description", "updated_at"}),
			}).Create(&pivot).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) Attachments(ctx context.Context, ownerType, ownerID string) ([]models.Fileable, error) {
	var pivots []models.Fileable
	err := r.db.WithContext(ctx).
		Preload("File").
		Where("fileable_type = ? AND fileable_id = ?", ownerType, ownerID).
		Order("updated_at DESC").
		Find(&pivots).Error
	return pivots, err
}

// FilesFor lists the files attached to one owner.
func (r *Repository) FilesFor(ctx context.Context, ownerType, ownerID string) ([]models.File, error) {
	var files []models.File
	err := r.db.WithContext(ctx).
		Joins("JOIN fileables ON fileables.file_id = files.id").
		Where("fileables.fileable_type = ? AND fileables.fileable_id = ?", ownerType, ownerID).
		Find(&files).Error
	return files, err
}
