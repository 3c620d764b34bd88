package files

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/basit/filevault-backend/models"
	"github.com/basit/filevault-backend/storage"
)

// RefreshURL re-derives the cached access URL on a record.
//
// The existence probe only runs for records that were persisted before or
// already carry a URL; a freshly built record with neither was just written
// by the orchestrator and is trusted. A failed probe nulls both URL fields.
// Public records get a permanent URL once; private records get a re-signed
// temporary URL whenever the cached one is missing or stale.
func (s *Service) RefreshURL(ctx context.Context, f *models.File) error {
	backend := s.disks.Disk(storage.DiskFor(f.IsPublic, true))

	if !f.CreatedAt.IsZero() || f.URL != nil {
		exists, err := backend.Exists(ctx, f.Path)
		if err != nil {
			return err
		}
		if !exists {
			f.URL = nil
			f.URLExpiresAt = nil
			return nil
		}
	}

	now := time.Now()
	if f.IsPublic {
		if f.URL == nil {
			u := backend.URL(f.Path)
			f.URL = &u
		}
		f.URLExpiresAt = nil
		return nil
	}

	if f.URLExpiresAt == nil || !f.URLExpiresAt.After(now) {
		expiresAt := now.Add(s.expireAfter)
		u, err := backend.TemporaryURL(ctx, f.Path, expiresAt)
		if err != nil {
			// Leave the stale fields untouched rather than half-updating.
			s.log.Warn("temporary url generation failed",
				zap.String("path", f.Path), zap.Error(err))
			return nil
		}
		f.URL = &u
		f.URLExpiresAt = &expiresAt
	}
	return nil
}

// URL builds a ready-to-use link for a raw path without touching metadata.
func (s *Service) URL(ctx context.Context, isPublic bool, path string, expiresAt time.Time) (string, error) {
	backend := s.disks.Disk(storage.DiskFor(isPublic, true))
	if isPublic {
		return backend.URL(path), nil
	}
	return backend.TemporaryURL(ctx, path, expiresAt)
}
