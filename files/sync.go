package files

import (
	"context"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/basit/filevault-backend/models"
	"github.com/basit/filevault-backend/storage"
)

// DefaultChunkSize bounds how many rows one reconciliation insert carries.
const DefaultChunkSize = 100

// ChunkReport says how one reconciliation batch went.
type ChunkReport struct {
	Chunk     int
	Chunks    int
	Attempted int
	Inserted  int64
}

// Sync lists every object under one visibility's root and backfills metadata
// rows for objects the store does not know yet. Rows whose path already
// exists are skipped, never updated, which makes a rerun against an unchanged
// backend insert nothing. Chunks are processed strictly in sequence; a failed
// chunk is reported and does not abort the rest.
func (s *Service) Sync(ctx context.Context, isPublic bool, chunkSize int) ([]ChunkReport, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	backend := s.disks.Disk(storage.DiskFor(isPublic, true))
	objs, err := backend.Files(ctx, "", true)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	total := (len(objs) + chunkSize - 1) / chunkSize
	reports := make([]ChunkReport, 0, total)

	for start := 0; start < len(objs); start += chunkSize {
		end := start + chunkSize
		if end > len(objs) {
			end = len(objs)
		}
		chunk := objs[start:end]

		rows := make([]*models.File, 0, len(chunk))
		for _, obj := range chunk {
			rows = append(rows, s.recordFromListing(ctx, backend, obj, isPublic, now))
		}

		report := ChunkReport{Chunk: len(reports) + 1, Chunks: total, Attempted: len(chunk)}
		inserted, err := s.repo.InsertIgnore(ctx, rows)
		if err != nil {
			s.log.Error("sync chunk failed",
				zap.Int("chunk", report.Chunk), zap.Error(err))
		} else {
			report.Inserted = inserted
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// recordFromListing derives a metadata row from a bare listing entry. The
// UUID is always fresh; sync does not try to recover original identifiers.
func (s *Service) recordFromListing(ctx context.Context, backend storage.Backend, obj storage.ObjectAttrs, isPublic bool, now time.Time) *models.File {
	name := path.Base(obj.Path)
	ext, mimeType := deriveFromName(name)

	f := &models.File{
		UUID:      uuid.New(),
		Path:      obj.Path,
		Name:      name,
		Size:      obj.Size,
		IsPublic:  isPublic,
		Extension: ext,
		MimeType:  &mimeType,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if isPublic {
		u := backend.URL(obj.Path)
		f.URL = &u
	} else {
		expiresAt := now.Add(s.expireAfter)
		if u, err := backend.TemporaryURL(ctx, obj.Path, expiresAt); err != nil {
			s.log.Warn("sync: temporary url generation failed",
				zap.String("path", obj.Path), zap.Error(err))
		} else {
			f.URL = &u
			f.URLExpiresAt = &expiresAt
		}
	}
	return f
}
