package files

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/basit/filevault-backend/config"
	"github.com/basit/filevault-backend/models"
	"github.com/basit/filevault-backend/repository"
	"github.com/basit/filevault-backend/storage"
)

// Service is the storage orchestration layer: it decides where uploads land,
// keeps the metadata rows in step with the backend, and maintains access URLs.
type Service struct {
	disks *storage.DiskSet
	repo  *repository.Repository
	reg   *models.Registry
	log   *zap.Logger

	expireAfter        time.Duration
	overwriteOnExists  bool
	skipUploadOnExists bool

	httpClient *http.Client
}

// NewService wires the orchestrator. The expiry ceiling is enforced here so a
// misconfigured service can never hand out URLs at all.
func NewService(cfg *config.Config, disks *storage.DiskSet, repo *repository.Repository, log *zap.Logger) (*Service, error) {
	if cfg.ExpireAfter <= 0 || cfg.ExpireAfter > config.MaxExpireAfter {
		return nil, ErrExpireAfterTooLong
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		disks:              disks,
		repo:               repo,
		reg:                models.NewRegistry(),
		log:                log,
		expireAfter:        cfg.ExpireAfter,
		overwriteOnExists:  cfg.OverwriteOnExists,
		skipUploadOnExists: cfg.SkipUploadOnExists,
		httpClient:         &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Registry exposes the owner-type registry for startup registration.
func (s *Service) Registry() *models.Registry {
	return s.reg
}

// Input is one storable thing: an Upload carrying its own metadata, or a Raw
// string holding a remote URL or base64 payload.
type Input interface {
	storeInput()
}

// Upload is a binary upload whose mime type and extension come from the
// source object, not from sniffing the bytes.
type Upload struct {
	Name      string
	MimeType  string
	Extension string
	Content   io.Reader
}

func (Upload) storeInput() {}

// Raw is a remote URL or a base64-encoded payload (optionally a data URI).
type Raw string

func (Raw) storeInput() {}

// StoreOptions tune a store call. The zero value persists the record, does
// not preserve names and stores anonymously.
type StoreOptions struct {
	Owner        *uuid.UUID
	PreserveName bool
	// SkipPersist returns the assembled record without writing a row.
	SkipPersist bool
	Tags        []string
}

// Store writes one input and returns its metadata record. A nil record with a
// nil error means the input could not be interpreted as an upload, URL or
// base64 payload; that is a valid "nothing to do" outcome, not a failure.
func (s *Service) Store(ctx context.Context, isPublic bool, in Input, opts StoreOptions) (*models.File, error) {
	switch v := in.(type) {
	case Upload:
		return s.storeUpload(ctx, isPublic, v, opts)
	case *Upload:
		return s.storeUpload(ctx, isPublic, *v, opts)
	case Raw:
		return s.storeRaw(ctx, isPublic, string(v), opts)
	default:
		return nil, fmt.Errorf("files: unsupported input type %T", in)
	}
}

// StoreAll maps Store over a batch. Items are processed in order with no
// atomicity: an error stops the batch but earlier records stay persisted.
func (s *Service) StoreAll(ctx context.Context, isPublic bool, ins []Input, opts StoreOptions) ([]*models.File, error) {
	results := make([]*models.File, 0, len(ins))
	for i, in := range ins {
		f, err := s.Store(ctx, isPublic, in, opts)
		if err != nil {
			return results, fmt.Errorf("files: item %d: %w", i, err)
		}
		results = append(results, f)
	}
	return results, nil
}

func (s *Service) StorePublicly(ctx context.Context, in Input, opts StoreOptions) (*models.File, error) {
	return s.Store(ctx, true, in, opts)
}

func (s *Service) StorePrivately(ctx context.Context, in Input, opts StoreOptions) (*models.File, error) {
	return s.Store(ctx, false, in, opts)
}

func (s *Service) storeUpload(ctx context.Context, isPublic bool, up Upload, opts StoreOptions) (*models.File, error) {
	backend := s.disks.Disk(storage.DiskFor(isPublic, false))

	ext := strings.TrimPrefix(up.Extension, ".")
	if ext == "" {
		if i := strings.LastIndex(up.Name, "."); i >= 0 {
			ext = up.Name[i+1:]
		}
	}
	mimeType := up.MimeType
	if mimeType == "" {
		mimeType = mimeByExtension(ext)
	}

	var base string
	if opts.PreserveName {
		base = up.Name
		if i := strings.Index(base, "."); i >= 0 {
			base = base[:i]
		}
	}

	folder := joinSegments(ownerSegment(opts.Owner), mimeType)
	resolved, err := s.resolveName(ctx, backend, folder, base, ext, opts.PreserveName)
	if err != nil {
		return nil, err
	}

	if !resolved.skipWrite {
		if _, err := backend.PutFileAs(ctx, folder, resolved.name, up.Content); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
	}

	return s.finalize(ctx, isPublic, backend, resolved.path, resolved.name, mimeType, ext, opts)
}

func (s *Service) storeRaw(ctx context.Context, isPublic bool, raw string, opts StoreOptions) (*models.File, error) {
	contents := s.contentsFromURL(ctx, raw)
	if contents == nil {
		contents = contentsFromBase64(raw)
	}
	if contents == nil {
		return nil, nil
	}

	backend := s.disks.Disk(storage.DiskFor(isPublic, false))
	mimeType, ext := detectFromBuffer(contents)
	name := strings.Trim(randomName(generatedNameLength)+"."+ext, ".")
	path := joinSegments(ownerSegment(opts.Owner), mimeType, name)

	if err := backend.Put(ctx, path, contents); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	return s.finalize(ctx, isPublic, backend, path, name, mimeType, ext, opts)
}

// finalize reads the authoritative size back from the backend, assembles the
// record and persists it unless the caller opted out.
func (s *Service) finalize(ctx context.Context, isPublic bool, backend storage.Backend, path, name, mimeType, ext string, opts StoreOptions) (*models.File, error) {
	size, err := backend.Size(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("files: size lookup: %w", err)
	}

	f := &models.File{
		UUID:     uuid.New(),
		OwnerID:  opts.Owner,
		Path:     path,
		Name:     name,
		Size:     size,
		IsPublic: isPublic,
	}
	if mimeType != "" {
		f.MimeType = &mimeType
	}
	if ext != "" {
		f.Extension = &ext
	}
	if len(opts.Tags) > 0 {
		tags, err := json.Marshal(opts.Tags)
		if err != nil {
			return nil, err
		}
		f.Tags = tags
	}

	if err := s.RefreshURL(ctx, f); err != nil {
		return nil, err
	}

	if opts.SkipPersist {
		return f, nil
	}
	if err := s.repo.UpsertByPath(ctx, f); err != nil {
		return nil, err
	}
	s.log.Info("stored file",
		zap.String("path", f.Path),
		zap.Bool("is_public", f.IsPublic),
		zap.Int64("size", f.Size))
	return f, nil
}

// contentsFromURL fetches a remote file. The URL must pass a HEAD check
// first; any failure falls through silently so the caller can try base64.
func (s *Service) contentsFromURL(ctx context.Context, raw string) []byte {
	u, err := url.ParseRequestURI(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil
	}

	head, err := http.NewRequestWithContext(ctx, http.MethodHead, raw, nil)
	if err != nil {
		return nil
	}
	resp, err := s.httpClient.Do(head)
	if err != nil {
		return nil
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}

	get, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil
	}
	resp, err = s.httpClient.Do(get)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}
	contents, err := io.ReadAll(resp.Body)
	if err != nil || len(contents) == 0 {
		return nil
	}
	return contents
}

// contentsFromBase64 decodes a base64 payload, tolerating a data-URI header.
// Garbage decodes silently to nil.
func contentsFromBase64(raw string) []byte {
	if i := strings.IndexByte(raw, ','); i >= 0 {
		raw = raw[i+1:]
	}
	contents, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(contents) == 0 {
		return nil
	}
	return contents
}

func ownerSegment(owner *uuid.UUID) string {
	if owner == nil {
		return ""
	}
	return owner.String()
}

/***** RECORD LIFECYCLE *****/

// GetRecord loads a record by UUID, refreshing its URL and persisting any
// change on the way out.
func (s *Service) GetRecord(ctx context.Context, id uuid.UUID) (*models.File, error) {
	f, err := s.repo.FindByUUID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if err := s.RefreshURL(ctx, f); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// DeleteRecord soft-deletes the row and removes the backend object.
func (s *Service) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	f, err := s.repo.FindByUUID(ctx, id, false)
	if err != nil {
		return err
	}
	backend := s.disks.Disk(storage.DiskFor(f.IsPublic, false))
	if err := backend.Delete(ctx, f.Path); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, f)
}

// RestoreRecord clears the soft-delete marker. The backend object is assumed
// to still exist and is not rewritten.
func (s *Service) RestoreRecord(ctx context.Context, id uuid.UUID) (*models.File, error) {
	f, err := s.repo.FindByUUID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Restore(ctx, f); err != nil {
		return nil, err
	}
	if err := s.RefreshURL(ctx, f); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

/***** BACKEND PASSTHROUGHS *****/

func (s *Service) GetFiles(ctx context.Context, isPublic bool, dir string, recursive bool) ([]storage.ObjectAttrs, error) {
	return s.disks.Disk(storage.DiskFor(isPublic, true)).Files(ctx, dir, recursive)
}

func (s *Service) GetFile(ctx context.Context, isPublic bool, path string) ([]byte, error) {
	return s.disks.Disk(storage.DiskFor(isPublic, true)).Get(ctx, path)
}

func (s *Service) PutFile(ctx context.Context, isPublic bool, path string, contents []byte) error {
	return s.disks.Disk(storage.DiskFor(isPublic, false)).Put(ctx, path, contents)
}

func (s *Service) Exists(ctx context.Context, isPublic bool, path string) (bool, error) {
	return s.disks.Disk(storage.DiskFor(isPublic, true)).Exists(ctx, path)
}

func (s *Service) Delete(ctx context.Context, isPublic bool, paths ...string) error {
	return s.disks.Disk(storage.DiskFor(isPublic, false)).Delete(ctx, paths...)
}

func (s *Service) GetDirectories(ctx context.Context, isPublic bool, dir string, recursive bool) ([]string, error) {
	return s.disks.Disk(storage.DiskFor(isPublic, true)).Directories(ctx, dir, recursive)
}

func (s *Service) DeleteDirectory(ctx context.Context, isPublic bool, dir string) error {
	return s.disks.Disk(storage.DiskFor(isPublic, false)).DeleteDirectory(ctx, dir)
}
