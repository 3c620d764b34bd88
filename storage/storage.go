package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

var ErrReadOnly = errors.New("storage: backend handle is read-only")

// ObjectAttrs describes one listed object.
type ObjectAttrs struct {
	Path string
	Size int64
}

// Backend is the blob store the file layer is built on. Paths are always
// relative, slash-separated and free of leading/trailing slashes.
type Backend interface {
	Put(ctx context.Context, path string, contents []byte) error
	PutFileAs(ctx context.Context, dir, name string, content io.Reader) (string, error)
	Get(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
	Size(ctx context.Context, path string) (int64, error)
	Delete(ctx context.Context, paths ...string) error
	Files(ctx context.Context, dir string, recursive bool) ([]ObjectAttrs, error)
	Directories(ctx context.Context, dir string, recursive bool) ([]string, error)
	DeleteDirectory(ctx context.Context, dir string) error
	URL(path string) string
	TemporaryURL(ctx context.Context, path string, expiresAt time.Time) (string, error)
}

// Visibility names the four logical disk handles.
type Visibility int

const (
	Public Visibility = iota
	PublicReadOnly
	Private
	PrivateReadOnly
)

// DiskFor maps a record's visibility and the desired access mode to a handle.
func DiskFor(isPublic, readOnly bool) Visibility {
	switch {
	case isPublic && readOnly:
		return PublicReadOnly
	case isPublic:
		return Public
	case readOnly:
		return PrivateReadOnly
	default:
		return Private
	}
}

// DiskSet holds the backend handles per visibility, built once at startup.
type DiskSet struct {
	disks map[Visibility]Backend
}

// NewDiskSet scopes a base backend into public and private roots and derives
// the read-only handles.
func NewDiskSet(base Backend, publicDir, privateDir string) *DiskSet {
	pub := Prefixed(base, publicDir)
	priv := Prefixed(base, privateDir)

	return &DiskSet{disks: map[Visibility]Backend{
		Public:          pub,
		PublicReadOnly:  ReadOnly(pub),
		Private:         priv,
		PrivateReadOnly: ReadOnly(priv),
	}}
}

func (d *DiskSet) Disk(v Visibility) Backend {
	return d.disks[v]
}

// CleanPath normalizes a backend path.
func CleanPath(p string) string {
	return strings.Trim(p, "/ ")
}

// Prefixed scopes a backend under a directory prefix. Listings come back
// relative to the prefix.
func Prefixed(b Backend, prefix string) Backend {
	prefix = CleanPath(prefix)
	if prefix == "" {
		return b
	}
	return &prefixed{b: b, prefix: prefix}
}

type prefixed struct {
	b      Backend
	prefix string
}

func (p *prefixed) full(pth string) string {
	pth = CleanPath(pth)
	if pth == "" {
		return p.prefix
	}
	return p.prefix + "/" + pth
}

func (p *prefixed) rel(pth string) string {
	return strings.TrimPrefix(strings.TrimPrefix(pth, p.prefix), "/")
}

func (p *prefixed) Put(ctx context.Context, path string, contents []byte) error {
	return p.b.Put(ctx, p.full(path), contents)
}

func (p *prefixed) PutFileAs(ctx context.Context, dir, name string, content io.Reader) (string, error) {
	stored, err := p.b.PutFileAs(ctx, p.full(dir), name, content)
	if err != nil {
		return "", err
	}
	return p.rel(stored), nil
}

func (p *prefixed) Get(ctx context.Context, path string) ([]byte, error) {
	return p.b.Get(ctx, p.full(path))
}

func (p *prefixed) Exists(ctx context.Context, path string) (bool, error) {
	return p.b.Exists(ctx, p.full(path))
}

func (p *prefixed) Size(ctx context.Context, path string) (int64, error) {
	return p.b.Size(ctx, p.full(path))
}

func (p *prefixed) Delete(ctx context.Context, paths ...string) error {
	full := make([]string, len(paths))
	for i, pth := range paths {
		full[i] = p.full(pth)
	}
	return p.b.Delete(ctx, full...)
}

func (p *prefixed) Files(ctx context.Context, dir string, recursive bool) ([]ObjectAttrs, error) {
	objs, err := p.b.Files(ctx, p.full(dir), recursive)
	if err != nil {
		return nil, err
	}
	for i := range objs {
		objs[i].Path = p.rel(objs[i].Path)
	}
	return objs, nil
}

func (p *prefixed) Directories(ctx context.Context, dir string, recursive bool) ([]string, error) {
	dirs, err := p.b.Directories(ctx, p.full(dir), recursive)
	if err != nil {
		return nil, err
	}
	for i := range dirs {
		dirs[i] = p.rel(dirs[i])
	}
	return dirs, nil
}

func (p *prefixed) DeleteDirectory(ctx context.Context, dir string) error {
	return p.b.DeleteDirectory(ctx, p.full(dir))
}

func (p *prefixed) URL(path string) string {
	return p.b.URL(p.full(path))
}

func (p *prefixed) TemporaryURL(ctx context.Context, path string, expiresAt time.Time) (string, error) {
	return p.b.TemporaryURL(ctx, p.full(path), expiresAt)
}

// ReadOnly wraps a backend so every mutating call fails with ErrReadOnly.
func ReadOnly(b Backend) Backend {
	return &readOnly{Backend: b}
}

type readOnly struct {
	Backend
}

func (r *readOnly) Put(ctx context.Context, path string, contents []byte) error {
	return ErrReadOnly
}

func (r *readOnly) PutFileAs(ctx context.Context, dir, name string, content io.Reader) (string, error) {
	return "", ErrReadOnly
}

func (r *readOnly) Delete(ctx context.Context, paths ...string) error {
	return ErrReadOnly
}

func (r *readOnly) DeleteDirectory(ctx context.Context, dir string) error {
	return ErrReadOnly
}
