package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Local stores objects under a data directory on disk. Permanent URLs are
// joined onto a base URL; temporary URLs carry an HMAC signature over the
// path and expiry so a download handler can verify them without state.
type Local struct {
	dataDir string
	baseURL string
	secret  []byte
}

func NewLocal(dataDir, baseURL, secret string) (*Local, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("local storage: %w", err)
	}
	return &Local{
		dataDir: dataDir,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
	}, nil
}

func (l *Local) abs(path string) string {
	return filepath.Join(l.dataDir, filepath.FromSlash(CleanPath(path)))
}

func (l *Local) Put(ctx context.Context, path string, contents []byte) error {
	target := l.abs(path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return os.WriteFile(target, contents, 0o644)
}

func (l *Local) PutFileAs(ctx context.Context, dir, name string, content io.Reader) (string, error) {
	path := CleanPath(dir + "/" + name)
	target := l.abs(path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(target)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, content); err != nil {
		os.Remove(target)
		return "", err
	}
	return path, nil
}

func (l *Local) Get(ctx context.Context, path string) ([]byte, error) {
	return os.ReadFile(l.abs(path))
}

func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	info, err := os.Stat(l.abs(path))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

func (l *Local) Size(ctx context.Context, path string) (int64, error) {
	info, err := os.Stat(l.abs(path))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (l *Local) Delete(ctx context.Context, paths ...string) error {
	for _, path := range paths {
		if err := os.Remove(l.abs(path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (l *Local) Files(ctx context.Context, dir string, recursive bool) ([]ObjectAttrs, error) {
	root := l.abs(dir)
	prefix := CleanPath(dir)

	var objs []ObjectAttrs
	if !recursive {
		entries, err := os.ReadDir(root)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil {
				return nil, err
			}
			objs = append(objs, ObjectAttrs{Path: joinPath(prefix, e.Name()), Size: info.Size()})
		}
		return objs, nil
	}

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objs = append(objs, ObjectAttrs{Path: joinPath(prefix, filepath.ToSlash(rel)), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return objs, nil
}

func (l *Local) Directories(ctx context.Context, dir string, recursive bool) ([]string, error) {
	root := l.abs(dir)
	prefix := CleanPath(dir)

	var dirs []string
	if !recursive {
		entries, err := os.ReadDir(root)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				dirs = append(dirs, joinPath(prefix, e.Name()))
			}
		}
		return dirs, nil
	}

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() || p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		dirs = append(dirs, joinPath(prefix, filepath.ToSlash(rel)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}

func (l *Local) DeleteDirectory(ctx context.Context, dir string) error {
	return os.RemoveAll(l.abs(dir))
}

func (l *Local) URL(path string) string {
	return l.baseURL + "/" + CleanPath(path)
}

func (l *Local) TemporaryURL(ctx context.Context, path string, expiresAt time.Time) (string, error) {
	path = CleanPath(path)
	exp := expiresAt.Unix()
	return fmt.Sprintf("%s/%s?expires=%d&signature=%s", l.baseURL, path, exp, l.sign(path, exp)), nil
}

// VerifyTemporaryURL checks a signature produced by TemporaryURL and rejects
// expired links.
func (l *Local) VerifyTemporaryURL(path string, expires int64, signature string) bool {
	if time.Now().Unix() > expires {
		return false
	}
	return hmac.Equal([]byte(l.sign(CleanPath(path), expires)), []byte(signature))
}

func (l *Local) sign(path string, expires int64) string {
	mac := hmac.New(sha256.New, l.secret)
	fmt.Fprintf(mac, "%s:%d", path, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

func joinPath(prefix, rest string) string {
	if prefix == "" {
		return rest
	}
	return prefix + "/" + rest
}
