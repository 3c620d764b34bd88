package files

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/basit/filevault-backend/storage"
)

const generatedNameLength = 40

const nameAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// randomName returns a fresh random object name. Collisions are treated as
// structurally impossible, so callers skip the existence probe for these.
func randomName(length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("files: rand failed: %v", err))
	}
	for i, b := range buf {
		buf[i] = nameAlphabet[int(b)%len(nameAlphabet)]
	}
	return string(buf)
}

type resolvedName struct {
	name      string
	path      string
	skipWrite bool
}

// resolveName decides the destination path inside folder for a file with the
// given base name and extension, applying the collision policy for preserved
// names. When the existing object is reused, skipWrite tells the caller to
// leave the backend untouched and trust the stored object.
func (s *Service) resolveName(ctx context.Context, backend storage.Backend, folder, base, ext string, preserve bool) (resolvedName, error) {
	if !preserve {
		name := strings.Trim(randomName(generatedNameLength)+"."+ext, "/.")
		return resolvedName{name: name, path: joinSegments(folder, name)}, nil
	}

	name := strings.Trim(base+"."+ext, "/.")
	candidate := joinSegments(folder, name)

	exists, err := backend.Exists(ctx, candidate)
	if err != nil {
		return resolvedName{}, err
	}
	switch {
	case !exists, s.overwriteOnExists:
		return resolvedName{name: name, path: candidate}, nil
	case s.skipUploadOnExists:
		return resolvedName{name: name, path: candidate, skipWrite: true}, nil
	default:
		name = strings.Trim(fmt.Sprintf("%s_%d.%s", base, time.Now().Unix(), ext), "/.")
		return resolvedName{name: name, path: joinSegments(folder, name)}, nil
	}
}

func joinSegments(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.Trim(s, "/"); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}
