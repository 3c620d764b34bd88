package files

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMimeByExtension(t *testing.T) {
	assert.Equal(t, "application/pdf", mimeByExtension("pdf"))
	assert.Equal(t, "application/pdf", mimeByExtension(".PDF"))
	assert.Equal(t, "text/plain", mimeByExtension("txt"))
	assert.Equal(t, "application/gzip", mimeByExtension("gz"))
	assert.Equal(t, "", mimeByExtension("definitelynotreal"))
	assert.Equal(t, "", mimeByExtension(""))
}

func TestDetectFromBuffer(t *testing.T) {
	mt, ext := detectFromBuffer([]byte("plain old text"))
	assert.Equal(t, "text/plain", mt)
	assert.Equal(t, "txt", ext)

	mt, ext = detectFromBuffer([]byte("%PDF-1.7 fake document"))
	assert.Equal(t, "application/pdf", mt)
	assert.Equal(t, "pdf", ext)
}

func TestDeriveFromName(t *testing.T) {
	ext, mt := deriveFromName("report.pdf")
	require.NotNil(t, ext)
	assert.Equal(t, "pdf", *ext)
	assert.Equal(t, "application/pdf", mt)

	// Compound suffixes resolve through the last dot.
	ext, mt = deriveFromName("archive.tar.gz")
	require.NotNil(t, ext)
	assert.Equal(t, "gz", *ext)
	assert.Equal(t, "application/gzip", mt)

	ext, mt = deriveFromName("README")
	assert.Nil(t, ext)
	assert.Equal(t, "application/x-empty", mt)

	ext, mt = deriveFromName("weird.unknownext")
	assert.Nil(t, ext)
	assert.Equal(t, "application/x-empty", mt)
}
