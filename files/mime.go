package files

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// emptyMimeType is recorded for objects whose name carries no extension.
const emptyMimeType = "application/x-empty"

// extensionMimes supplements the standard library's table, which only knows
// a handful of web types out of the box.
var extensionMimes = map[string]string{
	"txt":  "text/plain",
	"csv":  "text/csv",
	"md":   "text/markdown",
	"gz":   "application/gzip",
	"tar":  "application/x-tar",
	"zip":  "application/zip",
	"7z":   "application/x-7z-compressed",
	"rar":  "application/vnd.rar",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"mp4":  "video/mp4",
	"avi":  "video/x-msvideo",
	"mov":  "video/quicktime",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"bmp":  "image/bmp",
	"ico":  "image/x-icon",
	"tiff": "image/tiff",
	"heic": "image/heic",
}

// mimeByExtension looks a mime type up by bare extension ("pdf", "tar.gz").
// Returns "" when the extension is unknown.
func mimeByExtension(ext string) string {
	ext = strings.ToLower(strings.Trim(ext, "."))
	if ext == "" {
		return ""
	}
	if mt, ok := extensionMimes[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension("." + ext); mt != "" {
		return stripMimeParams(mt)
	}
	return ""
}

// detectFromBuffer sniffs mime type and extension from raw bytes, falling
// back to a mime-keyed lookup when sniffing yields no extension.
func detectFromBuffer(buf []byte) (mimeType, extension string) {
	m := mimetype.Detect(buf)
	mimeType = stripMimeParams(m.String())
	extension = strings.TrimPrefix(m.Extension(), ".")
	if extension == "" {
		extension = extensionByMime(mimeType)
	}
	return mimeType, extension
}

func extensionByMime(mt string) string {
	for ext, known := range extensionMimes {
		if known == mt {
			return ext
		}
	}
	if exts, err := mime.ExtensionsByType(mt); err == nil && len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}
	return ""
}

// deriveFromName infers extension and mime type from a filename the way the
// reconciler sees it: the suffix after the first dot is tried first, then the
// suffix after the last dot; first known match wins. A dotless name yields no
// extension and the empty-file sentinel type.
func deriveFromName(name string) (extension *string, mimeType string) {
	first := strings.Index(name, ".")
	if first < 0 {
		return nil, emptyMimeType
	}
	last := strings.LastIndex(name, ".")
	for _, candidate := range []string{name[first+1:], name[last+1:]} {
		if mt := mimeByExtension(candidate); mt != "" {
			c := strings.ToLower(candidate)
			return &c, mt
		}
	}
	return nil, emptyMimeType
}

func stripMimeParams(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.TrimSpace(mt)
}
