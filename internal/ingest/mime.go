package ingest

import (
	"path/filepath"
	"strings"
)

var extensionMimeTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".aiff": "audio/aiff",
	".aif":  "audio/aiff",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".wma":  "audio/x-ms-wma",
}

// guessMIME detects content type by file extension only, per the source
// behavior; unknown extensions default to application/octet-stream.
func guessMIME(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mime, ok := extensionMimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// sanitizeKeyBasename normalizes a local filename into a safe object-store
// key component: whitespace and '.' within the stem become '_', the
// extension is kept intact, and any path separators or control characters
// are also collapsed to '_'.
func sanitizeKeyBasename(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	var b strings.Builder
	for _, r := range stem {
		switch {
		case r == '.' || r == ' ' || r == '\t' || r == '\n' || r == '/' || r == '\\' || r < 0x20:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String() + ext
}
