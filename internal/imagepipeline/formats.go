package imagepipeline

import (
	"bytes"
	"mime"
	"path"
	"strings"
)

// Supported MIME types.
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEGIF  = "image/gif"
	MIMEWebP = "image/webp"
)

type signature struct {
	mime  string
	ext   string
	magic []byte
}

// signatures is the magic-number table. Order is the order used when
// enumerating the allowed set. Never written after init.
var signatures = [...]signature{
	{mime: MIMEJPEG, ext: ".jpg", magic: []byte{0xFF, 0xD8, 0xFF}},
	{mime: MIMEPNG, ext: ".png", magic: []byte{0x89, 0x50, 0x4E, 0x47}},
	{mime: MIMEGIF, ext: ".gif", magic: []byte{0x47, 0x49, 0x46}},
	{mime: MIMEWebP, ext: ".webp", magic: []byte{0x52, 0x49, 0x46, 0x46}},
}

// extensionTypes maps lower-case extensions to MIME types. Read-only.
var extensionTypes = map[string]string{
	".jpg":  MIMEJPEG,
	".jpeg": MIMEJPEG,
	".png":  MIMEPNG,
	".gif":  MIMEGIF,
	".webp": MIMEWebP,
}

// mimeAliases folds non-canonical spellings seen from browsers and mobile clients.
var mimeAliases = map[string]string{
	"image/jpg":   MIMEJPEG,
	"image/pjpeg": MIMEJPEG,
	"image/x-png": MIMEPNG,
}

// SupportedTypes returns the allowed MIME types in table order.
func SupportedTypes() []string {
	out := make([]string, 0, len(signatures))
	for _, s := range signatures {
		out = append(out, s.mime)
	}
	return out
}

// IsSupported reports whether mimeType is in the allowed set.
func IsSupported(mimeType string) bool {
	_, ok := lookup(mimeType)
	return ok
}

// Signature returns a copy of the magic bytes for mimeType.
func Signature(mimeType string) ([]byte, bool) {
	s, ok := lookup(mimeType)
	if !ok {
		return nil, false
	}
	return append([]byte(nil), s.magic...), true
}

// CanonicalExtension returns the extension used when a payload carries no filename.
func CanonicalExtension(mimeType string) string {
	if s, ok := lookup(mimeType); ok {
		return s.ext
	}
	return ""
}

// TypeFromFilename resolves a MIME type through the extension table.
// The lookup is case-insensitive; unknown extensions yield "".
func TypeFromFilename(name string) string {
	ext := strings.ToLower(path.Ext(baseName(name)))
	return extensionTypes[ext]
}

// DetectType returns the supported type whose signature prefixes data, or "".
func DetectType(data []byte) string {
	for _, s := range signatures {
		if bytes.HasPrefix(data, s.magic) {
			return s.mime
		}
	}
	return ""
}

// NormalizeType lower-cases mimeType, drops parameters and folds aliases.
func NormalizeType(mimeType string) string {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		return ""
	}
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = parsed
	}
	mimeType = strings.ToLower(mimeType)
	if canonical, ok := mimeAliases[mimeType]; ok {
		return canonical
	}
	return mimeType
}

func lookup(mimeType string) (signature, bool) {
	mimeType = NormalizeType(mimeType)
	for _, s := range signatures {
		if s.mime == mimeType {
			return s, true
		}
	}
	return signature{}, false
}

// baseName strips any directory part, treating both slash styles as separators.
func baseName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return path.Base(name)
}
