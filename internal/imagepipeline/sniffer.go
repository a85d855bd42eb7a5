package imagepipeline

import (
	"bytes"

	"cabinet_tracker/pkg/apperrors"

	"github.com/gabriel-vasile/mimetype"
)

// Sniffer verifies a payload's leading bytes against the signature table.
type Sniffer struct {
	rejectUnknown bool
}

// NewSniffer builds a Sniffer. With rejectUnknown set, a declared type
// outside the supported set fails with UNSUPPORTED_TYPE instead of passing
// through unchecked.
func NewSniffer(rejectUnknown bool) *Sniffer {
	return &Sniffer{rejectUnknown: rejectUnknown}
}

// Sniff checks data against declared and returns the type to trust.
// Input shorter than the signature is a mismatch.
func (s *Sniffer) Sniff(data []byte, declared string) (string, error) {
	declared = NormalizeType(declared)

	magic, ok := Signature(declared)
	if !ok {
		if s.rejectUnknown {
			return "", apperrors.ErrUnsupportedType(declared, SupportedTypes())
		}
		return declared, nil
	}

	if len(data) < len(magic) || !bytes.Equal(data[:len(magic)], magic) {
		return "", apperrors.ErrContentMismatch(declared, describe(data))
	}
	return declared, nil
}

// describe names what the bytes look like, for error details only.
func describe(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if t := DetectType(data); t != "" {
		return t
	}
	switch detected := NormalizeType(mimetype.Detect(data).String()); detected {
	case "application/octet-stream", "text/plain":
		return ""
	default:
		return detected
	}
}
