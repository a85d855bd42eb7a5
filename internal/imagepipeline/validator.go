package imagepipeline

import (
	"cabinet_tracker/pkg/apperrors"
)

// DefaultMaxBytes is the shared 5 MiB ceiling for both upload paths.
const DefaultMaxBytes int64 = 5 * 1024 * 1024

// Validator enforces the size ceiling and resolves the trusted MIME type.
type Validator struct {
	maxBytes int64
}

func NewValidator(maxBytes int64) *Validator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Validator{maxBytes: maxBytes}
}

// MaxBytes returns the configured ceiling.
func (v *Validator) MaxBytes() int64 {
	return v.maxBytes
}

// CheckSize fails with PAYLOAD_TOO_LARGE when size exceeds the ceiling.
// A size equal to the ceiling passes.
func (v *Validator) CheckSize(size int64) error {
	if size > v.maxBytes {
		return apperrors.ErrPayloadTooLarge(size, v.maxBytes)
	}
	return nil
}

// CheckEncodedSize applies the ceiling to the ceil(len*3/4) estimate of a
// base64 body.
func (v *Validator) CheckEncodedSize(p EncodedPayload) (int64, error) {
	size := EstimatedSize(len(p.Body))
	return size, v.CheckSize(size)
}

// ResolveType picks the MIME type for an encoded payload: the data URL
// prefix first, then the original filename's extension. The first source
// naming a supported type wins.
func (v *Validator) ResolveType(prefixType, originalName string) (string, error) {
	if IsSupported(prefixType) {
		return NormalizeType(prefixType), nil
	}
	if t := TypeFromFilename(originalName); t != "" {
		return t, nil
	}
	return "", apperrors.ErrUnsupportedType(prefixType, SupportedTypes())
}
