package imagepipeline

import (
	"encoding/base64"
	"errors"
	"regexp"
	"strings"
)

var (
	dataURLPattern = regexp.MustCompile(`^data:([^;,]+);base64,`)
	base64Body     = regexp.MustCompile(`^[A-Za-z0-9+/]*={0,2}$`)

	errEmptyPayload = errors.New("empty base64 payload")
	errBadAlphabet  = errors.New("payload contains characters outside the base64 alphabet")
	errBadLength    = errors.New("base64 payload has an impossible length")
)

// EncodedPayload is a base64 string split from its optional data URL prefix.
type EncodedPayload struct {
	// Body is the payload with the prefix removed, exactly as received.
	Body string
	// PrefixType is the MIME type named by the data URL prefix, if any.
	PrefixType string
}

// ParseEncoded strips a data:<mime>;base64, prefix and validates the body
// against the base64 alphabet and padding rules.
func ParseEncoded(payload string) (EncodedPayload, error) {
	payload = strings.TrimSpace(payload)

	var out EncodedPayload
	if m := dataURLPattern.FindStringSubmatch(payload); m != nil {
		out.PrefixType = NormalizeType(m[1])
		payload = payload[len(m[0]):]
	}

	if payload == "" {
		return EncodedPayload{}, errEmptyPayload
	}
	if !base64Body.MatchString(payload) {
		return EncodedPayload{}, errBadAlphabet
	}
	out.Body = payload
	return out, nil
}

// EstimatedSize is the decoded size estimate ceil(n*3/4) for an encoded
// length n, padding included.
func EstimatedSize(encodedLen int) int64 {
	n := int64(encodedLen)
	return (n*3 + 3) / 4
}

// Decode returns the bytes of a validated body. Padding is optional.
func (p EncodedPayload) Decode() ([]byte, error) {
	body := strings.TrimRight(p.Body, "=")
	if len(body)%4 == 1 {
		return nil, errBadLength
	}
	return base64.RawStdEncoding.DecodeString(body)
}
