package imagepipeline

import (
	"net/http"
	"testing"

	"cabinet_tracker/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSize_Boundary(t *testing.T) {
	v := NewValidator(0)
	require.Equal(t, DefaultMaxBytes, v.MaxBytes())

	assert.NoError(t, v.CheckSize(DefaultMaxBytes))

	err := v.CheckSize(DefaultMaxBytes + 1)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodePayloadTooLarge, appErr.Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge, appErr.HTTPCode)
}

func TestCheckSize_MessageStatesSizeAndCeiling(t *testing.T) {
	err := NewValidator(0).CheckSize(6 * 1024 * 1024)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "File too large: 6.00 MiB. Maximum size is 5 MiB", appErr.Message)
}

func TestCheckEncodedSize(t *testing.T) {
	v := NewValidator(9)

	size, err := v.CheckEncodedSize(EncodedPayload{Body: "AAAAAAAAAAAA"})
	require.NoError(t, err)
	assert.Equal(t, int64(9), size)

	size, err = v.CheckEncodedSize(EncodedPayload{Body: "AAAAAAAAAAAAAAAA"})
	assert.Equal(t, int64(12), size)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePayloadTooLarge))
}

func TestResolveType_Order(t *testing.T) {
	v := NewValidator(0)

	got, err := v.ResolveType(MIMEGIF, "photo.png")
	require.NoError(t, err)
	assert.Equal(t, MIMEGIF, got, "data URL prefix wins over the extension")

	got, err = v.ResolveType("", "photo.WEBP")
	require.NoError(t, err)
	assert.Equal(t, MIMEWebP, got)

	got, err = v.ResolveType("text/html", "photo.jpeg")
	require.NoError(t, err)
	assert.Equal(t, MIMEJPEG, got)
}

func TestResolveType_UnsupportedEnumeratesAllowedSet(t *testing.T) {
	_, err := NewValidator(0).ResolveType("image/bmp", "photo.bmp")

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeUnsupportedType, appErr.Code)
	assert.Equal(t, http.StatusUnsupportedMediaType, appErr.HTTPCode)
	assert.Contains(t, appErr.Message, "image/jpeg, image/png, image/gif, image/webp")
}
