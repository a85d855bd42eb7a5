package imagepipeline

import (
	"testing"

	"cabinet_tracker/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func TestSniff_SignaturesPassAndTruncationFails(t *testing.T) {
	s := NewSniffer(true)

	for _, mimeType := range SupportedTypes() {
		t.Run(mimeType, func(t *testing.T) {
			magic, ok := Signature(mimeType)
			require.True(t, ok)

			payload := append(append([]byte(nil), magic...), 0x00, 0x01, 0x02)
			got, err := s.Sniff(payload, mimeType)
			require.NoError(t, err)
			assert.Equal(t, mimeType, got)

			exact, err := s.Sniff(magic, mimeType)
			require.NoError(t, err)
			assert.Equal(t, mimeType, exact)

			for n := 0; n < len(magic); n++ {
				_, err := s.Sniff(magic[:n], mimeType)
				assert.True(t, apperrors.HasCode(err, apperrors.CodeContentMismatch), "length %d should fail", n)
			}
		})
	}
}

func TestSniff_DeclaredJPEGWithPNGBytes(t *testing.T) {
	_, err := NewSniffer(true).Sniff(pngHeader, "image/jpeg")

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeContentMismatch, appErr.Code)
	assert.Equal(t, map[string]string{"declared": "image/jpeg", "detected": "image/png"}, appErr.Details)
	assert.Contains(t, appErr.Message, "looks like image/png")
}

func TestSniff_TruncatedSignatureNamesNoDetectedType(t *testing.T) {
	_, err := NewSniffer(true).Sniff([]byte{0x89, 0x50, 0x4E}, "image/png")

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeContentMismatch, appErr.Code)
	assert.Equal(t, map[string]string{"declared": "image/png"}, appErr.Details)
	assert.NotContains(t, appErr.Message, "looks like")
}

func TestSniff_DeclaredPNGWithPNGBytes(t *testing.T) {
	got, err := NewSniffer(true).Sniff(pngHeader, "image/png")
	require.NoError(t, err)
	assert.Equal(t, MIMEPNG, got)
}

func TestSniff_NormalizesDeclaredType(t *testing.T) {
	s := NewSniffer(true)

	got, err := s.Sniff([]byte{0xFF, 0xD8, 0xFF, 0xE0}, "Image/JPG; charset=binary")
	require.NoError(t, err)
	assert.Equal(t, MIMEJPEG, got)
}

func TestSniff_UnknownDeclaredType(t *testing.T) {
	data := []byte("%PDF-1.7")

	t.Run("rejected when strict", func(t *testing.T) {
		_, err := NewSniffer(true).Sniff(data, "application/pdf")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeUnsupportedType))
	})

	t.Run("passes through when lenient", func(t *testing.T) {
		got, err := NewSniffer(false).Sniff(data, "application/pdf")
		require.NoError(t, err)
		assert.Equal(t, "application/pdf", got)
	})
}

func TestTables_AccessorsReturnCopies(t *testing.T) {
	types := SupportedTypes()
	types[0] = "text/html"
	assert.Equal(t, MIMEJPEG, SupportedTypes()[0])

	magic, _ := Signature(MIMEPNG)
	magic[0] = 0x00
	again, _ := Signature(MIMEPNG)
	assert.Equal(t, byte(0x89), again[0])
}

func TestTypeFromFilename(t *testing.T) {
	cases := map[string]string{
		"photo.jpg":          MIMEJPEG,
		"photo.JPEG":         MIMEJPEG,
		"scan.png":           MIMEPNG,
		"anim.gif":           MIMEGIF,
		"site.webp":          MIMEWebP,
		`C:\cabinets\a.PNG`:  MIMEPNG,
		"archive.tar.gz":     "",
		"no-extension":       "",
		"":                   "",
	}
	for name, want := range cases {
		assert.Equal(t, want, TypeFromFilename(name), name)
	}
}

func TestDetectType(t *testing.T) {
	assert.Equal(t, MIMEPNG, DetectType(pngHeader))
	assert.Equal(t, MIMEGIF, DetectType([]byte("GIF89a")))
	assert.Equal(t, MIMEWebP, DetectType([]byte("RIFF\x00\x00\x00\x00WEBP")))
	assert.Equal(t, "", DetectType([]byte{0x00, 0x01}))
}
