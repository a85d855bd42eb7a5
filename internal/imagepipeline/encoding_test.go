package imagepipeline

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEncoded_StripsDataURLPrefix(t *testing.T) {
	body := base64.StdEncoding.EncodeToString(pngHeader)

	p, err := ParseEncoded("data:image/png;base64," + body)
	require.NoError(t, err)
	assert.Equal(t, body, p.Body)
	assert.Equal(t, MIMEPNG, p.PrefixType)

	plain, err := ParseEncoded(body)
	require.NoError(t, err)
	assert.Equal(t, body, plain.Body)
	assert.Empty(t, plain.PrefixType)
}

func TestParseEncoded_RejectsMalformed(t *testing.T) {
	for _, payload := range []string{
		"not base64!!",
		"abc===",
		"ab=c",
		"data:image/png;base64,",
		"data:image/png;base64,@@@@",
		"",
	} {
		_, err := ParseEncoded(payload)
		assert.Error(t, err, payload)
	}
}

func TestEstimatedSize(t *testing.T) {
	cases := []struct {
		encodedLen int
		want       int64
	}{
		{0, 0},
		{1, 1},
		{2, 2},
		{3, 3},
		{4, 3},
		{8, 6},
		{10, 8},
		{6990506, 5242880},
		{6990508, 5242881},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, EstimatedSize(c.encodedLen), "len %d", c.encodedLen)
	}
}

func TestEstimatedSize_MatchesStrippedBody(t *testing.T) {
	body := base64.StdEncoding.EncodeToString([]byte("cabinet door photo"))
	p, err := ParseEncoded("data:image/jpeg;base64," + body)
	require.NoError(t, err)

	want := (int64(len(body))*3 + 3) / 4
	assert.Equal(t, want, EstimatedSize(len(p.Body)))
}

func TestEncodedPayload_DecodeWithAndWithoutPadding(t *testing.T) {
	raw := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D}

	padded := EncodedPayload{Body: base64.StdEncoding.EncodeToString(raw)}
	got, err := padded.Decode()
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	unpadded := EncodedPayload{Body: base64.RawStdEncoding.EncodeToString(raw)}
	got, err = unpadded.Decode()
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = EncodedPayload{Body: "AAAAA"}.Decode()
	assert.Error(t, err)
}
