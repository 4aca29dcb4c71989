package hashformat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	md5One = "5f4dcc3b5aa765d61d8327deb882cf99"
	md5Two = "098F6BCD4621D373CADE4E832627B4F6"
)

func TestNormalizeMD5(t *testing.T) {
	out, err := Normalize([]string{md5One, md5Two}, TypeMD5, false)
	require.NoError(t, err)
	assert.Equal(t, []string{md5One, "098f6bcd4621d373cade4e832627b4f6"}, out)
}

func TestNormalizeRejectsWholeBatch(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
	}{
		{"wrong length", []string{md5One, "abc123"}},
		{"non-hex character", []string{md5One, "zf4dcc3b5aa765d61d8327deb882cf99"}},
		{"free text", []string{md5One, "not a hash at all"}},
		{"username prefix without flag", []string{md5One, "bob:" + md5One}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Normalize(tt.entries, TypeMD5, false)
			assert.Error(t, err)
			assert.Nil(t, out)
		})
	}
}

func TestNormalizeWithUsernames(t *testing.T) {
	out, err := Normalize([]string{"alice:" + md5One, "bob:" + md5Two}, TypeMD5, true)
	require.NoError(t, err)
	assert.Equal(t, []string{md5One, "098f6bcd4621d373cade4e832627b4f6"}, out)

	// bare hashes are malformed when usernames are expected
	_, err = Normalize([]string{md5One}, TypeMD5, true)
	assert.Error(t, err)
}

func TestNormalizeTrimsWhitespace(t *testing.T) {
	out, err := Normalize([]string{"  " + md5One + "\n"}, TypeMD5, false)
	require.NoError(t, err)
	assert.Equal(t, []string{md5One}, out)
}

func TestNormalizeUnsupportedType(t *testing.T) {
	_, err := Normalize([]string{md5One}, 424242, false)
	assert.Error(t, err)
}

func TestBcryptValidation(t *testing.T) {
	valid := "$2y$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
	_, err := Normalize([]string{valid}, TypeBcrypt, false)
	assert.NoError(t, err)

	_, err = Normalize([]string{md5One}, TypeBcrypt, false)
	assert.Error(t, err)
}
