package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	h := NewBcryptHasher()
	h.Cost = 4 // keep the test fast

	hashed, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)

	assert.NoError(t, h.Verify(hashed, "correct horse battery staple"))
	assert.ErrorIs(t, h.Verify(hashed, "wrong password"), ErrMismatch)
}

func TestValidateStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"empty", "", false},
		{"common weak password", "password1", false},
		{"fifteen chars", "abcdefghijklmno", false},
		{"sixteen chars", "abcdefghijklmnop", true},
		{"long passphrase", "correct horse battery staple", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, feedback := ValidateStrength(tt.password)
			assert.Equal(t, tt.want, ok)
			if !tt.want {
				assert.NotEmpty(t, feedback)
			}
		})
	}
}
