package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvdashuaibi/pulsevote/internal/model"
)

func TestNormalizeContact(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"+252611111", "252611111"},
		{"611-111-111", "611111111"},
		{" 611 111 111 ", "611111111"},
		{"+252 (61) 11.11", "252611111"},
	}
	for _, tt := range tests {
		got, err := NormalizeContact(tt.raw)
		require.NoError(t, err, "raw=%q", tt.raw)
		assert.Equal(t, tt.want, got, "raw=%q", tt.raw)
	}
}

func TestNormalizeContactInvalid(t *testing.T) {
	for _, raw := range []string{"", "abc", "+-() ", "whatsapp"} {
		_, err := NormalizeContact(raw)
		assert.ErrorIs(t, err, model.ErrInvalidContact, "raw=%q", raw)
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Ali Ahmed", "ali ahmed"},
		{"  ALI   AHMED  ", "ali ahmed"},
		{"ali\tahmed", "ali ahmed"},
		{"Ali Ahmed Hassan", "ali ahmed hassan"},
	}
	for _, tt := range tests {
		got, err := NormalizeName(tt.raw)
		require.NoError(t, err, "raw=%q", tt.raw)
		assert.Equal(t, tt.want, got, "raw=%q", tt.raw)
	}
}

func TestNormalizeNameIncomplete(t *testing.T) {
	for _, raw := range []string{"", "Ali", "  Ali  "} {
		_, err := NormalizeName(raw)
		assert.ErrorIs(t, err, model.ErrIncompleteName, "raw=%q", raw)
	}
}

func TestDisplayToken(t *testing.T) {
	assert.Equal(t, "Ali", DisplayToken("ali ahmed"))
	assert.Equal(t, "Ali", DisplayToken("ALI AHMED"))
	assert.Equal(t, "Ali", DisplayToken("  aLi   Ahmed "))
	assert.Equal(t, "", DisplayToken("   "))
}
