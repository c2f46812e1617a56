// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

func TestGenerateID(t *testing.T) {
	tests := []struct {
		name    string
		byteLen int
		wantLen int
	}{
		{"8 bytes", 8, 16},
		{"16 bytes", 16, 32},
		{"24 bytes", 24, 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := GenerateID(tt.byteLen)
			require.NoError(t, err)
			assert.Len(t, id, tt.wantLen)
			assert.True(t, isHex(id), "not hex: %s", id)
		})
	}

	id1, _ := GenerateID(16)
	id2, _ := GenerateID(16)
	assert.NotEqual(t, id1, id2)
}

func TestKeyring_AdminKey(t *testing.T) {
	k := NewKeyring("admin-salt", "slug-salt")

	key := k.AdminKey("election-1")
	assert.NotEmpty(t, key)
	assert.NotContains(t, key, "=")
	assert.Equal(t, key, k.AdminKey("election-1"), "deterministic")
	assert.NotEqual(t, key, k.AdminKey("election-2"))

	other := NewKeyring("another-salt", "slug-salt")
	assert.NotEqual(t, key, other.AdminKey("election-1"))
}

func TestKeyring_ValidateAdminKey(t *testing.T) {
	k := NewKeyring("admin-salt", "slug-salt")
	key := k.AdminKey("election-1")

	tests := []struct {
		name       string
		electionID string
		adminKey   string
		wantErr    bool
	}{
		{"valid key", "election-1", key, false},
		{"wrong election", "election-2", key, true},
		{"empty key", "election-1", "", true},
		{"truncated key", "election-1", key[:len(key)-1], true},
		{"garbage", "election-1", "not-a-key", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := k.ValidateAdminKey(tt.electionID, tt.adminKey)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAdminKey)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestKeyring_ShareSlug(t *testing.T) {
	k := NewKeyring("admin-salt", "slug-salt")

	slug := k.ShareSlug("election-1")
	assert.NotEmpty(t, slug)
	assert.LessOrEqual(t, len(slug), 11)
	for _, c := range slug {
		ok := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		assert.True(t, ok, "invalid char %c", c)
	}
	assert.Equal(t, slug, k.ShareSlug("election-1"))
	assert.NotEqual(t, slug, k.ShareSlug("election-2"))
	assert.NotEqual(t, slug, NewKeyring("admin-salt", "other").ShareSlug("election-1"))
}

func TestKeyring_HashIP(t *testing.T) {
	k := NewKeyring("admin-salt", "slug-salt")

	for _, ip := range []string{"192.168.1.1", "2001:0db8:85a3::8a2e:0370:7334", "127.0.0.1"} {
		t.Run(ip, func(t *testing.T) {
			h := k.HashIP(ip)
			assert.Len(t, h, 16)
			assert.True(t, isHex(h))
			assert.Equal(t, h, k.HashIP(ip))
		})
	}

	assert.NotEqual(t, k.HashIP("192.168.1.1"), k.HashIP("192.168.1.2"))
	assert.NotEqual(t, k.HashIP("192.168.1.1"), NewKeyring("x", "y").HashIP("192.168.1.1"))
}

func TestGenerateVoterToken(t *testing.T) {
	token, err := GenerateVoterToken()
	require.NoError(t, err)
	assert.False(t, strings.Contains(token, "="), "token must be unpadded")
	assert.Len(t, token, 32)
	assert.NoError(t, CheckVoterToken(token))

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateVoterToken()
		require.NoError(t, err)
		assert.False(t, seen[token], "duplicate token %s", token)
		seen[token] = true
	}
}

func TestCheckVoterToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"too short", "abc"},
		{"bad alphabet", strings.Repeat("*", 32)},
		{"padded", strings.Repeat("A", 30) + "=="},
		{"too long", strings.Repeat("A", 40)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, CheckVoterToken(tt.token), ErrInvalidToken)
		})
	}
}

func TestBase62Encode(t *testing.T) {
	assert.Equal(t, "0", base62Encode([]byte{0, 0, 0, 0}))
	assert.Equal(t, "1", base62Encode([]byte{0, 0, 0, 1}))
	assert.Equal(t, "10", base62Encode([]byte{0, 0, 0, 62}))
	assert.Equal(t, "lYGhA16ahyf", base62Encode([]byte{255, 255, 255, 255, 255, 255, 255, 255}))
	assert.NotEqual(t, base62Encode([]byte{1, 2, 3, 4}), base62Encode([]byte{5, 6, 7, 8}))
}

func BenchmarkKeyring_AdminKey(b *testing.B) {
	k := NewKeyring("admin-salt", "slug-salt")
	for i := 0; i < b.N; i++ {
		k.AdminKey("election-123")
	}
}

func BenchmarkGenerateVoterToken(b *testing.B) {
	for i := 0; i < b.N; i++ {
		GenerateVoterToken()
	}
}
