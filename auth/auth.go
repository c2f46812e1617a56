// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidAdminKey = errors.New("invalid admin key")
	ErrInvalidToken    = errors.New("invalid token format")
)

const voterTokenBytes = 24

// Keyring derives per-election secrets from the server salts. Admin keys
// and share slugs are never stored; they are recomputed and compared.
type Keyring struct {
	adminSalt []byte
	slugSalt  []byte
}

func NewKeyring(adminSalt, slugSalt string) Keyring {
	return Keyring{adminSalt: []byte(adminSalt), slugSalt: []byte(slugSalt)}
}

func sign(salt []byte, msg string) []byte {
	h := hmac.New(sha256.New, salt)
	h.Write([]byte(msg))
	return h.Sum(nil)
}

// AdminKey returns the admin key for an election as unpadded URL-safe base64.
func (k Keyring) AdminKey(electionID string) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sign(k.adminSalt, electionID)), "=")
}

// ValidateAdminKey compares in constant time.
func (k Keyring) ValidateAdminKey(electionID, adminKey string) error {
	if !hmac.Equal([]byte(adminKey), []byte(k.AdminKey(electionID))) {
		return ErrInvalidAdminKey
	}
	return nil
}

// ShareSlug returns a short base62 slug for a published election.
func (k Keyring) ShareSlug(electionID string) string {
	return base62Encode(sign(k.slugSalt, electionID)[:8])
}

// HashIP returns 16 hex characters identifying ip without revealing it.
func (k Keyring) HashIP(ip string) string {
	return hex.EncodeToString(sign(k.adminSalt, ip)[:8])
}

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateVoterToken creates a random secure token for a voter
func GenerateVoterToken() (string, error) {
	b := make([]byte, voterTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate voter token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CheckVoterToken rejects strings that cannot be a token from
// GenerateVoterToken, before any database lookup.
func CheckVoterToken(token string) error {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(b) != voterTokenBytes {
		return ErrInvalidToken
	}
	return nil
}

// base62Encode converts up to 8 bytes to base62 (0-9, a-z, A-Z)
func base62Encode(data []byte) string {
	const base62Chars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	var num uint64
	for i := 0; i < len(data) && i < 8; i++ {
		num = num<<8 | uint64(data[i])
	}

	if num == 0 {
		return "0"
	}

	result := make([]byte, 0, 11)
	for num > 0 {
		result = append(result, base62Chars[num%62])
		num /= 62
	}

	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}

	return string(result)
}
