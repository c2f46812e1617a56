// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides election secrets and token generation.

# Keyring

A Keyring holds the server salts and derives everything that must be
verifiable without being stored:

	keys := auth.NewKeyring(cfg.AdminKeySalt, cfg.ElectionSlugSalt)
	adminKey := keys.AdminKey(electionID)
	err := keys.ValidateAdminKey(electionID, adminKey)

Admin keys are HMAC-SHA256 of the election ID, URL-safe base64 without
padding. Share slugs are the first 8 bytes of a second HMAC, base62 encoded.
HashIP keeps the first 8 bytes (16 hex chars) for abuse tracking.

# Voter Tokens

Voter tokens are random 24-byte secrets handed out when a username is claimed:

	token, err := auth.GenerateVoterToken()
	err = auth.CheckVoterToken(token)

CheckVoterToken only checks the shape; the database decides whether the
token belongs to the election.

# ID Generation

	id, err := auth.GenerateID(16) // 32 hex characters
*/
package auth
