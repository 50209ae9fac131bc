// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for owner password hashing.
const (
	passwordArgon2Time        = 3
	passwordArgon2Memory      = 64 * 1024 // 64 MB
	passwordArgon2Parallelism = 4
	passwordArgon2KeyLen      = 32
	passwordSaltLen           = 16
)

// HashOwnerPassword derives an argon2id hash of password suitable for
// storage as Config.OwnerPasswordHash. The encoded form carries its own
// salt and parameters: "argon2id$salt$hash", both base64 raw-encoded.
func HashOwnerPassword(password string) (string, error) {
	salt := make([]byte, passwordSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("config: failed to generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, passwordArgon2Time, passwordArgon2Memory, passwordArgon2Parallelism, passwordArgon2KeyLen)

	encoded := fmt.Sprintf("argon2id$%s$%s",
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
	return encoded, nil
}

// VerifyOwnerPassword reports whether password matches encoded, a hash
// previously produced by HashOwnerPassword.
func VerifyOwnerPassword(encoded, password string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 3 || parts[0] != "argon2id" {
		return false, ErrInvalidOwnerCredentials
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return false, fmt.Errorf("config: malformed password hash salt: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return false, fmt.Errorf("config: malformed password hash: %w", err)
	}

	got := argon2.IDKey([]byte(password), salt, passwordArgon2Time, passwordArgon2Memory, passwordArgon2Parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
