// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package external

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
)

// ECSignatureVerifier is the default SignatureVerifier: it checks an
// ECDSA signature over sha256(nonce) against the caller-supplied public
// key, the same key-parsing idiom the wallet and tx packages use
// elsewhere in this codebase.
type ECSignatureVerifier struct{}

// NewECSignatureVerifier returns a SignatureVerifier backed by go-sdk's
// elliptic-curve primitives.
func NewECSignatureVerifier() *ECSignatureVerifier {
	return &ECSignatureVerifier{}
}

// VerifyKeyOwnershipSignature reports whether signature is a valid
// ECDSA signature by publicKey over sha256(nonce). nonce, signature and
// publicKey are all hex-encoded on the wire; signature and publicKey
// (compressed, 33 bytes) are decoded here.
func (ECSignatureVerifier) VerifyKeyOwnershipSignature(_ context.Context, nonce, signature, publicKey string) (bool, error) {
	pubBytes, err := hex.DecodeString(publicKey)
	if err != nil {
		return false, fmt.Errorf("external: decode public key: %w", err)
	}
	pub, err := ec.PublicKeyFromBytes(pubBytes)
	if err != nil {
		return false, fmt.Errorf("external: parse public key: %w", err)
	}

	sigBytes, err := hex.DecodeString(signature)
	if err != nil {
		return false, fmt.Errorf("external: decode signature: %w", err)
	}
	sig, err := ec.ParseSignature(sigBytes)
	if err != nil {
		return false, fmt.Errorf("external: parse signature: %w", err)
	}

	digest := sha256.Sum256([]byte(nonce))
	return sig.Verify(digest[:], pub), nil
}
