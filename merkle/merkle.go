// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package merkle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bitfsorg/dstore-go/external"
	"github.com/bitfsorg/dstore-go/layout"
)

// hashLeaf hex-decodes one leaf hash and checks that it is 32 bytes.
func hashLeaf(hexLeaf string) ([]byte, error) {
	b, err := hex.DecodeString(hexLeaf)
	if err != nil || len(b) != sha256.Size {
		return nil, fmt.Errorf("%w: leaf %q is not a 32-byte hex hash", ErrMalformed, hexLeaf)
	}
	return b, nil
}

func combine(a, b []byte) []byte {
	buf := make([]byte, 0, len(a)+len(b))
	buf = append(buf, a...)
	buf = append(buf, b...)
	sum := sha256.Sum256(buf)
	return sum[:]
}

// ComputeRoot recomputes the Merkle root over an ordered sequence of
// hex-encoded leaf hashes, padding an odd level by duplicating its last
// element, the same tree-building shape as a standard bottom-up Merkle
// tree, generalized here to a single sha-256 combine instead of a
// double hash.
func ComputeRoot(leaves []string) (string, error) {
	if len(leaves) == 0 {
		return AllZeroRoot, nil
	}

	level := make([][]byte, len(leaves))
	for i, l := range leaves {
		h, err := hashLeaf(l)
		if err != nil {
			return "", err
		}
		level[i] = h
	}

	if len(level) == 1 {
		level = append(level, level[0])
	}

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([][]byte, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = combine(level[i], level[i+1])
		}
		level = next
	}

	return hex.EncodeToString(level[0]), nil
}

// ValidateRootCommitment implements spec §4.E-1: the candidate payload
// must declare rootHash as its own root, that root must match the
// recomputed Merkle root over its leaves (or be the all-zero digest for
// an empty tree), and rootHash must appear in the store's external root
// history.
func ValidateRootCommitment(ctx context.Context, payload *Payload, rootHash, storeID string, history external.RootHistoryProvider) error {
	rootHash = strings.ToLower(rootHash)

	if payload.Root != rootHash {
		return fmt.Errorf("%w: payload declares %q, filename says %q", ErrRootMismatch, payload.Root, rootHash)
	}

	if payload.Kind == LeavesEmpty {
		if rootHash != AllZeroRoot {
			return fmt.Errorf("%w: empty leaves but root is not all-zero", ErrRootMismatch)
		}
	} else {
		computed, err := ComputeRoot(payload.Leaves)
		if err != nil {
			return err
		}
		if computed != rootHash {
			return fmt.Errorf("%w: recomputed %q, declared %q", ErrRootMismatch, computed, rootHash)
		}
	}

	known, err := history.HasRootInHistory(ctx, storeID, rootHash)
	if err != nil {
		return fmt.Errorf("merkle: check root history: %w", err)
	}
	if !known {
		return ErrNotInHistory
	}

	return nil
}

// ValidateLeafMembership implements spec §4.E-2: given a completed
// blob's dataPath and observed digest, confirm the digest matches the
// path-derived hash, that a files entry declares it, and that the
// external foreign-tree validator accepts it as a genuine member of the
// session's committed tree.
func ValidateLeafMembership(ctx context.Context, payload *Payload, dataPath, observedDigest, rootHash, tmpDataDir string, validator external.ForeignTreeValidator) error {
	expected, ok := layout.HashFromDataPath(dataPath)
	if !ok {
		return fmt.Errorf("%w: %s", layout.ErrInvalidDataPath, dataPath)
	}

	observedDigest = strings.ToLower(observedDigest)
	if observedDigest != expected {
		return fmt.Errorf("%w: observed %q, path implies %q", ErrRootMismatch, observedDigest, expected)
	}

	hexKey, _, ok := payload.FindBySha256(expected)
	if !ok {
		return fmt.Errorf("%w: %s", ErrLeafNotFound, expected)
	}

	valid, err := validator.ValidateLeafMembership(ctx, hexKey, expected, payload, rootHash, tmpDataDir)
	if err != nil {
		return fmt.Errorf("merkle: foreign tree validation: %w", err)
	}
	if !valid {
		return ErrForeignTreeRejected
	}

	return nil
}
