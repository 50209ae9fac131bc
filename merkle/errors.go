// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package merkle

import "errors"

var (
	// ErrMalformed indicates a root-commitment document could not be
	// parsed under the strict schema.
	ErrMalformed = errors.New("merkle: malformed root commitment")

	// ErrDuplicateKey indicates the "files" object had a repeated key.
	ErrDuplicateKey = errors.New("merkle: duplicate files key")

	// ErrRootMismatch indicates the declared root does not match the
	// filename-derived rootHash, or the recomputed root does not match
	// the declared root.
	ErrRootMismatch = errors.New("merkle: root mismatch")

	// ErrNotInHistory indicates the root hash was not found in the
	// store's external root history.
	ErrNotInHistory = errors.New("merkle: root not found in history")

	// ErrLeafNotFound indicates no files entry has the expected sha256.
	ErrLeafNotFound = errors.New("merkle: no files entry for digest")

	// ErrForeignTreeRejected indicates the external foreign-tree
	// validator refused membership.
	ErrForeignTreeRejected = errors.New("merkle: blob rejected by foreign tree validator")
)
