// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package protocol

import "errors"

var (
	// ErrMissingUploadHeaders indicates a PUT was missing one of
	// x-nonce, x-public-key, x-key-ownership-sig.
	ErrMissingUploadHeaders = errors.New("protocol: missing required upload headers")

	// ErrInvalidStoreID / ErrInvalidRootHash flag malformed 64-hex path
	// segments.
	ErrInvalidStoreID  = errors.New("protocol: storeId is not 64-hex")
	ErrInvalidRootHash = errors.New("protocol: rootHash is not 64-hex")

	// ErrMissingRootCommitment indicates the multipart start-upload body
	// did not contain exactly one "<rootHash>.dat" part.
	ErrMissingRootCommitment = errors.New("protocol: missing root commitment file part")

	// ErrRootCommitmentAlreadyCommitted indicates a start-upload attempt
	// re-uploaded a root hash that is already committed for the store.
	ErrRootCommitmentAlreadyCommitted = errors.New("protocol: root commitment already committed")

	// ErrOwnerAuthRequired indicates a store-creating start-upload was
	// attempted without matching Basic-Auth credentials.
	ErrOwnerAuthRequired = errors.New("protocol: owner credentials required to create a new store")
)
