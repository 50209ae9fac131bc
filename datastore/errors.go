// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package datastore

import "errors"

var (
	// ErrRootCommitmentExists indicates a store already has a committed
	// .dat document for the requested root hash.
	ErrRootCommitmentExists = errors.New("datastore: root commitment already exists")

	// ErrRootCommitmentMissing indicates a session tried to commit
	// without its <rootHash>.dat present.
	ErrRootCommitmentMissing = errors.New("datastore: root commitment missing from session")

	// ErrBlobMissing indicates a payload entry has no corresponding blob
	// in either the session's temp directory or the committed store.
	ErrBlobMissing = errors.New("datastore: referenced blob missing from session and store")
)
