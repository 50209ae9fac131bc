// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package external declares the interfaces the propagation server
// expects from collaborators it does not implement itself: the
// signing/key library, the datastore metadata module, and the
// background peer-synchronization system. Production wiring supplies
// concrete implementations; tests supply fakes.
package external

import "context"

// SignatureVerifier checks that a signature over a nonce was produced
// by the holder of publicKey, mirroring the signing library's
// verify_key_ownership_signature.
type SignatureVerifier interface {
	VerifyKeyOwnershipSignature(ctx context.Context, nonce, signature, publicKey string) (bool, error)
}

// PermissionChecker answers whether a public key may write to a store,
// mirroring the signing library's has_meta_write_permission.
type PermissionChecker interface {
	HasMetaWritePermission(ctx context.Context, storeID, publicKey string) (bool, error)
}

// RootHistoryProvider answers whether a root hash was ever recorded as
// having existed for a store, mirroring the datastore metadata module's
// get_root_history.
type RootHistoryProvider interface {
	HasRootInHistory(ctx context.Context, storeID, rootHash string) (bool, error)
}

// ForeignTreeValidator decides whether a blob genuinely participates in
// the Merkle tree its session's root commitment declares. "Foreign"
// because the server did not build the tree, only verifies membership
// in it.
type ForeignTreeValidator interface {
	ValidateLeafMembership(ctx context.Context, hexKey, expectedSha256 string, tree LeafTree, rootHash, tmpDataDir string) (bool, error)
}

// LeafTree is the decoded "leaves" sequence of a root-commitment
// document, passed opaquely to ForeignTreeValidator.
type LeafTree interface {
	Len() int
}

// ManifestGenerator regenerates a store's manifest.dat after a commit
// (or, defensively, after an abort), mirroring the datastore metadata
// module's generate_manifest.
type ManifestGenerator interface {
	GenerateManifest(ctx context.Context, storeID string) error
}

// CoinInfoProvider caches a store's creation height, mirroring the
// datastore metadata module's fetch_coin_info. The upload pipeline's
// Commit handler calls it once after a successful merge.
type CoinInfoProvider interface {
	FetchCoinInfo(ctx context.Context, storeID string) (CoinInfo, error)
}

// CoinInfo is the subset of chain metadata the metadata module tracks
// per store.
type CoinInfo struct {
	StoreID       string `json:"storeId"`
	CreationBlock uint64 `json:"creationBlock"`
}
