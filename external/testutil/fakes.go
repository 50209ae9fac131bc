// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package testutil provides in-memory fakes of the external package's
// interfaces for use in other packages' tests.
package testutil

import (
	"context"
	"sync"

	"github.com/bitfsorg/dstore-go/external"
)

// FakeSignatureVerifier returns a fixed verdict for every call, and
// records the arguments of the most recent call.
type FakeSignatureVerifier struct {
	mu       sync.Mutex
	Valid    bool
	Err      error
	LastCall struct {
		Nonce, Signature, PublicKey string
	}
}

func (f *FakeSignatureVerifier) VerifyKeyOwnershipSignature(_ context.Context, nonce, signature, publicKey string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastCall.Nonce, f.LastCall.Signature, f.LastCall.PublicKey = nonce, signature, publicKey
	return f.Valid, f.Err
}

// FakePermissionChecker answers HasMetaWritePermission from a static set
// of (storeID, publicKey) pairs, falling back to Default.
type FakePermissionChecker struct {
	mu      sync.Mutex
	Allowed map[string]bool // key: storeID+"|"+publicKey
	Default bool
	Err     error
	Calls   int
}

func NewFakePermissionChecker() *FakePermissionChecker {
	return &FakePermissionChecker{Allowed: make(map[string]bool)}
}

func (f *FakePermissionChecker) Allow(storeID, publicKey string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Allowed[storeID+"|"+publicKey] = true
}

func (f *FakePermissionChecker) HasMetaWritePermission(_ context.Context, storeID, publicKey string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.Err != nil {
		return false, f.Err
	}
	if v, ok := f.Allowed[storeID+"|"+publicKey]; ok {
		return v, nil
	}
	return f.Default, nil
}

// FakeRootHistoryProvider answers HasRootInHistory from a static set of
// known (storeID, rootHash) pairs.
type FakeRootHistoryProvider struct {
	mu    sync.Mutex
	Known map[string]bool // key: storeID+"|"+rootHash
	Err   error
	Calls int
}

func NewFakeRootHistoryProvider() *FakeRootHistoryProvider {
	return &FakeRootHistoryProvider{Known: make(map[string]bool)}
}

func (f *FakeRootHistoryProvider) Record(storeID, rootHash string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Known[storeID+"|"+rootHash] = true
}

func (f *FakeRootHistoryProvider) HasRootInHistory(_ context.Context, storeID, rootHash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.Err != nil {
		return false, f.Err
	}
	return f.Known[storeID+"|"+rootHash], nil
}

// FakeForeignTreeValidator returns a fixed verdict for every call.
type FakeForeignTreeValidator struct {
	Valid bool
	Err   error
}

func (f FakeForeignTreeValidator) ValidateLeafMembership(_ context.Context, _, _ string, _ external.LeafTree, _, _ string) (bool, error) {
	return f.Valid, f.Err
}

// FakeManifestGenerator records every call it receives.
type FakeManifestGenerator struct {
	mu    sync.Mutex
	Calls []string // storeIDs, in call order
	Err   error
}

func (f *FakeManifestGenerator) GenerateManifest(_ context.Context, storeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, storeID)
	return f.Err
}

// FakeCoinInfoProvider records every call it receives and returns a
// static CreationBlock.
type FakeCoinInfoProvider struct {
	mu            sync.Mutex
	Calls         []string // storeIDs, in call order
	CreationBlock uint64
	Err           error
}

func (f *FakeCoinInfoProvider) FetchCoinInfo(_ context.Context, storeID string) (external.CoinInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, storeID)
	if f.Err != nil {
		return external.CoinInfo{}, f.Err
	}
	return external.CoinInfo{StoreID: storeID, CreationBlock: f.CreationBlock}, nil
}
