// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package server

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/dstore-go/peers"
)

type fakePeerResolver struct {
	srv map[string][]peers.SRVRecord
	txt map[string][]string
}

func (f *fakePeerResolver) LookupSRV(domain string) ([]peers.SRVRecord, error) {
	recs, ok := f.srv[domain]
	if !ok {
		return nil, peers.ErrNoPeers
	}
	return recs, nil
}

func (f *fakePeerResolver) LookupTXT(name string) ([]string, error) {
	recs, ok := f.txt[name]
	if !ok {
		return nil, peers.ErrLookupFailed
	}
	return recs, nil
}

func TestPeerDiscovery_ReturnsResolvedPeers(t *testing.T) {
	resolver := &fakePeerResolver{
		srv: map[string][]peers.SRVRecord{
			"example.com": {{Target: "peer1.example.com", Port: 443, Priority: 1, Weight: 1}},
		},
		txt: map[string][]string{
			"_dstore.peer1.example.com": {"dstore=02aabb"},
		},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	found, err := PeerDiscovery(resolver, "example.com", log)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "peer1.example.com:443", found[0].Addr)
	assert.Equal(t, "02aabb", found[0].PublicKey)
}

func TestPeerDiscovery_PropagatesLookupFailure(t *testing.T) {
	resolver := &fakePeerResolver{srv: map[string][]peers.SRVRecord{}, txt: map[string][]string{}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := PeerDiscovery(resolver, "nowhere.example.com", log)
	assert.ErrorIs(t, err, peers.ErrNoPeers)
}
