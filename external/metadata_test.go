// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLeafTree struct{ n int }

func (f fakeLeafTree) Len() int { return f.n }

func TestMetadataClient_HasMetaWritePermission(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/permission", r.URL.Path)
		assert.Equal(t, "store-a", r.URL.Query().Get("store"))
		assert.Equal(t, "02aabb", r.URL.Query().Get("pubkey"))
		json.NewEncoder(w).Encode(map[string]bool{"allowed": true})
	}))
	defer server.Close()

	client := NewMetadataClient(server.URL)
	allowed, err := client.HasMetaWritePermission(context.Background(), "store-a", "02aabb")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMetadataClient_HasRootInHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stores/store-a/roots", r.URL.Path)
		assert.Equal(t, "bbbb", r.URL.Query().Get("root"))
		json.NewEncoder(w).Encode(map[string]bool{"known": true})
	}))
	defer server.Close()

	client := NewMetadataClient(server.URL)
	known, err := client.HasRootInHistory(context.Background(), "store-a", "bbbb")
	require.NoError(t, err)
	assert.True(t, known)
}

func TestMetadataClient_ValidateLeafMembership(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/verify-leaf", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(3), body["leafLen"])
		json.NewEncoder(w).Encode(map[string]bool{"valid": true})
	}))
	defer server.Close()

	client := NewMetadataClient(server.URL)
	valid, err := client.ValidateLeafMembership(context.Background(), "key1", "cccc", fakeLeafTree{n: 3}, "bbbb", "/tmp/data")
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestMetadataClient_GenerateManifest(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/stores/store-a/manifest", r.URL.Path)
	}))
	defer server.Close()

	client := NewMetadataClient(server.URL)
	require.NoError(t, client.GenerateManifest(context.Background(), "store-a"))
	assert.True(t, called)
}

func TestMetadataClient_FetchCoinInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stores/store-a/coin", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"creationBlock": 42})
	}))
	defer server.Close()

	client := NewMetadataClient(server.URL)
	info, err := client.FetchCoinInfo(context.Background(), "store-a")
	require.NoError(t, err)
	assert.Equal(t, "store-a", info.StoreID)
	assert.Equal(t, uint64(42), info.CreationBlock)
}

func TestMetadataClient_UnreachableReturnsWrappedError(t *testing.T) {
	client := NewMetadataClient("http://127.0.0.1:1")
	_, err := client.HasMetaWritePermission(context.Background(), "store-a", "02aabb")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMetadataUnreachable)
}
