// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// MetadataClient is the default implementation of PermissionChecker,
// RootHistoryProvider, ForeignTreeValidator, ManifestGenerator, and
// CoinInfoProvider: a thin JSON-over-HTTP client for the out-of-scope
// datastore metadata module, the same request/response shape as
// network.RPCClient's HTTP+JSON handling, adapted from JSON-RPC framing
// to plain REST endpoints since the metadata module isn't a blockchain
// node.
type MetadataClient struct {
	baseURL string
	client  *http.Client
}

// NewMetadataClient returns a MetadataClient calling baseURL, with a
// connection-pooled *http.Client the same way NewRPCClient configures
// one.
func NewMetadataClient(baseURL string) *MetadataClient {
	return &MetadataClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
}

func (c *MetadataClient) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	u := c.baseURL + path
	if query != nil {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("external: marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("external: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMetadataUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: HTTP %d: %s", ErrMetadataUnreachable, resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrMetadataInvalidResponse, err)
	}
	return nil
}

// HasMetaWritePermission mirrors the signing library's
// has_meta_write_permission.
func (c *MetadataClient) HasMetaWritePermission(ctx context.Context, storeID, publicKey string) (bool, error) {
	var out struct {
		Allowed bool `json:"allowed"`
	}
	q := url.Values{"store": {storeID}, "pubkey": {publicKey}}
	if err := c.do(ctx, http.MethodGet, "/permission", q, nil, &out); err != nil {
		return false, err
	}
	return out.Allowed, nil
}

// HasRootInHistory mirrors the datastore metadata module's
// get_root_history.
func (c *MetadataClient) HasRootInHistory(ctx context.Context, storeID, rootHash string) (bool, error) {
	var out struct {
		Known bool `json:"known"`
	}
	q := url.Values{"root": {rootHash}}
	path := "/stores/" + url.PathEscape(storeID) + "/roots"
	if err := c.do(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return false, err
	}
	return out.Known, nil
}

// ValidateLeafMembership delegates the foreign-tree membership check to
// the metadata module, which built the tree and knows its full shape;
// this server only forwards what it locally observed.
func (c *MetadataClient) ValidateLeafMembership(ctx context.Context, hexKey, expectedSha256 string, tree LeafTree, rootHash, tmpDataDir string) (bool, error) {
	req := struct {
		HexKey   string `json:"hexKey"`
		Sha256   string `json:"sha256"`
		LeafLen  int    `json:"leafLen"`
		RootHash string `json:"rootHash"`
	}{HexKey: hexKey, Sha256: expectedSha256, LeafLen: tree.Len(), RootHash: rootHash}

	var out struct {
		Valid bool `json:"valid"`
	}
	if err := c.do(ctx, http.MethodPost, "/verify-leaf", nil, req, &out); err != nil {
		return false, err
	}
	return out.Valid, nil
}

// GenerateManifest mirrors the datastore metadata module's
// generate_manifest.
func (c *MetadataClient) GenerateManifest(ctx context.Context, storeID string) error {
	path := "/stores/" + url.PathEscape(storeID) + "/manifest"
	return c.do(ctx, http.MethodPost, path, nil, struct{}{}, nil)
}

// FetchCoinInfo mirrors the datastore metadata module's
// fetch_coin_info.
func (c *MetadataClient) FetchCoinInfo(ctx context.Context, storeID string) (CoinInfo, error) {
	var out CoinInfo
	path := "/stores/" + url.PathEscape(storeID) + "/coin"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return CoinInfo{}, err
	}
	out.StoreID = storeID
	return out, nil
}
