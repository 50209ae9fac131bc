// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package ownercache caches (publicKey, storeId) -> bool write-permission
// answers from the external metadata module, with a sliding TTL: any
// access to a positive entry refreshes its expiry.
package ownercache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bitfsorg/dstore-go/external"
)

type entry struct {
	allowed   bool
	expiresAt time.Time
}

// Cache is a sliding-TTL owner-permission cache backed by an
// external.PermissionChecker on miss.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	checker external.PermissionChecker
	log     *slog.Logger
}

// New returns a Cache with the given TTL, consulting checker on miss or
// expiry.
func New(ttl time.Duration, checker external.PermissionChecker, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		checker: checker,
		log:     log,
	}
}

func cacheKey(publicKey, storeID string) string { return storeID + "|" + publicKey }

// IsOwner reports whether publicKey may write to storeID, consulting the
// cache first and falling back to the external permission checker on a
// miss or expired entry. A cache hit's TTL is refreshed (sliding).
func (c *Cache) IsOwner(ctx context.Context, publicKey, storeID string) (bool, error) {
	key := cacheKey(publicKey, storeID)

	c.mu.Lock()
	e, ok := c.entries[key]
	fresh := ok && time.Now().Before(e.expiresAt)
	c.mu.Unlock()

	if fresh {
		if e.allowed {
			c.Bump(publicKey, storeID)
		}
		return e.allowed, nil
	}

	allowed, err := c.checker.HasMetaWritePermission(ctx, storeID, publicKey)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	c.entries[key] = entry{allowed: allowed, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	c.log.Debug("owner permission refreshed", "store_id", storeID, "allowed", allowed)
	return allowed, nil
}

// Bump slides a cached entry's TTL forward without re-checking the
// external permission source. Called from a PUT's stream at most once
// per second so a long upload doesn't have its permission lapse
// mid-stream.
func (c *Cache) Bump(publicKey, storeID string) {
	key := cacheKey(publicKey, storeID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.expiresAt = time.Now().Add(c.ttl)
		c.entries[key] = e
	}
}
