// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package noncecache issues and validates single-use nonces keyed by
// "<storeId>_<sessionId>_<filename>", backing the PUT-side signature
// challenge of the upload protocol.
package noncecache

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	// nonceLen is the number of random bytes issued per nonce.
	nonceLen = 16

	// sweepInterval is how often the background sweeper removes expired
	// entries that were never consumed.
	sweepInterval = time.Minute
)

type entry struct {
	nonce     string
	expiresAt time.Time
}

// Cache is a TTL-bounded, single-use nonce cache. The zero value is not
// usable; construct with New.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	log     *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New returns a Cache whose issued nonces expire after ttl.
func New(ttl time.Duration, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		log:     log,
		stopCh:  make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Close stops the background sweeper. Safe to call more than once.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Issue generates a fresh random nonce for key, stores it with the
// cache's TTL, and returns its hex encoding.
func (c *Cache) Issue(key string) (string, error) {
	b := make([]byte, nonceLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("noncecache: generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(b)

	c.mu.Lock()
	c.entries[key] = entry{nonce: nonce, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	c.log.Debug("nonce issued", "key", key)
	return nonce, nil
}

// ValidateAndConsume reports whether candidate matches the nonce issued
// for key and has not expired. On success the entry is removed so it
// cannot be validated again.
func (c *Cache) ValidateAndConsume(key, candidate string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return false
	}
	if e.nonce != candidate {
		return false
	}
	delete(c.entries, key)
	return true
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Cache) sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}

// Len reports the number of currently tracked entries, expired or not.
// Intended for tests and diagnostics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
