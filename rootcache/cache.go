// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package rootcache persists (storeId, rootHash) -> bool answers from
// the external root-history provider in a bbolt database, so a
// restart-surviving cache backs the Merkle verifier's "rootHash must
// appear in root history" rule. A cache miss triggers a cache-bust
// retry against the provider before the caller sees a negative answer.
package rootcache

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/bitfsorg/dstore-go/external"
)

var bucketRoots = []byte("roots")

var trueByte = []byte{1}

// Cache implements external.RootHistoryProvider, fronting another
// RootHistoryProvider with a persistent positive-answer cache.
type Cache struct {
	db     *bbolt.DB
	source external.RootHistoryProvider
	log    *slog.Logger
}

// Open opens or creates the bbolt database at dbPath and wraps source.
func Open(dbPath string, source external.RootHistoryProvider, log *slog.Logger) (*Cache, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("rootcache: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("rootcache: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRoots)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("rootcache: create bucket: %w", err)
	}

	return &Cache{db: db, source: source, log: log}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error { return c.db.Close() }

func rootKey(storeID, rootHash string) []byte {
	sb, rb := []byte(storeID), []byte(rootHash)
	key := make([]byte, 4+len(sb)+len(rb))
	binary.BigEndian.PutUint32(key, uint32(len(sb)))
	copy(key[4:], sb)
	copy(key[4+len(sb):], rb)
	return key
}

// HasRootInHistory answers from the persistent cache when a positive
// entry exists; otherwise it queries the underlying provider once, and
// on a negative answer retries the provider a second time (a "cache
// bust") before finally reporting false — the provider itself may be
// backed by something with its own short-lived cache that a single
// query can race.
func (c *Cache) HasRootInHistory(ctx context.Context, storeID, rootHash string) (bool, error) {
	if cached, err := c.lookup(storeID, rootHash); err != nil {
		return false, err
	} else if cached {
		return true, nil
	}

	found, err := c.source.HasRootInHistory(ctx, storeID, rootHash)
	if err != nil {
		return false, fmt.Errorf("rootcache: query source: %w", err)
	}
	if !found {
		c.log.Debug("root not found on first query, retrying", "store_id", storeID, "root_hash", rootHash)
		found, err = c.source.HasRootInHistory(ctx, storeID, rootHash)
		if err != nil {
			return false, fmt.Errorf("rootcache: retry source: %w", err)
		}
	}

	if found {
		if err := c.store(storeID, rootHash); err != nil {
			return false, err
		}
	}
	return found, nil
}

func (c *Cache) lookup(storeID, rootHash string) (bool, error) {
	var found bool
	err := c.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketRoots).Get(rootKey(storeID, rootHash))
		found = v != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rootcache: lookup: %w", err)
	}
	return found, nil
}

func (c *Cache) store(storeID, rootHash string) error {
	err := c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRoots).Put(rootKey(storeID, rootHash), trueByte)
	})
	if err != nil {
		return fmt.Errorf("rootcache: store: %w", err)
	}
	return nil
}
