// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package datastore owns the committed store tree: existence checks,
// content-addressed blob lookups, and the non-overwriting merge that
// publishes a session's temp directory into a store on commit.
package datastore

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/bitfsorg/dstore-go/layout"
	"github.com/bitfsorg/dstore-go/merkle"
)

// Store serializes commits per storeId so two concurrent commits to the
// same store cannot interleave their merge or manifest append, while
// commits to distinct stores proceed independently.
type Store struct {
	layout layout.Layout

	mu         sync.Mutex
	storeLocks map[string]*sync.Mutex
}

// New returns a Store rooted at lay.
func New(lay layout.Layout) *Store {
	return &Store{layout: lay, storeLocks: make(map[string]*sync.Mutex)}
}

func (s *Store) lockFor(storeID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.storeLocks[storeID]
	if !ok {
		l = &sync.Mutex{}
		s.storeLocks[storeID] = l
	}
	return l
}

// Exists reports whether storeID's directory has been committed at
// least once.
func (s *Store) Exists(storeID string) bool {
	return s.layout.StoreExists(storeID)
}

// HasRootCommitment reports whether <rootHash>.dat already exists in
// the committed store.
func (s *Store) HasRootCommitment(storeID, rootHash string) bool {
	return layout.FileExists(s.layout.RootCommitmentPath(storeID, rootHash))
}

// HasBlob reports whether the content-addressed blob for hexHash has
// already been committed to storeID.
func (s *Store) HasBlob(storeID, hexHash string) bool {
	return layout.FileExists(s.layout.BlobPath(storeID, hexHash))
}

// OpenBlob opens a committed blob for reading, returning its size
// alongside the stream.
func (s *Store) OpenBlob(storeID, hexHash string) (io.ReadCloser, int64, error) {
	path := s.layout.BlobPath(storeID, hexHash)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, ErrBlobMissing
		}
		return nil, 0, fmt.Errorf("datastore: stat blob: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("datastore: open blob: %w", err)
	}
	return f, info.Size(), nil
}

// StatBlob reports a committed blob's size without opening it, for
// existence probes that never read the content.
func (s *Store) StatBlob(storeID, hexHash string) (int64, error) {
	path := s.layout.BlobPath(storeID, hexHash)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrBlobMissing
		}
		return 0, fmt.Errorf("datastore: stat blob: %w", err)
	}
	return info.Size(), nil
}

// BlobsSatisfied verifies, for each file entry in payload, that the
// referenced blob exists either in the session's temp directory or
// already in the committed store — the precondition that allows a
// commit to carry only a partial re-upload of a changed delta.
func (s *Store) BlobsSatisfied(storeID, sessionTmpDir string, payload *merkle.Payload) error {
	for _, entry := range payload.Files {
		relPath := layout.DataPath(entry.Sha256)
		if layout.FileExists(filepath.Join(sessionTmpDir, relPath)) {
			continue
		}
		if s.HasBlob(storeID, entry.Sha256) {
			continue
		}
		return fmt.Errorf("%w: %s", ErrBlobMissing, entry.Sha256)
	}
	return nil
}

// Commit merges sessionTmpDir into storeID's committed tree with
// overwrite=false and errorOnExist=false — already-present files (the
// dedup case, since names are content hashes) are left untouched — then
// appends rootHash to the store's manifest.dat. The destination store
// directory is created if this is the store's first commit.
func (s *Store) Commit(storeID, sessionTmpDir, rootHash string) error {
	lock := s.lockFor(storeID)
	lock.Lock()
	defer lock.Unlock()

	storeDir := s.layout.StoreDir(storeID)
	if err := layout.EnsureDir(storeDir); err != nil {
		return fmt.Errorf("datastore: create store directory: %w", err)
	}

	if err := mergeDirNoOverwrite(sessionTmpDir, storeDir); err != nil {
		return fmt.Errorf("datastore: merge session into store: %w", err)
	}

	if err := s.appendManifest(storeID, rootHash); err != nil {
		return err
	}

	return nil
}

// mergeDirNoOverwrite recursively copies src into dst. A destination
// entry that already exists is left untouched rather than overwritten
// or treated as an error.
func mergeDirNoOverwrite(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := layout.EnsureDir(dstPath); err != nil {
				return err
			}
			if err := mergeDirNoOverwrite(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}

		if layout.FileExists(dstPath) {
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		if os.IsExist(err) || layout.FileExists(dst) {
			return nil
		}
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// appendManifest adds rootHash as a new line in the store's
// manifest.dat, the append-only list of committed root hashes. A
// rootHash already present is not duplicated.
func (s *Store) appendManifest(storeID, rootHash string) error {
	path := s.layout.ManifestPath(storeID)

	if present, err := manifestContains(path, rootHash); err != nil {
		return err
	} else if present {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("datastore: open manifest: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(rootHash + "\n"); err != nil {
		return fmt.Errorf("datastore: append manifest: %w", err)
	}
	return nil
}

func manifestContains(path, rootHash string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("datastore: read manifest: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if scanner.Text() == rootHash {
			return true, nil
		}
	}
	return false, scanner.Err()
}
