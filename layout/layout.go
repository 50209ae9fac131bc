// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package layout computes the deterministic filesystem paths the
// propagation server reads and writes: store directories,
// content-addressed blob paths, root-commitment documents, and
// per-session temporary roots. The path functions are pure; the
// filesystem helpers create directories (EnsureDir, EnsureParentDir),
// stat paths (StoreExists, FileExists) and remove trees (RemoveAll).
package layout

import (
	"path/filepath"
	"strings"
)

const (
	dataDirName     = "data"
	storesDirName   = "stores"
	sessionsDirName = "sessions"
	manifestName    = "manifest.dat"
	datSuffix       = ".dat"
)

// Layout resolves paths rooted at a single base directory, typically
// Config.StorePath().
type Layout struct {
	root string
}

// New returns a Layout rooted at root.
func New(root string) Layout {
	return Layout{root: filepath.Clean(root)}
}

// Root returns the base directory this Layout is rooted at.
func (l Layout) Root() string { return l.root }

// StoreDir returns the directory a store's committed tree lives in.
func (l Layout) StoreDir(storeID string) string {
	return filepath.Join(l.root, storesDirName, storeID)
}

// DataDir returns the content-addressed blob root for a store.
func (l Layout) DataDir(storeID string) string {
	return filepath.Join(l.StoreDir(storeID), dataDirName)
}

// BlobPath returns the canonical path of a content-addressed blob given
// its lowercase hex sha-256 digest H: data/H[0:2]/H[2:4]/H[4:].
func (l Layout) BlobPath(storeID, hexHash string) string {
	h := strings.ToLower(hexHash)
	return filepath.Join(l.DataDir(storeID), h[0:2], h[2:4], h[4:])
}

// DataPath returns the blob path relative to the store root, e.g.
// "data/ab/cd/ef...". This is the path form carried in upload/fetch URLs.
func DataPath(hexHash string) string {
	h := strings.ToLower(hexHash)
	return filepath.Join(dataDirName, h[0:2], h[2:4], h[4:])
}

// HashFromDataPath extracts the expected sha-256 hex digest from a
// dataPath of the form "data/<aa>/<bb>/<rest>" by stripping the leading
// "data" segment and all path separators, then concatenating what
// remains. Returns ok=false if dataPath does not start with "data/".
func HashFromDataPath(dataPath string) (hash string, ok bool) {
	clean := filepath.ToSlash(dataPath)
	clean = strings.TrimPrefix(clean, "/")
	const prefix = dataDirName + "/"
	if !strings.HasPrefix(clean, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(clean, prefix)
	rest = strings.ReplaceAll(rest, "/", "")
	if rest == "" {
		return "", false
	}
	return strings.ToLower(rest), true
}

// IsDataPath reports whether p is rooted under the data/ prefix.
func IsDataPath(p string) bool {
	clean := strings.TrimPrefix(filepath.ToSlash(p), "/")
	return strings.HasPrefix(clean, dataDirName+"/")
}

// RootCommitmentPath returns the path of a store's root-commitment
// document: <storeId>/<rootHash>.dat.
func (l Layout) RootCommitmentPath(storeID, rootHash string) string {
	return filepath.Join(l.StoreDir(storeID), strings.ToLower(rootHash)+datSuffix)
}

// ManifestPath returns the append-only list of committed root hashes.
func (l Layout) ManifestPath(storeID string) string {
	return filepath.Join(l.StoreDir(storeID), manifestName)
}

// SessionTempRoot returns the exclusive scratch directory for a session.
func (l Layout) SessionTempRoot(sessionID string) string {
	return filepath.Join(l.root, sessionsDirName, sessionID)
}

// SessionFilePath returns the path a filename is staged at inside a
// session's temp root, with intermediate directories as dictated by
// filename's own separators (e.g. "data/ab/cd/ef..."). It only builds
// the path; it creates no directories.
func (l Layout) SessionFilePath(sessionID, filename string) string {
	return filepath.Join(l.SessionTempRoot(sessionID), filepath.FromSlash(filename))
}

// StoreExists reports whether the named store directory is present.
func (l Layout) StoreExists(storeID string) bool {
	return dirExists(l.StoreDir(storeID))
}
