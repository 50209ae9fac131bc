// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package merkle decodes root-commitment documents and verifies both
// the Merkle root of a snapshot and the membership of individual blobs
// within a session's declared tree.
package merkle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// AllZeroRoot is the 64-hex all-zero digest a root commitment with no
// leaves must declare.
const AllZeroRoot = "0000000000000000000000000000000000000000000000000000000000000000"

// Kind distinguishes the two shapes a root-commitment document can take.
type Kind int

const (
	// LeavesEmpty means the commitment declares no leaves; Root must be
	// AllZeroRoot.
	LeavesEmpty Kind = iota
	// LeavesPresent means Root must equal the recomputed Merkle root of
	// Leaves.
	LeavesPresent
)

// FileEntry is one entry of a root-commitment document's "files" map.
type FileEntry struct {
	Hash   string `json:"hash"`
	Sha256 string `json:"sha256"`
}

// Payload is a decoded root-commitment (.dat) document.
type Payload struct {
	Root   string
	Kind   Kind
	Leaves []string
	Files  map[string]FileEntry
}

// FindBySha256 returns the files entry whose Sha256 matches digest
// (case-insensitive), or ok=false if none does.
func (p *Payload) FindBySha256(digest string) (key string, entry FileEntry, ok bool) {
	digest = strings.ToLower(digest)
	for k, e := range p.Files {
		if strings.ToLower(e.Sha256) == digest {
			return k, e, true
		}
	}
	return "", FileEntry{}, false
}

// Len implements external.LeafTree.
func (p *Payload) Len() int { return len(p.Leaves) }

type rawPayload struct {
	Root   string          `json:"root"`
	Leaves []string        `json:"leaves"`
	Files  json.RawMessage `json:"files"`
}

// Decode strictly parses raw as a root-commitment document: leading or
// trailing whitespace is rejected, duplicate keys inside "files" are
// rejected, hex fields are lowercased. Fields outside root/leaves/files
// are ignored.
func Decode(raw []byte) (*Payload, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformed)
	}
	if !bytes.Equal(raw, bytes.TrimSpace(raw)) {
		return nil, fmt.Errorf("%w: leading or trailing whitespace", ErrMalformed)
	}

	var rp rawPayload
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&rp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if rp.Root == "" {
		return nil, fmt.Errorf("%w: missing root", ErrMalformed)
	}

	files, err := decodeFilesNoDuplicates(rp.Files)
	if err != nil {
		return nil, err
	}

	kind := LeavesPresent
	if len(rp.Leaves) == 0 {
		kind = LeavesEmpty
	}

	leaves := make([]string, len(rp.Leaves))
	for i, l := range rp.Leaves {
		leaves[i] = strings.ToLower(l)
	}

	return &Payload{
		Root:   strings.ToLower(rp.Root),
		Kind:   kind,
		Leaves: leaves,
		Files:  files,
	}, nil
}

// decodeFilesNoDuplicates parses a JSON object into a map[string]FileEntry,
// rejecting duplicate top-level keys — something encoding/json's default
// map decoding silently allows (last key wins).
func decodeFilesNoDuplicates(raw json.RawMessage) (map[string]FileEntry, error) {
	result := make(map[string]FileEntry)
	if len(raw) == 0 {
		return result, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: files: %v", ErrMalformed, err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, fmt.Errorf("%w: files must be an object", ErrMalformed)
	}

	seen := make(map[string]bool)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: files: %v", ErrMalformed, err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: files key must be a string", ErrMalformed)
		}
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate files key %q", ErrDuplicateKey, key)
		}
		seen[key] = true

		var entry FileEntry
		if err := dec.Decode(&entry); err != nil {
			return nil, fmt.Errorf("%w: files[%q]: %v", ErrMalformed, key, err)
		}
		entry.Sha256 = strings.ToLower(entry.Sha256)
		entry.Hash = strings.ToLower(entry.Hash)
		result[key] = entry
	}

	return result, nil
}
