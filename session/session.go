// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package session implements the upload session registry: the
// process-wide mapping of sessionId to its temp directory, deadline
// timer, and assigned root hash.
package session

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/bitfsorg/dstore-go/layout"
)

// Session is the per-upload working context created by a successful
// startUploadSession call. A session's RootHash is immutable once set.
type Session struct {
	ID      string
	StoreID string
	TmpDir  string

	mu       sync.Mutex
	rootHash string
	timer    *time.Timer
}

// RootHash returns the session's assigned root hash, or "" if none has
// been set yet.
func (s *Session) RootHash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rootHash
}

// SetRootHash assigns the session's root hash. It is an error to call
// this more than once.
func (s *Session) SetRootHash(rootHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rootHash != "" {
		return ErrRootHashAlreadySet
	}
	s.rootHash = rootHash
	return nil
}

// generateSessionID returns a random UUID v4, hex-and-dash formatted.
func generateSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: generate id: %w", err)
	}
	b[6] = (b[6] & 0x0f) | 0x40 // version 4
	b[8] = (b[8] & 0x3f) | 0x80 // variant 10
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16]), nil
}

// Registry is the process-wide sessionId -> Session mapping. All
// mutations to the map itself are serialized under mu; individual
// session mutations (TTL bump, rootHash set) take the session's own
// lock so streaming uploads don't contend with unrelated sessions.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	layout   layout.Layout
	ttl      time.Duration
}

// New constructs a Registry rooted at the given layout, with sessions
// expiring after ttl of inactivity.
func New(lay layout.Layout, ttl time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		layout:   lay,
		ttl:      ttl,
	}
}

// Create allocates a fresh session: a UUID v4 id, an exclusive temp
// directory, and an armed expiry timer.
func (r *Registry) Create(storeID string) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	tmpDir := r.layout.SessionTempRoot(id)
	if err := layout.EnsureDir(tmpDir); err != nil {
		return nil, fmt.Errorf("session: create temp dir: %w", err)
	}

	sess := &Session{ID: id, StoreID: storeID, TmpDir: tmpDir}

	r.mu.Lock()
	sess.timer = time.AfterFunc(r.ttl, func() { r.destroyExpired(id) })
	r.sessions[id] = sess
	r.mu.Unlock()

	return sess, nil
}

// Get performs a non-mutating lookup.
func (r *Registry) Get(sessionID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[sessionID]
	return sess, ok
}

// Bump resets a session's expiry timer to now+ttl. It is a no-op if
// the session no longer exists (e.g. the timer already fired and
// destroy is racing this call).
func (r *Registry) Bump(sessionID string) {
	r.mu.Lock()
	sess, ok := r.sessions[sessionID]
	r.mu.Unlock()
	if !ok {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.timer != nil {
		sess.timer.Reset(r.ttl)
	}
}

// Destroy cancels the session's timer, recursively deletes its temp
// directory, and removes it from the registry. Idempotent; safe to
// call concurrently from the timer thread and an explicit abort or
// commit.
func (r *Registry) Destroy(sessionID string) error {
	r.mu.Lock()
	sess, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return destroySession(sess)
}

// destroyExpired is invoked on the timer goroutine when a session's
// deadline fires with no intervening bump, commit, or abort.
func (r *Registry) destroyExpired(sessionID string) {
	r.mu.Lock()
	sess, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()

	if ok {
		_ = destroySession(sess)
	}
}

func destroySession(sess *Session) error {
	sess.mu.Lock()
	if sess.timer != nil {
		sess.timer.Stop()
	}
	sess.mu.Unlock()

	if err := layout.RemoveAll(sess.TmpDir); err != nil {
		return fmt.Errorf("session: remove temp dir: %w", err)
	}
	return nil
}

// Len reports the number of live sessions, for diagnostics.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
