// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package session

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/dstore-go/layout"
)

func newTestRegistry(t *testing.T, ttl time.Duration) *Registry {
	t.Helper()
	lay := layout.New(t.TempDir())
	return New(lay, ttl)
}

func TestCreate_AllocatesTempDirAndID(t *testing.T) {
	r := newTestRegistry(t, time.Minute)

	sess, err := r.Create("store-a")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "store-a", sess.StoreID)

	info, err := os.Stat(sess.TmpDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestGet_ReturnsCreatedSession(t *testing.T) {
	r := newTestRegistry(t, time.Minute)
	sess, err := r.Create("store-a")
	require.NoError(t, err)

	got, ok := r.Get(sess.ID)
	require.True(t, ok)
	assert.Equal(t, sess, got)
}

func TestGet_UnknownSessionMisses(t *testing.T) {
	r := newTestRegistry(t, time.Minute)
	_, ok := r.Get("does-not-exist")
	assert.False(t, ok)
}

func TestDestroy_RemovesTempDirAndEntry(t *testing.T) {
	r := newTestRegistry(t, time.Minute)
	sess, err := r.Create("store-a")
	require.NoError(t, err)

	require.NoError(t, r.Destroy(sess.ID))

	_, ok := r.Get(sess.ID)
	assert.False(t, ok)
	_, err = os.Stat(sess.TmpDir)
	assert.True(t, os.IsNotExist(err))
}

func TestDestroy_IsIdempotent(t *testing.T) {
	r := newTestRegistry(t, time.Minute)
	sess, err := r.Create("store-a")
	require.NoError(t, err)

	require.NoError(t, r.Destroy(sess.ID))
	require.NoError(t, r.Destroy(sess.ID))
}

func TestTimerExpiry_DestroysSession(t *testing.T) {
	r := newTestRegistry(t, 20*time.Millisecond)
	sess, err := r.Create("store-a")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := r.Get(sess.ID)
		return !ok
	}, time.Second, 5*time.Millisecond)

	_, err = os.Stat(sess.TmpDir)
	assert.True(t, os.IsNotExist(err))
}

func TestBump_DelaysExpiry(t *testing.T) {
	r := newTestRegistry(t, 60*time.Millisecond)
	sess, err := r.Create("store-a")
	require.NoError(t, err)

	deadline := time.After(40 * time.Millisecond)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-deadline:
			break loop
		case <-ticker.C:
			r.Bump(sess.ID)
		}
	}

	_, ok := r.Get(sess.ID)
	assert.True(t, ok, "repeated bumps should have kept the session alive past its original ttl")
}

func TestBump_UnknownSessionIsNoop(t *testing.T) {
	r := newTestRegistry(t, time.Minute)
	assert.NotPanics(t, func() { r.Bump("does-not-exist") })
}

func TestSetRootHash_OnceOnly(t *testing.T) {
	r := newTestRegistry(t, time.Minute)
	sess, err := r.Create("store-a")
	require.NoError(t, err)

	require.NoError(t, sess.SetRootHash("abcd"))
	assert.Equal(t, "abcd", sess.RootHash())

	err = sess.SetRootHash("ffff")
	assert.ErrorIs(t, err, ErrRootHashAlreadySet)
	assert.Equal(t, "abcd", sess.RootHash())
}

func TestCreate_GeneratesDistinctIDs(t *testing.T) {
	r := newTestRegistry(t, time.Minute)
	s1, err := r.Create("store-a")
	require.NoError(t, err)
	s2, err := r.Create("store-a")
	require.NoError(t, err)
	assert.NotEqual(t, s1.ID, s2.ID)
}

func TestLen_TracksLiveSessions(t *testing.T) {
	r := newTestRegistry(t, time.Minute)
	assert.Equal(t, 0, r.Len())

	sess, err := r.Create("store-a")
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())

	require.NoError(t, r.Destroy(sess.ID))
	assert.Equal(t, 0, r.Len())
}
