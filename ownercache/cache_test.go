// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package ownercache

import (
	"context"
	"testing"
	"time"

	"github.com/bitfsorg/dstore-go/external/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsOwner_MissConsultsChecker(t *testing.T) {
	checker := testutil.NewFakePermissionChecker()
	checker.Allow("store-a", "pub-1")

	c := New(3*time.Minute, checker, nil)

	ok, err := c.IsOwner(context.Background(), "pub-1", "store-a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, checker.Calls)
}

func TestIsOwner_HitDoesNotConsultChecker(t *testing.T) {
	checker := testutil.NewFakePermissionChecker()
	checker.Allow("store-a", "pub-1")

	c := New(3*time.Minute, checker, nil)

	_, err := c.IsOwner(context.Background(), "pub-1", "store-a")
	require.NoError(t, err)
	_, err = c.IsOwner(context.Background(), "pub-1", "store-a")
	require.NoError(t, err)

	assert.Equal(t, 1, checker.Calls, "second lookup should be served from cache")
}

func TestIsOwner_NegativeAnswerCachedToo(t *testing.T) {
	checker := testutil.NewFakePermissionChecker()
	checker.Default = false

	c := New(3*time.Minute, checker, nil)

	ok, err := c.IsOwner(context.Background(), "pub-1", "store-a")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.IsOwner(context.Background(), "pub-1", "store-a")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, checker.Calls)
}

func TestIsOwner_ExpiredEntryRechecked(t *testing.T) {
	checker := testutil.NewFakePermissionChecker()
	checker.Allow("store-a", "pub-1")

	c := New(10*time.Millisecond, checker, nil)

	_, err := c.IsOwner(context.Background(), "pub-1", "store-a")
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	_, err = c.IsOwner(context.Background(), "pub-1", "store-a")
	require.NoError(t, err)
	assert.Equal(t, 2, checker.Calls)
}

func TestIsOwner_PropagatesCheckerError(t *testing.T) {
	checker := testutil.NewFakePermissionChecker()
	checker.Err = assertError{"boom"}

	c := New(3*time.Minute, checker, nil)
	_, err := c.IsOwner(context.Background(), "pub-1", "store-a")
	require.Error(t, err)
}

func TestBump_ExtendsHitWithoutRecheck(t *testing.T) {
	checker := testutil.NewFakePermissionChecker()
	checker.Allow("store-a", "pub-1")

	c := New(20*time.Millisecond, checker, nil)

	_, err := c.IsOwner(context.Background(), "pub-1", "store-a")
	require.NoError(t, err)

	time.Sleep(15 * time.Millisecond)
	c.Bump("pub-1", "store-a")
	time.Sleep(15 * time.Millisecond)

	ok, err := c.IsOwner(context.Background(), "pub-1", "store-a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, checker.Calls, "bump should have kept the entry alive without a recheck")
}

func TestIsOwner_NegativeHitDoesNotSlideTTL(t *testing.T) {
	checker := testutil.NewFakePermissionChecker()
	checker.Default = false

	c := New(20*time.Millisecond, checker, nil)

	ok, err := c.IsOwner(context.Background(), "pub-1", "store-a")
	require.NoError(t, err)
	assert.False(t, ok)

	time.Sleep(15 * time.Millisecond)

	ok, err = c.IsOwner(context.Background(), "pub-1", "store-a")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, checker.Calls, "a fresh negative hit should not slide the TTL forward")

	time.Sleep(15 * time.Millisecond)

	ok, err = c.IsOwner(context.Background(), "pub-1", "store-a")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, checker.Calls, "the negative entry should have expired and been rechecked")
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
