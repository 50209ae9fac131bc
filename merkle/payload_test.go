// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package merkle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_LeavesEmpty(t *testing.T) {
	raw := []byte(`{"root":"` + AllZeroRoot + `","leaves":[],"files":{}}`)

	p, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, LeavesEmpty, p.Kind)
	assert.Equal(t, AllZeroRoot, p.Root)
}

func TestDecode_LeavesPresent(t *testing.T) {
	raw := []byte(`{"root":"abcd","leaves":["1111"],"files":{}}`)

	p, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, LeavesPresent, p.Kind)
}

func TestDecode_LowercasesHex(t *testing.T) {
	raw := []byte(`{"root":"ABCD","leaves":["1111"],"files":{"k":{"hash":"AA","sha256":"BB"}}}`)

	p, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "abcd", p.Root)
	assert.Equal(t, "bb", p.Files["k"].Sha256)
}

func TestDecode_RejectsLeadingWhitespace(t *testing.T) {
	raw := []byte(" {\"root\":\"abcd\",\"leaves\":[],\"files\":{}}")
	_, err := Decode(raw)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecode_RejectsTrailingWhitespace(t *testing.T) {
	raw := []byte("{\"root\":\"abcd\",\"leaves\":[],\"files\":{}}\n")
	_, err := Decode(raw)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecode_RejectsDuplicateFilesKey(t *testing.T) {
	raw := []byte(`{"root":"abcd","leaves":[],"files":{"k":{"sha256":"11"},"k":{"sha256":"22"}}}`)
	_, err := Decode(raw)
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestDecode_IgnoresUnknownTopLevelFields(t *testing.T) {
	raw := []byte(`{"root":"abcd","leaves":[],"files":{},"extra":"ignored"}`)
	_, err := Decode(raw)
	assert.NoError(t, err)
}

func TestDecode_RejectsMissingRoot(t *testing.T) {
	raw := []byte(`{"leaves":[],"files":{}}`)
	_, err := Decode(raw)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestFindBySha256_CaseInsensitive(t *testing.T) {
	p := &Payload{Files: map[string]FileEntry{
		"k1": {Sha256: "abcdef"},
	}}

	key, entry, ok := p.FindBySha256("ABCDEF")
	require.True(t, ok)
	assert.Equal(t, "k1", key)
	assert.Equal(t, "abcdef", entry.Sha256)
}

func TestFindBySha256_NotFound(t *testing.T) {
	p := &Payload{Files: map[string]FileEntry{}}
	_, _, ok := p.FindBySha256("abcdef")
	assert.False(t, ok)
}
