// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package layout

import "errors"

var (
	// ErrInvalidHexHash indicates a hash string is not well-formed hex of
	// the expected length.
	ErrInvalidHexHash = errors.New("layout: invalid hex hash")

	// ErrInvalidDataPath indicates a dataPath does not start with "data/".
	ErrInvalidDataPath = errors.New("layout: path is not under data/")
)
