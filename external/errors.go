// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package external

import "errors"

var (
	// ErrMetadataUnreachable indicates the datastore metadata module
	// could not be reached or returned a non-2xx response.
	ErrMetadataUnreachable = errors.New("external: metadata module unreachable")

	// ErrMetadataInvalidResponse indicates the metadata module's
	// response body could not be decoded.
	ErrMetadataInvalidResponse = errors.New("external: invalid metadata module response")
)
