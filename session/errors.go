// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package session

import "errors"

// ErrRootHashAlreadySet indicates a second attempt to assign a
// session's root hash.
var ErrRootHashAlreadySet = errors.New("session: root hash already set")
