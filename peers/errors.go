// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package peers

import "errors"

var (
	// ErrLookupFailed indicates a DNS query itself failed or returned a
	// non-success rcode.
	ErrLookupFailed = errors.New("peers: dns lookup failed")

	// ErrNoPeers indicates a domain advertises no SRV records.
	ErrNoPeers = errors.New("peers: no introducer records found")

	// ErrNoPublicKeyRecord indicates a peer's TXT records contain no
	// "dstore=" entry.
	ErrNoPublicKeyRecord = errors.New("peers: no public key TXT record")
)
