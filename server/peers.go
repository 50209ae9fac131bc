// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package server

import (
	"log/slog"

	"github.com/bitfsorg/dstore-go/peers"
)

// PeerDiscovery resolves domain's DNS-introducer records and logs what
// it finds. It is the hook point the out-of-scope background
// peer-synchronization system would call on a timer to refresh its
// dial list; this server does not run that loop itself.
func PeerDiscovery(resolver peers.Resolver, domain string, log *slog.Logger) ([]peers.Peer, error) {
	found, err := peers.Discover(resolver, domain)
	if err != nil {
		log.Warn("peer discovery failed", "domain", domain, "error", err)
		return nil, err
	}
	log.Info("peer discovery resolved introducers", "domain", domain, "count", len(found))
	return found, nil
}
