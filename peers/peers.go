// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package peers resolves the DNS-introducer records other propagation
// servers publish: an SRV record advertising the peer's upload/fetch
// endpoint, and a TXT record advertising the public key it signs its
// server-coin announcements with. It is a narrow hook point for the
// out-of-scope background peer-synchronization system named in spec
// section 1 — this package only resolves addresses, it does not
// implement a sync loop.
package peers

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// SRVService is the DNS-introducer SRV service name: "_dstore._tcp.<domain>".
const SRVService = "dstore"

// txtPrefix marks the TXT record carrying a peer's compressed public
// key, mirroring the "bitfs=" convention this codebase already uses
// for its own DNSLink records.
const txtPrefix = "dstore="

const (
	queryTimeout = 10 * time.Second
	edns0BufSize = 4096
)

// Peer is one resolved introducer entry: an address to dial and,
// optionally, the public key that address's operator advertises.
type Peer struct {
	Addr      string
	PublicKey string
}

// Resolver looks up SRV and TXT records for a domain. The production
// Resolver queries a recursive resolver directly with miekg/dns;
// tests supply a fake.
type Resolver interface {
	LookupSRV(domain string) ([]SRVRecord, error)
	LookupTXT(name string) ([]string, error)
}

// SRVRecord is the subset of an SRV record this package needs.
type SRVRecord struct {
	Target   string
	Port     uint16
	Priority uint16
	Weight   uint16
}

// DNSResolver is the production Resolver, querying upstream directly
// with EDNS0 and the DO bit set. The response's AD (Authenticated Data)
// flag is neither checked nor returned to callers.
type DNSResolver struct {
	// Upstream is the recursive resolver address, e.g. "8.8.8.8:53".
	Upstream string
}

// NewDNSResolver returns a DNSResolver querying upstream. If upstream
// is empty it defaults to "8.8.8.8:53".
func NewDNSResolver(upstream string) *DNSResolver {
	if upstream == "" {
		upstream = "8.8.8.8:53"
	}
	return &DNSResolver{Upstream: upstream}
}

func (r *DNSResolver) exchange(name string, qtype uint16) (*dns.Msg, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true
	msg.SetEdns0(edns0BufSize, true)

	client := &dns.Client{Timeout: queryTimeout}
	resp, _, err := client.Exchange(msg, r.Upstream)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrLookupFailed, name, dns.TypeToString[qtype], err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("%w: %s %s: rcode %s", ErrLookupFailed, name, dns.TypeToString[qtype], dns.RcodeToString[resp.Rcode])
	}
	return resp, nil
}

// LookupSRV resolves "_dstore._tcp.<domain>".
func (r *DNSResolver) LookupSRV(domain string) ([]SRVRecord, error) {
	qname := fmt.Sprintf("_%s._tcp.%s", SRVService, domain)
	resp, err := r.exchange(qname, dns.TypeSRV)
	if err != nil {
		return nil, err
	}

	var out []SRVRecord
	for _, rr := range resp.Answer {
		if srv, ok := rr.(*dns.SRV); ok {
			out = append(out, SRVRecord{
				Target:   strings.TrimSuffix(srv.Target, "."),
				Port:     srv.Port,
				Priority: srv.Priority,
				Weight:   srv.Weight,
			})
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no SRV records for %s", ErrNoPeers, qname)
	}
	return out, nil
}

// LookupTXT resolves a TXT record set by name.
func (r *DNSResolver) LookupTXT(name string) ([]string, error) {
	resp, err := r.exchange(name, dns.TypeTXT)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, rr := range resp.Answer {
		if txt, ok := rr.(*dns.TXT); ok {
			out = append(out, strings.Join(txt.Txt, ""))
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no TXT records for %s", ErrLookupFailed, name)
	}
	return out, nil
}

// Discover resolves domain's introducer records into a priority-sorted
// peer list. A peer whose TXT lookup fails is still returned, with an
// empty PublicKey; the background sync system (out of scope) decides
// whether an unverified peer is worth dialing.
func Discover(resolver Resolver, domain string) ([]Peer, error) {
	if domain == "" {
		return nil, fmt.Errorf("%w: empty domain", ErrLookupFailed)
	}

	srvs, err := resolver.LookupSRV(domain)
	if err != nil {
		return nil, err
	}

	sort.Slice(srvs, func(i, j int) bool {
		if srvs[i].Priority != srvs[j].Priority {
			return srvs[i].Priority < srvs[j].Priority
		}
		return srvs[i].Weight > srvs[j].Weight
	})

	peers := make([]Peer, 0, len(srvs))
	for _, srv := range srvs {
		peer := Peer{Addr: fmt.Sprintf("%s:%d", srv.Target, srv.Port)}
		if key, err := resolvePublicKey(resolver, srv.Target); err == nil {
			peer.PublicKey = key
		}
		peers = append(peers, peer)
	}
	return peers, nil
}

// resolvePublicKey looks up "_dstore.<host>" for a "dstore=<hex>" TXT
// record advertising the peer's server-coin public key.
func resolvePublicKey(resolver Resolver, host string) (string, error) {
	txts, err := resolver.LookupTXT("_dstore." + host)
	if err != nil {
		return "", err
	}
	for _, txt := range txts {
		txt = strings.TrimSpace(txt)
		if strings.HasPrefix(txt, txtPrefix) {
			return strings.TrimSpace(strings.TrimPrefix(txt, txtPrefix)), nil
		}
	}
	return "", ErrNoPublicKeyRecord
}
