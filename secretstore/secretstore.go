// Package secretstore resolves the shared RADIUS secret for a NAS by
// longest-prefix CIDR match, rebuilding the table atomically on refresh.
// Grounded on core/policy_config.go's RadiusClients/FindRadiusClient, but
// corrected: the teacher returns the first subnet that contains the
// address; this implementation always returns the entry with the greatest
// prefix length, per §4.2.
package secretstore

import (
	"fmt"
	"net"
	"sync/atomic"
)

// Record is one shared-secret entry: a secret string and the set of
// subnets it applies to.
type Record struct {
	Secret  string
	Subnets []*net.IPNet
}

type entry struct {
	network *net.IPNet
	secret  string
}

// Table is a read-mostly, longest-prefix-match CIDR table. Construct with
// NewTable and fill with Swap.
type Table struct {
	ptr atomic.Pointer[[]entry]
}

// NewTable returns an empty table; Resolve on it always returns "", false
// until the first Swap.
func NewTable() *Table {
	t := &Table{}
	empty := []entry{}
	t.ptr.Store(&empty)
	return t
}

// Build constructs a flat entry list from a set of records, skipping any
// subnet an earlier record already claimed. It logs nothing: this is a
// pure data-transformation step used by Swap.
func Build(records []Record) []entry {
	var entries []entry
	seen := make(map[string]bool)
	for _, r := range records {
		for _, n := range r.Subnets {
			key := n.String()
			if seen[key] {
				// Duplicate identical subnet across records: first one
				// kept, per §4.2.
				continue
			}
			seen[key] = true
			entries = append(entries, entry{network: n, secret: r.Secret})
		}
	}
	return entries
}

// Swap atomically replaces the table's contents. The old table continues
// to serve in-flight readers; no reader-side lock is ever taken.
func (t *Table) Swap(records []Record) {
	entries := Build(records)
	t.ptr.Store(&entries)
}

// Resolve returns the shared secret for ip, selecting the entry with the
// largest prefix length among all subnets containing ip (§4.2). Returns
// ("", false) if no subnet matches.
func (t *Table) Resolve(ip net.IP) (string, bool) {
	entries := t.ptr.Load()
	if entries == nil {
		return "", false
	}
	var best *entry
	bestOnes := -1
	for i := range *entries {
		e := (*entries)[i]
		if !e.network.Contains(ip) {
			continue
		}
		ones, _ := e.network.Mask.Size()
		if ones > bestOnes {
			bestOnes = ones
			best = &e
		}
	}
	if best == nil {
		return "", false
	}
	return best.secret, true
}

// ParseCIDR parses a subnet string, accepting a bare IP (normalized to a
// /32 or /128 host route) as well as CIDR notation, matching the
// teacher's RadiusClients.initialize() convenience for single-host
// entries.
func ParseCIDR(s string) (*net.IPNet, error) {
	if _, n, err := net.ParseCIDR(s); err == nil {
		return n, nil
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, fmt.Errorf("secretstore: invalid subnet %q", s)
	}
	bits := 32
	if ip.To4() == nil {
		bits = 128
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
}
