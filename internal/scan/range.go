package scan

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

// ErrInvalidRange covers both unparsable ranges and ranges above the host
// ceiling; either is fatal to that scan invocation only.
var ErrInvalidRange = errors.New("invalid scan range")

// DefaultHostCeiling bounds a scan when no explicit ceiling is configured,
// so a mistyped /8 cannot dispatch sixteen million probes.
const DefaultHostCeiling = 65536

// ExpandRange turns a CIDR block ("192.168.1.0/24") or a comma-separated host
// list ("10.0.0.5, 10.0.0.9") into the ordered, deduplicated set of addresses
// to probe. For IPv4 prefixes shorter than /31 the network and broadcast
// addresses are excluded. ceiling caps the host count; <= 0 applies
// DefaultHostCeiling.
func ExpandRange(s string, ceiling int) ([]netip.Addr, error) {
	if ceiling <= 0 {
		ceiling = DefaultHostCeiling
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidRange)
	}

	var hosts []netip.Addr
	if strings.Contains(s, "/") {
		expanded, err := expandPrefix(s, ceiling)
		if err != nil {
			return nil, err
		}
		hosts = expanded
	} else {
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			addr, err := netip.ParseAddr(part)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRange, part, err)
			}
			hosts = append(hosts, addr.Unmap())
		}
		if len(hosts) == 0 {
			return nil, fmt.Errorf("%w: no hosts in %q", ErrInvalidRange, s)
		}
	}

	hosts = dedupe(hosts)
	if ceiling > 0 && len(hosts) > ceiling {
		return nil, fmt.Errorf("%w: %d hosts exceeds ceiling %d", ErrInvalidRange, len(hosts), ceiling)
	}
	return hosts, nil
}

func expandPrefix(s string, ceiling int) ([]netip.Addr, error) {
	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRange, s, err)
	}
	prefix = prefix.Masked()

	// Reject absurd prefixes before iterating; a /8 would be 16M addresses.
	hostBits := prefix.Addr().BitLen() - prefix.Bits()
	if hostBits > 30 {
		return nil, fmt.Errorf("%w: prefix %s is too large to scan", ErrInvalidRange, prefix)
	}
	excludeEdges := prefix.Addr().Is4() && prefix.Bits() < 31
	count := 1 << hostBits
	if excludeEdges {
		count -= 2
	}
	if ceiling > 0 && count > ceiling {
		return nil, fmt.Errorf("%w: prefix %s holds %d hosts, ceiling is %d", ErrInvalidRange, prefix, count, ceiling)
	}
	var hosts []netip.Addr
	for addr := prefix.Addr(); prefix.Contains(addr); addr = addr.Next() {
		hosts = append(hosts, addr)
	}
	if excludeEdges && len(hosts) >= 2 {
		hosts = hosts[1 : len(hosts)-1]
	}
	if len(hosts) == 0 {
		return nil, fmt.Errorf("%w: %s holds no usable hosts", ErrInvalidRange, prefix)
	}
	return hosts, nil
}

func dedupe(hosts []netip.Addr) []netip.Addr {
	seen := make(map[netip.Addr]struct{}, len(hosts))
	out := hosts[:0]
	for _, h := range hosts {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}
