package enrich

import (
	"context"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/ne0fr0stbb/IT-Assistant/pkg/types"
)

const (
	mdnsGroup       = "224.0.0.251"
	mdnsPort        = 5353
	mdnsServiceName = "_services._dns-sd._udp.local"
)

// MDNSNames sweeps the local multicast group for device names. Hosts that
// answer the DNS-SD service query reveal their A/AAAA records, which covers
// devices that never register in unicast DNS. Best effort: any failure just
// yields an empty map.
func (e *Enricher) MDNSNames(ctx context.Context, ifaceName string, timeout time.Duration) map[netip.Addr]string {
	out := map[netip.Addr]string{}

	var iface *net.Interface
	if ifaceName != "" {
		var err error
		iface, err = net.InterfaceByName(ifaceName)
		if err != nil {
			e.log.Debug().Err(err).Str("iface", ifaceName).Msg("mdns sweep skipped")
			return out
		}
	}

	group := &net.UDPAddr{IP: net.ParseIP(mdnsGroup), Port: mdnsPort}
	conn, err := net.ListenMulticastUDP("udp4", iface, group)
	if err != nil {
		e.log.Debug().Err(err).Msg("mdns listen failed")
		return out
	}
	defer conn.Close()
	_ = conn.SetReadBuffer(1 << 20)

	q := new(dns.Msg)
	q.SetQuestion(dns.Fqdn(mdnsServiceName), dns.TypePTR)
	packed, err := q.Pack()
	if err != nil {
		return out
	}

	// Two sends; multicast queries get lost.
	_, _ = conn.WriteToUDP(packed, group)
	time.Sleep(50 * time.Millisecond)
	_, _ = conn.WriteToUDP(packed, group)

	deadline := time.Now().Add(timeout)
	buf := make([]byte, 65536)

	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return out
		}
		_ = conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			continue
		}

		m := new(dns.Msg)
		if err := m.Unpack(buf[:n]); err != nil {
			continue
		}
		for _, rr := range append(m.Answer, m.Extra...) {
			switch t := rr.(type) {
			case *dns.A:
				if addr, ok := netip.AddrFromSlice(t.A.To4()); ok {
					out[addr] = strings.TrimSuffix(t.Hdr.Name, ".")
				}
			case *dns.AAAA:
				if addr, ok := netip.AddrFromSlice(t.AAAA); ok {
					out[addr] = strings.TrimSuffix(t.Hdr.Name, ".")
				}
			}
		}
	}
	return out
}

// MergeMDNSNames fills empty hostnames in place from a sweep result.
func MergeMDNSNames(recs []types.DeviceRecord, names map[netip.Addr]string) {
	for i := range recs {
		if recs[i].Hostname != "" {
			continue
		}
		if n, ok := names[recs[i].Host]; ok {
			recs[i].Hostname = n
		}
	}
}
