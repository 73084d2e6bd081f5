package enrich

import (
	"context"
	"net"
	"net/netip"
	"strings"

	"github.com/miekg/dns"
)

// hostname resolves the PTR record for host. Configured resolvers are asked
// first, in order; when none are configured (or none answer) the system
// resolver gets one try within the same budget.
func (e *Enricher) hostname(ctx context.Context, host netip.Addr) string {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.LookupTimeout)
	defer cancel()

	if name := e.ptrQuery(ctx, host); name != "" {
		return name
	}

	var resolver net.Resolver
	names, err := resolver.LookupAddr(ctx, host.String())
	if err != nil || len(names) == 0 {
		return ""
	}
	return strings.TrimSuffix(names[0], ".")
}

func (e *Enricher) ptrQuery(ctx context.Context, host netip.Addr) string {
	if len(e.cfg.DNSResolvers) == 0 {
		return ""
	}

	arpa, err := dns.ReverseAddr(host.String())
	if err != nil {
		return ""
	}

	m := new(dns.Msg)
	m.SetQuestion(arpa, dns.TypePTR)
	client := &dns.Client{Timeout: e.cfg.LookupTimeout}

	for _, server := range e.cfg.DNSResolvers {
		if ctx.Err() != nil {
			return ""
		}
		if !strings.Contains(server, ":") {
			server = net.JoinHostPort(server, "53")
		}
		in, _, err := client.ExchangeContext(ctx, m, server)
		if err != nil || in == nil {
			continue
		}
		for _, rr := range in.Answer {
			if ptr, ok := rr.(*dns.PTR); ok {
				return strings.TrimSuffix(ptr.Ptr, ".")
			}
		}
	}
	return ""
}
