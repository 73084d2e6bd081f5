package probe

import (
	"context"
	"net/netip"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/ne0fr0stbb/IT-Assistant/pkg/types"
)

// Pinger probes with a single ICMP echo. Unprivileged mode uses UDP-based
// ICMP, which works without CAP_NET_RAW on Linux when ping_group_range
// allows it.
type Pinger struct {
	Privileged bool
}

func (p *Pinger) Probe(ctx context.Context, host netip.Addr, timeout time.Duration) (types.ProbeResult, error) {
	res := down(host, "icmp")

	pinger := probing.New(host.String())
	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(p.Privileged)

	if err := pinger.RunWithContext(ctx); err != nil {
		// Socket-level failures (no permission, no route) are treated as an
		// unanswered probe rather than aborting the caller's sweep.
		return res, nil
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv > 0 {
		res.Reachable = true
		res.RTT = stats.AvgRtt
	}
	return res, nil
}
