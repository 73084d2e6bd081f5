package probe

import (
	"context"
	"errors"
	"net/netip"
	"time"

	"github.com/ne0fr0stbb/IT-Assistant/pkg/types"
)

// ErrUnsupported means the probe mechanism cannot run in this environment
// (wrong platform, missing privileges, host off-link for ARP). A Prober
// returns it so a fallback mechanism can take over; an unanswered probe is
// not an error but a Reachable=false result.
var ErrUnsupported = errors.New("probe mechanism unsupported")

type Prober interface {
	Probe(ctx context.Context, host netip.Addr, timeout time.Duration) (types.ProbeResult, error)
}

// Fallback tries the primary mechanism and switches to the secondary when the
// primary reports it cannot run at all. Unreachable results from a working
// primary are final; they do not trigger the secondary.
type Fallback struct {
	Primary   Prober
	Secondary Prober
}

func (f Fallback) Probe(ctx context.Context, host netip.Addr, timeout time.Duration) (types.ProbeResult, error) {
	if f.Primary != nil {
		res, err := f.Primary.Probe(ctx, host, timeout)
		if err == nil {
			return res, nil
		}
		if f.Secondary == nil {
			return res, err
		}
	}
	if f.Secondary == nil {
		return types.ProbeResult{}, ErrUnsupported
	}
	return f.Secondary.Probe(ctx, host, timeout)
}

func down(host netip.Addr, proto string) types.ProbeResult {
	return types.ProbeResult{
		Host:      host,
		Proto:     proto,
		Reachable: false,
		Timestamp: time.Now().UTC(),
	}
}
