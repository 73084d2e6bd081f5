//go:build !linux

package probe

import (
	"context"
	"fmt"
	"net/netip"
	"runtime"
	"time"

	"github.com/ne0fr0stbb/IT-Assistant/pkg/types"
)

// ARP probing needs raw packet sockets, only wired up on Linux. Other
// platforms fall through to ICMP.
type ARPProber struct{}

func NewARPProber(ifaceName string) (*ARPProber, error) {
	return nil, fmt.Errorf("%w: arp probing not available on %s", ErrUnsupported, runtime.GOOS)
}

func (p *ARPProber) Probe(ctx context.Context, host netip.Addr, timeout time.Duration) (types.ProbeResult, error) {
	return types.ProbeResult{}, fmt.Errorf("%w: arp probing not available on %s", ErrUnsupported, runtime.GOOS)
}
