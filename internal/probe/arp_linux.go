//go:build linux

package probe

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/mdlayher/arp"

	"github.com/ne0fr0stbb/IT-Assistant/pkg/types"
)

// ARPProber resolves hosts on the local link with ARP requests. Hosts outside
// the interface's subnet yield ErrUnsupported so a Fallback can ping them
// instead.
type ARPProber struct {
	iface  *net.Interface
	prefix netip.Prefix
}

func NewARPProber(ifaceName string) (*ARPProber, error) {
	iface, prefix, err := pickInterface(ifaceName)
	if err != nil {
		return nil, err
	}
	return &ARPProber{iface: iface, prefix: prefix}, nil
}

func (p *ARPProber) Probe(ctx context.Context, host netip.Addr, timeout time.Duration) (types.ProbeResult, error) {
	if !p.prefix.Contains(host) {
		return types.ProbeResult{}, fmt.Errorf("%w: %s off-link for %s", ErrUnsupported, host, p.iface.Name)
	}

	client, err := arp.Dial(p.iface)
	if err != nil {
		return types.ProbeResult{}, fmt.Errorf("%w: arp dial %s: %v", ErrUnsupported, p.iface.Name, err)
	}
	defer client.Close()

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := client.SetDeadline(deadline); err != nil {
		return types.ProbeResult{}, fmt.Errorf("%w: set deadline: %v", ErrUnsupported, err)
	}

	res := down(host, "arp")
	start := time.Now()
	mac, err := client.Resolve(host)
	if err != nil {
		return res, nil
	}
	res.Reachable = true
	res.RTT = time.Since(start)
	res.HWAddr = mac.String()
	return res, nil
}

func pickInterface(name string) (*net.Interface, netip.Prefix, error) {
	if name != "" {
		iface, err := net.InterfaceByName(name)
		if err != nil {
			return nil, netip.Prefix{}, fmt.Errorf("interface %q: %w", name, err)
		}
		prefix, err := ifacePrefix(iface)
		if err != nil {
			return nil, netip.Prefix{}, err
		}
		return iface, prefix, nil
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, netip.Prefix{}, err
	}
	for i := range ifaces {
		iface := &ifaces[i]
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if prefix, err := ifacePrefix(iface); err == nil {
			return iface, prefix, nil
		}
	}
	return nil, netip.Prefix{}, fmt.Errorf("%w: no usable IPv4 interface", ErrUnsupported)
}

func ifacePrefix(iface *net.Interface) (netip.Prefix, error) {
	addrs, err := iface.Addrs()
	if err != nil {
		return netip.Prefix{}, err
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.To4() == nil {
			continue
		}
		if prefix, err := netip.ParsePrefix(ipnet.String()); err == nil {
			return prefix.Masked(), nil
		}
	}
	return netip.Prefix{}, fmt.Errorf("interface %s has no IPv4 address", iface.Name)
}
