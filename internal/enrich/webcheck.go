package enrich

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// webService connect-checks the configured web ports in order and returns a
// URL for the first one accepting connections, or "".
func (e *Enricher) webService(ctx context.Context, host netip.Addr) string {
	var dialer net.Dialer
	for _, port := range e.cfg.WebPorts {
		portCtx, cancel := context.WithTimeout(ctx, e.cfg.WebTimeout)
		conn, err := dialer.DialContext(portCtx, "tcp", net.JoinHostPort(host.String(), strconv.Itoa(port)))
		cancel()
		if err != nil {
			continue
		}
		_ = conn.Close()
		return serviceURL(host, port)
	}
	return ""
}

func serviceURL(host netip.Addr, port int) string {
	scheme := "http"
	if port == 443 || port == 8443 {
		scheme = "https"
	}
	if port == 80 || port == 443 {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}
