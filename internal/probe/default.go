package probe

import "github.com/rs/zerolog"

// Default builds the standard probe chain: ARP on the local link where the
// platform supports it, ICMP everywhere else.
func Default(ifaceName string, log zerolog.Logger) Prober {
	pinger := &Pinger{}

	arper, err := NewARPProber(ifaceName)
	if err != nil {
		log.Debug().Err(err).Msg("arp prober unavailable, using icmp only")
		return pinger
	}
	return Fallback{Primary: arper, Secondary: pinger}
}
