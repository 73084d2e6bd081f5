package enrich

import (
	"context"
	"net/netip"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ne0fr0stbb/IT-Assistant/internal/config"
)

// Enrichment holds whatever the per-field lookups managed to resolve. Fields
// stay empty on lookup failure; a failed lookup never aborts the host.
type Enrichment struct {
	Hostname     string
	Manufacturer string
	WebService   string
}

type Enricher struct {
	cfg config.EnrichConfig
	oui *OUIDB
	log zerolog.Logger
}

func New(cfg config.EnrichConfig, log zerolog.Logger) *Enricher {
	oui := NewOUIDB()
	if cfg.OUIPath != "" {
		if err := oui.LoadFile(cfg.OUIPath); err != nil {
			log.Warn().Err(err).Str("path", cfg.OUIPath).Msg("oui file not loaded, using built-in table")
		}
	}
	return &Enricher{cfg: cfg, oui: oui, log: log}
}

// Enrich runs the hostname, manufacturer and web-service lookups, each under
// its own budget. It always returns; missing data is represented as empty
// fields, never as an error.
func (e *Enricher) Enrich(ctx context.Context, host netip.Addr, mac string) Enrichment {
	var out Enrichment

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Hostname = e.hostname(gctx, host)
		return nil
	})
	g.Go(func() error {
		out.WebService = e.webService(gctx, host)
		return nil
	})
	g.Go(func() error {
		out.Manufacturer = e.manufacturer(mac)
		return nil
	})
	_ = g.Wait()

	return out
}

func (e *Enricher) manufacturer(mac string) string {
	if mac == "" {
		return ""
	}
	return e.oui.Lookup(strings.TrimSpace(mac))
}
