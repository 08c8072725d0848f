package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/komsit37/thematic-wl/pkg/wl/catalyst"
	"github.com/komsit37/thematic-wl/pkg/wl/config"
	"github.com/komsit37/thematic-wl/pkg/wl/proxy"
)

func (a *app) proxyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Serve market-data endpoints with the API key injected server-side",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Massive.APIKey == "" {
				return config.ErrNoAPIKey
			}
			p, err := proxy.New(a.cfg.Massive.BaseURL, a.cfg.Massive.APIKey,
				&http.Client{Timeout: a.cfg.Prices.Timeout}, a.log)
			if err != nil {
				return err
			}
			a.log.Info().Str("upstream", a.cfg.Massive.BaseURL).Msg("proxy upstream")
			return p.ListenAndServe(cmd.Context(), a.cfg.Proxy.Listen)
		},
	}
	cmd.Flags().String("listen", "", "listen address (default :8787)")
	_ = a.v.BindPFlag("proxy.listen", cmd.Flags().Lookup("listen"))
	return cmd
}

func (a *app) catalystsCmd() *cobra.Command {
	var interval, jitter time.Duration
	cmd := &cobra.Command{
		Use:   "catalysts",
		Short: "Serve a WebSocket feed of sample catalyst events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 || jitter < 0 {
				return errors.New("interval must be positive and jitter not negative")
			}
			s := catalyst.New(
				catalyst.WithInterval(interval, jitter),
				catalyst.WithLogger(a.log),
			)
			return s.ListenAndServe(cmd.Context(), a.cfg.Catalysts.Listen)
		},
	}
	f := cmd.Flags()
	f.String("listen", "", "listen address (default :8788)")
	f.DurationVar(&interval, "interval", 5*time.Second, "minimum time between events")
	f.DurationVar(&jitter, "jitter", 4*time.Second, "random extra delay added per client")
	_ = a.v.BindPFlag("catalysts.listen", f.Lookup("listen"))
	return cmd
}
