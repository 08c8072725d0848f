package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/phuslu/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/komsit37/thematic-wl/pkg/wl/config"
	"github.com/komsit37/thematic-wl/pkg/wl/enrich"
	"github.com/komsit37/thematic-wl/pkg/wl/logging"
)

func main() {
	_ = godotenv.Load(".env")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp().rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// app carries state shared by every subcommand once flags are parsed.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
	log     *log.Logger
}

func newApp() *app {
	return &app{v: config.New(), log: logging.Discard()}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "wl",
		Short:        "Thematic stock watchlist: filter by theme and date, enrich with returns",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logging.New(cfg.Log.Level, cmd.ErrOrStderr())
			return nil
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default ./wl.yaml if present)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("prices", "", "price source: massive, proxy, yahoo, none")
	_ = a.v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("prices.source", pf.Lookup("prices"))

	root.AddCommand(
		a.showCmd(),
		a.themesCmd(),
		a.datesCmd(),
		a.mergeCmd(),
		a.proxyCmd(),
		a.catalystsCmd(),
	)
	return root
}

// priceCache builds the cache for the configured source, or nil when prices
// are off. A misconfigured source degrades to no prices.
func (a *app) priceCache(needed bool) *enrich.Cache {
	src, err := a.cfg.PriceSource()
	if err != nil {
		ev := a.log.Debug()
		if needed {
			ev = a.log.Warn()
		}
		ev.Err(err).Str("source", a.cfg.Prices.Source).Msg("prices disabled")
		return nil
	}
	if src == nil {
		return nil
	}
	return enrich.NewCache(src,
		enrich.WithBatchSize(a.cfg.Prices.BatchSize),
		enrich.WithLogger(a.log),
	)
}
