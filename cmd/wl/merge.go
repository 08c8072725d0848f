package main

import (
	"github.com/spf13/cobra"

	"github.com/komsit37/thematic-wl/pkg/wl/merge"
)

func (a *app) mergeCmd() *cobra.Command {
	var (
		out      string
		sentinel string
		encoding string
	)
	cmd := &cobra.Command{
		Use:   "merge <base.csv> <new.csv>",
		Short: "Merge a new watchlist snapshot into a base file, keeping every theme",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := merge.Files(args[0], args[1], out, merge.Options{
				Sentinel:    sentinel,
				NewEncoding: merge.Encoding(encoding),
			})
			if err != nil {
				return err
			}
			a.log.Info().Int("rows", n).Str("out", out).Msg("merged")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "merged.csv", "output CSV path")
	f.StringVar(&sentinel, "sentinel", merge.DefaultSentinel, "analyzed date written for base tickers")
	f.StringVar(&encoding, "encoding", string(merge.UTF8), "encoding of the new file: utf-8, windows-1252")
	return cmd
}
