package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/komsit37/thematic-wl/pkg/wl/filter"
	"github.com/komsit37/thematic-wl/pkg/wl/pipeline"
)

func (a *app) loadState(cmd *cobra.Command, loc string, lf loadFlags) (*filter.State, error) {
	src, spec, err := a.source(loc, lf)
	if err != nil {
		return nil, err
	}
	r := &pipeline.Runner{Source: src, Log: a.log}
	return r.Load(cmd.Context(), spec)
}

func (a *app) themesCmd() *cobra.Command {
	var (
		lf    loadFlags
		dates []string
		match string
	)
	cmd := &cobra.Command{
		Use:   "themes <csv|dir|url|yaml|sqlite>",
		Short: "List the themes of a watchlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.loadState(cmd, args[0], lf)
			if err != nil {
				return err
			}
			mf, err := filter.Parse(match)
			if err != nil {
				return err
			}
			list := st.Index().AllThemes
			if len(dates) > 0 {
				list = st.Index().ThemesForDates(dates)
			}
			out := cmd.OutOrStdout()
			for _, t := range list {
				if mf.Match(t) {
					fmt.Fprintln(out, t)
				}
			}
			return nil
		},
	}
	lf.register(cmd)
	cmd.Flags().StringArrayVarP(&dates, "date", "d", nil, "only themes analyzed on this date (repeatable)")
	cmd.Flags().StringVarP(&match, "match", "m", "", "theme filter: a,b | glob* | /regex/ | substring")
	return cmd
}

func (a *app) datesCmd() *cobra.Command {
	var (
		lf     loadFlags
		counts bool
	)
	cmd := &cobra.Command{
		Use:   "dates <csv|dir|url|yaml|sqlite>",
		Short: "List analyzed dates, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.loadState(cmd, args[0], lf)
			if err != nil {
				return err
			}
			idx := st.Index()
			out := cmd.OutOrStdout()
			for _, d := range idx.Dates {
				if counts {
					fmt.Fprintf(out, "%s\t%d themes\n", d, len(idx.ThemesByDate[d]))
					continue
				}
				fmt.Fprintln(out, d)
			}
			return nil
		},
	}
	lf.register(cmd)
	cmd.Flags().BoolVar(&counts, "counts", false, "show how many themes each date covers")
	return cmd
}
