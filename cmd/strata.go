package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ruralhealth-lab/disparity-cli/internal/strata"
)

var strataCmd = &cobra.Command{
	Use:   "strata",
	Short: "List the geographic strata the regression iterates over",
	RunE: func(_ *cobra.Command, _ []string) error {
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "code\tname")
		for _, s := range strata.All() {
			if s.Nationwide() {
				fmt.Fprintf(tw, "%d\t%s (all records)\n", s.Code, s.Name)
				continue
			}
			fmt.Fprintf(tw, "%02d\t%s\n", s.Code, s.Name)
		}
		return eris.Wrap(tw.Flush(), "strata: flush table")
	},
}

func init() {
	rootCmd.AddCommand(strataCmd)
}
