package main

import (
	"encoding/json"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ruralhealth-lab/disparity-cli/internal/dataset"
)

var (
	checkInput string
	checkJSON  bool
)

var checkvarsCmd = &cobra.Command{
	Use:   "checkvars",
	Short: "Validate that the input file carries the required columns",
	Long: `Scans the input CSV and reports, for each column the pipeline needs, whether
it is present and how many rows are missing or unparseable. Exits nonzero if
any required column is absent.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if checkInput != "" {
			cfg.Data.InputPath = checkInput
		}
		if cfg.Data.InputPath == "" {
			return eris.New("checkvars: no input file; pass --input or set data.input_path")
		}

		reports, rows, err := dataset.Inspect(cfg.Data.InputPath)
		if err != nil {
			return err
		}

		if checkJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(struct {
				Rows    int                    `json:"rows"`
				Columns []dataset.ColumnReport `json:"columns"`
			}{rows, reports}); err != nil {
				return eris.Wrap(err, "checkvars: encode report")
			}
		} else {
			p := message.NewPrinter(language.AmericanEnglish)
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			p.Fprintln(tw, "column\tpresent\tmissing")
			for _, r := range reports {
				p.Fprintf(tw, "%s\t%t\t%d\n", r.Name, r.Present, r.Missing)
			}
			if err := tw.Flush(); err != nil {
				return eris.Wrap(err, "checkvars: flush table")
			}
			p.Printf("%d rows scanned\n", rows)
		}

		var absent []string
		for _, r := range reports {
			if !r.Present {
				absent = append(absent, r.Name)
			}
		}
		if len(absent) > 0 {
			return eris.Errorf("checkvars: missing required columns: %v", absent)
		}
		return nil
	},
}

func init() {
	checkvarsCmd.Flags().StringVar(&checkInput, "input", "", "path to the combined BRFSS CSV")
	checkvarsCmd.Flags().BoolVar(&checkJSON, "json", false, "emit the report as JSON")
	rootCmd.AddCommand(checkvarsCmd)
}
