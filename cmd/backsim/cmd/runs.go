package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quantsim/backsim/journal"
)

var runsDBPath string

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List backtest runs recorded in a SQLite journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := journal.NewSQLite(runsDBPath)
		if err != nil {
			return err
		}
		defer j.Close()

		runs, err := j.ListRuns()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no runs recorded")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN ID\tSTRATEGY\tSYMBOL\tRETURN%\tSHARPE\tMAX DD%\tTRADES")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%d\n",
				r.RunID, r.Strategy, r.Symbol,
				r.TotalReturnPct, r.Sharpe, r.MaxDrawdown*100, r.Trades)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().StringVarP(&runsDBPath, "db", "d", "./backsim.sqlite", "path to SQLite journal DB")
}
