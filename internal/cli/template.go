package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/grant-triage/internal/master"
)

func newTemplateCmd() *cobra.Command {
	var outfile string
	cmd := &cobra.Command{
		Use:   "template INPUT",
		Short: "Turn a fetched CSV/TSV into a scoring master",
		Long: `Normalize the headers of a fetched file, add the blank scoring columns
(Relevance, EQORE Fit, Ease of Use, Match %) and write the scoring master.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outfile
			if out == "" {
				out = master.DefaultOutput(args[0])
			}
			n, err := master.Build(args[0], out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote scoring template with %d rows to %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&outfile, "outfile", "", "Output path (default data/master.csv or data/master_<stem>.csv)")
	return cmd
}
