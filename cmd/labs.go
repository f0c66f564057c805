package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/trobanga/medreport/internal/labref"
)

// labsCmd represents the labs command group
var labsCmd = &cobra.Command{
	Use:   "labs",
	Short: "Laboratory reference data",
}

var labsRangesCmd = &cobra.Command{
	Use:   "ranges",
	Short: "List analytes and their normal ranges",
	Long: `List every analyte known to the lab form with its unit and normal range.

Keys are accepted by 'medreport run --lab key=value' and by the lab_panel
setting in medreport.yaml.

Example:
  medreport labs ranges`,
	Args: cobra.NoArgs,
	RunE: runLabsRanges,
}

func init() {
	rootCmd.AddCommand(labsCmd)
	labsCmd.AddCommand(labsRangesCmd)
}

func runLabsRanges(cmd *cobra.Command, args []string) error {
	table := labref.Default()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GROUP\tKEY\tANALYTE\tRANGE")
	for _, key := range table.Keys() {
		r, _ := table.Lookup(key)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Group, r.Key, r.Label, r.Hint())
	}
	return w.Flush()
}
