// cmd/clinostat/merge.go
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tamzrod/clinostat/internal/telemetry"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <ambient|motion> <out.csv> <chunk.csv>...",
	Short: "Merge chunk files into one export CSV",
	Long: `Merge stitches chunk files left on disk by a sampler into a single CSV
with the export header of the given kind. Chunks are read in the order
given.`,
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := telemetry.SchemaFor(telemetry.Kind(args[0]))
		if err != nil {
			return err
		}

		out, err := os.Create(args[1])
		if err != nil {
			return err
		}

		rows, err := telemetry.Merge(out, schema, args[2:]...)
		if err = errors.Join(err, out.Close()); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", rows, args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}
