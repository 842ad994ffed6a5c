// cmd/clinostat/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgPath string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "clinostat",
	Short: "Clinostat device link and telemetry daemon",
	Long: `Clinostat drives the satellite motor and lighting controller over
the register bus, keeps the serial acknowledgment link alive, and samples
the on-board ambient and motion sensors into bounded windows that can be
exported as CSV.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "clinostat.yaml", "path to the YAML configuration")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "development logging")
}

func newLogger() (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
