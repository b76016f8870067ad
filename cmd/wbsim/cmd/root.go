// Package cmd provides the command-line interface of wbsim.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wbsim",
	Short: "wbsim runs a Wang-Buzsaki neuron in simulated real time.",
	Long: `wbsim integrates a single Wang-Buzsaki neuron at a fixed rate ` +
		`inside a periodic host tick, drives it with a configurable ` +
		`stimulus, and records the membrane potential.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
