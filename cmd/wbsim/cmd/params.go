package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/wbneuron/neuron"
)

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "List the model variables and their defaults.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printVariables(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(paramsCmd)
}

func printVariables(out io.Writer) error {
	p := neuron.DefaultParams()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "NAME\tKIND\tDEFAULT\tDESCRIPTION")

	for _, v := range neuron.Variables() {
		def := "-"
		if value, ok := p.Get(v.Name); ok {
			def = fmt.Sprintf("%g", value)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.Name, v.Kind, def, v.Description)
	}

	fmt.Fprintf(w, "Phi\tbuild\t%g\tGating temperature factor\n", p.Phi)

	return w.Flush()
}
