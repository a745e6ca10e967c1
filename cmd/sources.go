package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(cfg.Sources) == 0 {
			fmt.Fprintln(os.Stdout, "No sources configured.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tKIND\tURLS\tDECIMAL COMMA")
		for _, s := range cfg.Sources {
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", s.Name, s.EffectiveKind(), strings.Join(s.URLs, ", "), s.DecimalComma)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
