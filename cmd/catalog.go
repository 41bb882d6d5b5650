package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	catalogx "github.com/tanpawarit/Chative-Commerce-Router/agent/catalog"
)

func newCatalogCmd() *cobra.Command {
	var (
		paths    []string
		describe bool
	)

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Load and validate the action catalog, then list its actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := catalogx.LoadDefault(paths...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if describe {
				_, err := fmt.Fprintln(out, catalog.Describe())
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ACTION\tREQUIRED")
			for _, name := range catalog.Names() {
				required := strings.Join(catalog.RequiredFieldsOf(name), ", ")
				if required == "" {
					required = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\n", name, required)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "%d actions\n", catalog.Len())
			return err
		},
	}

	cmd.Flags().StringSliceVar(&paths, "file", nil, "catalog files to load instead of the embedded catalog")
	cmd.Flags().BoolVar(&describe, "describe", false, "print the catalog as rendered into planner prompts")

	return cmd
}
