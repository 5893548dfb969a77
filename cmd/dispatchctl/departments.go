package main

import (
	"github.com/spf13/cobra"
)

func newDepartmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "departments",
		Aliases: []string{"dept"},
		Short:   "Inspect registered departments",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all departments",
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := client().get(cmd.Context(), "/departments")
				if err != nil {
					return err
				}
				return printJSON(data)
			},
		},
		&cobra.Command{
			Use:   "get <id-or-slug>",
			Short: "Show one department",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := client().get(cmd.Context(), "/departments/"+args[0])
				if err != nil {
					return err
				}
				return printJSON(data)
			},
		},
	)
	return cmd
}
