package main

import (
	"github.com/spf13/cobra"
)

func newFirefightersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "firefighters",
		Aliases: []string{"ff"},
		Short:   "Manage the caller department's firefighter units",
	}

	var onlyAvailable bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the department's units",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/firefighters"
			if onlyAvailable {
				path += "?available=true"
			}
			data, err := client().get(cmd.Context(), path)
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}
	listCmd.Flags().BoolVar(&onlyAvailable, "available", false, "only units not deployed")

	var name, email, phone string
	var specializations []string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new unit",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := client().post(cmd.Context(), "/firefighters", map[string]any{
				"name":            name,
				"email":           email,
				"phone":           phone,
				"specializations": specializations,
			})
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}
	createCmd.Flags().StringVar(&name, "name", "", "unit name")
	createCmd.Flags().StringVar(&email, "email", "", "contact email")
	createCmd.Flags().StringVar(&phone, "phone", "", "contact phone")
	createCmd.Flags().StringSliceVar(&specializations, "specialization", nil, "specialization (repeatable)")
	createCmd.MarkFlagRequired("name")

	cmd.AddCommand(
		listCmd,
		createCmd,
		&cobra.Command{
			Use:   "get <id>",
			Short: "Show one unit",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := client().get(cmd.Context(), "/firefighters/"+args[0])
				if err != nil {
					return err
				}
				return printJSON(data)
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Remove an available unit from the roster",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := client().delete(cmd.Context(), "/firefighters/"+args[0])
				if err != nil {
					return err
				}
				return printJSON(data)
			},
		},
	)
	return cmd
}
