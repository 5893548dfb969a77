package main

import (
	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as a department and print the issued token",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := client().post(cmd.Context(), "/auth/login", map[string]string{
				"email":    email,
				"password": password,
			})
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "department email")
	cmd.Flags().StringVar(&password, "password", "", "department password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}
