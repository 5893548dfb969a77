package main

import (
	"fmt"
	"os"

	"github.com/emberwatch/firedispatch/internal/version"
	"github.com/spf13/cobra"
)

var (
	flagAddr  string
	flagToken string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dispatchctl",
		Short:         "Operator command line for the firedispatch API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagAddr, "addr", envOr("DISPATCHCTL_ADDR", "http://localhost:8080"), "API base URL")
	root.PersistentFlags().StringVar(&flagToken, "token", os.Getenv("DISPATCHCTL_TOKEN"), "access token (defaults to DISPATCHCTL_TOKEN)")

	root.AddCommand(
		newVersionCmd(),
		newLoginCmd(),
		newDepartmentsCmd(),
		newFirefightersCmd(),
		newIncidentsCmd(),
		newAlertCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print client version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dispatchctl %s (%s, built %s)\n", version.Version, version.GitCommit, version.BuildDate)
		},
	}
}

func client() *apiClient {
	return newAPIClient(flagAddr, flagToken)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
