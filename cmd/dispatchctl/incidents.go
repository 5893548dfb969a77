package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newIncidentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "incidents",
		Aliases: []string{"inc"},
		Short:   "Inspect and act on incidents",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent incidents",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := client().get(cmd.Context(), "/incidents?limit="+strconv.Itoa(limit))
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 50, "maximum incidents to return")

	simpleList := func(use, short, path string) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := client().get(cmd.Context(), path)
				if err != nil {
					return err
				}
				return printJSON(data)
			},
		}
	}

	var notes string
	respondCmd := &cobra.Command{
		Use:   "respond <id> <accept|reject>",
		Short: "Accept or reject a pending incident",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[1] == "reject" && notes == "" {
				return fmt.Errorf("rejecting requires --notes with a reason")
			}
			data, err := client().post(cmd.Context(), "/incidents/"+args[0]+"/respond", map[string]string{
				"action": args[1],
				"notes":  notes,
			})
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}
	respondCmd.Flags().StringVar(&notes, "notes", "", "response notes (required for reject)")

	var crewIDs []string
	var leaderID string
	assignCmd := &cobra.Command{
		Use:   "assign <id>",
		Short: "Assign a firefighter crew to an accepted incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := client().post(cmd.Context(), "/incidents/"+args[0]+"/assign", map[string]any{
				"crew_ids":  crewIDs,
				"leader_id": leaderID,
			})
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}
	assignCmd.Flags().StringSliceVar(&crewIDs, "crew", nil, "firefighter unit id (repeatable)")
	assignCmd.Flags().StringVar(&leaderID, "leader", "", "leader unit id")
	assignCmd.MarkFlagRequired("crew")
	assignCmd.MarkFlagRequired("leader")

	dispatchCmd := &cobra.Command{
		Use:   "dispatch <id>",
		Short: "Confirm the assigned crew is rolling out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := client().post(cmd.Context(), "/incidents/"+args[0]+"/dispatch", struct{}{})
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}

	var completionNotes string
	var responseTime int
	completeCmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Resolve an in-progress incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"notes": completionNotes}
			if cmd.Flags().Changed("response-time") {
				body["response_time_seconds"] = responseTime
			}
			data, err := client().post(cmd.Context(), "/incidents/"+args[0]+"/complete", body)
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}
	completeCmd.Flags().StringVar(&completionNotes, "notes", "", "completion notes")
	completeCmd.Flags().IntVar(&responseTime, "response-time", 0, "response time in seconds")

	cmd.AddCommand(
		listCmd,
		simpleList("active", "List incidents being worked on", "/incidents/active"),
		simpleList("pending", "List incidents awaiting the caller's decision", "/incidents/pending"),
		simpleList("assigned", "List incidents owned by the caller", "/incidents/assigned"),
		&cobra.Command{
			Use:   "get <id>",
			Short: "Show one incident",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := client().get(cmd.Context(), "/incidents/"+args[0])
				if err != nil {
					return err
				}
				return printJSON(data)
			},
		},
		respondCmd,
		assignCmd,
		dispatchCmd,
		completeCmd,
	)
	return cmd
}

func newAlertCmd() *cobra.Command {
	var alertType, location string
	var latitude, longitude, confidence float64

	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Ingest a test alert",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := client().post(cmd.Context(), "/alerts", map[string]any{
				"alert_type": alertType,
				"location":   location,
				"latitude":   latitude,
				"longitude":  longitude,
				"confidence": confidence,
			})
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}

	cmd.Flags().StringVar(&alertType, "type", "fire", "alert type (fire or smoke)")
	cmd.Flags().StringVar(&location, "location", "", "location description")
	cmd.Flags().Float64Var(&latitude, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&longitude, "lon", 0, "longitude")
	cmd.Flags().Float64Var(&confidence, "confidence", 0.9, "detection confidence 0..1")
	cmd.MarkFlagRequired("location")
	return cmd
}
