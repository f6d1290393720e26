package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var pidPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether the serve daemon is currently running",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pid, running, err := daemonStatus(pidPath)
			if err != nil {
				return fmt.Errorf("checking daemon status: %w", err)
			}

			if !running {
				fmt.Fprintln(cmd.OutOrStdout(), "not running")

				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "running (PID %d)\n", pid)

			return nil
		},
	}

	cmd.Flags().StringVar(&pidPath, "pid-file", defaultPIDPath, "PID file path written by the serve daemon")

	return cmd
}
