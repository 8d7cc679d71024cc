package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sdrhost/internal/ctrl"
)

// registerCommands wires one subcommand per Controller operation (spec
// §4.5 derived operations), each a thin wrapper: dial, call, print,
// close.
func registerCommands(root *cobra.Command) {
	root.AddCommand(
		simpleCmd("wakeup", (*ctrl.Client).Wakeup),
		simpleCmd("query", (*ctrl.Client).Query),
		simpleCmd("init", (*ctrl.Client).Init),
		simpleCmd("sync", (*ctrl.Client).Sync),
		simpleCmd("stream-start", (*ctrl.Client).StreamStart),
		simpleCmd("stream-stop", (*ctrl.Client).StreamStop),
		waitLockedCmd(),
	)
}

func simpleCmd(use string, call func(*ctrl.Client) ctrl.ReplySummary) *cobra.Command {
	return &cobra.Command{
		Use: use,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial()
			if err != nil {
				return err
			}
			defer c.Close()
			printSummary(use, call(c))
			return nil
		},
	}
}

func waitLockedCmd() *cobra.Command {
	var timeoutSec int
	cmd := &cobra.Command{
		Use:   "wait-locked",
		Short: "Polls Query until the digitizer reports locked, or times out",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial()
			if err != nil {
				return err
			}
			defer c.Close()
			if c.WaitUntilLocked(timeoutSec) {
				fmt.Println("locked")
				return nil
			}
			return fmt.Errorf("digitizer did not lock within %ds", timeoutSec)
		},
	}
	cmd.Flags().IntVarP(&timeoutSec, "timeout", "t", 60, "poll timeout in seconds")
	return cmd
}
