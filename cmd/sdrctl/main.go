// Command sdrctl is a standalone control-plane client: it sends one
// request to a digitizer and prints the reply summary, independent of
// the daemon's pipeline. Mirrors the teacher's root-command-plus-
// subcommands cobra shape (internal/commands.go registers subcommands
// on a shared *cobra.Command).
package main

import (
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"

	"sdrhost/internal/ctrl"
)

var (
	remoteAddr string
	localAddr  string
)

func main() {
	root := &cobra.Command{
		Use:   "sdrctl",
		Short: "Sends control-plane requests to a digitizer",
	}
	root.PersistentFlags().StringVarP(&remoteAddr, "remote", "r", "", "digitizer control ip:port (required)")
	root.PersistentFlags().StringVarP(&localAddr, "local", "l", "0.0.0.0:0", "local ip:port to bind")
	root.MarkPersistentFlagRequired("remote")

	registerCommands(root)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dial() (*ctrl.Client, error) {
	remote, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve remote: %w", err)
	}
	local, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve local: %w", err)
	}
	return ctrl.NewClient(local, []*net.UDPAddr{remote})
}

func printSummary(name string, s ctrl.ReplySummary) {
	fmt.Printf("%s: %d normal, %d abnormal\n", name, len(s.Normal), len(s.Abnormal))
	for _, m := range s.Normal {
		fmt.Printf("  normal:   %+v\n", m)
	}
	for _, m := range s.Abnormal {
		fmt.Printf("  abnormal: %+v\n", m)
	}
}
