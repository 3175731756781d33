// Package cli implements the sgctl command tree.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	serverURL string
	authToken string
)

var rootCmd = &cobra.Command{
	Use:   "sgctl",
	Short: "SourceGate CLI",
	Long: `sgctl is the command-line interface for SourceGate.

Upload external source documents and type definitions to a running
gateway from your terminal.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9080", "gateway base URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "bearer token (omit when auth is disabled)")
}
