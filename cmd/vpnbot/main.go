// Command vpnbot runs the VPN credential provisioning backend.
//
//	@title						VPN Provisioner API
//	@version					1.0
//	@description				Issues and revokes VLESS/Reality credentials on a 3X-UI panel.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "vpnbot",
	Short:         "VPN credential provisioning backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newServeCmd(), newReconcileCmd(), newBackupCmd(), newHashKeyCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
