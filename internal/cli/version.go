package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the console version, set at build time.
var Version = "0.1.0"

// addVersionCommand wires the version command.
func (a *App) addVersionCommand(rootCmd *cobra.Command) {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("yumeadmin v%s\n", Version)
		},
	}
	rootCmd.AddCommand(versionCmd)
}
