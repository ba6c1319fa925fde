// Package main provides the yumeadmin CLI application entry point.
// yumeadmin is the operator console for a running Yume conversational-AI
// service: it edits runtime configuration, manages character personas, and
// tails service logs live over the admin API.
package main

import (
	"os"

	"yumeadmin/internal/cli"
)

func main() {
	app := cli.NewApp()
	rootCmd := app.CreateRootCommand()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
