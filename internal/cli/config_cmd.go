package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// addConfigCommands wires the configuration subcommands.
func (a *App) addConfigCommands(rootCmd *cobra.Command) {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "View and edit the service's runtime configuration",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Fetch and display the current configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.Store.LoadConfig(cmd.Context()); err != nil {
				return err
			}
			a.printConfig()
			return nil
		},
	}

	var setPairs []string
	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "Save the configuration, optionally overriding fields",
		Long: `Save fetches the current configuration, applies any --set overrides, and
writes the result back. The service hot-reloads the saved configuration.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.Store.LoadConfig(cmd.Context()); err != nil {
				return err
			}
			override, err := parsePairs(setPairs)
			if err != nil {
				return err
			}
			if err := a.Store.SaveConfig(cmd.Context(), override); err != nil {
				return err
			}
			fmt.Println(a.Store.Snapshot().Status)
			return nil
		},
	}
	saveCmd.Flags().StringArrayVar(&setPairs, "set", nil, "Field override as key=value (repeatable)")

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one configuration field and save",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Store.LoadConfig(cmd.Context()); err != nil {
				return err
			}
			if err := a.Store.SetConfigField(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			if err := a.Store.SaveConfig(cmd.Context(), nil); err != nil {
				return err
			}
			fmt.Println(a.Store.Snapshot().Status)
			return nil
		},
	}

	var saveProfile bool
	profileCmd := &cobra.Command{
		Use:   "profile <name>",
		Short: "Load an AI profile into the configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Store.LoadConfig(cmd.Context()); err != nil {
				return err
			}
			if err := a.Store.SelectAIProfile(cmd.Context(), args[0]); err != nil {
				return err
			}
			if saveProfile {
				if err := a.Store.SaveConfig(cmd.Context(), nil); err != nil {
					return err
				}
				fmt.Println(a.Store.Snapshot().Status)
				return nil
			}
			a.printConfig()
			return nil
		},
	}
	profileCmd.Flags().BoolVar(&saveProfile, "save", false, "Persist the loaded profile to the running service")

	var diffPairs []string
	diffCmd := &cobra.Command{
		Use:   "diff",
		Short: "Diff local field overrides against the server's configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.Store.LoadConfig(cmd.Context()); err != nil {
				return err
			}
			override, err := parsePairs(diffPairs)
			if err != nil {
				return err
			}
			for key, value := range override {
				if err := a.Store.SetConfigField(cmd.Context(), key, value); err != nil {
					return err
				}
			}
			diff, err := a.Store.DiffAgainstServer(cmd.Context())
			if err != nil {
				return err
			}
			if diff == "" {
				fmt.Println("no differences")
				return nil
			}
			fmt.Print(diff)
			return nil
		},
	}
	diffCmd.Flags().StringArrayVar(&diffPairs, "set", nil, "Local field override as key=value (repeatable)")

	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(saveCmd)
	configCmd.AddCommand(setCmd)
	configCmd.AddCommand(profileCmd)
	configCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(configCmd)
}

func (a *App) printConfig() {
	state := a.Store.Snapshot()
	cfg := state.Config

	fmt.Printf("aiBaseUrl:     %s\n", cfg.AIBaseURL)
	fmt.Printf("aiModel:       %s\n", cfg.AIModel)
	fmt.Printf("aiProfile:     %s (available: %s)\n", cfg.AIProfile, strings.Join(cfg.AIProfiles, ", "))
	fmt.Printf("aiConfigFile:  %s\n", cfg.AIConfigFile)
	fmt.Printf("aiTemperature: %g\n", cfg.AITemperature)
	fmt.Printf("aiMaxTokens:   %d\n", cfg.AIMaxTokens)
	fmt.Printf("aiTimeout:     %d\n", cfg.AITimeout)
	fmt.Printf("aiRetryCount:  %d\n", cfg.AIRetryCount)
	fmt.Printf("aiRateLimit:   %d\n", cfg.AIRateLimit)
	fmt.Printf("aiTopP:        %g\n", cfg.AITopP)
	fmt.Printf("character:     %s (available: %s)\n", cfg.Character, strings.Join(cfg.CharacterOptions, ", "))
	if cfg.AIKeySet {
		fmt.Printf("aiKey:         %s (set)\n", cfg.AIKeyMasked)
	} else {
		fmt.Printf("aiKey:         (not set)\n")
	}
	if cfg.AIPromptRaw != "" {
		fmt.Printf("aiPromptRaw:\n%s\n", cfg.AIPromptRaw)
	}
}

// parsePairs turns repeated key=value flags into an override map.
func parsePairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", pair)
		}
		out[strings.TrimSpace(key)] = value
	}
	return out, nil
}
