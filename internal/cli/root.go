// Package cli provides the command-line surface of the yumeadmin console.
// The commands are thin view glue: every state transition goes through the
// panel store, the stream manager, or the character codec.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"yumeadmin/internal/adminapi"
	"yumeadmin/internal/config"
	"yumeadmin/internal/logger"
	"yumeadmin/internal/panel"
	"yumeadmin/internal/services"
	"yumeadmin/internal/stream"
)

// App wires the console services together for one CLI invocation.
type App struct {
	Config  *config.Service
	API     *adminapi.Client
	Store   *panel.Store
	Streams *stream.Manager

	serverURL string
	timeout   time.Duration
	lines     int
	logLevel  string
	logFile   string
}

// NewApp creates a new yumeadmin CLI application.
func NewApp() *App {
	return &App{
		Config: config.NewService(),
	}
}

// CreateRootCommand creates and configures the root command.
func (a *App) CreateRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "yumeadmin",
		Short: "Operator console for the Yume conversational-AI service",
		Long: `yumeadmin is the operator console for a running Yume service. It reads and
edits the runtime configuration, switches AI profiles and character personas,
and tails the service logs live over the admin API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.serverURL, "server", "", "Admin API base URL [default: $YUME_ADMIN_URL or "+config.DefaultServerURL+"]")
	rootCmd.PersistentFlags().DurationVar(&a.timeout, "timeout", 0, "Request timeout for admin API calls")
	rootCmd.PersistentFlags().IntVar(&a.lines, "lines", 0, "Initial log lines to request")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Set log level (debug|info|warn|error) [default: info]")
	rootCmd.PersistentFlags().StringVar(&a.logFile, "log-file", "", "Write logs to file instead of stderr")

	if err := viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding server flag: %v\n", err)
		os.Exit(1)
	}
	if err := viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding log-level flag: %v\n", err)
		os.Exit(1)
	}
	if err := viper.BindPFlag("log-file", rootCmd.PersistentFlags().Lookup("log-file")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding log-file flag: %v\n", err)
		os.Exit(1)
	}

	a.addConfigCommands(rootCmd)
	a.addCharacterCommands(rootCmd)
	a.addLogsCommands(rootCmd)
	a.addVersionCommand(rootCmd)

	return rootCmd
}

// setup configures logging, resolves settings, and initializes the services
// through the global registry.
func (a *App) setup() error {
	if err := logger.Configure(viper.GetString("log-level"), viper.GetString("log-file")); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}

	registry := services.NewRegistry()
	services.SetGlobalRegistry(registry)

	if err := registry.RegisterService(a.Config); err != nil {
		return err
	}
	if err := a.Config.Initialize(); err != nil {
		return err
	}
	if err := a.Config.Override(a.serverURL, a.timeout, a.lines); err != nil {
		return err
	}
	settings, err := a.Config.Settings()
	if err != nil {
		return err
	}

	a.API = adminapi.New(settings.ServerURL, settings.RequestTimeout)
	a.Store = panel.New(a.API)
	a.Streams = stream.NewManager(a.API.StreamURL, settings.RedialDelay, settings.BufferLimit)

	if err := registry.RegisterService(a.Store); err != nil {
		return err
	}
	if err := registry.RegisterService(a.Streams); err != nil {
		return err
	}
	if err := registry.InitializeAll(); err != nil {
		return err
	}

	logger.Debug("console ready", "server", settings.ServerURL)
	return nil
}

// initialLines returns the effective initial line count for log requests.
func (a *App) initialLines() int {
	settings, err := a.Config.Settings()
	if err != nil {
		return config.DefaultInitialLines
	}
	return settings.InitialLines
}
