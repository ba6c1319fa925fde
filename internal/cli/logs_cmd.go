package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"yumeadmin/internal/logger"
	"yumeadmin/internal/stream"
)

// addLogsCommands wires the log inspection commands.
func (a *App) addLogsCommands(rootCmd *cobra.Command) {
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "List, read, and tail the service's log files",
	}

	filesCmd := &cobra.Command{
		Use:   "files",
		Short: "List tailable log files, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.Store.LoadLogFiles(cmd.Context()); err != nil {
				return err
			}
			state := a.Store.Snapshot()
			for _, file := range state.LogFiles {
				marker := " "
				if file.Name == state.SelectedLogFile {
					marker = "*"
				}
				fmt.Printf("%s %-40s %8d  %s\n", marker, file.Name, file.Size, file.ModTime.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	var contentLines int
	contentCmd := &cobra.Command{
		Use:   "content [file]",
		Short: "Print a bounded tail of one log file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines := contentLines
			if lines <= 0 {
				lines = a.initialLines()
			}
			if len(args) == 1 {
				if err := a.Store.LoadLogContent(cmd.Context(), args[0], lines); err != nil {
					return err
				}
			} else {
				a.Store.SetLogLines(lines)
				if err := a.Store.LoadLogFiles(cmd.Context()); err != nil {
					return err
				}
			}
			fmt.Print(a.Store.Snapshot().LogContent)
			return nil
		},
	}
	contentCmd.Flags().IntVar(&contentLines, "lines", 0, "Lines to fetch from the end of the file")

	var tailLines int
	tailCmd := &cobra.Command{
		Use:   "tail [file]",
		Short: "Stream a log file live until interrupted",
		Long: `Tail opens a live push connection to the service and prints log content as
it arrives. Without a file argument the server follows its newest log file,
switching automatically when a newer one appears. Interrupt to stop.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := ""
			if len(args) == 1 {
				file = args[0]
			}
			lines := tailLines
			if lines <= 0 {
				lines = a.initialLines()
			}

			a.Streams.SetSink(func(ev stream.Event) {
				switch ev.Kind {
				case stream.EventInit, stream.EventReset:
					fmt.Print(ev.Content)
				case stream.EventAppend:
					fmt.Print(ev.Content)
				case stream.EventError:
					logger.Error("stream error", "error", ev.Message)
				}
			})

			if err := a.Streams.Start(file, lines); err != nil {
				return err
			}
			defer a.Streams.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			snapshot := a.Streams.Snapshot()
			logger.Debug("stream closed", "file", snapshot.File, "state", snapshot.State)
			return nil
		},
	}
	tailCmd.Flags().IntVar(&tailLines, "lines", 0, "Initial lines to request before streaming")

	logsCmd.AddCommand(filesCmd)
	logsCmd.AddCommand(contentCmd)
	logsCmd.AddCommand(tailCmd)
	rootCmd.AddCommand(logsCmd)
}
