// Package cli implements the fdcsync command line. Every command loads the
// configuration from the persistent flags and builds a server.App for the
// duration of the command.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/fdcsync/internal/server"
	"github.com/dmitrijs2005/fdcsync/internal/server/config"
	"github.com/spf13/cobra"
)

// NewRootCmd returns the fdcsync command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fdcsync",
		Short:         "Synchronize FoodData Central foods into the recipe database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newMigrateCmd(),
		newRunCmd(),
		newDetailCmd(),
		newShowCmd(),
		newStatsCmd(),
		newSettingsCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command tree and prints a failure to stderr.
func Execute(ctx context.Context) int {
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
	return 0
}

// logOutput is where the App writes its structured logs. Stdout carries
// command results.
var logOutput io.Writer = os.Stderr

func openApp(cmd *cobra.Command) (*server.App, error) {
	cfg, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		return nil, err
	}
	return server.NewApp(cmd.Context(), cfg, logOutput)
}

// withApp opens the App, runs fn and closes the App.
func withApp(cmd *cobra.Command, fn func(app *server.App) error) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}
