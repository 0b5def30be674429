package cli

import (
	"fmt"
	"slices"

	"github.com/dmitrijs2005/fdcsync/internal/server"
	"github.com/dmitrijs2005/fdcsync/internal/server/services"
	"github.com/spf13/cobra"
)

var runnableTasks = []string{
	services.TaskFetchFoodItems,
	services.TaskFetchMissingFoodDetails,
	services.TaskFetchOutdatedFoodDetails,
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "run <task>",
		Short:     "Run a sync job and every detail job it dispatches",
		Long:      "Run one of fetch_food_items, fetch_missing_food_details or fetch_outdated_food_details.\nIntended to be invoked by cron or a Kubernetes CronJob.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: runnableTasks,
		RunE: func(cmd *cobra.Command, args []string) error {
			task := args[0]
			if !slices.Contains(runnableTasks, task) {
				return fmt.Errorf("unknown task %q, want one of %v", task, runnableTasks)
			}
			migrate, _ := cmd.Flags().GetBool("migrate")

			return withApp(cmd, func(app *server.App) error {
				ctx := cmd.Context()
				if migrate {
					if err := app.Migrate(ctx); err != nil {
						return err
					}
				}
				runErr := app.RunTask(ctx, task)
				if err := app.PushMetrics(ctx, task); err != nil {
					app.Logger().Warn(ctx, "metrics push failed", "error", err)
				}
				if runErr != nil {
					return runErr
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s finished\n", task)
				return nil
			})
		},
	}
	cmd.Flags().Bool("migrate", false, "apply migrations before running")
	return cmd
}
