package cli

import (
	"fmt"

	"github.com/dmitrijs2005/fdcsync/internal/fdc"
	"github.com/dmitrijs2005/fdcsync/internal/server"
	"github.com/dmitrijs2005/fdcsync/internal/server/models"
	"github.com/spf13/cobra"
)

type settingsView struct {
	APIKey           string         `json:"fdc_api_key"`
	EnabledDataTypes []fdc.DataType `json:"fdc_enabled_data_types"`
	DetailExpiryDays int            `json:"fdc_detail_expiry_days"`
}

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the runtime FDC settings",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *server.App) error {
				st, err := app.Settings(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), settingsView{
					APIKey:           maskSecret(st.APIKey),
					EnabledDataTypes: st.EnabledDataTypes,
					DetailExpiryDays: st.DetailExpiryDays,
				})
			})
		},
	}

	set := &cobra.Command{
		Use:   "set <key> [value]",
		Short: "Store a setting",
		Long: "Store one of fdc_api_key, fdc_enabled_data_types (JSON array) or fdc_detail_expiry_days.\n" +
			"When the value of fdc_api_key is omitted it is read from the terminal without echo.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			var value string
			switch {
			case len(args) == 2:
				value = args[1]
			case key == models.SettingAPIKey:
				v, err := GetSecret(cmd.OutOrStdout(), "Enter FDC API key")
				if err != nil {
					return fmt.Errorf("read api key: %w", err)
				}
				value = v
			default:
				return fmt.Errorf("missing value for %s", key)
			}

			return withApp(cmd, func(app *server.App) error {
				if err := app.UpdateSettings(cmd.Context(), map[string]string{key: value}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", key)
				return nil
			})
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}
