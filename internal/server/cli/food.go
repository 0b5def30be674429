package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dmitrijs2005/fdcsync/internal/common"
	"github.com/dmitrijs2005/fdcsync/internal/server"
	"github.com/dmitrijs2005/fdcsync/internal/server/models"
	"github.com/spf13/cobra"
)

var errBadFdcID = errors.New("fdc_id must be a positive integer")

// foodItemView is the JSON rendering of a stored food item.
type foodItemView struct {
	FdcID           int64              `json:"fdc_id"`
	DataType        string             `json:"data_type"`
	Description     string             `json:"description"`
	BrandName       *string            `json:"brand_name,omitempty"`
	State           models.DetailState `json:"state"`
	ErrorCount      int                `json:"error_count"`
	DetailFetchDate *time.Time         `json:"detail_fetch_date,omitempty"`
	Detail          json.RawMessage    `json:"detail,omitempty"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func newFoodItemView(item *models.FoodItem, withDetail bool) foodItemView {
	v := foodItemView{
		FdcID:           item.FdcID,
		DataType:        item.DataType,
		Description:     item.Description,
		BrandName:       item.BrandName,
		State:           item.State(),
		ErrorCount:      item.ErrorCount,
		DetailFetchDate: item.DetailFetchDate,
		UpdatedAt:       item.UpdatedAt,
	}
	if withDetail {
		v.Detail = item.Detail
	}
	return v
}

func parseFdcID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", errBadFdcID, s)
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func newDetailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detail <fdc_id>",
		Short: "Fetch the detail of one food now, ignoring its error budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseFdcID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(app *server.App) error {
				item, err := app.FetchDetail(cmd.Context(), id)
				if errors.Is(err, common.ErrNotFound) {
					return fmt.Errorf("food %d: detail fetch failed and no item exists", id)
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), newFoodItemView(item, false))
			})
		},
	}
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <fdc_id>",
		Short: "Print a stored food item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseFdcID(args[0])
			if err != nil {
				return err
			}
			withDetail, _ := cmd.Flags().GetBool("detail")
			return withApp(cmd, func(app *server.App) error {
				item, err := app.FoodItem(cmd.Context(), id)
				if errors.Is(err, common.ErrNotFound) {
					return fmt.Errorf("food %d: %w", id, err)
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), newFoodItemView(item, withDetail))
			})
		},
	}
	cmd.Flags().Bool("detail", false, "include the detail document")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per data type counts of the food store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *server.App) error {
				stats, err := app.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if stats == nil {
					stats = []models.DataTypeStats{}
				}
				return printJSON(cmd.OutOrStdout(), stats)
			})
		},
	}
}
