package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/senoxone/qbshop/internal/app"
	"github.com/senoxone/qbshop/internal/storage"
)

var (
	watchMode   string
	watchAmount string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Manage price alert rules",
}

var watchAddCmd = &cobra.Command{
	Use:   "add <query>...",
	Short: "Add a watch rule",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := getApp().AddWatch(cmd.Context(), app.WatchOptions{
			Query:  strings.Join(args, " "),
			Mode:   watchMode,
			Amount: watchAmount,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "watch %d created\n", id)
		return nil
	},
}

var watchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List watch rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ListWatches(cmd.Context())
	},
}

var watchDelCmd = &cobra.Command{
	Use:   "del <id>",
	Short: "Delete a watch rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseWatchID(args[0])
		if err != nil {
			return err
		}
		return getApp().DeleteWatch(cmd.Context(), id)
	},
}

var watchEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a watch rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseWatchID(args[0])
		if err != nil {
			return err
		}
		return getApp().SetWatchEnabled(cmd.Context(), id, true)
	},
}

var watchDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a watch rule, keeping its state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseWatchID(args[0])
		if err != nil {
			return err
		}
		return getApp().SetWatchEnabled(cmd.Context(), id, false)
	},
}

func parseWatchID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid watch id %q", s)
	}
	return id, nil
}

func init() {
	watchAddCmd.Flags().StringVar(&watchMode, "mode", storage.WatchModeBelow,
		fmt.Sprintf("Trigger mode: %q fires at or below an absolute price, %q fires on a drop from the last best", storage.WatchModeBelow, storage.WatchModeDrop))
	watchAddCmd.Flags().StringVar(&watchAmount, "amount", "", "Threshold price or drop amount in rubles")
	_ = watchAddCmd.MarkFlagRequired("amount")

	watchCmd.AddCommand(watchAddCmd)
	watchCmd.AddCommand(watchListCmd)
	watchCmd.AddCommand(watchDelCmd)
	watchCmd.AddCommand(watchEnableCmd)
	watchCmd.AddCommand(watchDisableCmd)
}
