package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/senoxone/qbshop/internal/history"
)

var (
	deltaWindow  string
	rollupWindow string
	alertsLimit  int
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show recent fired alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Alerts(cmd.Context(), alertsLimit)
	},
}

var deltaCmd = &cobra.Command{
	Use:   "delta",
	Short: "Show per-offer price movement over a window",
	RunE: func(cmd *cobra.Command, args []string) error {
		window, err := history.ParseWindow(deltaWindow)
		if err != nil {
			return err
		}
		return getApp().Deltas(cmd.Context(), window)
	},
}

var rollupCmd = &cobra.Command{
	Use:   "rollup <title>...",
	Short: "Show daily min/max price stats for one offer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		window, err := history.ParseWindow(rollupWindow)
		if err != nil {
			return err
		}
		return getApp().Rollup(cmd.Context(), strings.Join(args, " "), window)
	},
}

func init() {
	alertsCmd.Flags().IntVar(&alertsLimit, "limit", 50, "Maximum alerts to print")
	deltaCmd.Flags().StringVar(&deltaWindow, "window", "", "Look-back window, e.g. 24h, 7d, 12ч (default 24h)")
	rollupCmd.Flags().StringVar(&rollupWindow, "window", "7d", "Look-back window, e.g. 7d, 30d")
}
