package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/senoxone/qbshop/internal/app"
	"github.com/senoxone/qbshop/internal/history"
)

var (
	exportWindow    string
	exportPNGPath   string
	exportCSVPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export <title>...",
	Short: "Export one offer's price history as CSV and/or PNG chart",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		window, err := history.ParseWindow(exportWindow)
		if err != nil {
			return err
		}
		return getApp().Export(cmd.Context(), app.ExportOptions{
			Title:     strings.Join(args, " "),
			Window:    window,
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			MaxPoints: exportMaxPoints,
		})
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportWindow, "window", "30d", "Look-back window, e.g. 7d, 30d")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum data points to export (defaults to config)")
}
