package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/senoxone/qbshop/internal/app"
)

var (
	queryLimit int
	queryAll   bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>...",
	Short: "Search current offers with a free-text query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Query(cmd.Context(), app.QueryOptions{
			Query:       strings.Join(args, " "),
			Limit:       queryLimit,
			AllStatuses: queryAll,
		})
	},
}

func init() {
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "Maximum offers to print (0 = all)")
	queryCmd.Flags().BoolVar(&queryAll, "all", false, "Include preorder and out-of-stock offers")
}
