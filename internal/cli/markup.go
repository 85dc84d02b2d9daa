package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var markupCmd = &cobra.Command{
	Use:   "markup",
	Short: "Manage resale markup rules",
}

var markupShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective markup rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ShowMarkup()
	},
}

var markupDefaultCmd = &cobra.Command{
	Use:   "default <amount>",
	Short: "Set the fallback markup in rubles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		return getApp().SetMarkupDefault(amount)
	},
}

var markupSetCmd = &cobra.Command{
	Use:   "set <model>... <amount>",
	Short: "Set an exact-model markup override",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[len(args)-1])
		if err != nil {
			return err
		}
		model := strings.Join(args[:len(args)-1], " ")
		return getApp().SetMarkupModel(model, amount)
	},
}

var markupDelCmd = &cobra.Command{
	Use:   "del <model>...",
	Short: "Delete an exact-model markup override",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().DeleteMarkupModel(strings.Join(args, " "))
	},
}

var markupRuleCmd = &cobra.Command{
	Use:   "rule <pattern> <amount>",
	Short: "Set a regex markup rule",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[1])
		if err != nil {
			return err
		}
		return getApp().SetMarkupRule(args[0], amount)
	},
}

var markupRuleDelCmd = &cobra.Command{
	Use:   "ruledel <pattern>",
	Short: "Delete a regex markup rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().DeleteMarkupRule(args[0])
	},
}

func parseAmount(s string) (int64, error) {
	amount, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return amount, nil
}

func init() {
	markupCmd.AddCommand(markupShowCmd)
	markupCmd.AddCommand(markupDefaultCmd)
	markupCmd.AddCommand(markupSetCmd)
	markupCmd.AddCommand(markupDelCmd)
	markupCmd.AddCommand(markupRuleCmd)
	markupCmd.AddCommand(markupRuleDelCmd)
}
