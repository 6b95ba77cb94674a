package cli

import (
	"github.com/spf13/cobra"
)

var enumerateCmd = &cobra.Command{
	Use:     "enumerate",
	Aliases: []string{"list"},
	Short:   "List all relay modules as SERNUM(channels)",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		return runEnumerate(a)
	},
}

func runEnumerate(a *app) error {
	return a.controller().Enumerate()
}
