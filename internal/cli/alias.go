package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"relayctl/internal/parse"
	"relayctl/internal/relay"
)

var aliasCmd = &cobra.Command{
	Use:   "alias [+ALIAS=SERNUM | -ALIAS ...]",
	Short: "List, assign or remove serial-number aliases",
	// Raw tokens: "-RELAY1" is a removal, not a flag.
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		return runAlias(a, args)
	},
}

func runAlias(a *app, args []string) error {
	// Assignments and removals are processed right-to-left, aborting at
	// the first malformed token. Mutations already applied stay applied;
	// the alias list is not transactional.
	for i := len(args) - 1; i >= 0; i-- {
		arg := args[i]
		switch {
		case strings.HasPrefix(arg, "-"):
			name := arg[1:]
			if !parse.IsAliasName(name) {
				return relay.ErrSyntax
			}
			a.table.Remove(name)
		default:
			name, sernum, ok := parse.SplitBinding(strings.TrimPrefix(arg, "+"))
			if !ok {
				return relay.ErrSyntax
			}
			a.table.Assign(name, sernum)
		}
	}

	listAliases(a)
	return nil
}

func listAliases(a *app) {
	entries := a.table.List()
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No aliases defined")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(a.out, "%s=%s\n", e.Alias, e.Serial)
	}
}
