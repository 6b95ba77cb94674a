package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"relayctl/internal/parse"
	"relayctl/internal/relay"
)

var setCmd = &cobra.Command{
	Use:   "set (TOKEN:PATTERN | TOKEN CH=STATE ...) ...",
	Short: "Set relay channels by pattern or per-channel state",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		return runSet(a, args)
	},
}

// resolvePresent resolves token through the alias table and checks it
// against the enumeration.
func resolvePresent(a *app, inv relay.Inventory, token string) (string, error) {
	sn := a.table.Resolve(token)
	if !inv.Has(sn) {
		if sn == "" {
			sn = parse.Normalize(token)
		}
		return "", relay.BadSerial(sn)
	}
	return sn, nil
}

func runSet(a *app, args []string) error {
	ctrl := a.controller()
	inv, err := ctrl.Inventory()
	if err != nil {
		return err
	}

	plan := make(relay.Plan)
	curSN := ""

	for _, arg := range args {
		switch {
		case parse.IsAliasName(arg):
			// A bare token selects the module for following CH=STATE args.
			curSN, err = resolvePresent(a, inv, arg)
			if err != nil {
				return err
			}

		case strings.IndexByte(arg, ':') > 0:
			token, pattern, _ := strings.Cut(arg, ":")
			states, ok := parse.ParsePattern(pattern)
			if !ok || !parse.IsAliasName(token) {
				return relay.ErrSyntax
			}
			curSN, err = resolvePresent(a, inv, token)
			if err != nil {
				return err
			}
			if len(states) > inv.Channels(curSN) {
				return relay.ErrInvalidChannel
			}
			for i, st := range states {
				plan.Channel(curSN, i+1, st)
			}

		default:
			ch, state, ok := parse.ParseChannelState(arg)
			if !ok {
				return relay.ErrSyntax
			}
			if curSN == "" {
				// CH=STATE before any module token.
				return relay.ErrSyntax
			}
			if ch > inv.Channels(curSN) {
				return relay.ErrInvalidChannel
			}
			plan.Channel(curSN, ch, state)
		}
	}

	return ctrl.RunPlan(plan)
}
