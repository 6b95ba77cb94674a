package cli

import (
	"github.com/spf13/cobra"

	"relayctl/internal/parse"
	"relayctl/internal/relay"
)

var queryCmd = &cobra.Command{
	Use:     "query TOKEN[@CHANNELS] ...",
	Aliases: []string{"q"},
	Short:   "Print channel states as bit-strings (1 = energized)",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		return runQuery(a, args)
	},
}

// splitChannelList splits a "TOKEN@CHANNELS" or "TOKEN:CHANNELS" arg.
// '@' is also a legal alias character, so the split point is the last
// separator that leaves a valid alias prefix and channel-list suffix
// (matching the original's greedy alias match).
func splitChannelList(arg string) (token string, chs []int, ok bool) {
	for i := len(arg) - 1; i > 0; i-- {
		if arg[i] != '@' && arg[i] != ':' {
			continue
		}
		if !parse.IsAliasName(arg[:i]) {
			continue
		}
		if chs, listOK := parse.ParseChannelList(arg[i+1:]); listOK {
			return arg[:i], chs, true
		}
	}
	return "", nil, false
}

func runQuery(a *app, args []string) error {
	ctrl := a.controller()
	inv, err := ctrl.Inventory()
	if err != nil {
		return err
	}

	queries := make([]relay.Query, 0, len(args))
	for _, arg := range args {
		var token string
		var chs []int

		if t, list, ok := splitChannelList(arg); ok {
			token, chs = t, list
		} else if parse.IsAliasName(arg) {
			token = arg
		} else {
			return relay.ErrSyntax
		}

		sn := a.table.Resolve(token)
		if !inv.Has(sn) {
			if sn == "" {
				sn = parse.Normalize(token)
			}
			return relay.BadSerial(sn)
		}
		if len(chs) > inv.Channels(sn) {
			return relay.ErrInvalidChannel
		}
		queries = append(queries, relay.Query{Serial: sn, Channels: chs})
	}

	return ctrl.RunQueries(queries, inv)
}
