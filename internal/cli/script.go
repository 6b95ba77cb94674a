package cli

import (
	"github.com/spf13/cobra"

	"relayctl/internal/relay"
	"relayctl/internal/script"
)

var scriptCmd = &cobra.Command{
	Use:   "script FILE.lua",
	Short: "Run a Lua control script",
	Long: `Runs a Lua script with a 'relay' module in scope:

    relay.list()                  -- { {serial=..., channels=...}, ... }
    relay.resolve(token)          -- serial number or nil
    relay.query(token)            -- bit-string, channel 1 first
    relay.set(token, ch, state)   -- state: ON|OFF|1|0|H|L|NO|NC
    relay.set_pattern(token, p)   -- p: e.g. "011XX0"
    relay.set_all(token, state)
    relay.sleep(ms)
    relay.log(msg)`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		return runScript(a, args[0])
	},
}

func runScript(a *app, path string) error {
	sess := script.NewSession(a.drv, a.table, a.logger)
	if err := sess.Run(path); err != nil {
		return &relay.Error{Code: relay.CodeSyntax, Message: err.Error()}
	}
	return nil
}
