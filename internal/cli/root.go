// Package cli implements the relayctl command tree and the exit-code
// contract: 0 on success, negative codes for the documented failure
// kinds. All validation happens eagerly, before any device I/O.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"relayctl/internal/alias"
	"relayctl/internal/config"
	"relayctl/internal/device"
	"relayctl/internal/relay"
	"relayctl/internal/settings"
)

// version is set at build time via -ldflags "-X relayctl/internal/cli.version=..."
var version = "dev"

var errorColor = color.New(color.FgRed)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "relayctl",
	Short: "Control USB HID relay modules",
	Long: `relayctl enumerates, queries and sets USB HID relay modules and keeps
human-readable aliases for their serial numbers.

    sernum  = 5-character module serial number
    state   = 0|1|OFF|ON|L|H|NO|NC
    pattern = qq...     where q = 0|1|L|H|X|_|.
    alias   = starts with alphanumeric or _#~@ (never with -)
    an alias may stand in for any serial number`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the command tree and maps errors to process exit codes.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var relayErr *relay.Error
		if errors.As(err, &relayErr) {
			errorColor.Fprintln(os.Stderr, relayErr.Message)
			os.Exit(int(relayErr.Code))
		}
		errorColor.Fprintln(os.Stderr, err.Error())
		os.Exit(int(relay.CodeSyntax))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default: per-user config dir)")
	rootCmd.AddCommand(enumerateCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(aliasCmd)
	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	// The original tool answered "?" and "/h" as well as -h.
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:     "help",
		Aliases: []string{"?", "/h"},
		Short:   "Print usage",
		Run: func(cmd *cobra.Command, args []string) {
			rootCmd.Help()
		},
	})
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the relayctl version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("relayctl " + version)
	},
}

// app bundles the collaborators a command needs. Tests construct it
// directly with a mock driver and an in-memory settings store.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	drv    device.Driver
	table  *alias.Table
	out    io.Writer

	closers []func()
}

func (a *app) controller() *relay.Controller {
	return relay.NewController(a.drv, a.out, a.logger)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newDriver(cfg *config.Config, logger *slog.Logger) device.Driver {
	switch cfg.Driver {
	case "serial":
		boards := make([]device.Board, 0, len(cfg.Serial.Boards))
		for _, b := range cfg.Serial.Boards {
			boards = append(boards, device.Board{
				Port:     b.Port,
				Serial:   b.Serial,
				Channels: b.Channels,
				Baud:     b.Baud,
			})
		}
		return device.NewSerial(boards, logger)
	case "mock":
		return device.NewMock()
	default:
		return device.NewHID(logger)
	}
}

// setup loads the config and wires the real collaborators.
func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	storePath := cfg.Store.Path
	if storePath == "" {
		storePath, err = settings.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	a := &app{cfg: cfg, logger: logger, out: cmd.OutOrStdout()}
	a.drv = newDriver(cfg, logger)

	bolt, err := settings.OpenBolt(storePath)
	if err != nil {
		// The alias subsystem degrades to "no aliases" when the store
		// is unusable; commands other than alias still work.
		logger.Warn("open settings store", "path", storePath, "err", err)
		a.table = alias.NewTable(alias.NewStore(settings.NewMemStore(), logger))
	} else {
		a.closers = append(a.closers, func() { bolt.Close() })
		a.table = alias.NewTable(alias.NewStore(bolt, logger))
	}
	return a, nil
}
