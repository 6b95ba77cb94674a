package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"relayctl/internal/mqtt"
	"relayctl/internal/relay"
	"relayctl/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll module state and serve it over MQTT and HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		return runServe(cmd.Context(), a)
	},
}

func runServe(parent context.Context, a *app) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poller := relay.NewPoller(a.drv, a.cfg.PollDuration(), a.logger)

	if a.cfg.MQTT.Enabled {
		bridge, err := mqtt.NewBridge(poller, a.table, mqtt.Config{
			Broker:      a.cfg.MQTT.Broker,
			Username:    a.cfg.MQTT.Username,
			Password:    a.cfg.MQTT.Password,
			TopicPrefix: a.cfg.MQTT.TopicPrefix,
		}, a.logger)
		if err != nil {
			return err
		}
		defer bridge.Close()
	}

	if a.cfg.Web.Listen != "" {
		server := web.NewServer(poller, a.table, a.logger)
		go func() {
			if err := server.Run(ctx, a.cfg.Web.Listen); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("web server", "err", err)
			}
		}()
	}

	a.logger.Info("serving", "driver", a.cfg.Driver, "poll_interval", a.cfg.PollInterval)
	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
