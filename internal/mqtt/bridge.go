// Package mqtt bridges relay module state to an MQTT broker. State
// bit-strings are published retained per module; set commands are
// accepted per channel and per module.
package mqtt

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"relayctl/internal/alias"
	"relayctl/internal/parse"
	"relayctl/internal/relay"
)

// Config holds MQTT bridge configuration.
type Config struct {
	Broker      string
	Username    string
	Password    string
	TopicPrefix string
}

// Bridge connects the relay poller to MQTT.
//
// Topics (prefix defaults to "relayctl"):
//
//	<prefix>/bridge/state          online|offline (retained, will)
//	<prefix>/<SN>/state            bit-string, channel 1 first (retained)
//	<prefix>/<SN>/set              pattern payload, e.g. "011XX0"
//	<prefix>/<SN>/<ch>/set         state payload: ON|OFF|1|0|H|L|NO|NC
//
// <SN> in a command topic may also be an alias.
type Bridge struct {
	client pahomqtt.Client
	poller *relay.Poller
	table  *alias.Table
	prefix string
	logger *slog.Logger
	unsub  func()
}

// NewBridge creates and connects an MQTT bridge.
func NewBridge(poller *relay.Poller, table *alias.Table, cfg Config, logger *slog.Logger) (*Bridge, error) {
	if logger == nil {
		logger = slog.Default()
	}
	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = "relayctl"
	}
	b := &Bridge{
		poller: poller,
		table:  table,
		prefix: prefix,
		logger: logger.With("component", "mqtt"),
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID("relayctl").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(prefix+"/bridge/state", "offline", 1, true).
		SetOnConnectHandler(func(c pahomqtt.Client) {
			b.logger.Info("MQTT connected")
			c.Publish(prefix+"/bridge/state", 1, true, "online")
			b.subscribe(c)
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}

	b.client = pahomqtt.NewClient(opts)
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}

	b.unsub = poller.Subscribe(b.publishState)
	for _, st := range poller.Snapshot() {
		b.publishState(st)
	}
	return b, nil
}

func (b *Bridge) subscribe(c pahomqtt.Client) {
	filters := map[string]byte{
		b.prefix + "/+/set":   0,
		b.prefix + "/+/+/set": 0,
	}
	token := c.SubscribeMultiple(filters, b.handleCommand)
	if token.Wait() && token.Error() != nil {
		b.logger.Error("MQTT subscribe", "err", token.Error())
	}
}

func (b *Bridge) publishState(st relay.State) {
	topic := fmt.Sprintf("%s/%s/state", b.prefix, st.SerialNumber)
	b.client.Publish(topic, 0, true, st.Bits)
}

func (b *Bridge) handleCommand(_ pahomqtt.Client, msg pahomqtt.Message) {
	topic := strings.TrimPrefix(msg.Topic(), b.prefix+"/")
	parts := strings.Split(topic, "/")
	payload := strings.TrimSpace(string(msg.Payload()))

	switch {
	case len(parts) == 2 && parts[1] == "set":
		sn := b.table.Resolve(parts[0])
		if sn == "" {
			b.logger.Warn("unknown module in command topic", "token", parts[0])
			return
		}
		if err := b.poller.ApplyPattern(sn, payload); err != nil {
			b.logger.Warn("apply pattern", "serial", sn, "err", err)
		}

	case len(parts) == 3 && parts[2] == "set":
		sn := b.table.Resolve(parts[0])
		if sn == "" {
			b.logger.Warn("unknown module in command topic", "token", parts[0])
			return
		}
		ch := 0
		if len(parts[1]) == 1 && parts[1][0] >= '1' && parts[1][0] <= '8' {
			ch = int(parts[1][0] - '0')
		}
		if ch == 0 {
			b.logger.Warn("bad channel in command topic", "channel", parts[1])
			return
		}
		state := parse.ParseState(payload)
		if state == parse.DontCare {
			b.logger.Warn("bad state payload", "payload", payload)
			return
		}
		if err := b.poller.Apply(sn, ch, state); err != nil {
			b.logger.Warn("apply state", "serial", sn, "channel", ch, "err", err)
		}

	default:
		b.logger.Debug("ignore topic", "topic", msg.Topic())
	}
}

// Close publishes the offline state and disconnects.
func (b *Bridge) Close() {
	if b.unsub != nil {
		b.unsub()
	}
	token := b.client.Publish(b.prefix+"/bridge/state", 1, true, "offline")
	token.WaitTimeout(time.Second)
	b.client.Disconnect(250)
}
