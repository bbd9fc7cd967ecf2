// Package telemetry publishes link health over MQTT so external
// dashboards can watch the board without touching the serial line.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/rbonghi/serial-bridge/pkg/board"
	"github.com/rbonghi/serial-bridge/pkg/orbus"
)

// Config tunes the publisher.
type Config struct {
	// BrokerURL selects the broker, e.g. mqtt://host:1883/prefix. The URL
	// path becomes the topic prefix.
	BrokerURL string
	// Interval between status snapshots.
	Interval time.Duration
	// ClientID overrides the machine-derived client identity.
	ClientID string
}

// DefaultInterval is used when Config.Interval is zero.
const DefaultInterval = time.Second

// Publisher periodically publishes link status snapshots.
type Publisher struct {
	conf        Config
	opts        *paho.ClientOptions
	topicPrefix string
	link        *orbus.Link
	board       *board.Adapter
}

type statusReport struct {
	Status         string `json:"status"`
	Board          string `json:"board,omitempty"`
	ProtocolErrors uint64 `json:"protocol_errors"`
	UnhandledGroup uint64 `json:"unhandled_groups"`
}

// NewPublisher creates a Publisher for a link. The board adapter is
// optional.
func NewPublisher(conf Config, link *orbus.Link, adapter *board.Adapter) (*Publisher, error) {
	opts, prefix, err := clientOptionsFromURL(conf.BrokerURL)
	if err != nil {
		return nil, err
	}
	clientID := conf.ClientID
	if clientID == "" {
		id, err := machineid.ID()
		if err != nil {
			return nil, fmt.Errorf("derive client id: %w", err)
		}
		clientID = "serial-bridge-" + id
	}
	opts.SetClientID(clientID)
	if conf.Interval <= 0 {
		conf.Interval = DefaultInterval
	}
	return &Publisher{
		conf:        conf,
		opts:        opts,
		topicPrefix: prefix,
		link:        link,
		board:       adapter,
	}, nil
}

// Topic joins a suffix with the configured prefix.
func (p *Publisher) Topic(suffix string) string {
	if p.topicPrefix == "" {
		return suffix
	}
	return p.topicPrefix + "/" + suffix
}

// Run implements framework.Runnable. It connects, publishes a snapshot
// every interval and disconnects when the context is canceled.
func (p *Publisher) Run(ctx context.Context) error {
	client := paho.NewClient(p.opts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect %s: %w", p.conf.BrokerURL, err)
	}
	defer client.Disconnect(250)

	ticker := time.NewTicker(p.conf.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.publish(client)
		}
	}
}

func (p *Publisher) publish(client paho.Client) {
	report := statusReport{
		Status:         p.link.Status().String(),
		ProtocolErrors: p.link.ProtocolErrors(),
		UnhandledGroup: p.link.UnhandledGroups(),
	}
	if p.board != nil {
		report.Board = p.board.Name()
	}
	payload, err := json.Marshal(report)
	if err != nil {
		glog.Errorf("telemetry: encode report: %v", err)
		return
	}
	token := client.Publish(p.Topic("link/status"), 0, true, payload)
	if token.WaitTimeout(time.Second) && token.Error() != nil {
		glog.Errorf("telemetry: publish: %v", token.Error())
	}
}

// clientOptionsFromURL creates paho ClientOptions from a broker URL. The
// URL path, without its leading slash, is returned as the topic prefix.
func clientOptionsFromURL(serverURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, "", err
	}
	var server string
	if u.Scheme == "" || u.Scheme == "mqtt" {
		server = "tcp"
	} else {
		server = u.Scheme
	}
	server += "://" + u.Host

	topicPrefix := strings.TrimPrefix(u.Path, "/")

	opts := paho.NewClientOptions()
	opts.AddBroker(server).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	return opts, topicPrefix, nil
}
