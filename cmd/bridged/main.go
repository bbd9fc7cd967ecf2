package main

import (
	"context"
	"flag"
	"time"

	"github.com/golang/glog"
	"github.com/jpillora/backoff"

	"github.com/rbonghi/serial-bridge/pkg/board"
	"github.com/rbonghi/serial-bridge/pkg/framework"
	"github.com/rbonghi/serial-bridge/pkg/orbus"
	"github.com/rbonghi/serial-bridge/pkg/orbus/serialport"
	"github.com/rbonghi/serial-bridge/pkg/telemetry"
)

var (
	configPath = flag.String("config", "", "Path to TOML config file.")
	device     = flag.String("device", "", "Serial device, overrides config.")
	baud       = flag.Int("baud", 0, "Baud rate, overrides config.")
	broker     = flag.String("broker", "", "MQTT broker URL, overrides config.")
)

// prober keeps the link alive: it probes on a fixed interval, fetches the
// board identity once the link answers, and reopens the port with backoff
// after transport failures.
type prober struct {
	link    *orbus.Link
	port    *serialport.Port
	adapter *board.Adapter

	device     string
	interval   time.Duration
	infoLoaded bool
}

func (p *prober) Run(ctx context.Context) error {
	b := &backoff.Backoff{
		Min:    250 * time.Millisecond,
		Max:    10 * time.Second,
		Jitter: true,
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.interval):
		}

		if p.link.Probe() {
			b.Reset()
			if !p.infoLoaded {
				if p.adapter.RequestInfo() == orbus.StatusOk {
					p.infoLoaded = true
					glog.Infof("board identified:\n%s", p.adapter.Info())
				}
			}
			continue
		}

		status := p.link.Status()
		glog.Warningf("probe failed, link status %s", status)
		if status != orbus.StatusTransportError {
			continue
		}
		d := b.Duration()
		glog.Infof("reopening %s in %s", p.device, d)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
		p.port.Close()
		if err := p.port.Open(); err != nil {
			glog.Errorf("reopen: %v", err)
		}
	}
}

func main() {
	flag.Parse()

	conf, err := loadConfig(*configPath)
	if err != nil {
		glog.Exitf("config: %v", err)
	}
	if *device != "" {
		conf.Device = *device
	}
	if *baud > 0 {
		conf.Baud = *baud
	}
	if *broker != "" {
		conf.Broker = *broker
	}

	port := serialport.New(serialport.Config{
		Device:       conf.Device,
		Baud:         conf.Baud,
		PollInterval: conf.PollInterval,
	})
	link := orbus.NewLink(port, orbus.Config{
		Attempts:     conf.Attempts,
		ReplyTimeout: conf.ReplyTimeout,
		MaxPayload:   conf.MaxPayload,
		PollInterval: conf.PollInterval,
	})
	if err := link.Open(); err != nil {
		glog.Exitf("open %s: %v", conf.Device, err)
	}
	defer link.Close()

	adapter, err := board.NewAdapter(link)
	if err != nil {
		glog.Exitf("board adapter: %v", err)
	}
	defer adapter.Close()

	runner := framework.NewRunner().HandleSignals()
	runner.Go(framework.NamedRun("prober", &prober{
		link:     link,
		port:     port,
		adapter:  adapter,
		device:   conf.Device,
		interval: conf.ProbeInterval,
	}))

	if conf.Broker != "" {
		pub, err := telemetry.NewPublisher(telemetry.Config{
			BrokerURL: conf.Broker,
			Interval:  conf.TelemetryInterval,
		}, link, adapter)
		if err != nil {
			glog.Exitf("telemetry: %v", err)
		}
		runner.Go(framework.NamedRun("telemetry", pub))
	}

	glog.Infof("bridged started on %s at %d baud", conf.Device, conf.Baud)
	if err := runner.Wait(); err != nil {
		glog.Exitf("bridged: %v", err)
	}
}
