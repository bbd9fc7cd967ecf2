// bridgecli is an interactive console for poking a controller board on a
// serial line: open the port, probe it, submit raw messages, watch groups.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/rbonghi/serial-bridge/pkg/board"
	"github.com/rbonghi/serial-bridge/pkg/orbus"
	"github.com/rbonghi/serial-bridge/pkg/orbus/serialport"
)

var (
	device       = flag.String("device", "/dev/ttyUSB0", "Serial device.")
	baud         = flag.Int("baud", 115200, "Baud rate.")
	attempts     = flag.Int("attempts", orbus.DefaultAttempts, "Round-trip attempts.")
	replyTimeout = flag.Duration("reply-timeout", orbus.DefaultReplyTimeout, "Per-attempt reply timeout.")
)

const sessionKey = "$session"

type session struct {
	link    *orbus.Link
	adapter *board.Adapter
}

func sessionFrom(c *ishell.Context) *session {
	return c.Get(sessionKey).(*session)
}

// mustBeOpen wraps a command func that requires an open link.
func mustBeOpen(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if sessionFrom(c).link == nil {
			c.Err(fmt.Errorf("not open, run 'open' first"))
			return
		}
		fn(c)
	}
}

func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	return byte(v), err
}

func openCmd(c *ishell.Context) {
	s := sessionFrom(c)
	if s.link != nil {
		c.Err(fmt.Errorf("already open"))
		return
	}
	port := serialport.New(serialport.Config{Device: *device, Baud: *baud})
	link := orbus.NewLink(port, orbus.Config{
		Attempts:     *attempts,
		ReplyTimeout: *replyTimeout,
	})
	if err := link.Open(); err != nil {
		c.Err(err)
		return
	}
	adapter, err := board.NewAdapter(link)
	if err != nil {
		link.Close()
		c.Err(err)
		return
	}
	s.link, s.adapter = link, adapter
	c.Printf("%s open at %d baud\n", *device, *baud)
}

func closeCmd(c *ishell.Context) {
	s := sessionFrom(c)
	s.adapter.Close()
	if err := s.link.Close(); err != nil {
		c.Err(err)
	}
	s.link, s.adapter = nil, nil
}

func probeCmd(c *ishell.Context) {
	if sessionFrom(c).link.Probe() {
		c.Println("alive")
		return
	}
	c.Printf("no reply (%s)\n", sessionFrom(c).link.Status())
}

func submitCmd(c *ishell.Context) {
	if len(c.Args) < 2 || len(c.Args) > 3 {
		c.Err(fmt.Errorf("usage: submit <group> <command> [hex-payload]"))
		return
	}
	group, err := parseByte(c.Args[0])
	if err != nil {
		c.Err(fmt.Errorf("group: %v", err))
		return
	}
	command, err := parseByte(c.Args[1])
	if err != nil {
		c.Err(fmt.Errorf("command: %v", err))
		return
	}
	var payload []byte
	option := orbus.OptionRequest
	if len(c.Args) == 3 {
		if payload, err = hex.DecodeString(c.Args[2]); err != nil {
			c.Err(fmt.Errorf("payload: %v", err))
			return
		}
		option = orbus.OptionData
	}
	s := sessionFrom(c)
	s.link.Submit(option, group, command, payload)
	c.Printf("%d message(s) pending\n", s.link.Pending())
}

func flushCmd(c *ishell.Context) {
	start := time.Now()
	status := sessionFrom(c).link.Flush()
	c.Printf("%s in %s\n", status, time.Since(start).Round(time.Millisecond))
}

func statusCmd(c *ishell.Context) {
	s := sessionFrom(c)
	c.Printf("status:          %s\n", s.link.Status())
	c.Printf("pending:         %d\n", s.link.Pending())
	c.Printf("protocol errors: %d\n", s.link.ProtocolErrors())
	c.Printf("unhandled:       %d\n", s.link.UnhandledGroups())
}

func infoCmd(c *ishell.Context) {
	s := sessionFrom(c)
	if status := s.adapter.RequestInfo(); status != orbus.StatusOk {
		c.Err(fmt.Errorf("request info: %s", status))
		return
	}
	c.Println(s.adapter.Info())
}

func resetCmd(c *ishell.Context) {
	c.Printf("%s\n", sessionFrom(c).adapter.RequestReset())
}

func watchCmd(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Err(fmt.Errorf("usage: watch <group>"))
		return
	}
	group, err := parseByte(c.Args[0])
	if err != nil {
		c.Err(fmt.Errorf("group: %v", err))
		return
	}
	ok := sessionFrom(c).link.RegisterHandler(group, orbus.HandleMessageFunc(func(m orbus.Message) {
		c.Printf("group %d command %d option %q payload %x\n", m.Group, m.Command, m.Option, m.Payload)
	}))
	if !ok {
		c.Err(fmt.Errorf("group %d already has a handler", group))
	}
}

func main() {
	flag.Parse()

	shell := ishell.New()
	shell.Println("serial-bridge console")
	shell.Set(sessionKey, &session{})

	shell.AddCmd(&ishell.Cmd{Name: "open", Help: "open the serial port", Func: openCmd})
	shell.AddCmd(&ishell.Cmd{Name: "close", Help: "close the serial port", Func: mustBeOpen(closeCmd)})
	shell.AddCmd(&ishell.Cmd{Name: "probe", Help: "keepalive round trip", Func: mustBeOpen(probeCmd)})
	shell.AddCmd(&ishell.Cmd{Name: "submit", Help: "queue a message: submit <group> <command> [hex-payload]", Func: mustBeOpen(submitCmd)})
	shell.AddCmd(&ishell.Cmd{Name: "flush", Help: "flush the pending batch in one round trip", Func: mustBeOpen(flushCmd)})
	shell.AddCmd(&ishell.Cmd{Name: "status", Help: "link status snapshot", Func: mustBeOpen(statusCmd)})
	shell.AddCmd(&ishell.Cmd{Name: "info", Help: "query board identity", Func: mustBeOpen(infoCmd)})
	shell.AddCmd(&ishell.Cmd{Name: "reset", Help: "software-reset the board", Func: mustBeOpen(resetCmd)})
	shell.AddCmd(&ishell.Cmd{Name: "watch", Help: "print replies of a group: watch <group>", Func: mustBeOpen(watchCmd)})

	shell.Run()
}
