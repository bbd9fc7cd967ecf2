// Package board exposes the system group of the controller board:
// firmware identity, build info and the software reset command.
package board

import (
	"fmt"
	"strings"
	"sync"

	"github.com/golang/glog"

	"github.com/rbonghi/serial-bridge/pkg/orbus"
)

// GroupSystem is the group identifier of system messages.
const GroupSystem byte = 1

// System command codes.
const (
	CmdCodeDate    byte = 0
	CmdCodeVersion byte = 1
	CmdCodeAuthor  byte = 2
	CmdBoardType   byte = 3
	CmdBoardName   byte = 4
	CmdReset       byte = 5
)

const unknown = "unknown"

// Adapter collects system identity frames from the board and exposes them
// for diagnostics. It is a thin collaborator of the link; all wire work
// happens in the engine.
type Adapter struct {
	link *orbus.Link

	lock        sync.RWMutex
	codeDate    string
	codeVersion string
	codeAuthor  string
	boardType   string
	boardName   string
}

// NewAdapter registers the system group handler on the link.
func NewAdapter(link *orbus.Link) (*Adapter, error) {
	a := &Adapter{
		link:        link,
		codeDate:    unknown,
		codeVersion: unknown,
		codeAuthor:  unknown,
		boardType:   unknown,
		boardName:   unknown,
	}
	if !link.RegisterHandler(GroupSystem, orbus.HandleMessageFunc(a.handleSystem)) {
		return nil, fmt.Errorf("group %d already registered", GroupSystem)
	}
	return a, nil
}

// Close releases the system group.
func (a *Adapter) Close() {
	a.link.UnregisterHandler(GroupSystem)
}

// RequestInfo batches the identity requests and flushes them in one frame.
func (a *Adapter) RequestInfo() orbus.Status {
	a.link.SubmitBatch([]orbus.Message{
		{Option: orbus.OptionRequest, Group: GroupSystem, Command: CmdCodeDate},
		{Option: orbus.OptionRequest, Group: GroupSystem, Command: CmdCodeVersion},
		{Option: orbus.OptionRequest, Group: GroupSystem, Command: CmdCodeAuthor},
		{Option: orbus.OptionRequest, Group: GroupSystem, Command: CmdBoardType},
		{Option: orbus.OptionRequest, Group: GroupSystem, Command: CmdBoardName},
	})
	return a.link.Flush()
}

// RequestReset asks the firmware to restart.
func (a *Adapter) RequestReset() orbus.Status {
	a.link.Submit(orbus.OptionRequest, GroupSystem, CmdReset, nil)
	return a.link.Flush()
}

func (a *Adapter) handleSystem(m orbus.Message) {
	v := strings.TrimRight(string(m.Payload), "\x00")
	a.lock.Lock()
	defer a.lock.Unlock()
	switch m.Command {
	case CmdCodeDate:
		a.codeDate = v
	case CmdCodeVersion:
		a.codeVersion = v
	case CmdCodeAuthor:
		a.codeAuthor = v
	case CmdBoardType:
		a.boardType = v
	case CmdBoardName:
		a.boardName = v
	case CmdReset:
		glog.Info("board: reset acknowledged")
	default:
		glog.Warningf("board: system command %d not implemented", m.Command)
	}
}

// Name returns the board name reported by the firmware.
func (a *Adapter) Name() string {
	a.lock.RLock()
	defer a.lock.RUnlock()
	return a.boardName
}

// Info returns a human readable description of the board.
func (a *Adapter) Info() string {
	a.lock.RLock()
	defer a.lock.RUnlock()
	return fmt.Sprintf("Name board: %s\nBoard type: %s\nAuthor: %s\nVersion: %s\nBuild: %s\n",
		a.boardName, a.boardType, a.codeAuthor, a.codeVersion, a.codeDate)
}
