package bus

import (
	"github.com/golang/glog"

	"tek4404/acia"
)

// MOS 6551-style debug ACIA. The four registers occupy even addresses
// in the window; the actual serial line is bridged to a TCP client by
// the acia package, so the device body is just register plumbing over
// the shared mailbox.
const (
	aciaRegData    = 0x78c000
	aciaRegStatus  = 0x78c002
	aciaRegCommand = 0x78c004
	aciaRegControl = 0x78c006
)

// Status register bits.
const (
	aciaStsRxFull  uint8 = 0x08
	aciaStsTxEmpty uint8 = 0x10
	// DCD and DSR are raised together while no client is attached.
	aciaStsNoCarrier uint8 = 0x60
)

// Acia is the memory-mapped debug serial port.
type Acia struct {
	nop

	state *acia.State

	data    uint8
	control uint8
	command uint8
	status  uint8
}

// NewAcia wires the device to the mailbox shared with the network
// bridge.
func NewAcia(st *acia.State) *Acia {
	return &Acia{state: st}
}

func (a *Acia) statusByte() uint8 {
	v := a.status
	if a.state.RxPending() {
		v |= aciaStsRxFull
	}
	if a.state.TxEmpty() {
		v |= aciaStsTxEmpty
	}
	if !a.state.Connected() {
		v |= aciaStsNoCarrier
	}
	return v
}

func (a *Acia) handleCommand(v uint8) {
	// Receiver and transmitter control; the bridge keeps both sides
	// running regardless, so only the programmed value is remembered.
	glog.V(2).Infof("ACIA command register = %02x", v)
	a.status = 0
}

func (a *Acia) read8(_ *Bus, addr uint32) (uint8, error) {
	switch addr {
	case aciaRegData:
		if c, ok := a.state.PopRx(); ok {
			a.data = c
		}
		glog.V(3).Infof("ACIA(READ) DATA = %02x", a.data)
		return a.data, nil
	case aciaRegStatus:
		return a.statusByte(), nil
	case aciaRegCommand:
		return a.command, nil
	case aciaRegControl:
		return a.control, nil
	default:
		return 0, ErrAccess
	}
}

func (a *Acia) write8(_ *Bus, addr uint32, v uint8) error {
	switch addr {
	case aciaRegData:
		glog.V(3).Infof("ACIA(WRITE) DATA = %02x", v)
		a.data = v
		a.state.PushTx(v)
		return nil
	case aciaRegStatus:
		// Any write to the status register is a programmed reset.
		a.state.Clear()
		a.data = 0
		a.status = 0
		return nil
	case aciaRegCommand:
		a.command = v
		a.handleCommand(v)
		return nil
	case aciaRegControl:
		a.control = v
		return nil
	default:
		return ErrAccess
	}
}

// peek8 reports register contents without consuming receive data.
func (a *Acia) peek8(_ *Bus, addr uint32) (uint8, error) {
	switch addr {
	case aciaRegData:
		return a.data, nil
	case aciaRegStatus:
		return a.statusByte(), nil
	case aciaRegCommand:
		return a.command, nil
	case aciaRegControl:
		return a.control, nil
	default:
		return 0, ErrAccess
	}
}
