package bus

import (
	"time"

	"github.com/golang/glog"
)

// The SCN2681 DUART. Port A is the keyboard interface, port B the
// RS-232 serial port.
//
// Output Port 3: Keyboard Reset.
//
// Output Port 4: Enable Keyboard Receive. While reading a character
// from the keyboard, the 4404 asserts OP4 high. The keyboard will
// not send while OP4 is high.
//
// Input Port 4: Keyboard Ready. The keyboard asserts IP4 HIGH when
// ready to receive a command.

const (
	portA = 0
	portB = 1
)

// Port numbers as seen by an Output hook.
const (
	PortKeyboard = portA
	PortRS232    = portB
)

// Register addresses
const (
	regMR12A      = 0x7b4000
	regCSRA       = 0x7b4002
	regCRA        = 0x7b4004
	regTHRA       = 0x7b4006
	regIPCRACR    = 0x7b4008
	regISRMask    = 0x7b400a
	regMR12B      = 0x7b4010
	regCSRB       = 0x7b4012
	regCRB        = 0x7b4014
	regTHRB       = 0x7b4016
	regIPOPCR     = 0x7b401a
	regOPBitsSet  = 0x7b401c
	regOPBitsRset = 0x7b401e
)

// Port configuration bits
const (
	cnfETX uint8 = 0x01
	cnfERX uint8 = 0x02
)

// Status flags
const (
	stsRXR uint8 = 0x01
	stsTXR uint8 = 0x04
	stsTXE uint8 = 0x08
	stsOER uint8 = 0x10
	stsPER uint8 = 0x20
	stsFER uint8 = 0x40
)

// Command bits
const (
	cmdERX uint8 = 0x01
	cmdDRX uint8 = 0x02
	cmdETX uint8 = 0x04
	cmdDTX uint8 = 0x08
)

// Interrupt status register bits
const (
	istsTAI uint8 = 0x01
	istsRAI uint8 = 0x02
	istsTBI uint8 = 0x10
	istsRBI uint8 = 0x20
	istsIPC uint8 = 0x80
)

// Interrupt vector masks
const (
	keyboardInt uint8 = 0x04
	txInt       uint8 = 0x10
	rxInt       uint8 = 0x20
)

// uartInt is the DUART's CPU interrupt level.
const uartInt = 5

// Per-character delays in nanoseconds indexed by the clock-select
// nibble, selected when ACR[7] = 0.
var delayRatesA = [13]uint32{
	160000000, 72727272, 59259260, 40000000, 26666668, 13333334, 6666667,
	7619047, 3333333, 1666666, 1111111, 833333, 208333,
}

// Delay rates, in nanoseconds, selected when ACR[7] = 1.
var delayRatesB = [13]uint32{
	106666672, 72727272, 59259260, 53333336, 26666668, 13333334, 6666667,
	4000000, 3333333, 1666666, 4444444, 833333, 416666,
}

type duartPort struct {
	mode    [2]uint8
	stat    uint8
	conf    uint8
	rxData  uint8
	txData  uint8
	modePtr int
	rxQueue []uint8
	txQueue []uint8

	// charDelay is the configured per-character pacing. The bus is
	// not cycle accurate for serial timing; the delay is retained for
	// fidelity but nothing blocks on it.
	charDelay time.Duration
}

// Duart models the dual UART.
type Duart struct {
	nop

	ports  [2]duartPort
	acr    uint8
	ipcr   uint8
	inprt  uint8
	outprt uint8
	istat  uint8
	imr    uint8
	ivec   uint8

	// Output, when set, receives every byte the DUART transmits
	// instead of the internal tx queue. The front end uses it to
	// display RS-232 output.
	Output func(port int, c uint8)
}

// NewDuart returns a DUART in its power-on state.
func NewDuart() *Duart {
	d := &Duart{}
	d.ipcr = 0x40
	d.inprt = 0x10 // IP4 high: keyboard ready
	d.ports[portA].charDelay = time.Millisecond
	d.ports[portB].charDelay = time.Millisecond
	return d
}

// KeyDown maps a key press to its make code and queues it on the
// keyboard port.
func (d *Duart) KeyDown(b *Bus, key rune) {
	d.queueKey(b, scanCode(key))
}

// KeyUp queues the matching break code.
func (d *Duart) KeyUp(b *Bus, key rune) {
	d.queueKey(b, scanCode(key)|0x80)
}

func (d *Duart) queueKey(b *Bus, code uint8) {
	d.ports[portA].rxQueue = append(d.ports[portA].rxQueue, code)
	// Keyboard interrupts are level triggered: deliver immediately
	// when the receiver is listening, otherwise the byte waits in the
	// queue for the next pump.
	d.handleRx(b, portA)
}

// handleRx latches the next queued receive byte into the holding
// register and raises the port's interrupt sources. Holds off while
// an unread byte is still in the holding register.
func (d *Duart) handleRx(b *Bus, port int) {
	ctx := &d.ports[port]
	if ctx.conf&cnfERX == 0 || ctx.stat&stsRXR != 0 || len(ctx.rxQueue) == 0 {
		return
	}
	ctx.rxData = ctx.rxQueue[0]
	ctx.rxQueue = ctx.rxQueue[1:]
	ctx.stat |= stsRXR
	if port == portA {
		d.istat |= istsRAI
		d.ivec |= rxInt
	} else {
		d.istat |= istsRBI
		d.ivec |= keyboardInt
	}
	b.IRQ(uartInt)
}

// handleTx completes a pending transmit: the holding register byte
// goes out, the ready/empty bits come back up.
func (d *Duart) handleTx(b *Bus, port int) {
	ctx := &d.ports[port]
	if ctx.conf&cnfETX == 0 || ctx.stat&stsTXR != 0 || ctx.stat&stsTXE != 0 {
		return
	}

	c := ctx.txData
	ctx.stat |= stsTXR | stsTXE
	if port == portA {
		d.istat |= istsTAI
	} else {
		d.istat |= istsTBI
		// Only RS-232 transmit generates an interrupt.
		d.ivec |= txInt
		b.IRQ(uartInt)
	}

	if (ctx.mode[1]>>6)&3 == 0x2 {
		// Loopback mode.
		ctx.rxData = c
		ctx.stat |= stsRXR
		if port == portA {
			d.istat |= istsRAI
		} else {
			d.istat |= istsRBI
		}
		d.ivec |= rxInt
		return
	}

	if d.Output != nil {
		d.Output(port, c)
	} else {
		ctx.txQueue = append(ctx.txQueue, c)
	}
}

// Pump runs the receive and transmit sides of both ports. Called from
// the run loop between CPU batches, never mid-instruction.
func (d *Duart) Pump(b *Bus) {
	for port := portA; port <= portB; port++ {
		d.handleRx(b, port)
		d.handleTx(b, port)
	}
}

// handleCommand decodes a command register write. The four subfields
// are independent; unrecognized extra commands are no-ops.
func (d *Duart) handleCommand(cmd uint8, port int) {
	if cmd == 0 {
		return
	}

	ctx := &d.ports[port]
	glog.V(1).Infof("DUART: Port %d Command %02x", port, cmd)

	// Enable or disable transmitter
	if cmd&cmdDTX != 0 {
		ctx.conf &^= cnfETX
		ctx.stat &^= stsTXR | stsTXE
		if port == portA {
			d.ivec &^= txInt
			d.istat &^= istsTAI
		}
	} else if cmd&cmdETX != 0 {
		ctx.conf |= cnfETX
		ctx.stat |= stsTXR | stsTXE
		if port == portA {
			d.istat |= istsTAI
			d.ivec |= txInt
		}
	}

	// Enable or disable receiver
	if cmd&cmdDRX != 0 {
		ctx.conf &^= cnfERX
		ctx.stat &^= stsRXR
		if port == portA {
			d.ivec &^= rxInt
			d.istat &^= istsRAI
		} else {
			d.ivec &^= keyboardInt
			d.istat &^= istsRBI
		}
	} else if cmd&cmdERX != 0 {
		ctx.conf |= cnfERX
		ctx.stat |= stsRXR
	}

	// Extra commands
	switch (cmd >> 4) & 7 {
	case 1:
		ctx.modePtr = 0
	case 2:
		ctx.stat |= stsRXR
		ctx.conf |= cnfERX
	case 3:
		ctx.stat |= stsTXR | stsTXE
		ctx.conf &^= cnfETX
	case 4:
		ctx.stat &^= stsFER | stsPER | stsOER
	}
}

// setBaud looks up the character delay selected by a clock-select
// register write. ACR[7] chooses between the two rate sets.
func (d *Duart) setBaud(port int, v uint8) {
	bits := (v >> 4) & 0xf
	if int(bits) >= len(delayRatesA) {
		glog.V(1).Infof("DUART: port %d clock select %x out of range", port, bits)
		return
	}
	var delay uint32
	if d.acr&0x80 == 0 {
		delay = delayRatesA[bits]
	} else {
		delay = delayRatesB[bits]
	}
	d.ports[port].charDelay = time.Duration(delay) * time.Nanosecond
}

func (d *Duart) read8(_ *Bus, addr uint32) (uint8, error) {
	switch addr {
	case regMR12A:
		ctx := &d.ports[portA]
		v := ctx.mode[ctx.modePtr]
		ctx.modePtr = (ctx.modePtr + 1) % 2
		glog.V(2).Infof("DUART(READ): MR12A: val=%02x", v)
		return v, nil
	case regCSRA:
		glog.V(2).Infof("DUART(READ): CSRA: val=%02x", d.ports[portA].stat)
		return d.ports[portA].stat, nil
	case regTHRA:
		ctx := &d.ports[portA]
		ctx.stat &^= stsRXR
		d.istat &^= istsRAI
		d.ivec &^= rxInt
		glog.V(2).Infof("DUART(READ): THRA: val=%02x", ctx.rxData)
		return ctx.rxData, nil
	case regIPCRACR:
		v := d.ipcr
		d.ipcr &^= 0x0f
		d.ivec = 0
		d.istat &^= istsIPC
		glog.V(2).Infof("DUART(READ): IPCR_ACR: val=%02x", v)
		return v, nil
	case regISRMask:
		glog.V(2).Infof("DUART(READ): ISR_MASK: val=%02x", d.istat)
		return d.istat, nil
	case regMR12B:
		ctx := &d.ports[portB]
		v := ctx.mode[ctx.modePtr]
		ctx.modePtr = (ctx.modePtr + 1) % 2
		glog.V(2).Infof("DUART(READ): MR12B: val=%02x", v)
		return v, nil
	case regCSRB:
		glog.V(2).Infof("DUART(READ): CSRB: val=%02x", d.ports[portB].stat)
		return d.ports[portB].stat, nil
	case regTHRB:
		ctx := &d.ports[portB]
		ctx.stat &^= stsRXR
		d.istat &^= istsRBI
		d.ivec &^= keyboardInt
		glog.V(2).Infof("DUART(READ): THRB: val=%02x", ctx.rxData)
		return ctx.rxData, nil
	case regIPOPCR:
		glog.V(2).Infof("DUART(READ): IP_OPCR: val=%02x", d.inprt)
		return d.inprt, nil
	default:
		glog.V(2).Infof("DUART(READ): Unhandled. addr=%08x", addr)
		return 0, nil
	}
}

func (d *Duart) read16(b *Bus, addr uint32) (uint16, error) {
	if addr == regMR12A {
		ctx := &d.ports[portA]
		v := uint16(ctx.mode[1])<<8 | uint16(ctx.mode[0])
		glog.V(2).Infof("DUART(READ16): MR12A: val=%04x", v)
		return v, nil
	}
	v, err := d.read8(b, addr)
	return uint16(v), err
}

func (d *Duart) write8(b *Bus, addr uint32, v uint8) error {
	switch addr {
	case regMR12A:
		ctx := &d.ports[portA]
		ctx.mode[ctx.modePtr] = v
		ctx.modePtr = (ctx.modePtr + 1) % 2
		glog.V(2).Infof("DUART(WRITE): MR12A: val=%02x", v)
	case regCSRA:
		d.setBaud(portA, v)
		glog.V(2).Infof("DUART(WRITE): CSRA: val=%02x", v)
	case regCRA:
		d.handleCommand(v, portA)
		glog.V(2).Infof("DUART(WRITE): CRA: val=%02x", v)
	case regTHRA:
		// Keyboard transmit requires special handling, because the
		// only things the terminal transmits to the keyboard are
		// status requests, or keyboard beep requests. Status requests
		// are ignored; only beep requests are queued.
		ctx := &d.ports[portA]
		if v&0x08 != 0 {
			ctx.txData = v
			ctx.stat &^= stsTXE | stsTXR
			d.istat &^= istsTAI
			d.ivec &^= txInt
		}
		glog.V(2).Infof("DUART(WRITE): THRA: val=%02x", v)
	case regIPCRACR:
		d.acr = v
		glog.V(2).Infof("DUART(WRITE): IPCR_ACR: val=%02x", v)
	case regISRMask:
		d.imr = v
		glog.V(2).Infof("DUART(WRITE): ISR_MASK: val=%02x", v)
	case regMR12B:
		ctx := &d.ports[portB]
		ctx.mode[ctx.modePtr] = v
		ctx.modePtr = (ctx.modePtr + 1) % 2
		glog.V(2).Infof("DUART(WRITE): MR12B: val=%02x", v)
	case regCSRB:
		d.setBaud(portB, v)
		glog.V(2).Infof("DUART(WRITE): CSRB: val=%02x", v)
	case regCRB:
		d.handleCommand(v, portB)
		glog.V(2).Infof("DUART(WRITE): CRB: val=%02x", v)
	case regTHRB:
		// The actual transmit happens in the pump; until then the
		// holding register is full.
		ctx := &d.ports[portB]
		ctx.txData = v
		ctx.stat &^= stsTXE | stsTXR
		d.istat &^= istsTBI
		glog.V(2).Infof("DUART(WRITE): THRB: val=%02x", v)
	case regIPOPCR:
		glog.V(2).Infof("DUART(WRITE): IP_OPCR: val=%02x", v)
	case regOPBitsSet:
		d.outprt |= v
		glog.V(2).Infof("DUART(WRITE): OPBITS_SET: val=%02x", v)
	case regOPBitsRset:
		d.outprt &^= v
		glog.V(2).Infof("DUART(WRITE): OPBITS_RESET: val=%02x", v)
		if v&0x8 != 0 {
			// Keyboard reset. The keyboard answers with its reset
			// report.
			glog.V(1).Info("DUART: KEYBOARD RESET")
			ctx := &d.ports[portA]
			ctx.rxData = 0xf0
			ctx.stat |= stsRXR
		}
	default:
		glog.V(2).Infof("DUART(WRITE): UNHANDLED: addr=%08x val=%02x", addr, v)
	}
	return nil
}

// peek8 returns register contents without rotating the mode pointer,
// clearing interrupt sources or consuming receive data.
func (d *Duart) peek8(_ *Bus, addr uint32) (uint8, error) {
	switch addr {
	case regMR12A:
		ctx := &d.ports[portA]
		return ctx.mode[ctx.modePtr], nil
	case regCSRA:
		return d.ports[portA].stat, nil
	case regTHRA:
		return d.ports[portA].rxData, nil
	case regIPCRACR:
		return d.ipcr, nil
	case regISRMask:
		return d.istat, nil
	case regMR12B:
		ctx := &d.ports[portB]
		return ctx.mode[ctx.modePtr], nil
	case regCSRB:
		return d.ports[portB].stat, nil
	case regTHRB:
		return d.ports[portB].rxData, nil
	case regIPOPCR:
		return d.inprt, nil
	default:
		return 0, nil
	}
}

func (d *Duart) peek16(b *Bus, addr uint32) (uint16, error) {
	if addr == regMR12A {
		ctx := &d.ports[portA]
		return uint16(ctx.mode[1])<<8 | uint16(ctx.mode[0]), nil
	}
	v, err := d.peek8(b, addr)
	return uint16(v), err
}
