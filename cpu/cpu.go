// Package cpu is the boundary between the machine and an external
// 68010 core. The core calls the exported memory functions from its
// own execution loop; the machine calls Execute to run batches of
// cycles and With to touch the bus between them. A single mutex
// serializes the two sides, so devices never need locks of their own.
package cpu

import (
	"errors"
	"sync"

	"github.com/golang/glog"

	"tek4404/bus"
)

// Interrupt priority levels on the 68010 IPL lines.
const (
	LevelTimer = 1
	LevelDMA   = 2
	LevelSCSI  = 3
	LevelSpare = 4
	LevelUART  = 5
	LevelVsync = 6
	LevelDebug = 7
)

// Core is the contract an external processor core fulfills.
type Core interface {
	// Execute runs up to the given number of cycles and returns the
	// number actually consumed.
	Execute(cycles int) int

	// PulseBusError signals a bus error exception for the access in
	// flight.
	PulseBusError()

	// SetIRQ asserts an interrupt priority level. Level 0 clears.
	SetIRQ(level int)
}

// Offline is a core that executes nothing. It stands in before a real
// core attaches so the memory functions stay callable.
type Offline struct{}

func (Offline) Execute(int) int { return 0 }
func (Offline) PulseBusError()  {}
func (Offline) SetIRQ(int)      {}

var (
	mu      sync.Mutex
	machine *bus.Bus
	core    Core = Offline{}
)

// Attach binds the bus and the core together. Device interrupt
// requests raised during bus dispatch are forwarded to the core.
func Attach(b *bus.Bus, c Core) {
	mu.Lock()
	defer mu.Unlock()
	machine = b
	b.IRQ = c.SetIRQ
	core = c
}

// With runs f with exclusive access to the bus. This is how the rest
// of the machine reaches devices without racing the core's memory
// accesses.
func With(f func(b *bus.Bus)) {
	mu.Lock()
	defer mu.Unlock()
	f(machine)
}

// Execute runs the core for a batch of cycles.
func Execute(cycles int) int {
	return core.Execute(cycles)
}

// SetIRQ asserts an interrupt priority level on the core.
func SetIRQ(level int) {
	core.SetIRQ(level)
}

// pulse reports a failed write to the core. Called with the bus lock
// released; the core may re-enter a memory function from the
// exception path.
func pulse(err error) {
	if errors.Is(err, bus.ErrReadOnly) {
		// Writes to ROM complete silently from the core's point of
		// view. The 4404 boot ROM probes its own address space and a
		// bus error here would wedge the self test.
		glog.V(1).Info("READ-ONLY ERROR")
		return
	}
	core.PulseBusError()
}

// ReadMemory8 reads one byte on behalf of the core. A failed access
// pulses a bus error and returns zero.
func ReadMemory8(addr uint32) uint8 {
	mu.Lock()
	v, err := machine.Read8(addr)
	mu.Unlock()
	if err != nil {
		glog.V(1).Infof("[ READ] [BYTE] %08x failed: %v", addr, err)
		core.PulseBusError()
		return 0
	}
	glog.V(3).Infof("[ READ] [BYTE] %08x = %02x", addr, v)
	return v
}

// ReadMemory16 reads a big-endian word on behalf of the core.
func ReadMemory16(addr uint32) uint16 {
	mu.Lock()
	v, err := machine.Read16(addr)
	mu.Unlock()
	if err != nil {
		glog.V(1).Infof("[ READ] [WORD] %08x failed: %v", addr, err)
		core.PulseBusError()
		return 0
	}
	glog.V(3).Infof("[ READ] [WORD] %08x = %04x", addr, v)
	return v
}

// ReadMemory32 reads a big-endian long on behalf of the core.
func ReadMemory32(addr uint32) uint32 {
	mu.Lock()
	v, err := machine.Read32(addr)
	mu.Unlock()
	if err != nil {
		glog.V(1).Infof("[ READ] [LONG] %08x failed: %v", addr, err)
		core.PulseBusError()
		return 0
	}
	glog.V(3).Infof("[ READ] [LONG] %08x = %08x", addr, v)
	return v
}

// WriteMemory8 writes one byte on behalf of the core.
func WriteMemory8(addr uint32, v uint8) {
	mu.Lock()
	err := machine.Write8(addr, v)
	mu.Unlock()
	glog.V(3).Infof("[WRITE] [BYTE] %08x = %02x", addr, v)
	if err != nil {
		pulse(err)
	}
}

// WriteMemory16 writes a big-endian word on behalf of the core.
func WriteMemory16(addr uint32, v uint16) {
	mu.Lock()
	err := machine.Write16(addr, v)
	mu.Unlock()
	glog.V(3).Infof("[WRITE] [WORD] %08x = %04x", addr, v)
	if err != nil {
		pulse(err)
	}
}

// WriteMemory32 writes a big-endian long on behalf of the core.
func WriteMemory32(addr uint32, v uint32) {
	mu.Lock()
	err := machine.Write32(addr, v)
	mu.Unlock()
	glog.V(3).Infof("[WRITE] [LONG] %08x = %08x", addr, v)
	if err != nil {
		pulse(err)
	}
}

// ReadDisassembler8 reads one byte for the core's disassembler. No
// device state changes and no bus error is ever raised; an unmapped
// address reads as zero.
func ReadDisassembler8(addr uint32) uint8 {
	mu.Lock()
	v, _ := machine.Peek8(addr)
	mu.Unlock()
	return v
}

// ReadDisassembler16 reads a big-endian word for the disassembler.
func ReadDisassembler16(addr uint32) uint16 {
	mu.Lock()
	v, _ := machine.Peek16(addr)
	mu.Unlock()
	return v
}

// ReadDisassembler32 reads a big-endian long for the disassembler.
func ReadDisassembler32(addr uint32) uint32 {
	mu.Lock()
	v, _ := machine.Peek32(addr)
	mu.Unlock()
	return v
}
