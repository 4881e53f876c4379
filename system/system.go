// Package system wires the machine together: memory and devices onto
// the bus, the bus to the processor core, the debug ACIA to its
// network bridge, and runs the main loop.
package system

import (
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"

	"tek4404/acia"
	"tek4404/bus"
	"tek4404/console"
	"tek4404/cpu"
)

// batchCycles is how many CPU cycles run between device service
// passes. Small enough that deferred device interrupts stay timely,
// large enough that the lock handoff doesn't dominate.
const batchCycles = 10000

// System is the assembled machine.
type System struct {
	console console.Console
	bus     *bus.Bus
}

// InitializeSystem builds the emulated Tektronix 4404 hardware:
// allocates the memories, attaches the peripherals, loads the boot
// ROM image and binds the processor core. If aciaAddr is non-empty
// the debug ACIA bridge starts listening there.
func InitializeSystem(c console.Console, core cpu.Core, romPath, aciaAddr string) (*System, error) {
	sys := &System{console: c}
	sys.bus = bus.New()

	var err error
	if sys.bus.RAM, err = bus.NewMemory(bus.RAMStart, bus.RAMEnd, bus.RAMSize, false); err != nil {
		return nil, err
	}
	if sys.bus.ROM, err = bus.NewMemory(bus.ROMStart, bus.ROMEnd, bus.ROMSize, true); err != nil {
		return nil, err
	}
	if sys.bus.VideoRAM, err = bus.NewMemory(bus.VRAMStart, bus.VRAMEnd, bus.VRAMSize, false); err != nil {
		return nil, err
	}

	sys.bus.Duart = bus.NewDuart()
	sys.bus.Scsi = bus.NewScsi()

	st := acia.NewState()
	sys.bus.Acia = bus.NewAcia(st)

	if err = sys.loadROM(romPath); err != nil {
		return nil, err
	}

	cpu.Attach(sys.bus, core)

	if aciaAddr != "" {
		srv := acia.NewServer(st)
		go func() {
			if err := srv.Run(aciaAddr); err != nil {
				glog.Errorf("debug ACIA bridge: %v", err)
			}
		}()
		_ = c.WriteConsole(fmt.Sprintf("Debug ACIA listening on %s\n", aciaAddr))
	}

	_ = c.WriteConsole("Initializing Tektronix 4404.\n")
	return sys, nil
}

func (sys *System) loadROM(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("boot ROM %s: %w", path, err)
	}
	if err := sys.bus.ROM.Load(data); err != nil {
		return fmt.Errorf("boot ROM %s: %w", path, err)
	}
	glog.V(1).Infof("loaded %d byte boot ROM from %s", len(data), path)
	return nil
}

// Step runs one batch of CPU cycles, then drains due service requests
// and pumps the DUART. Device service logic only ever runs here,
// between batches, never mid-instruction.
func (sys *System) Step() int {
	cycles := cpu.Execute(batchCycles)

	cpu.With(func(b *bus.Bus) {
		for {
			req, ok := b.Queue.Take()
			if !ok {
				break
			}
			b.Service(req.Key)
		}
		b.Duart.Pump(b)
	})

	return cycles
}

// Run steps the machine forever. An offline core consumes no cycles;
// back off so the loop doesn't spin while waiting for one to attach.
func (sys *System) Run() {
	for {
		if sys.Step() == 0 {
			time.Sleep(time.Millisecond)
		}
	}
}

// KeyDown forwards a key press to the keyboard port.
func (sys *System) KeyDown(key rune) {
	cpu.With(func(b *bus.Bus) {
		b.Duart.KeyDown(b, key)
	})
}

// KeyUp forwards a key release to the keyboard port.
func (sys *System) KeyUp(key rune) {
	cpu.With(func(b *bus.Bus) {
		b.Duart.KeyUp(b, key)
	})
}

// TerminalOutput routes RS-232 transmit bytes to the front end.
// Keyboard-port transmissions are commands to the keyboard, not
// display data, and are dropped here.
func (sys *System) TerminalOutput(f func(c uint8)) {
	cpu.With(func(b *bus.Bus) {
		b.Duart.Output = func(port int, c uint8) {
			if port == bus.PortRS232 {
				f(c)
			}
		}
	})
}
