// Package bus implements the Tektronix 4404 address map and the
// peripherals attached to it: RAM and ROM, the SCN2681 DUART, the
// SCSI host adapter, the debug ACIA and a handful of register stubs.
// The bus decodes 24-bit big-endian accesses at three widths and
// forwards them to the owning device; the device itself validates
// offsets and alignment, because validity differs per device (a
// mirrored ROM wraps, a register block rejects strangers).
package bus

import (
	"github.com/golang/glog"

	"tek4404/service"
)

// Address map. The 68010 address bus is 24 bits wide; everything
// outside these regions is an access fault.
const (
	RAMStart = 0x000000
	RAMEnd   = 0x1fffff
	RAMSize  = 0x200000

	ROMStart = 0x740000
	ROMEnd   = 0x74ffff
	ROMSize  = 0x8000

	DebugRAMStart = 0x760000
	DebugRAMEnd   = 0x76ffff
	DebugRAMSize  = 0x1000

	MMUStart = 0x780000
	MMUEnd   = 0x7800ff

	VideoStart = 0x782000
	VideoEnd   = 0x785fff

	SoundStart = 0x788000
	SoundEnd   = 0x788fff

	FPUStart = 0x78a000
	FPUEnd   = 0x78bfff

	ACIAStart = 0x78c000
	ACIAEnd   = 0x78c007

	VRAMStart = 0x600000
	VRAMEnd   = 0x61ffff
	VRAMSize  = 0x20000

	DiagStart = 0x7b0000
	DiagEnd   = 0x7b1fff
	DiagSize  = 0x2000

	DuartStart = 0x7b4000
	DuartEnd   = 0x7b5fff

	MouseStart = 0x7b6000
	MouseEnd   = 0x7b7fff

	TimerStart = 0x7b8000
	TimerEnd   = 0x7b9fff

	CalStart = 0x7ba000
	CalEnd   = 0x7bbfff

	ScsiStart = 0x7bc000
	ScsiEnd   = 0x7bffff

	// The page table is a 2Kx16 RAM addressed from 0x800000 to
	// 0xffffff, accessible whenever VM is turned off. It is indexed
	// by bits 12-22 of the address and answered by the MMU.
	PTStart = 0x800000
	PTEnd   = 0xffffff
)

// device is the contract every peripheral implements. Devices receive
// the full bus address, not an offset, and perform their own range
// and alignment validation. The peek methods mirror the read methods
// but must never produce observable side effects; they back the
// disassembly read path.
type device interface {
	read8(b *Bus, addr uint32) (uint8, error)
	read16(b *Bus, addr uint32) (uint16, error)
	read32(b *Bus, addr uint32) (uint32, error)
	write8(b *Bus, addr uint32, v uint8) error
	write16(b *Bus, addr uint32, v uint16) error
	write32(b *Bus, addr uint32, v uint32) error
	peek8(b *Bus, addr uint32) (uint8, error)
	peek16(b *Bus, addr uint32) (uint16, error)
	peek32(b *Bus, addr uint32) (uint32, error)
}

// nop provides no-op defaults for any device that does not implement
// all data sizes.
type nop struct{}

func (nop) read8(*Bus, uint32) (uint8, error)   { return 0, nil }
func (nop) read16(*Bus, uint32) (uint16, error) { return 0, nil }
func (nop) read32(*Bus, uint32) (uint32, error) { return 0, nil }
func (nop) write8(*Bus, uint32, uint8) error    { return nil }
func (nop) write16(*Bus, uint32, uint16) error  { return nil }
func (nop) write32(*Bus, uint32, uint32) error  { return nil }
func (nop) peek8(*Bus, uint32) (uint8, error)   { return 0, nil }
func (nop) peek16(*Bus, uint32) (uint16, error) { return 0, nil }
func (nop) peek32(*Bus, uint32) (uint32, error) { return 0, nil }

// Bus owns the devices and decodes addresses into them.
type Bus struct {
	// MapROM aliases low memory to the boot ROM until the first
	// write to the sound device, modeling the hardware boot latch.
	MapROM bool

	ROM      *Memory
	RAM      *Memory
	DebugRAM *Memory
	VideoRAM *Memory
	Diag     *Memory

	Sound    *Sound
	Acia     *Acia
	Video    *Video
	Duart    *Duart
	Fpu      *Fpu
	Mmu      *Mmu
	Scsi     *Scsi
	Mouse    *Mouse
	Timer    *Timer
	Calendar *Calendar

	// Queue receives deferred service requests from devices.
	Queue *service.Queue

	// IRQ asserts an interrupt priority level on the processor core.
	// Wired up by the FFI shim. Implementations must only record the
	// level, never call back into the bus synchronously.
	IRQ func(level int)
}

// New returns a bus with the always-present devices attached. RAM,
// ROM, video RAM, the DUART, the SCSI controller and the ACIA are
// wired separately during system initialization; accesses to their
// regions fault until then.
func New() *Bus {
	debugRAM, _ := NewMemory(DebugRAMStart, DebugRAMEnd, DebugRAMSize, false)
	diag, _ := NewMemory(DiagStart, DiagEnd, DiagSize, false)

	return &Bus{
		MapROM:   true,
		DebugRAM: debugRAM,
		Diag:     diag,
		Sound:    &Sound{},
		Video:    &Video{},
		Fpu:      &Fpu{},
		Mmu:      &Mmu{},
		Mouse:    &Mouse{},
		Timer:    &Timer{},
		Calendar: &Calendar{},
		Queue:    service.New(),
		IRQ:      func(int) {},
	}
}

func pick(d device, present bool) (device, error) {
	if !present {
		return nil, ErrAccess
	}
	return d, nil
}

// mapDevice decodes an address to its device. Cases are evaluated in
// a fixed order so the special cases - the low-memory ROM/RAM alias
// and the page-table window - resolve deterministically.
func (b *Bus) mapDevice(addr uint32) (device, error) {
	switch {
	case addr <= RAMEnd:
		if b.MapROM {
			return pick(b.ROM, b.ROM != nil)
		}
		return pick(b.RAM, b.RAM != nil)
	case addr >= ROMStart && addr <= ROMEnd:
		return pick(b.ROM, b.ROM != nil)
	case addr >= ScsiStart && addr <= ScsiEnd:
		return pick(b.Scsi, b.Scsi != nil)
	case addr >= MMUStart && addr <= MMUEnd:
		return pick(b.Mmu, b.Mmu != nil)
	case addr >= DebugRAMStart && addr <= DebugRAMEnd:
		return pick(b.DebugRAM, b.DebugRAM != nil)
	case addr >= SoundStart && addr <= SoundEnd:
		return pick(b.Sound, b.Sound != nil)
	case addr >= ACIAStart && addr <= ACIAEnd:
		return pick(b.Acia, b.Acia != nil)
	case addr >= VideoStart && addr <= VideoEnd:
		return pick(b.Video, b.Video != nil)
	case addr >= VRAMStart && addr <= VRAMEnd:
		return pick(b.VideoRAM, b.VideoRAM != nil)
	case addr >= DuartStart && addr <= DuartEnd:
		return pick(b.Duart, b.Duart != nil)
	case addr >= FPUStart && addr <= FPUEnd:
		return pick(b.Fpu, b.Fpu != nil)
	case addr >= DiagStart && addr <= DiagEnd:
		return pick(b.Diag, b.Diag != nil)
	case addr >= PTStart && addr <= PTEnd:
		return pick(b.Mmu, b.Mmu != nil)
	case addr >= MouseStart && addr <= MouseEnd:
		return pick(b.Mouse, b.Mouse != nil)
	case addr >= TimerStart && addr <= TimerEnd:
		return pick(b.Timer, b.Timer != nil)
	case addr >= CalStart && addr <= CalEnd:
		return pick(b.Calendar, b.Calendar != nil)
	default:
		glog.V(1).Infof("No device at address %08x", addr)
		return nil, ErrAccess
	}
}

// Read8 reads one byte from addr.
func (b *Bus) Read8(addr uint32) (uint8, error) {
	d, err := b.mapDevice(addr)
	if err != nil {
		return 0, err
	}
	return d.read8(b, addr)
}

// Read16 reads a big-endian word from addr.
func (b *Bus) Read16(addr uint32) (uint16, error) {
	d, err := b.mapDevice(addr)
	if err != nil {
		return 0, err
	}
	return d.read16(b, addr)
}

// Read32 reads a big-endian long from addr.
func (b *Bus) Read32(addr uint32) (uint32, error) {
	d, err := b.mapDevice(addr)
	if err != nil {
		return 0, err
	}
	return d.read32(b, addr)
}

// Write8 writes one byte to addr.
func (b *Bus) Write8(addr uint32, v uint8) error {
	d, err := b.mapDevice(addr)
	if err != nil {
		return err
	}
	return d.write8(b, addr, v)
}

// Write16 writes a big-endian word to addr.
func (b *Bus) Write16(addr uint32, v uint16) error {
	d, err := b.mapDevice(addr)
	if err != nil {
		return err
	}
	return d.write16(b, addr, v)
}

// Write32 writes a big-endian long to addr.
func (b *Bus) Write32(addr uint32, v uint32) error {
	d, err := b.mapDevice(addr)
	if err != nil {
		return err
	}
	return d.write32(b, addr, v)
}

// Peek8 mirrors Read8 without side effects. Used by the disassembly
// path, which must not drain queues, rotate pointers or clear
// interrupt flags.
func (b *Bus) Peek8(addr uint32) (uint8, error) {
	d, err := b.mapDevice(addr)
	if err != nil {
		return 0, err
	}
	return d.peek8(b, addr)
}

// Peek16 mirrors Read16 without side effects.
func (b *Bus) Peek16(addr uint32) (uint16, error) {
	d, err := b.mapDevice(addr)
	if err != nil {
		return 0, err
	}
	return d.peek16(b, addr)
}

// Peek32 mirrors Read32 without side effects.
func (b *Bus) Peek32(addr uint32) (uint32, error) {
	d, err := b.mapDevice(addr)
	if err != nil {
		return 0, err
	}
	return d.peek32(b, addr)
}

// Service dispatches a due scheduler request to the owning device.
// This is the only path allowed to invoke a device's service logic,
// preserving the "interrupt happens some time after the command"
// timing.
func (b *Bus) Service(key service.Key) {
	switch key {
	case service.Scsi:
		if b.Scsi != nil {
			b.Scsi.service(b)
		}
	default:
		glog.Errorf("service request for unknown device %v", key)
	}
}
