package cpu

import (
	"testing"

	"tek4404/bus"
)

type fakeCore struct {
	pulses int
	irqs   []int
	cycles int
}

func (c *fakeCore) Execute(n int) int { c.cycles += n; return n }
func (c *fakeCore) PulseBusError()    { c.pulses++ }
func (c *fakeCore) SetIRQ(l int)      { c.irqs = append(c.irqs, l) }

// attach builds a machine with RAM and a blank ROM and binds the fake
// core. Package state is global, so each test attaches fresh.
func attach(t *testing.T) *fakeCore {
	t.Helper()
	b := bus.New()
	var err error
	if b.RAM, err = bus.NewMemory(bus.RAMStart, bus.RAMEnd, bus.RAMSize, false); err != nil {
		t.Fatal(err)
	}
	if b.ROM, err = bus.NewMemory(bus.ROMStart, bus.ROMEnd, bus.ROMSize, true); err != nil {
		t.Fatal(err)
	}
	b.MapROM = false

	c := &fakeCore{}
	Attach(b, c)
	return c
}

func TestMemoryRoundTrip(t *testing.T) {
	c := attach(t)

	WriteMemory32(0x1000, 0x01020304)
	if v := ReadMemory32(0x1000); v != 0x01020304 {
		t.Errorf("expected 01020304, got %08x", v)
	}
	if v := ReadMemory16(0x1002); v != 0x0304 {
		t.Errorf("expected 0304, got %04x", v)
	}
	WriteMemory16(0x2000, 0xbeef)
	if v := ReadMemory8(0x2001); v != 0xef {
		t.Errorf("expected ef, got %02x", v)
	}
	if c.pulses != 0 {
		t.Errorf("valid accesses must not pulse, got %d", c.pulses)
	}
}

func TestFailedAccessPulsesAndReturnsZero(t *testing.T) {
	c := attach(t)

	if v := ReadMemory8(0x300000); v != 0 {
		t.Errorf("failed read should return zero, got %02x", v)
	}
	if c.pulses != 1 {
		t.Fatalf("expected one pulse, got %d", c.pulses)
	}

	WriteMemory8(0x300000, 1)
	if c.pulses != 2 {
		t.Errorf("failed write should pulse, got %d", c.pulses)
	}

	// Misaligned word access pulses too.
	ReadMemory16(0x1001)
	if c.pulses != 3 {
		t.Errorf("misaligned read should pulse, got %d", c.pulses)
	}
}

func TestReadOnlyWriteIsSilent(t *testing.T) {
	c := attach(t)

	// A ROM write is swallowed without a bus error, so the boot ROM's
	// memory probing survives.
	WriteMemory8(bus.ROMStart, 0x12)
	WriteMemory16(bus.ROMStart, 0x1234)
	WriteMemory32(bus.ROMStart, 0x12345678)
	if c.pulses != 0 {
		t.Errorf("read-only writes must not pulse, got %d", c.pulses)
	}
	if v := ReadMemory8(bus.ROMStart); v != 0 {
		t.Errorf("ROM must be unchanged, got %02x", v)
	}
}

func TestDisassemblerNeverFaults(t *testing.T) {
	c := attach(t)

	WriteMemory32(0x1000, 0x4e714e71)
	if v := ReadDisassembler32(0x1000); v != 0x4e714e71 {
		t.Errorf("expected 4e714e71, got %08x", v)
	}
	if v := ReadDisassembler16(0x1000); v != 0x4e71 {
		t.Errorf("expected 4e71, got %04x", v)
	}

	// Unmapped and misaligned reads return zero with no bus error.
	if v := ReadDisassembler8(0x300000); v != 0 {
		t.Errorf("expected 0, got %02x", v)
	}
	if v := ReadDisassembler16(0x1001); v != 0 {
		t.Errorf("expected 0, got %04x", v)
	}
	if c.pulses != 0 {
		t.Errorf("disassembly reads must never pulse, got %d", c.pulses)
	}
}

func TestDeviceInterruptReachesCore(t *testing.T) {
	c := attach(t)

	With(func(b *bus.Bus) {
		b.IRQ(LevelUART)
	})
	if len(c.irqs) != 1 || c.irqs[0] != LevelUART {
		t.Errorf("expected IRQ at level %d, got %v", LevelUART, c.irqs)
	}

	SetIRQ(LevelSCSI)
	if c.irqs[len(c.irqs)-1] != LevelSCSI {
		t.Errorf("expected IRQ at level %d, got %v", LevelSCSI, c.irqs)
	}
}

func TestExecuteForwardsCycles(t *testing.T) {
	c := attach(t)

	if got := Execute(1000); got != 1000 {
		t.Errorf("expected 1000 cycles, got %d", got)
	}
	if c.cycles != 1000 {
		t.Errorf("core should have seen 1000 cycles, saw %d", c.cycles)
	}
}

func TestOfflineCore(t *testing.T) {
	b := bus.New()
	Attach(b, Offline{})

	if Execute(100) != 0 {
		t.Error("offline core consumes no cycles")
	}
	// The memory functions stay safe even with nothing mapped.
	if v := ReadDisassembler8(0); v != 0 {
		t.Errorf("expected 0, got %02x", v)
	}
}
