package bus

import (
	"testing"
	"time"
)

func duartBus(t *testing.T) (*Bus, *Duart, *[]int) {
	t.Helper()
	b := New()
	b.Duart = NewDuart()
	irqs := &[]int{}
	b.IRQ = func(level int) { *irqs = append(*irqs, level) }
	return b, b.Duart, irqs
}

func TestTransmitterEnableDisable(t *testing.T) {
	b, d, _ := duartBus(t)

	// Enable: ready and empty come up, and on port A the interrupt
	// sources as well.
	if err := b.Write8(regCRA, cmdETX); err != nil {
		t.Fatal(err)
	}
	stat, _ := b.Read8(regCSRA)
	if stat&(stsTXR|stsTXE) != stsTXR|stsTXE {
		t.Errorf("expected TXR|TXE after enable, got %02x", stat)
	}
	if d.istat&istsTAI == 0 {
		t.Error("port A transmit enable should raise TAI")
	}
	if d.ivec&txInt == 0 {
		t.Error("port A transmit enable should raise the tx vector")
	}

	// Disable takes them all back down.
	if err := b.Write8(regCRA, cmdDTX); err != nil {
		t.Fatal(err)
	}
	stat, _ = b.Read8(regCSRA)
	if stat&(stsTXR|stsTXE) != 0 {
		t.Errorf("expected TXR|TXE clear after disable, got %02x", stat)
	}
	if d.istat&istsTAI != 0 || d.ivec&txInt != 0 {
		t.Error("port A transmit disable should clear its interrupt sources")
	}
}

func TestModePointerRotation(t *testing.T) {
	b, d, _ := duartBus(t)

	if err := b.Write8(regMR12A, 0x13); err != nil {
		t.Fatal(err)
	}
	if err := b.Write8(regMR12A, 0x07); err != nil {
		t.Fatal(err)
	}
	if d.ports[portA].mode[0] != 0x13 || d.ports[portA].mode[1] != 0x07 {
		t.Fatalf("mode registers %02x %02x", d.ports[portA].mode[0], d.ports[portA].mode[1])
	}

	// Reads rotate through MR1, MR2, MR1 again.
	for i, want := range []uint8{0x13, 0x07, 0x13} {
		v, _ := b.Read8(regMR12A)
		if v != want {
			t.Errorf("read %d: expected %02x, got %02x", i, want, v)
		}
	}

	// Extra command 1 resets the pointer to MR1.
	if _, err := b.Read8(regMR12A); err != nil { // leave pointer on MR1
		t.Fatal(err)
	}
	if err := b.Write8(regCRA, 1<<4); err != nil {
		t.Fatal(err)
	}
	if v, _ := b.Read8(regMR12A); v != 0x13 {
		t.Errorf("after pointer reset expected MR1 %02x, got %02x", 0x13, v)
	}

	// 16-bit read returns both without rotating.
	if v, _ := b.Read16(regMR12A); v != 0x0713 {
		t.Errorf("expected 0713, got %04x", v)
	}
}

func TestKeyboardDelivery(t *testing.T) {
	b, d, irqs := duartBus(t)

	// Enable the keyboard receiver. Enabling sets RXR, so the stale
	// holding register has to be read out before the first real byte
	// latches.
	if err := b.Write8(regCRA, cmdERX); err != nil {
		t.Fatal(err)
	}
	d.KeyDown(b, 'a')
	if _, err := b.Read8(regTHRA); err != nil {
		t.Fatal(err)
	}
	d.Pump(b)

	stat, _ := b.Read8(regCSRA)
	if stat&stsRXR == 0 {
		t.Fatal("expected receiver-ready after pump")
	}
	v, _ := b.Read8(regTHRA)
	if v != 0x10 {
		t.Errorf("expected make code 10 for 'a', got %02x", v)
	}
	if len(*irqs) == 0 || (*irqs)[len(*irqs)-1] != uartInt {
		t.Errorf("expected interrupt at level %d, got %v", uartInt, *irqs)
	}

	// The release follows as the break code.
	d.KeyUp(b, 'a')
	if v, _ := b.Read8(regTHRA); v != 0x90 {
		t.Errorf("expected break code 90, got %02x", v)
	}
}

func TestKeyboardHeldWhileReceiverDisabled(t *testing.T) {
	b, d, irqs := duartBus(t)

	d.KeyDown(b, 'a')
	stat, _ := b.Read8(regCSRA)
	if stat&stsRXR != 0 {
		t.Error("byte must not latch while the receiver is disabled")
	}
	if len(*irqs) != 0 {
		t.Errorf("no interrupt expected, got %v", *irqs)
	}

	// Enabling and reading the stale register lets it through.
	if err := b.Write8(regCRA, cmdERX); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Read8(regTHRA); err != nil {
		t.Fatal(err)
	}
	d.Pump(b)
	if v, _ := b.Read8(regTHRA); v != 0x10 {
		t.Errorf("queued byte should deliver once enabled, got %02x", v)
	}
}

func TestUnknownKeyUsesSentinel(t *testing.T) {
	if scanCode('ä') != keySentinel {
		t.Error("unknown rune should map to the sentinel code")
	}
	if scanCode('a') == keySentinel {
		t.Error("known rune must not map to the sentinel code")
	}
}

func TestTransmitToOutputHook(t *testing.T) {
	b, d, irqs := duartBus(t)

	type sent struct {
		port int
		c    uint8
	}
	var out []sent
	d.Output = func(port int, c uint8) { out = append(out, sent{port, c}) }

	// RS-232 transmit on port B.
	if err := b.Write8(regCRB, cmdETX); err != nil {
		t.Fatal(err)
	}
	// Writing the holding register drops ready/empty until the pump
	// completes the character.
	if err := b.Write8(regTHRB, 0x65); err != nil {
		t.Fatal(err)
	}
	stat, _ := b.Read8(regCSRB)
	if stat&(stsTXR|stsTXE) != 0 {
		t.Errorf("holding register full: expected TXR|TXE clear, got %02x", stat)
	}

	d.Pump(b)

	if len(out) != 1 || out[0] != (sent{portB, 0x65}) {
		t.Fatalf("expected port B byte 65, got %v", out)
	}
	stat, _ = b.Read8(regCSRB)
	if stat&(stsTXR|stsTXE) != stsTXR|stsTXE {
		t.Errorf("expected TXR|TXE after transmit, got %02x", stat)
	}
	if d.ivec&txInt == 0 {
		t.Error("RS-232 transmit should raise the tx vector")
	}
	if len(*irqs) == 0 || (*irqs)[len(*irqs)-1] != uartInt {
		t.Errorf("expected interrupt at level %d, got %v", uartInt, *irqs)
	}
}

func TestKeyboardBeepRequest(t *testing.T) {
	b, d, _ := duartBus(t)

	var out []uint8
	d.Output = func(port int, c uint8) {
		if port == PortKeyboard {
			out = append(out, c)
		}
	}

	if err := b.Write8(regCRA, cmdETX); err != nil {
		t.Fatal(err)
	}
	// Status requests to the keyboard are swallowed; only the beep
	// request transmits.
	if err := b.Write8(regTHRA, 0x41); err != nil {
		t.Fatal(err)
	}
	d.Pump(b)
	if len(out) != 0 {
		t.Fatalf("status request must not transmit, got %v", out)
	}

	if err := b.Write8(regTHRA, 0x08); err != nil {
		t.Fatal(err)
	}
	d.Pump(b)
	if len(out) != 1 || out[0] != 0x08 {
		t.Fatalf("expected beep byte on the keyboard port, got %v", out)
	}
}

func TestLoopbackMode(t *testing.T) {
	b, d, _ := duartBus(t)

	// MR2[7:6] == 10 selects local loopback.
	if err := b.Write8(regMR12B, 0x00); err != nil {
		t.Fatal(err)
	}
	if err := b.Write8(regMR12B, 0x80); err != nil {
		t.Fatal(err)
	}
	if err := b.Write8(regCRB, cmdETX|cmdERX); err != nil {
		t.Fatal(err)
	}
	if err := b.Write8(regTHRB, 0x5a); err != nil {
		t.Fatal(err)
	}
	d.Pump(b)

	if v, _ := b.Read8(regTHRB); v != 0x5a {
		t.Errorf("loopback should reflect the byte, got %02x", v)
	}
}

func TestKeyboardReset(t *testing.T) {
	b, _, _ := duartBus(t)

	if err := b.Write8(regOPBitsRset, 0x08); err != nil {
		t.Fatal(err)
	}
	stat, _ := b.Read8(regCSRA)
	if stat&stsRXR == 0 {
		t.Fatal("keyboard reset should latch the reset report")
	}
	if v, _ := b.Read8(regTHRA); v != 0xf0 {
		t.Errorf("expected reset report f0, got %02x", v)
	}
}

func TestIPCRReadClears(t *testing.T) {
	b, d, _ := duartBus(t)

	v, _ := b.Read8(regIPCRACR)
	if v != 0x40 {
		t.Errorf("expected power-on IPCR 40, got %02x", v)
	}
	if d.ipcr&0x0f != 0 {
		t.Error("IPCR read should clear the change bits")
	}
	if d.ivec != 0 {
		t.Error("IPCR read should clear the interrupt vector")
	}
}

func TestBaudSelect(t *testing.T) {
	b, d, _ := duartBus(t)

	if err := b.Write8(regCSRA, 0xbb); err != nil {
		t.Fatal(err)
	}
	if want := time.Duration(delayRatesA[0xb]) * time.Nanosecond; d.ports[portA].charDelay != want {
		t.Errorf("expected delay %v, got %v", want, d.ports[portA].charDelay)
	}

	// ACR[7] selects the alternate rate set.
	if err := b.Write8(regIPCRACR, 0x80); err != nil {
		t.Fatal(err)
	}
	if err := b.Write8(regCSRB, 0x77); err != nil {
		t.Fatal(err)
	}
	if want := time.Duration(delayRatesB[0x7]) * time.Nanosecond; d.ports[portB].charDelay != want {
		t.Errorf("expected delay %v, got %v", want, d.ports[portB].charDelay)
	}
}

func TestPeekHasNoSideEffects(t *testing.T) {
	b, d, _ := duartBus(t)

	if err := b.Write8(regMR12A, 0x13); err != nil {
		t.Fatal(err)
	}
	if err := b.Write8(regMR12A, 0x07); err != nil {
		t.Fatal(err)
	}

	// Peeking the mode register must not rotate the pointer.
	p1, _ := b.Peek8(regMR12A)
	p2, _ := b.Peek8(regMR12A)
	if p1 != p2 {
		t.Errorf("repeated peeks differ: %02x vs %02x", p1, p2)
	}

	// Peeking IPCR must not clear it.
	if v, _ := b.Peek8(regIPCRACR); v != 0x40 {
		t.Errorf("expected 40, got %02x", v)
	}
	if d.ipcr != 0x40 {
		t.Errorf("peek clobbered IPCR: %02x", d.ipcr)
	}
}
