package bus

import (
	"bytes"
	"errors"
	"testing"
)

func ramUnderTest(t *testing.T) (*Memory, *Bus) {
	t.Helper()
	m, err := NewMemory(RAMStart, RAMEnd, RAMSize, false)
	if err != nil {
		t.Fatal(err)
	}
	return m, &Bus{}
}

func TestMemoryReadWriteWidths(t *testing.T) {
	m, b := ramUnderTest(t)

	if err := m.write32(b, 0x1000, 0x01020304); err != nil {
		t.Fatal(err)
	}

	// Big-endian byte order.
	for i, want := range []uint8{0x01, 0x02, 0x03, 0x04} {
		v, err := m.read8(b, uint32(0x1000+i))
		if err != nil {
			t.Fatal(err)
		}
		if v != want {
			t.Errorf("byte %d: expected %02x, got %02x", i, want, v)
		}
	}

	if v, _ := m.read16(b, 0x1000); v != 0x0102 {
		t.Errorf("expected 0102, got %04x", v)
	}
	if v, _ := m.read16(b, 0x1002); v != 0x0304 {
		t.Errorf("expected 0304, got %04x", v)
	}
	if v, _ := m.read32(b, 0x1000); v != 0x01020304 {
		t.Errorf("expected 01020304, got %08x", v)
	}
}

func TestMemoryAlignment(t *testing.T) {
	m, b := ramUnderTest(t)

	if _, err := m.read16(b, 0x1001); !errors.Is(err, ErrAlignment) {
		t.Errorf("odd 16-bit read: expected ErrAlignment, got %v", err)
	}
	if _, err := m.read32(b, 0x1003); !errors.Is(err, ErrAlignment) {
		t.Errorf("odd 32-bit read: expected ErrAlignment, got %v", err)
	}
	if err := m.write16(b, 0x1001, 0); !errors.Is(err, ErrAlignment) {
		t.Errorf("odd 16-bit write: expected ErrAlignment, got %v", err)
	}
	if err := m.write32(b, 0x1003, 0); !errors.Is(err, ErrAlignment) {
		t.Errorf("odd 32-bit write: expected ErrAlignment, got %v", err)
	}
}

func TestMemoryOutOfRange(t *testing.T) {
	m, err := NewMemory(DiagStart, DiagEnd, DiagSize, false)
	if err != nil {
		t.Fatal(err)
	}
	b := &Bus{}

	if _, err := m.read8(b, DiagStart-1); !errors.Is(err, ErrAccess) {
		t.Errorf("below window: expected ErrAccess, got %v", err)
	}
	if _, err := m.read8(b, DiagEnd+1); !errors.Is(err, ErrAccess) {
		t.Errorf("above window: expected ErrAccess, got %v", err)
	}
}

func TestMemoryReadOnly(t *testing.T) {
	m, err := NewMemory(ROMStart, ROMEnd, ROMSize, true)
	if err != nil {
		t.Fatal(err)
	}
	b := &Bus{}

	if err := m.write8(b, ROMStart, 1); !errors.Is(err, ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
	if err := m.write16(b, ROMStart, 1); !errors.Is(err, ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
	if err := m.write32(b, ROMStart, 1); !errors.Is(err, ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}

	// An aligned read-only write still validates alignment first.
	if err := m.write16(b, ROMStart+1, 1); !errors.Is(err, ErrAlignment) {
		t.Errorf("expected ErrAlignment, got %v", err)
	}
}

func TestMemoryMirroring(t *testing.T) {
	// The ROM window is 64KB over a 32KB store, so each location
	// appears twice.
	m, err := NewMemory(ROMStart, ROMEnd, ROMSize, true)
	if err != nil {
		t.Fatal(err)
	}
	image := make([]byte, ROMSize)
	image[0x100] = 0xaa
	if err := m.Load(image); err != nil {
		t.Fatal(err)
	}
	b := &Bus{}

	v1, err := m.read8(b, ROMStart+0x100)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := m.read8(b, ROMStart+ROMSize+0x100)
	if err != nil {
		t.Fatal(err)
	}
	if v1 != 0xaa || v2 != 0xaa {
		t.Errorf("mirror mismatch: %02x vs %02x", v1, v2)
	}
}

func TestMemoryLoad(t *testing.T) {
	m, err := NewMemory(ROMStart, ROMEnd, ROMSize, true)
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Load(make([]byte, ROMSize-1)); err == nil {
		t.Error("short image should be rejected")
	}
	var initErr *InitError
	if err := m.Load(make([]byte, ROMSize+1)); !errors.As(err, &initErr) {
		t.Errorf("long image: expected InitError, got %v", err)
	}

	image := bytes.Repeat([]byte{0x42}, ROMSize)
	if err := m.Load(image); err != nil {
		t.Fatal(err)
	}
	b := &Bus{}
	if v, _ := m.read8(b, ROMStart); v != 0x42 {
		t.Errorf("expected 42, got %02x", v)
	}
}

func TestNewMemoryInvalidRange(t *testing.T) {
	if _, err := NewMemory(0x2000, 0x1000, 0x1000, false); err == nil {
		t.Error("inverted range should be rejected")
	}
}
