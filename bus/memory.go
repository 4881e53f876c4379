package bus

import "encoding/binary"

// Memory is a flat byte array backing the RAM, ROM, video RAM and
// diagnostic RAM regions. All multi-byte values are big-endian. A
// device whose window is larger than its backing store mirrors the
// store across the window via modulo addressing.
type Memory struct {
	readOnly bool
	start    uint32
	end      uint32
	size     uint32
	mem      []byte
}

// NewMemory returns a memory device claiming [start, end] with a
// backing store of size bytes.
func NewMemory(start, end, size uint32, readOnly bool) (*Memory, error) {
	if start > end {
		return nil, initErrorf("invalid memory range %08x-%08x", start, end)
	}
	return &Memory{
		readOnly: readOnly,
		start:    start,
		end:      end,
		size:     size,
		mem:      make([]byte, size),
	}, nil
}

// Load bulk-initializes the backing store. Used once, for boot ROM
// content; anything but an exact-size image is a startup failure.
func (m *Memory) Load(data []byte) error {
	if uint32(len(data)) != m.size {
		return initErrorf("image is %d bytes, device wants %d", len(data), m.size)
	}
	copy(m.mem, data)
	return nil
}

// offset validates addr and translates it to a backing store index.
// While the boot latch maps ROM over low memory the ROM answers
// addresses well outside its own window, so a read-only device wraps
// modulo its size instead of range checking.
func (m *Memory) offset(b *Bus, addr uint32) (uint32, error) {
	if m.readOnly && b.MapROM {
		return addr % m.size, nil
	}
	if addr >= m.start && addr <= m.end {
		return (addr - m.start) % m.size, nil
	}
	return 0, ErrAccess
}

// byteAt wraps per byte, for the rare multi-byte access that
// straddles the mirror boundary.
func (m *Memory) byteAt(off uint32) byte {
	return m.mem[off%m.size]
}

func (m *Memory) read8(b *Bus, addr uint32) (uint8, error) {
	off, err := m.offset(b, addr)
	if err != nil {
		return 0, err
	}
	return m.mem[off], nil
}

func (m *Memory) read16(b *Bus, addr uint32) (uint16, error) {
	off, err := m.offset(b, addr)
	if err != nil {
		return 0, err
	}
	if off&1 != 0 {
		return 0, ErrAlignment
	}
	if off+2 <= m.size {
		return binary.BigEndian.Uint16(m.mem[off:]), nil
	}
	return uint16(m.byteAt(off))<<8 | uint16(m.byteAt(off+1)), nil
}

func (m *Memory) read32(b *Bus, addr uint32) (uint32, error) {
	off, err := m.offset(b, addr)
	if err != nil {
		return 0, err
	}
	if off&1 != 0 {
		return 0, ErrAlignment
	}
	if off+4 <= m.size {
		return binary.BigEndian.Uint32(m.mem[off:]), nil
	}
	return uint32(m.byteAt(off))<<24 | uint32(m.byteAt(off+1))<<16 |
		uint32(m.byteAt(off+2))<<8 | uint32(m.byteAt(off+3)), nil
}

func (m *Memory) write8(b *Bus, addr uint32, v uint8) error {
	off, err := m.offset(b, addr)
	if err != nil {
		return err
	}
	if m.readOnly {
		return ErrReadOnly
	}
	m.mem[off] = v
	return nil
}

func (m *Memory) write16(b *Bus, addr uint32, v uint16) error {
	off, err := m.offset(b, addr)
	if err != nil {
		return err
	}
	if off&1 != 0 {
		return ErrAlignment
	}
	if m.readOnly {
		return ErrReadOnly
	}
	if off+2 <= m.size {
		binary.BigEndian.PutUint16(m.mem[off:], v)
		return nil
	}
	m.mem[off%m.size] = byte(v >> 8)
	m.mem[(off+1)%m.size] = byte(v)
	return nil
}

func (m *Memory) write32(b *Bus, addr uint32, v uint32) error {
	off, err := m.offset(b, addr)
	if err != nil {
		return err
	}
	if off&1 != 0 {
		return ErrAlignment
	}
	if m.readOnly {
		return ErrReadOnly
	}
	if off+4 <= m.size {
		binary.BigEndian.PutUint32(m.mem[off:], v)
		return nil
	}
	for i := uint32(0); i < 4; i++ {
		m.mem[(off+i)%m.size] = byte(v >> (24 - 8*i))
	}
	return nil
}

// Reads of plain memory have no side effects, so the peek path is the
// read path.
func (m *Memory) peek8(b *Bus, addr uint32) (uint8, error)   { return m.read8(b, addr) }
func (m *Memory) peek16(b *Bus, addr uint32) (uint16, error) { return m.read16(b, addr) }
func (m *Memory) peek32(b *Bus, addr uint32) (uint32, error) { return m.read32(b, addr) }
