package bus

import "github.com/golang/glog"

// Register stubs for hardware the simulator does not model beyond its
// bus presence. They accept every access in their window so the boot
// ROM's probing doesn't trip bus errors.

// Video is the framebuffer control register block. Rendering is out
// of scope; accesses are logged no-ops.
type Video struct {
	nop
}

func (v *Video) read8(_ *Bus, addr uint32) (uint8, error) {
	glog.V(2).Infof("VIDEO(READ 8) addr=%08x", addr)
	return 0, nil
}

func (v *Video) read16(_ *Bus, addr uint32) (uint16, error) {
	glog.V(2).Infof("VIDEO(READ 16) addr=%08x", addr)
	return 0, nil
}

func (v *Video) read32(_ *Bus, addr uint32) (uint32, error) {
	glog.V(2).Infof("VIDEO(READ 32) addr=%08x", addr)
	return 0, nil
}

func (v *Video) write8(_ *Bus, addr uint32, val uint8) error {
	glog.V(2).Infof("VIDEO(WRITE 8) addr=%08x val=%02x", addr, val)
	return nil
}

func (v *Video) write16(_ *Bus, addr uint32, val uint16) error {
	glog.V(2).Infof("VIDEO(WRITE 16) addr=%08x val=%04x", addr, val)
	return nil
}

func (v *Video) write32(_ *Bus, addr uint32, val uint32) error {
	glog.V(2).Infof("VIDEO(WRITE 32) addr=%08x val=%08x", addr, val)
	return nil
}

// Mmu answers both its control window and the page-table window. With
// virtual memory not modeled it is a logged no-op.
type Mmu struct {
	nop
}

func (m *Mmu) read8(_ *Bus, addr uint32) (uint8, error) {
	glog.V(2).Infof("MMU(READ 8) addr=%08x", addr)
	return 0, nil
}

func (m *Mmu) read16(_ *Bus, addr uint32) (uint16, error) {
	glog.V(2).Infof("MMU(READ 16) addr=%08x", addr)
	return 0, nil
}

func (m *Mmu) read32(_ *Bus, addr uint32) (uint32, error) {
	glog.V(2).Infof("MMU(READ 32) addr=%08x", addr)
	return 0, nil
}

func (m *Mmu) write8(_ *Bus, addr uint32, val uint8) error {
	glog.V(2).Infof("MMU(WRITE 8) addr=%08x val=%02x", addr, val)
	return nil
}

func (m *Mmu) write16(_ *Bus, addr uint32, val uint16) error {
	glog.V(2).Infof("MMU(WRITE 16) addr=%08x val=%04x", addr, val)
	return nil
}

func (m *Mmu) write32(_ *Bus, addr uint32, val uint32) error {
	glog.V(2).Infof("MMU(WRITE 32) addr=%08x val=%08x", addr, val)
	return nil
}

// Fpu is the floating point accelerator board stub.
type Fpu struct {
	nop
}

// Mouse is the mouse interface stub.
type Mouse struct {
	nop
}

// Timer is the programmable timer stub.
type Timer struct {
	nop
}

// Calendar is the battery-backed calendar clock stub.
type Calendar struct {
	nop
}
