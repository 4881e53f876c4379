package bus

import "github.com/golang/glog"

// Sound is the sound generator trigger. It is write-only; reads
// produce no meaningful result. The first write also clears the boot
// ROM latch, after which low memory resolves to RAM for the rest of
// the session. Redundant writes are harmless.
type Sound struct {
	nop
}

func (s *Sound) latch(b *Bus) {
	if b.MapROM {
		glog.V(1).Info("sound write: boot ROM unmapped, low memory is now RAM")
		b.MapROM = false
	}
}

func (s *Sound) write8(b *Bus, _ uint32, v uint8) error {
	s.latch(b)
	glog.V(1).Infof("SOUND WRITE: data=%02x", v)
	return nil
}

func (s *Sound) write16(b *Bus, _ uint32, v uint16) error {
	s.latch(b)
	glog.V(1).Infof("SOUND WRITE: data=%04x", v)
	return nil
}

func (s *Sound) write32(b *Bus, _ uint32, v uint32) error {
	s.latch(b)
	glog.V(1).Infof("SOUND WRITE: data=%08x", v)
	return nil
}
