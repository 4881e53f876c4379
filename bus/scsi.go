package bus

import (
	"time"

	"github.com/golang/glog"

	"tek4404/service"
)

// NCR 5385-style SCSI host adapter. Commands written to the command
// register start a handshake; the "interrupt happens some time after
// the command" timing of the real chip is reproduced by scheduling a
// deferred service call instead of completing inline.

// hostID is the hardwired SCSI ID of the host controller.
const hostID = 7

// scsiInt is the controller's CPU interrupt level.
const scsiInt = 3

// Aux status flags. MSG, C/D and I/O together encode the current bus
// phase.
const (
	auxIO  uint8 = 0x08 // Input/Output
	auxCD  uint8 = 0x10 // Command/Data
	auxMSG uint8 = 0x20 // Message
	auxDF  uint8 = 0x80 // Data register full
)

// Interrupt flags. OR-accumulated, cleared when the interrupt
// register is read.
const (
	intFC  uint8 = 0x01 // Function Complete
	intBus uint8 = 0x02 // Bus Service
)

// Register addresses. The address latch has its own window; the rest
// of the register file sits at 0x7be000.
const (
	scsiRegAddress  = 0x7bc000
	scsiRegData1    = 0x7be000
	scsiRegCommand  = 0x7be002
	scsiRegControl  = 0x7be004
	scsiRegDestID   = 0x7be006
	scsiRegAuxStat  = 0x7be008
	scsiRegID       = 0x7be00a
	scsiRegIntr     = 0x7be00c
	scsiRegSourceID = 0x7be00e
	scsiRegData2    = 0x7be010
	scsiRegDiagStat = 0x7be012
	scsiRegXfer2    = 0x7be018
	scsiRegXfer1    = 0x7be01a
	scsiRegXfer0    = 0x7be01c
)

// scsiOp is the 5-bit primary opcode of a controller command.
type scsiOp uint8

const (
	// Immediate commands
	opChipReset       scsiOp = 0
	opDisconnect      scsiOp = 1
	opPaused          scsiOp = 2
	opSetAtn          scsiOp = 3
	opMessageAccepted scsiOp = 4
	opChipDisable     scsiOp = 5

	// Interrupt driven commands
	opSelectWithAtn    scsiOp = 8
	opSelectWithoutAtn scsiOp = 9
	opReselect         scsiOp = 10
	opDiagnostic       scsiOp = 11
	opRxCmd            scsiOp = 12
	opRxData           scsiOp = 13
	opRxMessageOut     scsiOp = 14
	opRxUnspInfoOut    scsiOp = 15
	opTxStatus         scsiOp = 16
	opTxData           scsiOp = 17
	opTxMessageOut     scsiOp = 18
	opTxUnspInfoIn     scsiOp = 19
	opTransferInfo     scsiOp = 20
	opTransferPad      scsiOp = 21
)

var scsiOpNames = map[scsiOp]string{
	opChipReset:        "ChipReset",
	opDisconnect:       "Disconnect",
	opPaused:           "Paused",
	opSetAtn:           "SetAtn",
	opMessageAccepted:  "MessageAccepted",
	opChipDisable:      "ChipDisable",
	opSelectWithAtn:    "SelectWithAtn",
	opSelectWithoutAtn: "SelectWithoutAtn",
	opReselect:         "Reselect",
	opDiagnostic:       "Diagnostic",
	opRxCmd:            "RxCmd",
	opRxData:           "RxData",
	opRxMessageOut:     "RxMessageOut",
	opRxUnspInfoOut:    "RxUnspInfoOut",
	opTxStatus:         "TxStatus",
	opTxData:           "TxData",
	opTxMessageOut:     "TxMessageOut",
	opTxUnspInfoIn:     "TxUnspInfoIn",
	opTransferInfo:     "TransferInfo",
	opTransferPad:      "TransferPad",
}

func (o scsiOp) String() string {
	if name, ok := scsiOpNames[o]; ok {
		return name
	}
	return "Unknown"
}

// targetState tracks where each of the eight bus IDs stands in the
// selection handshake.
type targetState int

const (
	targetUnselected targetState = iota
	targetSelected
	targetCommand
	targetDataOut
)

func (s targetState) String() string {
	switch s {
	case targetUnselected:
		return "Unselected"
	case targetSelected:
		return "Selected"
	case targetCommand:
		return "Command"
	case targetDataOut:
		return "DataOut"
	default:
		return "Invalid"
	}
}

type controllerState int

const (
	controllerDisconnected controllerState = iota
	controllerTarget
	controllerInitiator
)

// Scsi is the host adapter register file and state machine.
type Scsi struct {
	nop

	address    uint16
	addressMSB bool
	data1      uint8
	command    uint8
	control    uint8
	destID     uint8
	auxStat    uint8
	id         uint8
	interrupt  uint8
	sourceID   uint8
	data2      uint8
	diagStat   uint8
	xfer       uint32
	cmdPtr     int
	state      controllerState
	scsiCmd    [16]uint8
	atn        bool
	targets    [8]targetState
}

// NewScsi returns a controller in its power-on state.
func NewScsi() *Scsi {
	return &Scsi{id: hostID}
}

// reset reinitializes every register to its documented power-on value
// and deselects all targets. Any service request still queued will
// find the targets Unselected and do nothing.
func (s *Scsi) reset() {
	glog.V(1).Info("SCSI: COMMAND RESET")

	s.address = 0
	s.addressMSB = false
	s.data1 = 0
	s.command = 0
	s.control = 0
	s.destID = 0
	s.auxStat = 0x02 // From datasheet
	s.id = hostID
	s.interrupt = 0
	s.sourceID = 0x07 // From datasheet
	s.data2 = 0
	s.diagStat = 0x80 // From datasheet
	s.xfer = 0
	s.cmdPtr = 0
	s.scsiCmd = [16]uint8{}
	s.state = controllerDisconnected
	s.atn = false

	for i := range s.targets {
		s.targets[i] = targetUnselected
	}
}

func (s *Scsi) disconnect() {
	glog.V(1).Info("SCSI: COMMAND DISCONNECT. Probably ignoring.")
}

// selectTarget starts the selection handshake with the destination
// ID. The completion interrupt arrives via the service queue.
func (s *Scsi) selectTarget(b *Bus, atn bool) {
	glog.V(1).Infof("SCSI: COMMAND SELECT. atn=%v", atn)
	s.state = controllerInitiator
	s.atn = atn

	s.targets[s.destID&0x7] = targetSelected

	s.interrupt |= intFC
	s.auxStat = auxCD          // I/O=0, C/D=1, MSG=0 == Command
	s.sourceID = 0x80 | s.destID // Bit 7: valid ID from destination

	b.Queue.Schedule(service.Scsi, 250*time.Millisecond)
	b.IRQ(scsiInt)
}

func (s *Scsi) transferInfo(b *Bus) {
	glog.V(1).Info("SCSI: COMMAND TRANSFER INFO")
	s.cmdPtr = 0
	b.Queue.Schedule(service.Scsi, 100*time.Millisecond)
}

func (s *Scsi) transferPad() {
	glog.V(1).Info("SCSI: COMMAND TRANSFER PAD")
}

// handleCommand decodes a command register write: a 5-bit opcode plus
// the DMA-mode and single-byte-transfer bits. Unknown opcodes are
// logged and ignored; real silicon doesn't trap on them either.
func (s *Scsi) handleCommand(b *Bus, command uint8) {
	dmaMode := command&0x80 != 0
	sbt := command&0x40 != 0
	op := scsiOp(command & 0x1f)

	glog.V(1).Infof("SCSI: Handle Command: DMA_MODE=%v, SBT=%v, CMD=%v", dmaMode, sbt, op)

	switch op {
	case opChipReset:
		s.reset()
	case opDisconnect:
		s.disconnect()
	case opSelectWithoutAtn:
		s.selectTarget(b, false)
	case opSelectWithAtn:
		s.selectTarget(b, true)
	case opTransferInfo:
		s.transferInfo(b)
	case opTransferPad:
		s.transferPad()
	default:
		glog.V(1).Infof("SCSI: Command %v (%02x) not handled", op, command)
	}
}

func (s *Scsi) read8(_ *Bus, addr uint32) (uint8, error) {
	switch addr {
	case scsiRegData1:
		glog.V(2).Infof("SCSI(READ) DATA1: %02x", s.data1)
		s.auxStat &^= auxDF
		return s.data1, nil
	case scsiRegCommand:
		glog.V(2).Infof("SCSI(READ) COMMAND: %02x", s.command)
		return s.command, nil
	case scsiRegControl:
		glog.V(2).Infof("SCSI(READ) CONTROL: %02x", s.control)
		return s.control, nil
	case scsiRegDestID:
		glog.V(2).Infof("SCSI(READ) DEST_ID: %d", s.destID)
		return s.destID, nil
	case scsiRegAuxStat:
		glog.V(2).Infof("SCSI(READ) AUX_STAT: %02x", s.auxStat)
		return s.auxStat, nil
	case scsiRegID:
		glog.V(2).Infof("SCSI(READ) ID: %d", s.id)
		return s.id, nil
	case scsiRegIntr:
		// Accumulated interrupt flags clear on read.
		v := s.interrupt
		s.interrupt = 0
		glog.V(2).Infof("SCSI(READ) INTERRUPT: %02x", v)
		return v, nil
	case scsiRegSourceID:
		glog.V(2).Infof("SCSI(READ) SOURCE_ID: %d", s.sourceID)
		return s.sourceID, nil
	case scsiRegData2:
		glog.V(2).Infof("SCSI(READ) DATA2: %02x", s.data2)
		return s.data2, nil
	case scsiRegDiagStat:
		glog.V(2).Infof("SCSI(READ) DIAG_STATUS: %02x", s.diagStat)
		return s.diagStat, nil
	case scsiRegXfer2:
		glog.V(2).Infof("SCSI(READ) XFER2: %02x (xfer=%06x)", uint8(s.xfer>>16), s.xfer)
		return uint8(s.xfer >> 16), nil
	case scsiRegXfer1:
		glog.V(2).Infof("SCSI(READ) XFER1: %02x (xfer=%06x)", uint8(s.xfer>>8), s.xfer)
		return uint8(s.xfer >> 8), nil
	case scsiRegXfer0:
		glog.V(2).Infof("SCSI(READ) XFER0: %02x (xfer=%06x)", uint8(s.xfer), s.xfer)
		return uint8(s.xfer), nil
	default:
		glog.V(2).Infof("SCSI(READ) Unhandled. addr=%08x", addr)
		return 0, nil
	}
}

func (s *Scsi) write8(b *Bus, addr uint32, v uint8) error {
	switch addr {
	case scsiRegAddress:
		// Writes are LSB first, then MSB.
		if s.addressMSB {
			s.address = s.address&0x00ff | uint16(v)<<8
			s.addressMSB = false
		} else {
			s.address = s.address&0xff00 | uint16(v)
			s.addressMSB = true
		}
		glog.V(2).Infof("SCSI(WRITE) ADDRESS = %02x (address now is: %04x)", v, s.address)
	case scsiRegData1:
		glog.V(2).Infof("SCSI(WRITE) CMD[%02d] = %02x", s.cmdPtr, v)
		if s.cmdPtr < len(s.scsiCmd) {
			s.scsiCmd[s.cmdPtr] = v
			s.cmdPtr++
		}
	case scsiRegCommand:
		glog.V(2).Infof("SCSI(WRITE) COMMAND = %02x", v)
		s.command = v
		s.cmdPtr = 0
		s.handleCommand(b, v)
	case scsiRegControl:
		glog.V(2).Infof("SCSI(WRITE) CONTROL: Parity=%v, Reselect=%v, Select=%v",
			v&0x4 != 0, v&0x2 != 0, v&0x1 != 0)
		s.control = v
	case scsiRegDestID:
		glog.V(2).Infof("SCSI(WRITE) DEST_ID = %02x", v)
		s.destID = v
	case scsiRegID:
		glog.V(2).Infof("SCSI(WRITE) ID = %02x (ignored, host ID is hardwired)", v)
	case scsiRegXfer2:
		s.xfer = s.xfer&0x00ffff | uint32(v)<<16
		glog.V(2).Infof("SCSI(WRITE) XFER2 = %02x (xfer=%06x)", v, s.xfer)
	case scsiRegXfer1:
		s.xfer = s.xfer&0xff00ff | uint32(v)<<8
		glog.V(2).Infof("SCSI(WRITE) XFER1 = %02x (xfer=%06x)", v, s.xfer)
	case scsiRegXfer0:
		s.xfer = s.xfer&0xffff00 | uint32(v)
		glog.V(2).Infof("SCSI(WRITE) XFER0 = %02x (xfer=%06x)", v, s.xfer)
	default:
		glog.V(2).Infof("SCSI(WRITE 8) addr=%08x val=%02x", addr, v)
	}
	return nil
}

// peek8 reads registers without clearing the data-full or interrupt
// flags.
func (s *Scsi) peek8(_ *Bus, addr uint32) (uint8, error) {
	switch addr {
	case scsiRegData1:
		return s.data1, nil
	case scsiRegCommand:
		return s.command, nil
	case scsiRegControl:
		return s.control, nil
	case scsiRegDestID:
		return s.destID, nil
	case scsiRegAuxStat:
		return s.auxStat, nil
	case scsiRegID:
		return s.id, nil
	case scsiRegIntr:
		return s.interrupt, nil
	case scsiRegSourceID:
		return s.sourceID, nil
	case scsiRegData2:
		return s.data2, nil
	case scsiRegDiagStat:
		return s.diagStat, nil
	case scsiRegXfer2:
		return uint8(s.xfer >> 16), nil
	case scsiRegXfer1:
		return uint8(s.xfer >> 8), nil
	case scsiRegXfer0:
		return uint8(s.xfer), nil
	default:
		return 0, nil
	}
}

// service advances the selected target's state machine. Invoked only
// from the scheduler drain, never directly from a register write.
// Every transition ends by signaling the controller's interrupt line.
func (s *Scsi) service(b *Bus) {
	id := s.destID & 0x7
	cur := s.targets[id]
	glog.V(1).Infof("SCSI: servicing controller, target ID=%d state=%v", id, cur)

	switch cur {
	case targetSelected:
		glog.V(1).Infof("SCSI: [service] Selected -> Command (dest_id=%d)", s.destID)
		s.interrupt |= intBus
		s.auxStat = auxCD // Command phase, initiator to target
		s.targets[id] = targetCommand
		b.IRQ(scsiInt)
	case targetCommand:
		glog.V(1).Infof("SCSI: [service] Command -> Data/Status (dest_id=%d)", s.destID)
		glog.V(1).Infof("SCSI: [service] cmd_ptr=%d cmd=% 02x", s.cmdPtr, s.scsiCmd[:6])

		s.data1 = 0
		s.interrupt |= intBus | intFC

		if s.auxStat&(auxMSG|auxCD|auxIO) == auxCD|auxIO {
			// Status -> Data In
			s.auxStat = auxDF | auxIO
		} else {
			// Data In -> Status
			s.auxStat = auxDF | auxCD | auxIO
		}
		b.IRQ(scsiInt)
	case targetDataOut:
		glog.V(1).Infof("SCSI: [service] Data Out (dest_id=%d)", s.destID)
		s.interrupt |= intBus | intFC
		s.auxStat = auxDF
		b.IRQ(scsiInt)
	default:
		// A reset got here first; nothing to do.
		glog.V(1).Infof("SCSI: [service] unhandled state %v (dest_id=%d)", cur, s.destID)
	}
}
