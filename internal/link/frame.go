// internal/link/frame.go
package link

import (
	"fmt"

	"github.com/tamzrod/clinostat/internal/crc"
)

// Frame layout (protocol-locked):
//
//	[SYNC][LEN][OPCODE][PAYLOAD...][CRC_HI][CRC_LO]
//
// LEN counts OPCODE + PAYLOAD. CRC covers everything before it.
const (
	SyncByte byte = 0xFF

	// MaxPayload keeps LEN within one byte.
	MaxPayload = 254
)

// Opcode is the command byte understood by the satellite controller.
type Opcode byte

const (
	OpReset     Opcode = 0x00
	OpSetMotors Opcode = 0x01
	OpLEDRange  Opcode = 0x02
	OpLEDReplay Opcode = 0x03
	OpLEDShow   Opcode = 0x04
	OpBeep      Opcode = 0x05
)

func (o Opcode) String() string {
	switch o {
	case OpReset:
		return "reset"
	case OpSetMotors:
		return "set-motors"
	case OpLEDRange:
		return "led-range"
	case OpLEDReplay:
		return "led-replay"
	case OpLEDShow:
		return "led-show"
	case OpBeep:
		return "beep"
	default:
		return fmt.Sprintf("opcode(0x%02X)", byte(o))
	}
}

// BuildFrame encodes one command frame.
// Oversized payloads are rejected and never transmitted.
func BuildFrame(op Opcode, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, newError("build frame", ErrFraming,
			fmt.Errorf("payload %d bytes exceeds %d", len(payload), MaxPayload))
	}

	frame := make([]byte, 0, 3+len(payload)+2)
	frame = append(frame, SyncByte, byte(len(payload)+1), byte(op))
	frame = append(frame, payload...)

	return crc.Append(frame), nil
}
