// internal/link/message.go
package link

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tamzrod/clinostat/internal/crc"
)

// Message types exchanged on the serial link.
const (
	TypeHandshake         = "HANDSHAKE"
	TypeHandshakeResponse = "HANDSHAKE_RESPONSE"
)

const crcField = "CRC="

// Message is one validated inbound line.
// Body is everything before the trailing CRC field, verbatim.
type Message struct {
	Type   string
	Body   string
	Fields map[string]string
}

// Field returns a key=value field from the body.
func (m Message) Field(key string) (string, bool) {
	v, ok := m.Fields[key]
	return v, ok
}

// Seal appends ",CRC=XXXX" computed over body.
func Seal(body string) string {
	return fmt.Sprintf("%s,%s%04X", body, crcField, crc.Checksum([]byte(body)))
}

// ParseLine splits off the trailing CRC field, validates it against every
// preceding byte and decodes the remaining fields.
func ParseLine(line string) (Message, error) {
	line = strings.TrimSpace(line)

	i := strings.LastIndexByte(line, ',')
	if i <= 0 {
		return Message{}, newError("parse", ErrMalformed, fmt.Errorf("no checksum field in %q", line))
	}
	body, tail := line[:i], line[i+1:]

	hex, ok := strings.CutPrefix(tail, crcField)
	if !ok {
		return Message{}, newError("parse", ErrMalformed, fmt.Errorf("trailing field %q is not a checksum", tail))
	}
	sum, err := strconv.ParseUint(hex, 16, 16)
	if err != nil {
		return Message{}, newError("parse", ErrMalformed, fmt.Errorf("checksum %q: %w", hex, err))
	}

	if want := crc.Checksum([]byte(body)); want != uint16(sum) {
		return Message{}, newError("parse", ErrChecksum, fmt.Errorf("got %04X want %04X", sum, want))
	}

	parts := strings.Split(body, ",")
	if parts[0] == "" {
		return Message{}, newError("parse", ErrMalformed, fmt.Errorf("empty message type"))
	}

	msg := Message{
		Type:   parts[0],
		Body:   body,
		Fields: make(map[string]string, len(parts)-1),
	}
	for _, p := range parts[1:] {
		k, v, found := strings.Cut(p, "=")
		if !found {
			continue
		}
		msg.Fields[k] = v
	}
	return msg, nil
}
