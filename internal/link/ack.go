// internal/link/ack.go
package link

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Handler consumes one validated message on the listener goroutine.
// Handlers must not block.
type Handler func(Message)

// DefaultEstablishWindow bounds how long the listener waits for the
// handshake response.
const DefaultEstablishWindow = 10 * time.Second

// maxLine bounds the reassembly buffer when the peer never sends a newline.
const maxLine = 1024

// AckChannel is the duplex text link: raw sends plus a listener that
// validates inbound lines and dispatches them by message type.
//
// Reads on port are expected to time out and return (0, nil) so the
// establishment window can be enforced between lines.
type AckChannel struct {
	port      io.ReadWriter
	establish time.Duration
	now       func() time.Time
	log       *zap.Logger

	writeMu sync.Mutex

	mu       sync.RWMutex
	handlers map[string]Handler

	established atomic.Bool
}

// AckConfig is the minimal config the channel needs.
type AckConfig struct {
	// EstablishWindow <= 0 disables the establishment timeout.
	EstablishWindow time.Duration
}

func NewAckChannel(port io.ReadWriter, cfg AckConfig, log *zap.Logger) *AckChannel {
	if log == nil {
		log = zap.NewNop()
	}
	return &AckChannel{
		port:      port,
		establish: cfg.EstablishWindow,
		now:       time.Now,
		log:       log,
		handlers:  make(map[string]Handler),
	}
}

// Handle registers h for msgType, replacing any previous handler.
func (a *AckChannel) Handle(msgType string, h Handler) {
	a.mu.Lock()
	a.handlers[msgType] = h
	a.mu.Unlock()
}

// Established reports whether the handshake response has been handled.
func (a *AckChannel) Established() bool {
	return a.established.Load()
}

// SendText writes command verbatim. No framing is added.
func (a *AckChannel) SendText(command string) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	b := []byte(command)
	for len(b) > 0 {
		n, err := a.port.Write(b)
		if err != nil {
			return newError("send text", ErrTransport, err)
		}
		b = b[n:]
	}
	return nil
}

// Listen reads newline-delimited lines until the port fails, ctx is done,
// or the establishment window elapses without a handshake response.
// Once the handshake response is handled the window no longer applies and
// the listener keeps serving every later message.
func (a *AckChannel) Listen(ctx context.Context) error {
	start := a.now()
	buf := make([]byte, 256)
	var pending []byte

	a.log.Info("serial listener started")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if a.establish > 0 && !a.Established() && a.now().Sub(start) >= a.establish {
			a.log.Error("serial connection not established",
				zap.Duration("window", a.establish),
			)
			return newError("listen", ErrNotEstablished, nil)
		}

		n, err := a.port.Read(buf)
		if n > 0 {
			pending = a.consume(append(pending, buf[:n]...))
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.log.Error("serial read failed", zap.Error(err))
			return newError("listen", ErrTransport, err)
		}
	}
}

// consume dispatches every complete line in data and returns the remainder.
func (a *AckChannel) consume(data []byte) []byte {
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := string(data[:i])
		data = data[i+1:]
		a.dispatch(line)
	}

	if len(data) > maxLine {
		a.log.Warn("discarding unterminated input", zap.Int("bytes", len(data)))
		return data[:0]
	}
	return data
}

func (a *AckChannel) dispatch(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	msg, err := ParseLine(line)
	if err != nil {
		// the body may carry credentials; log the type prefix only
		kind, _, _ := strings.Cut(line, ",")
		a.log.Warn("discarding inbound line",
			zap.String("type", kind),
			zap.Error(err),
		)
		return
	}

	a.mu.RLock()
	h := a.handlers[msg.Type]
	a.mu.RUnlock()

	if h == nil {
		a.log.Info("no handler for message", zap.String("type", msg.Type))
		return
	}

	h(msg)

	if msg.Type == TypeHandshakeResponse && !a.established.Swap(true) {
		a.log.Info("serial connection established")
	}
}
