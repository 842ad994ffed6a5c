// internal/link/command.go
package link

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Bus is the addressed register bus the command frames travel over.
// One WriteBytes call is one bus transaction.
type Bus interface {
	WriteBytes(addr byte, value []byte) error
	Close() error
}

// DefaultSettle is the quiescence the controller needs after each frame.
const DefaultSettle = 100 * time.Millisecond

// CommandChannel owns the bus handle and serializes frames onto it.
// No retries: retry policy belongs to callers.
type CommandChannel struct {
	mu     sync.Mutex
	bus    Bus
	addr   byte
	settle time.Duration
	sleep  func(time.Duration)
	log    *zap.Logger
}

// CommandConfig is the minimal config the channel needs.
type CommandConfig struct {
	Address byte
	Settle  time.Duration
}

// NewCommandChannel takes ownership of bus.
func NewCommandChannel(bus Bus, cfg CommandConfig, log *zap.Logger) *CommandChannel {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Settle < 0 {
		cfg.Settle = 0
	}
	return &CommandChannel{
		bus:    bus,
		addr:   cfg.Address,
		settle: cfg.Settle,
		sleep:  time.Sleep,
		log:    log,
	}
}

// Send frames op+payload, writes it as one transaction, then waits out the
// settle delay while still holding the bus so the next frame cannot overrun
// the controller.
func (c *CommandChannel) Send(op Opcode, payload []byte) error {
	frame, err := BuildFrame(op, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.bus.WriteBytes(c.addr, frame); err != nil {
		c.log.Warn("bus write failed",
			zap.Stringer("opcode", op),
			zap.Error(err),
		)
		return newError("send "+op.String(), ErrTransport, err)
	}

	c.log.Debug("frame sent",
		zap.Stringer("opcode", op),
		zap.Binary("frame", frame),
	)

	if c.settle > 0 {
		c.sleep(c.settle)
	}
	return nil
}

// Close releases the bus.
func (c *CommandChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bus.Close()
}
