// internal/telemetry/sampler.go
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/clinostat/internal/status"
)

// State is the sampler lifecycle.
type State int

const (
	Idle State = iota
	Sampling
	Faulted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sampling:
		return "sampling"
	case Faulted:
		return "faulted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	DefaultMaxRetries = 10
	DefaultRetryDelay = time.Second
)

var ErrAlreadySampling = errors.New("telemetry: already sampling")

// Config is the minimal runtime config a sampler needs.
type Config struct {
	Period           time.Duration
	RecentCapacity   int
	ArchivedCapacity int
	MaxRetries       int
	RetryDelay       time.Duration
	ChunkDir         string

	// MinFreeBytes refuses to start a session while ChunkDir's file
	// system has less space than this. Zero disables the check.
	MinFreeBytes uint64
}

// Sampler polls one sensor on a fixed schedule into bounded windows.
//
// Samples evicted from the recent window collect in the archive window;
// a full archive window is detached under the lock and written to a chunk
// file in the background. Export stitches chunks, archive and recent back
// together.
type Sampler struct {
	cfg    Config
	schema Schema
	open   Opener
	notify Notifier
	clock  Clock
	free   FreeSpaceFunc
	log    *zap.Logger

	mu       sync.Mutex
	state    State
	health   status.Health
	failures int
	lastErr  error
	recent   *window
	archived []Sample
	chunks   []*chunk
	seq      int
	cancel   context.CancelFunc
	done     chan struct{}
}

// Option customizes a Sampler.
type Option func(*Sampler)

func WithClock(c Clock) Option { return func(s *Sampler) { s.clock = c } }

func WithNotifier(n Notifier) Option {
	return func(s *Sampler) {
		if n != nil {
			s.notify = n
		}
	}
}

func WithFreeSpace(f FreeSpaceFunc) Option {
	return func(s *Sampler) {
		if f != nil {
			s.free = f
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Sampler) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates an idle sampler with immutable config.
func New(cfg Config, schema Schema, open Opener, opts ...Option) (*Sampler, error) {
	if cfg.Period <= 0 {
		return nil, errors.New("telemetry: period must be > 0")
	}
	if cfg.RecentCapacity < 1 || cfg.ArchivedCapacity < 1 {
		return nil, errors.New("telemetry: window capacities must be >= 1")
	}
	if cfg.ChunkDir == "" {
		return nil, errors.New("telemetry: chunk dir required")
	}
	if open == nil {
		return nil, errors.New("telemetry: sensor opener required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	s := &Sampler{
		cfg:    cfg,
		schema: schema,
		open:   open,
		notify: nopNotifier{},
		clock:  SystemClock,
		free:   FreeSpace,
		log:    zap.NewNop(),
		recent: newWindow(cfg.RecentCapacity),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With(zap.String("kind", string(schema.Kind)))
	return s, nil
}

func (s *Sampler) Kind() Kind     { return s.schema.Kind }
func (s *Sampler) Schema() Schema { return s.schema }

// ---- LIFECYCLE ----

// Start opens the sensor, clears every window and chunk of the previous
// session and begins sampling. Faulted samplers restart here too.
func (s *Sampler) Start() error {
	// a faulted run exits on its own; make sure it has before reusing
	// the windows
	s.mu.Lock()
	if s.state == Sampling {
		s.mu.Unlock()
		return ErrAlreadySampling
	}
	prev := s.done
	s.mu.Unlock()
	if prev != nil {
		<-prev
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Sampling {
		return ErrAlreadySampling
	}

	reader, err := s.open()
	if err != nil {
		s.log.Warn("sensor not connected", zap.Error(err))
		return fmt.Errorf("telemetry: %s sensor: %w", s.schema.Kind, err)
	}

	if err := os.MkdirAll(s.cfg.ChunkDir, 0o755); err != nil {
		return fmt.Errorf("telemetry: chunk dir: %w", err)
	}
	if err := s.checkStorage(); err != nil {
		s.lastErr = err
		return err
	}
	s.purgeChunks()

	s.recent.reset()
	s.archived = make([]Sample, 0, s.cfg.ArchivedCapacity)
	s.chunks = nil
	s.failures = 0
	s.lastErr = nil
	s.state = Sampling
	s.health = status.HealthOK

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	start := s.clock.Now()
	go s.run(ctx, reader, start, s.done)

	s.log.Info("sampling started", zap.Duration("period", s.cfg.Period))
	return nil
}

// Stop ends the session and returns once the loop and its chunk flushes
// have finished. Stopping an idle or faulted sampler is a no-op.
func (s *Sampler) Stop() {
	s.mu.Lock()
	if s.state != Sampling {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// Toggle stops a running sampler or starts a stopped one. It reports
// whether the sampler is running afterwards.
func (s *Sampler) Toggle() (bool, error) {
	if s.State() == Sampling {
		s.Stop()
		return false, nil
	}
	if err := s.Start(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Sampler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ---- LOOP ----

func (s *Sampler) run(ctx context.Context, r Reader, start time.Time, done chan struct{}) {
	var flushes sync.WaitGroup
	defer close(done)
	defer flushes.Wait()

	next := start
	failures := 0

	for {
		now := s.clock.Now()
		values, err := r.Read()
		if ctx.Err() != nil {
			s.finish(Idle, nil)
			return
		}
		if err == nil && len(values) != len(s.schema.Fields) {
			err = fmt.Errorf("telemetry: %s reader returned %d values, want %d",
				s.schema.Kind, len(values), len(s.schema.Fields))
		}

		if err != nil {
			failures++
			s.setFailures(failures, err)

			if failures >= s.cfg.MaxRetries {
				s.log.Error("sensor faulted",
					zap.Int("failures", failures),
					zap.Error(err),
				)
				s.finish(Faulted, err)
				s.notify.SensorFaulted(s.schema.Kind, err)
				return
			}

			s.log.Warn("sensor read failed, retrying",
				zap.Int("attempt", failures),
				zap.Int("max", s.cfg.MaxRetries),
				zap.Error(err),
			)
			if s.clock.Sleep(ctx, s.cfg.RetryDelay) != nil {
				s.finish(Idle, nil)
				return
			}
			continue
		}

		smp := Sample{Elapsed: round3(now.Sub(start).Seconds()), Values: values}
		if c, batch := s.append(smp); c != nil {
			flushes.Add(1)
			go func() {
				defer flushes.Done()
				s.flush(c, batch)
			}()
		}
		s.notify.SampleAdded(s.schema.Kind, smp)

		failures = 0
		s.setFailures(0, nil)

		next = next.Add(s.cfg.Period)
		if now := s.clock.Now(); next.Before(now) {
			next = now
		}
		if s.clock.Sleep(ctx, next.Sub(s.clock.Now())) != nil {
			s.finish(Idle, nil)
			return
		}
	}
}

// append stores smp and, when the archive window fills, detaches it and
// registers the chunk it will be written to.
func (s *Sampler) append(smp Sample) (*chunk, []Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted, ok := s.recent.push(smp)
	if !ok {
		return nil, nil
	}
	s.archived = append(s.archived, evicted)
	if len(s.archived) < s.cfg.ArchivedCapacity {
		return nil, nil
	}

	batch := s.archived
	s.archived = make([]Sample, 0, s.cfg.ArchivedCapacity)

	s.seq++
	c := newChunk(s.chunkPath(s.seq))
	s.chunks = append(s.chunks, c)
	return c, batch
}

func (s *Sampler) setFailures(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = n
	if err != nil {
		s.lastErr = err
		s.health = status.HealthStale
	} else {
		s.health = status.HealthOK
	}
}

func (s *Sampler) finish(st State, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = st
	s.cancel = nil
	switch st {
	case Faulted:
		s.lastErr = err
		s.health = status.HealthError
	default:
		s.health = status.HealthDisabled
		s.log.Info("sampling stopped")
	}
}

// ---- READ SIDE ----

// Recent copies the recent window, oldest first.
func (s *Sampler) Recent() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recent.items()
}

// Latest returns the newest sample, if any.
func (s *Sampler) Latest() (Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recent.last()
}

// Archived copies the archive window.
func (s *Sampler) Archived() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sample(nil), s.archived...)
}

// Chunks lists chunk files produced this session, in creation order.
func (s *Sampler) Chunks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.chunks))
	for i, c := range s.chunks {
		out[i] = c.path
	}
	return out
}

func (s *Sampler) Status() status.Snapshot {
	free, freeErr := s.free(s.cfg.ChunkDir)

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := status.Snapshot{
		Kind:                string(s.schema.Kind),
		State:               s.state.String(),
		Health:              s.health,
		ConsecutiveFailures: s.failures,
		Recent:              s.recent.len(),
		Archived:            len(s.archived),
		Chunks:              len(s.chunks),
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	if freeErr == nil {
		snap.FreeBytes = free
		snap.LowStorage = s.cfg.MinFreeBytes > 0 && free < s.cfg.MinFreeBytes
	}
	return snap
}
