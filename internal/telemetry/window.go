// internal/telemetry/window.go
package telemetry

// window is a fixed-capacity FIFO of the newest samples.
type window struct {
	buf   []Sample
	start int
	n     int
}

func newWindow(capacity int) *window {
	return &window{buf: make([]Sample, capacity)}
}

// push appends s. When full, the oldest sample is returned as evicted.
func (w *window) push(s Sample) (evicted Sample, ok bool) {
	if len(w.buf) == 0 {
		return s, true
	}
	if w.n < len(w.buf) {
		w.buf[(w.start+w.n)%len(w.buf)] = s
		w.n++
		return Sample{}, false
	}

	evicted = w.buf[w.start]
	w.buf[w.start] = s
	w.start = (w.start + 1) % len(w.buf)
	return evicted, true
}

func (w *window) len() int { return w.n }

// items copies the contents oldest first.
func (w *window) items() []Sample {
	out := make([]Sample, w.n)
	for i := range out {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}

func (w *window) last() (Sample, bool) {
	if w.n == 0 {
		return Sample{}, false
	}
	return w.buf[(w.start+w.n-1)%len(w.buf)], true
}

func (w *window) reset() {
	clear(w.buf)
	w.start, w.n = 0, 0
}
