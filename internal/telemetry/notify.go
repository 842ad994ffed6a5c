// internal/telemetry/notify.go
package telemetry

// Notifier hears about sampler progress. Calls happen on the sampler
// goroutine and must not block.
type Notifier interface {
	SampleAdded(kind Kind, s Sample)
	SensorFaulted(kind Kind, err error)
}

// Notifiers fans out to every member.
type Notifiers []Notifier

func (ns Notifiers) SampleAdded(kind Kind, s Sample) {
	for _, n := range ns {
		n.SampleAdded(kind, s)
	}
}

func (ns Notifiers) SensorFaulted(kind Kind, err error) {
	for _, n := range ns {
		n.SensorFaulted(kind, err)
	}
}

type nopNotifier struct{}

func (nopNotifier) SampleAdded(Kind, Sample)  {}
func (nopNotifier) SensorFaulted(Kind, error) {}
