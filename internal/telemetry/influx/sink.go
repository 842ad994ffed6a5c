// internal/telemetry/influx/sink.go
package influx

import (
	"errors"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"

	"github.com/tamzrod/clinostat/internal/telemetry"
)

// Config locates the bucket samples are mirrored into.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string

	// Tags are added to every point, e.g. the device name.
	Tags map[string]string
}

// pointWriter is the slice of api.WriteAPI the sink uses.
type pointWriter interface {
	WritePoint(p *write.Point)
}

// Sink mirrors samples and faults into InfluxDB. It is a
// telemetry.Notifier; writes are batched by the client and never block
// the sampler.
type Sink struct {
	w    pointWriter
	tags map[string]string
	now  func() time.Time
	log  *zap.Logger
}

func newSink(w pointWriter, tags map[string]string, log *zap.Logger) *Sink {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sink{w: w, tags: tags, now: time.Now, log: log}
}

// Open connects the non-blocking write API. The returned close func
// flushes pending points and releases the client.
func Open(cfg Config, log *zap.Logger) (*Sink, func(), error) {
	if cfg.URL == "" || cfg.Bucket == "" {
		return nil, nil, errors.New("influx: url and bucket required")
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	api := client.WriteAPI(cfg.Org, cfg.Bucket)

	s := newSink(api, cfg.Tags, log)

	go func() {
		for err := range api.Errors() {
			s.log.Warn("influx write failed", zap.Error(err))
		}
	}()

	closer := func() {
		api.Flush()
		client.Close()
	}
	return s, closer, nil
}

func (s *Sink) SampleAdded(kind telemetry.Kind, smp telemetry.Sample) {
	schema, err := telemetry.SchemaFor(kind)
	if err != nil {
		return
	}

	fields := make(map[string]interface{}, len(schema.Fields)+1)
	fields["elapsed_seconds"] = smp.Elapsed
	for i, name := range schema.Fields {
		if i < len(smp.Values) {
			fields[name] = smp.Values[i]
		}
	}

	s.w.WritePoint(influxdb2.NewPoint(string(kind), s.tags, fields, s.now()))
}

func (s *Sink) SensorFaulted(kind telemetry.Kind, err error) {
	tags := make(map[string]string, len(s.tags)+1)
	for k, v := range s.tags {
		tags[k] = v
	}
	tags["kind"] = string(kind)

	s.w.WritePoint(influxdb2.NewPoint("sensor_fault", tags,
		map[string]interface{}{"error": err.Error()}, s.now()))
}
