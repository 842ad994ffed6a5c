// internal/telemetry/schema_test.go
package telemetry

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/clinostat/internal/sensor"
	"github.com/tamzrod/clinostat/internal/state"
)

func TestMotionChunkRow(t *testing.T) {
	smp := Sample{Elapsed: 0.01, Values: []float64{0.1, -0.2, 9.807, 0, 1.75, -0.003}}

	row := MotionSchema.ChunkRow(smp)
	assert.Equal(t, []string{"0.01", "(0.1, -0.2, 9.807)", "(0, 1.75, -0.003)"}, row)

	back, err := MotionSchema.ParseChunkRow(row)
	require.NoError(t, err)
	assert.Equal(t, smp, back)
}

func TestParseChunkRow_Rejects(t *testing.T) {
	_, err := MotionSchema.ParseChunkRow([]string{"1", "(1, 2)", "(1, 2, 3)"})
	assert.Error(t, err)

	_, err = AmbientSchema.ParseChunkRow([]string{"1", "x", "2", "3"})
	assert.Error(t, err)

	_, err = AmbientSchema.ParseChunkRow([]string{"1", "2"})
	assert.Error(t, err)
}

func TestSchemaFor(t *testing.T) {
	s, err := SchemaFor(KindMotion)
	require.NoError(t, err)
	assert.Equal(t, KindMotion, s.Kind)

	_, err = SchemaFor("light")
	assert.Error(t, err)
}

func TestRecord(t *testing.T) {
	m := AmbientSchema.Record(Sample{Elapsed: 2, Values: []float64{21.5, 40, 1000}})
	assert.Equal(t, map[string]float64{
		"timestamp": 2, "temperature": 21.5, "humidity": 40, "pressure": 1000,
	}, m)
}

func TestMerge(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "motion_sensor_data_1_0001.csv")
	b := filepath.Join(dir, "motion_sensor_data_2_0002.csv")

	require.NoError(t, writeChunk(a, MotionSchema, []Sample{
		{Elapsed: 0, Values: []float64{1, 2, 3, 4, 5, 6}},
	}))
	require.NoError(t, writeChunk(b, MotionSchema, []Sample{
		{Elapsed: 0.01, Values: []float64{0, 0, 9.807, 0, 0, 0}},
	}))

	var buf bytes.Buffer
	n, err := Merge(&buf, MotionSchema, a, b)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t,
		"timestamp,x_acc,y_acc,z_acc,x_gyro,y_gyro,z_gyro\n"+
			"0,1,2,3,4,5,6\n"+
			"0.01,0,0,9.807,0,0,0\n",
		buf.String())

	_, err = Merge(&bytes.Buffer{}, AmbientSchema, a)
	assert.ErrorContains(t, err, "does not match the ambient schema")
}

// ---- readers ----

type fakeAmbient struct {
	r   sensor.Ambient
	err error
}

func (f fakeAmbient) Read() (sensor.Ambient, error) { return f.r, f.err }

type fakeMotion struct{ m sensor.Motion }

func (f fakeMotion) Read() (sensor.Motion, error) { return f.m, nil }

func TestAmbientReader_AppliesOffsets(t *testing.T) {
	rt := state.New()
	rt.SetOffsets(state.Offsets{Temperature: -0.5, Humidity: 1.25, Pressure: 0})

	r := AmbientReader{
		Sensor:  fakeAmbient{r: sensor.Ambient{Temperature: 25.08247, Humidity: 55.0007, Pressure: 1006.53258}},
		Offsets: rt,
	}
	got, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, []float64{24.582, 56.251, 1006.533}, got)

	rt.SetOffsets(state.Offsets{})
	got, err = r.Read()
	require.NoError(t, err)
	assert.Equal(t, 25.082, got[0])
}

func TestAmbientReader_PropagatesError(t *testing.T) {
	boom := errors.New("remote I/O error")
	_, err := AmbientReader{Sensor: fakeAmbient{err: boom}}.Read()
	assert.ErrorIs(t, err, boom)
}

func TestMotionReader_Rounds(t *testing.T) {
	r := MotionReader{Sensor: fakeMotion{m: sensor.Motion{
		Acceleration: [3]float64{-4.90289, 0, 9.80698},
		Gyro:         [3]float64{1.750129, 0, -0.00049},
	}}}
	got, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, []float64{-4.903, 0, 9.807, 1.75, 0, 0}, got)
}
