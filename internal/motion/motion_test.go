// internal/motion/motion_test.go
package motion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var drive = Settings{
	MotorSteps:           200,
	GearRatio:            1,
	MicrosteppingOptions: []int{1, 2, 4, 8, 16},
}

func TestCalculate(t *testing.T) {
	cases := []struct {
		rpm   float64
		sps   float64
		micro int
	}{
		{120, 400, 1},
		{60, 400, 2},
		{300, 1000, 1},
		{200, 666.667, 1},
		{10, 533.333, 16},
	}

	for _, tc := range cases {
		got, err := Calculate(tc.rpm, drive)
		require.NoError(t, err, "rpm %v", tc.rpm)
		assert.Equal(t, tc.sps, got.StepsPerSecond, "rpm %v", tc.rpm)
		assert.Equal(t, tc.micro, got.Microstepping, "rpm %v", tc.rpm)
	}
}

func TestCalculate_GearRatio(t *testing.T) {
	s := drive
	s.GearRatio = 2.5

	got, err := Calculate(24, s)
	require.NoError(t, err)
	assert.Equal(t, 400.0, got.StepsPerSecond)
	assert.Equal(t, 2, got.Microstepping)
}

func TestCalculate_ZeroStops(t *testing.T) {
	got, err := Calculate(0, drive)
	require.NoError(t, err)
	assert.Equal(t, Speed{StepsPerSecond: 0, Microstepping: 1}, got)
}

func TestCalculate_OutOfRange(t *testing.T) {
	_, err := Calculate(1, drive)
	assert.ErrorIs(t, err, ErrSpeedOutOfRange)

	_, err = Calculate(400, drive)
	assert.ErrorIs(t, err, ErrSpeedOutOfRange)
}

func TestCalculate_NoOptions(t *testing.T) {
	_, err := Calculate(10, Settings{MotorSteps: 200, GearRatio: 1})
	assert.Error(t, err)
}

func TestRound3(t *testing.T) {
	assert.Equal(t, 1.235, Round3(1.2345001))
	assert.Equal(t, -0.001, Round3(-0.0012))
}
