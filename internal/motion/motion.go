// internal/motion/motion.go
package motion

import (
	"errors"
	"fmt"
	"math"
)

// Step rate window the driver handles smoothly.
const (
	MinStepsPerSecond = 400
	MaxStepsPerSecond = 1000
)

var ErrSpeedOutOfRange = errors.New("motion: no microstepping option reaches the step rate window")

// Settings describes the drive train.
type Settings struct {
	MotorSteps           int     `yaml:"motor_steps"`
	GearRatio            float64 `yaml:"gear_ratio"`
	MicrosteppingOptions []int   `yaml:"microstepping_options"`
}

// Speed is what the controller needs to turn a motor at a given rpm.
type Speed struct {
	StepsPerSecond float64
	Microstepping  int
}

// Calculate picks the microstepping option whose step rate is the lowest
// one inside [MinStepsPerSecond, MaxStepsPerSecond]. Zero rpm stops the
// motor at the first option.
func Calculate(rpm float64, s Settings) (Speed, error) {
	if len(s.MicrosteppingOptions) == 0 {
		return Speed{}, errors.New("motion: no microstepping options")
	}
	if rpm == 0 {
		return Speed{Microstepping: s.MicrosteppingOptions[0]}, nil
	}

	var (
		best  Speed
		found bool
	)
	for _, micro := range s.MicrosteppingOptions {
		perRotation := float64(s.MotorSteps) * s.GearRatio * float64(micro)
		sps := Round3(rpm * perRotation / 60)

		if sps < MinStepsPerSecond || sps > MaxStepsPerSecond {
			continue
		}
		if !found || sps < best.StepsPerSecond {
			best = Speed{StepsPerSecond: sps, Microstepping: micro}
			found = true
		}
	}

	if !found {
		return Speed{}, fmt.Errorf("%w: %v rpm", ErrSpeedOutOfRange, rpm)
	}
	return best, nil
}

// Round3 rounds to three decimals, the resolution of every reported value.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
