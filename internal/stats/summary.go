package stats

import (
	"math"
	"time"

	"calibri-dashboard/internal/model"
)

type Range struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

type Summary struct {
	Samples             int           `json:"samples"`
	Duration            time.Duration `json:"-"`
	DurationMs          int64         `json:"duration_ms"`
	EMGEnvelope         Range         `json:"emg_envelope"`
	EMGSignalMax        Range         `json:"emg_signal_max"`
	AccelMagnitudeMean  float64       `json:"accel_magnitude_mean"`
	ActivationThreshold float64       `json:"activation_threshold"`
	Activations         int           `json:"activations"`
}

// Summarize reduces a recorded history. An activation is a rising edge of
// the envelope above ThresholdPercent of the largest envelope observed.
func Summarize(history []model.Sample, settings model.Settings) Summary {
	var sum Summary
	if len(history) == 0 {
		return sum
	}

	sum.Samples = len(history)
	sum.DurationMs = history[len(history)-1].Timestamp - history[0].Timestamp
	if sum.DurationMs < 0 {
		sum.DurationMs = 0
	}
	sum.Duration = time.Duration(sum.DurationMs) * time.Millisecond

	env := Range{Min: math.Inf(1), Max: math.Inf(-1)}
	sig := Range{Min: math.Inf(1), Max: math.Inf(-1)}
	var accel float64
	for _, s := range history {
		env = accumulate(env, s.EMGEnvelope)
		sig = accumulate(sig, s.EMGSignalMax)
		a := s.Accelerometer
		accel += math.Sqrt(a.X*a.X + a.Y*a.Y + a.Z*a.Z)
	}
	n := float64(len(history))
	env.Mean /= n
	sig.Mean /= n
	sum.EMGEnvelope = env
	sum.EMGSignalMax = sig
	sum.AccelMagnitudeMean = accel / n

	sum.ActivationThreshold = env.Max * float64(settings.ThresholdPercent) / 100
	if sum.ActivationThreshold <= 0 {
		return sum
	}
	above := false
	for _, s := range history {
		if s.EMGEnvelope > sum.ActivationThreshold {
			if !above {
				sum.Activations++
			}
			above = true
		} else {
			above = false
		}
	}
	return sum
}

// accumulate tracks min/max and keeps the running total in Mean.
func accumulate(r Range, v float64) Range {
	r.Min = math.Min(r.Min, v)
	r.Max = math.Max(r.Max, v)
	r.Mean += v
	return r
}
