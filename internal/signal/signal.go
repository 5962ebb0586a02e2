package signal

import (
	"math"
	"math/rand/v2"
	"time"

	"calibri-dashboard/internal/model"
)

// Step is how far the virtual clock advances per generated sample.
const Step = 0.05

// Source produces sensor samples. Synthetic is the only implementation here;
// a hardware-backed source can satisfy the same contract.
type Source interface {
	Generate() model.Sample
}

// Synthetic generates sine-plus-noise waveforms over a virtual clock that is
// independent of wall-clock drift. It is not safe for concurrent use.
type Synthetic struct {
	t    float64
	rng  *rand.Rand
	now  func() time.Time
	last int64
}

func WithRand(rng *rand.Rand) func(s *Synthetic) {
	return func(s *Synthetic) {
		s.rng = rng
	}
}

func WithClock(now func() time.Time) func(s *Synthetic) {
	return func(s *Synthetic) {
		s.now = now
	}
}

func NewSynthetic(options ...func(s *Synthetic)) *Synthetic {
	s := &Synthetic{
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now: time.Now,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// elapsed returns the current virtual time.
func (s *Synthetic) elapsed() float64 {
	return s.t
}

func (s *Synthetic) Generate() model.Sample {
	s.t += Step
	t := s.t

	ts := s.now().UnixMilli()
	if ts < s.last {
		ts = s.last
	}
	s.last = ts

	return model.Sample{
		Accelerometer: model.Vector3{
			X: math.Sin(0.3*t)*0.2 + math.Sin(0.7*t)*0.1 + s.noise(),
			Y: -9.8 + s.noise()*0.5,
			Z: s.noise(),
		},
		Gyroscope: model.Vector3{
			X: math.Sin(0.5*t)*2 + s.noise()*5,
			Y: math.Cos(0.3*t)*1.5 + s.noise()*5,
			Z: s.noise() * 3,
		},
		EMGEnvelope:  math.Abs(math.Sin(2*t)*30 + s.uniform(0, 20)),
		EMGSignalMax: math.Abs(math.Sin(3*t)*50 + s.uniform(0, 30)),
		Timestamp:    ts,
	}
}

func (s *Synthetic) noise() float64 {
	return s.uniform(-0.05, 0.05)
}

func (s *Synthetic) uniform(a, b float64) float64 {
	return a + s.rng.Float64()*(b-a)
}
