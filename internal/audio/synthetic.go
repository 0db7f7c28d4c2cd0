package audio

import (
	"math"
	"sync"
	"time"
)

// Synthetic is a reference Source that manufactures a stereo sine wave
// instead of reading a sound card, so the capture pipeline can run and
// be tested without hardware. It never reports xrun conditions unless
// explicitly told to via InjectOverrun/InjectAgain, which the sampler
// tests use to exercise the recovery paths of spec §4.D.
type Synthetic struct {
	rate       int
	freqHz     float64
	period     time.Duration
	slotFrames int

	mu       sync.Mutex
	phase    float64
	overrun  bool
	again    bool
	failOnce bool
}

// NewSynthetic builds a synthetic source at the given sample rate,
// sine frequency and read period. slotFrames is the number of frames
// produced per Read call.
func NewSynthetic(rate int, freqHz float64, period time.Duration, slotFrames int) *Synthetic {
	return &Synthetic{
		rate:       rate,
		freqHz:     freqHz,
		period:     period,
		slotFrames: slotFrames,
	}
}

// InjectOverrun makes the next Read report ReadOverrun.
func (s *Synthetic) InjectOverrun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrun = true
}

// InjectAgain makes the next Read report ReadAgain.
func (s *Synthetic) InjectAgain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.again = true
}

// InjectFatal makes the next Read report ReadFatal.
func (s *Synthetic) InjectFatal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOnce = true
}

func (s *Synthetic) Read(dst []SampleFrame, maxFrames int) (int, ReadStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.overrun {
		s.overrun = false
		return 0, ReadOverrun
	}
	if s.again {
		s.again = false
		return 0, ReadAgain
	}
	if s.failOnce {
		s.failOnce = false
		return 0, ReadFatal
	}

	n := maxFrames
	if n > len(dst) {
		n = len(dst)
	}
	step := 2 * math.Pi * s.freqHz / float64(s.rate)
	for i := 0; i < n; i++ {
		v := int16(math.Sin(s.phase) * 16000)
		dst[i] = SampleFrame{Ch0: v, Ch1: v}
		s.phase += step
		if s.phase > 2*math.Pi {
			s.phase -= 2 * math.Pi
		}
	}
	return n, ReadOK
}

func (s *Synthetic) Wait(timeout time.Duration) WaitStatus {
	time.Sleep(timeout / 4)
	return WaitReady
}

func (s *Synthetic) Recover() error { return nil }

func (s *Synthetic) PreferredPeriod() time.Duration { return s.period }

func (s *Synthetic) PreferredSlotFrames() int { return s.slotFrames }
