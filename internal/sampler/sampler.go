// Package sampler implements spec §4.D: a periodic audio reader backed
// by a slotted circular buffer, with xrun/again recovery and a
// coherent snapshot read for consumer tasks.
//
// Grounded on original_source/src/alsagw.c's alsagw_read: the
// overrun/-EPIPE → recover-and-skip-this-job and -EAGAIN →
// snd_pcm_wait-and-retry-once control flow is reproduced in runJob
// below against the audio.Source interface rather than a raw ALSA
// handle.
package sampler

import (
	"fmt"
	"sync"
	"time"

	"github.com/dacav/soto/internal/audio"
	"github.com/dacav/soto/internal/rtlog"
	"github.com/dacav/soto/internal/rtpool"
)

// RecoveryDivisor bounds how long a job waits for a temporarily
// unavailable device: at most period / RecoveryDivisor (spec §4.D,
// §5 "Cancellation and timeout semantics").
const RecoveryDivisor = 4

// Sampler is a slotted circular buffer of audio.SampleFrame, written by
// exactly one periodic task and read under mutex by any number of
// snapshot consumers.
type Sampler struct {
	source     audio.Source
	slotFrames int
	slotCount  int
	jobPeriod  time.Duration
	logger     *rtlog.Logger

	mu          sync.Mutex
	buffer      []audio.SampleFrame
	writeCursor int
}

// New creates a sampler reading from source, with slotCount slots each
// sized source.PreferredSlotFrames(). The job period is
// source.PreferredPeriod().
//
// wantPeriod and wantSlotFrames are the caller's expectations for the
// device's negotiated period and per-read frame count (e.g. derived
// from a requested sample rate in configuration). Either may be left
// zero to accept whatever the source reports. When non-zero and the
// source disagrees, New refuses rather than silently sampling at a
// different rate or cadence than the caller configured (spec §7).
func New(source audio.Source, slotCount int, wantPeriod time.Duration, wantSlotFrames int, logger *rtlog.Logger) (*Sampler, error) {
	if slotCount < 1 {
		slotCount = 1
	}
	slotFrames := source.PreferredSlotFrames()
	period := source.PreferredPeriod()

	if wantSlotFrames > 0 && wantSlotFrames != slotFrames {
		return nil, fmt.Errorf("%w: wanted %d frames/read, device reports %d", ErrRateChanged, wantSlotFrames, slotFrames)
	}
	if wantPeriod > 0 && wantPeriod != period {
		return nil, fmt.Errorf("%w: wanted %s, device reports %s", ErrPeriodChanged, wantPeriod, period)
	}

	return &Sampler{
		source:     source,
		slotFrames: slotFrames,
		slotCount:  slotCount,
		jobPeriod:  period,
		logger:     logger,
		buffer:     make([]audio.SampleFrame, slotCount*slotFrames),
	}, nil
}

// SlotFrames returns the number of frames per slot.
func (s *Sampler) SlotFrames() int { return s.slotFrames }

// SlotCount returns the number of slots in the circular buffer.
func (s *Sampler) SlotCount() int { return s.slotCount }

// Size returns the total number of frames held by the buffer.
func (s *Sampler) Size() int { return s.slotFrames * s.slotCount }

// JobPeriod returns the period of the sampling job itself.
func (s *Sampler) JobPeriod() time.Duration { return s.jobPeriod }

// Period returns the duration it takes to fill the whole buffer: job
// period times slot count.
func (s *Sampler) Period() time.Duration {
	return s.jobPeriod * time.Duration(s.slotCount)
}

// Snapshot copies the entire buffer into dst, ordered from oldest to
// newest slot, in two contiguous memcopies performed under the same
// mutex that guards writes — the returned window is always coherent,
// never a half-written slot. dst must be at least Size() long.
func (s *Sampler) Snapshot(dst []audio.SampleFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cut := s.writeCursor * s.slotFrames
	n := copy(dst, s.buffer[cut:])
	copy(dst[n:], s.buffer[:cut])
}

// Work is the rttask work body for the sampling task: one buffer-read
// job per period, per spec §4.D. It always returns Continue; the
// sampling task is stopped only via SendKill, never by its own work.
func Work(ctx any) rtpool.WorkResult {
	s := ctx.(*Sampler)
	s.runJob()
	return rtpool.Continue
}

func (s *Sampler) runJob() {
	slot := make([]audio.SampleFrame, s.slotFrames)

	n, status := s.source.Read(slot, s.slotFrames)
	switch status {
	case audio.ReadOK:
		// fall through to commit below.
	case audio.ReadOverrun:
		if err := s.source.Recover(); err != nil {
			s.logf(rtlog.LevelError, "recovery failed after overrun: %v", err)
		}
		return // this job is a no-op (spec §4.D.2)
	case audio.ReadAgain:
		wait := s.jobPeriod / RecoveryDivisor
		if s.source.Wait(wait) == audio.WaitStillUnavailable {
			s.logf(rtlog.LevelWarn, "device still unavailable after %s", wait)
			return
		}
		n, status = s.source.Read(slot, s.slotFrames)
		if status != audio.ReadOK {
			s.logf(rtlog.LevelError, "retry after wait failed: status=%d", status)
			return
		}
	case audio.ReadFatal:
		s.logf(rtlog.LevelError, "unrecoverable device error, slot left untouched")
		return
	}

	// Short reads are zero-padded on the right rather than left-padded
	// with stale content, per the Open Question decision in DESIGN.md:
	// zeroing is the safe policy when source behavior is unclear.
	if n < s.slotFrames {
		for i := n; i < s.slotFrames; i++ {
			slot[i] = audio.SampleFrame{}
		}
	}

	s.mu.Lock()
	copy(s.buffer[s.writeCursor*s.slotFrames:], slot)
	s.writeCursor = (s.writeCursor + 1) % s.slotCount
	s.mu.Unlock()
}

func (s *Sampler) logf(level, format string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Log("sampler", level, fmt.Sprintf(format, args...), nil)
}
