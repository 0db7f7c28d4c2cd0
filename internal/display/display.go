// Package display wires the sampler's circular buffer to a plot sink,
// as two periodic consumer tasks meant to be subscribed through
// internal/rttask: a time-domain signal view and a frequency-domain
// spectrum view.
//
// Grounded on original_source/src/signal_show.c (showth_subscribe /
// thread_cb: snapshot then plot_graphic_set per channel) and
// spectrum_show.c (specth_subscribe / build_spectrum: normalize to
// [-1,1], transform, denormalize real/imag parts back to int16,
// mirroring the spectrum around the Nyquist bin).
package display

import (
	"math"

	"github.com/dacav/soto/internal/audio"
	"github.com/dacav/soto/internal/fft"
	"github.com/dacav/soto/internal/plot"
	"github.com/dacav/soto/internal/rtpool"
	"github.com/dacav/soto/internal/rttask"
	"github.com/dacav/soto/internal/sampler"
)

// SignalGraphs names the two plot graph ids the signal task writes to.
type SignalGraphs struct {
	Ch0, Ch1 int
}

type signalContext struct {
	sampler *sampler.Sampler
	sink    plot.Sink
	graphs  SignalGraphs
	buf     []audio.SampleFrame
}

// NewSignalTaskSpec builds the rttask.Spec for the time-domain display
// task: one snapshot-and-plot cycle per buffer period, started only
// once the sampler has had time to fill at least one full window.
func NewSignalTaskSpec(s *sampler.Sampler, sink plot.Sink, graphs SignalGraphs) rttask.Spec {
	ctx := &signalContext{
		sampler: s,
		sink:    sink,
		graphs:  graphs,
		buf:     make([]audio.SampleFrame, s.Size()),
	}
	return rttask.Spec{
		Period:       s.Period(),
		StartupDelay: s.Period(),
		Work:         signalWork,
		Context:      ctx,
	}
}

func signalWork(ctx any) rtpool.WorkResult {
	c := ctx.(*signalContext)
	c.sampler.Snapshot(c.buf)
	for i, f := range c.buf {
		c.sink.SetPoint(c.graphs.Ch0, i, f.Ch0)
		c.sink.SetPoint(c.graphs.Ch1, i, f.Ch1)
	}
	c.sink.Redraw()
	return rtpool.Continue
}

// SpectrumGraphs names the four plot graph ids the spectrum task
// writes to: real and imaginary parts for each channel.
type SpectrumGraphs struct {
	Real0, Imag0 int
	Real1, Imag1 int
}

type spectrumContext struct {
	sampler *sampler.Sampler
	sink    plot.Sink
	engine  fft.Engine
	graphs  SpectrumGraphs

	buf     []audio.SampleFrame
	in0     []float64
	in1     []float64
	nfreqs  int
}

// NewSpectrumTaskSpec builds the rttask.Spec for the frequency-domain
// display task.
func NewSpectrumTaskSpec(s *sampler.Sampler, sink plot.Sink, engine fft.Engine, graphs SpectrumGraphs) rttask.Spec {
	size := s.Size()
	// The FFT input is zero-padded to the next power of two, as Radix2
	// requires; only the first size entries are ever written.
	padded := 1
	for padded < size {
		padded <<= 1
	}
	ctx := &spectrumContext{
		sampler: s,
		sink:    sink,
		engine:  engine,
		graphs:  graphs,
		buf:     make([]audio.SampleFrame, size),
		in0:     make([]float64, padded),
		in1:     make([]float64, padded),
		nfreqs:  size / 2,
	}
	return rttask.Spec{
		Period:       s.Period(),
		StartupDelay: s.Period(),
		Work:         spectrumWork,
		Context:      ctx,
	}
}

func spectrumWork(ctx any) rtpool.WorkResult {
	c := ctx.(*spectrumContext)
	c.sampler.Snapshot(c.buf)

	for i, f := range c.buf {
		c.in0[i] = float64(f.Ch0) / math.MaxInt16
		c.in1[i] = float64(f.Ch1) / math.MaxInt16
	}

	c.buildSpectrum(c.engine.Transform(c.in0), c.graphs.Real0, c.graphs.Imag0)
	c.buildSpectrum(c.engine.Transform(c.in1), c.graphs.Real1, c.graphs.Imag1)
	c.sink.Redraw()
	return rtpool.Continue
}

// buildSpectrum lays out the Nyquist-mirrored spectrum the way
// spectrum_show.c's build_spectrum does: the negative half (nfreqs
// down to 0) first, then the positive half (1 up to nfreqs-1).
func (c *spectrumContext) buildSpectrum(out []complex128, realGraph, imagGraph int) {
	x := 0
	for j := c.nfreqs; j >= 0 && j < len(out); j-- {
		c.setBin(realGraph, imagGraph, x, out[j])
		x++
	}
	for j := 1; j < c.nfreqs && j < len(out); j++ {
		c.setBin(realGraph, imagGraph, x, out[j])
		x++
	}
}

func (c *spectrumContext) setBin(realGraph, imagGraph, x int, bin complex128) {
	c.sink.SetPoint(realGraph, x, denormalize(real(bin)))
	c.sink.SetPoint(imagGraph, x, denormalize(imag(bin)))
}

func denormalize(v float64) int16 {
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return int16(v * math.MaxInt16)
}
