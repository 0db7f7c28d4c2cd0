package display

import (
	"bytes"
	"testing"
	"time"

	"github.com/dacav/soto/internal/audio"
	"github.com/dacav/soto/internal/fft"
	"github.com/dacav/soto/internal/plot"
	"github.com/dacav/soto/internal/rtpool"
	"github.com/dacav/soto/internal/sampler"
)

func TestSignalWorkPlotsEveryFrame(t *testing.T) {
	src := audio.NewSynthetic(44100, 440, 2*time.Millisecond, 8)
	s, err := sampler.New(src, 2, 0, 0, nil)
	if err != nil {
		t.Fatalf("sampler.New: %v", err)
	}
	sampler.Work(s)
	sampler.Work(s)

	var buf bytes.Buffer
	sink := plot.NewConsole(2, s.Size(), &buf)

	spec := NewSignalTaskSpec(s, sink, SignalGraphs{Ch0: 0, Ch1: 1})
	if res := spec.Work(spec.Context); res != rtpool.Continue {
		t.Fatalf("expected Continue, got %v", res)
	}

	if buf.Len() == 0 {
		t.Fatalf("expected the signal task to have triggered a redraw")
	}
}

func TestSpectrumWorkProducesOutput(t *testing.T) {
	src := audio.NewSynthetic(44100, 440, 2*time.Millisecond, 16)
	s, err := sampler.New(src, 1, 0, 0, nil)
	if err != nil {
		t.Fatalf("sampler.New: %v", err)
	}
	sampler.Work(s)

	var buf bytes.Buffer
	sink := plot.NewConsole(4, s.Size(), &buf)

	spec := NewSpectrumTaskSpec(s, sink, fft.Radix2{}, SpectrumGraphs{
		Real0: 0, Imag0: 1, Real1: 2, Imag1: 3,
	})
	if res := spec.Work(spec.Context); res != rtpool.Continue {
		t.Fatalf("expected Continue, got %v", res)
	}
	if buf.Len() == 0 {
		t.Fatalf("expected the spectrum task to have triggered a redraw")
	}
}
