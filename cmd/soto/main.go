// Command soto captures a stereo audio stream and renders its
// time-domain signal and frequency spectrum in soft real time.
//
// Flag parsing and wiring follow cmd/Crepes/main.go's shape
// (flag.String/.Parse, config.LoadConfig with a default fallback,
// signal.Notify-driven graceful shutdown) adapted from an HTTP server
// lifecycle to a real-time task pool lifecycle.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/load"

	"github.com/dacav/soto/internal/audio"
	"github.com/dacav/soto/internal/config"
	"github.com/dacav/soto/internal/dispatch"
	"github.com/dacav/soto/internal/display"
	"github.com/dacav/soto/internal/fft"
	"github.com/dacav/soto/internal/plot"
	"github.com/dacav/soto/internal/queue"
	"github.com/dacav/soto/internal/rtlog"
	"github.com/dacav/soto/internal/rtpool"
	"github.com/dacav/soto/internal/rttask"
	"github.com/dacav/soto/internal/sampler"
)

const version = "v0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "soto.json", "path to configuration file")
	device := flag.String("dev", "", "audio device (overrides config)")
	rate := flag.Int("rate", 0, "sampling rate in Hz (overrides config)")
	minPrio := flag.Int("minprio", -1, "real-time priority floor offset (overrides config)")
	showSpectrum := flag.Bool("show-spectrum", false, "force-enable spectrum display")
	showSignal := flag.Bool("show-signal", false, "force-enable signal display")
	bufferScale := flag.Int("buffer-scale", 0, "sampler slot count (overrides config)")
	runFor := flag.Int("run-for", -1, "seconds to run before stopping, 0 = until signalled (overrides config)")
	flag.StringVar(device, "d", "", "shorthand for -dev")
	flag.IntVar(rate, "r", 0, "shorthand for -rate")
	flag.IntVar(minPrio, "m", -1, "shorthand for -minprio")
	flag.BoolVar(showSpectrum, "U", false, "shorthand for -show-spectrum")
	flag.BoolVar(showSignal, "u", false, "shorthand for -show-signal")
	flag.IntVar(bufferScale, "s", 0, "shorthand for -buffer-scale")
	flag.IntVar(runFor, "t", -1, "shorthand for -run-for")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		cfg = config.GetDefaultConfig()
	}
	applyOverrides(cfg, *device, *rate, *minPrio, *showSpectrum, *showSignal, *bufferScale, *runFor)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "soto: invalid configuration: %v\n", err)
		return 1
	}

	logger, err := rtlog.New(cfg.LogDir, rtlog.LevelInfo, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "soto: failed to open logs: %v\n", err)
		return 1
	}
	defer logger.Close()

	logStartupInfo(logger)
	logger.Info("main", fmt.Sprintf("soto %s starting", version), map[string]any{
		"device": cfg.Device, "rateHz": cfg.RateHz, "bufferScale": cfg.BufferScale,
	})

	// A real ALSA collaborator would report its own hardware-negotiated
	// period and slot size; for the synthetic one the period is fixed at
	// 20 ms and the slot size is derived from the configured rate so that
	// one slot holds one period of frames, per the Open Question decision
	// recorded in DESIGN.md.
	wantPeriod := 20 * time.Millisecond
	wantSlotFrames := cfg.RateHz / 50
	source := audio.NewSynthetic(cfg.RateHz, 440, wantPeriod, wantSlotFrames)

	samp, err := sampler.New(source, cfg.BufferScale, wantPeriod, wantSlotFrames, logger)
	if err != nil {
		logger.Fatal("main", fmt.Sprintf("sampler init: %v", err), nil)
		return 1
	}

	pool := rtpool.New(cfg.MinPriority, logger)

	sampHandle, sampStats, err := rttask.Subscribe(pool, rttask.Spec{
		Period:  samp.JobPeriod(),
		Work:    sampler.Work,
		Context: samp,
	}, logger)
	if err != nil {
		logger.Fatal("main", fmt.Sprintf("failed to subscribe sampling task: %v", err), nil)
		return 1
	}

	handles := []*rttask.Handle{sampHandle}
	statsRefs := []*rtpool.RtStats{sampStats}

	nGraphs := 0
	var sink plot.Sink
	var signalGraphs display.SignalGraphs
	var spectrumGraphs display.SpectrumGraphs

	if cfg.ShowSignal {
		signalGraphs = display.SignalGraphs{Ch0: nGraphs, Ch1: nGraphs + 1}
		nGraphs += 2
	}
	if cfg.ShowSpectrum {
		spectrumGraphs = display.SpectrumGraphs{
			Real0: nGraphs, Imag0: nGraphs + 1,
			Real1: nGraphs + 2, Imag1: nGraphs + 3,
		}
		nGraphs += 4
	}

	if nGraphs > 0 {
		sink = plot.NewConsole(nGraphs, samp.Size(), os.Stdout)
	}

	if cfg.ShowSignal {
		h, s, err := rttask.Subscribe(pool, display.NewSignalTaskSpec(samp, sink, signalGraphs), logger)
		if err != nil {
			logger.Error("main", fmt.Sprintf("failed to subscribe signal task: %v", err), nil)
		} else {
			handles = append(handles, h)
			statsRefs = append(statsRefs, s)
		}
	}

	if cfg.ShowSpectrum {
		h, s, err := rttask.Subscribe(pool, display.NewSpectrumTaskSpec(samp, sink, fft.Radix2{}, spectrumGraphs), logger)
		if err != nil {
			logger.Error("main", fmt.Sprintf("failed to subscribe spectrum task: %v", err), nil)
		} else {
			handles = append(handles, h)
			statsRefs = append(statsRefs, s)
		}
	}

	// The peak-level meter demonstrates the broadcast-dispatcher /
	// bounded-queue path of spec §2's data flow ("push derived data
	// ... through a broadcast dispatcher (E) that uses queues (F)"),
	// alongside the signal/spectrum tasks' direct-to-sink path.
	levelsInput := queue.New[float64](8)
	levelsDispatcher := dispatch.New(levelsInput, nil)
	levelsDone := startLevelsConsumers(logger, levelsDispatcher)

	levelHandle, levelStats, err := rttask.Subscribe(pool, newLevelsTaskSpec(samp, levelsInput), logger)
	if err != nil {
		logger.Error("main", fmt.Sprintf("failed to subscribe levels task: %v", err), nil)
	} else {
		handles = append(handles, levelHandle)
		statsRefs = append(statsRefs, levelStats)
	}
	levelsDispatcher.Start()

	if err := pool.Start(); err != nil {
		logger.Fatal("main", fmt.Sprintf("pool start failed: %v", err), nil)
		return 1
	}

	reporter := startStatsReporter(logger, statsRefs)
	defer reporter.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if cfg.RunForSeconds > 0 {
		select {
		case <-quit:
		case <-time.After(time.Duration(cfg.RunForSeconds) * time.Second):
		}
	} else {
		<-quit
	}

	logger.Info("main", "shutting down", nil)
	for _, h := range handles {
		if err := rttask.SendKill(h); err != nil {
			logger.Warn("main", fmt.Sprintf("send kill: %v", err), nil)
		}
	}
	pool.Destroy()
	levelsInput.Close()
	<-levelsDone

	reportFinalStats(logger, statsRefs)
	return 0
}

// newLevelsTaskSpec builds a periodic task that snapshots the sampler
// buffer, computes the channel-0 peak amplitude normalized to [0,1],
// and pushes it into the dispatcher's input queue.
func newLevelsTaskSpec(samp *sampler.Sampler, input *queue.Queue[float64]) rttask.Spec {
	buf := make([]audio.SampleFrame, samp.Size())
	return rttask.Spec{
		Period:       samp.Period(),
		StartupDelay: samp.Period(),
		Work: func(any) rtpool.WorkResult {
			samp.Snapshot(buf)
			var peak int16
			for _, f := range buf {
				if v := abs16(f.Ch0); v > peak {
					peak = v
				}
			}
			input.Insert(float64(peak) / math.MaxInt16)
			return rtpool.Continue
		},
	}
}

func abs16(v int16) int16 {
	if v < 0 {
		return -v
	}
	return v
}

// startLevelsConsumers wires two output queues off the dispatcher: one
// logged at debug level, the other feeding a clip-warning consumer that
// warns when the peak reaches 0.98. The returned channel closes once
// both have drained to end-of-stream.
func startLevelsConsumers(logger *rtlog.Logger, d *dispatch.Dispatcher[float64]) <-chan struct{} {
	logOut, _ := d.NewOutput(8)
	clipOut, _ := d.NewOutput(8)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for {
			v, ok := logOut.Extract()
			if !ok {
				return
			}
			logger.Debug("levels", fmt.Sprintf("peak=%.4f", v), nil)
		}
	}()

	go func() {
		defer wg.Done()
		const clipThreshold = 0.98
		for {
			v, ok := clipOut.Extract()
			if !ok {
				return
			}
			if v >= clipThreshold {
				logger.Warn("levels", fmt.Sprintf("clipping detected: peak=%.4f", v), nil)
			}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	return done
}

func applyOverrides(cfg *config.Config, device string, rate, minPrio int, showSpectrum, showSignal bool, bufferScale, runFor int) {
	if device != "" {
		cfg.Device = device
	}
	if rate > 0 {
		cfg.RateHz = rate
	}
	if minPrio >= 0 {
		cfg.MinPriority = minPrio
	}
	if showSpectrum {
		cfg.ShowSpectrum = true
	}
	if showSignal {
		cfg.ShowSignal = true
	}
	if bufferScale > 0 {
		cfg.BufferScale = bufferScale
	}
	if runFor >= 0 {
		cfg.RunForSeconds = runFor
	}
}

func logStartupInfo(logger *rtlog.Logger) {
	counts, err := cpu.Counts(true)
	if err != nil {
		logger.Warn("main", fmt.Sprintf("cpu.Counts: %v", err), nil)
		counts = 0
	}
	avg, err := load.Avg()
	data := map[string]any{"cpuCount": counts}
	if err == nil {
		data["load1"] = avg.Load1
	}
	logger.Info("main", "host info", data)
}

// startStatsReporter wires go-co-op/gocron into a 1 Hz diagnostics
// reporter printing each task's RtStats — not the real-time task pool
// itself, which must stay on rtpool's absolute-time sleeps to meet
// spec §4.B's scheduling model.
func startStatsReporter(logger *rtlog.Logger, refs []*rtpool.RtStats) *gocron.Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.Every(1).Second().Do(func() {
		for i, ref := range refs {
			snap := ref.Snapshot()
			logger.Info("stats-reporter", fmt.Sprintf("task %d", i), map[string]any{
				"executionCount":    snap.ExecutionCount,
				"deadlineMisses":    snap.DeadlineMisses,
				"worstCaseResponse": snap.WorstCaseResponse.String(),
			})
		}
	})
	s.StartAsync()
	return s
}

func reportFinalStats(logger *rtlog.Logger, refs []*rtpool.RtStats) {
	for i, ref := range refs {
		snap := ref.Snapshot()
		logger.Info("main", fmt.Sprintf("final stats for task %d", i), map[string]any{
			"executionCount":    snap.ExecutionCount,
			"deadlineMisses":    snap.DeadlineMisses,
			"worstCaseResponse": snap.WorstCaseResponse.String(),
		})
	}
}
