// Soak hammers a playback session with concurrent commands and fast ticks
// and checks every committed state it observes.
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/llehouerou/wavelet/internal/playback"
)

type options struct {
	duration time.Duration
	workers  int
	tick     time.Duration
	steps    int
}

func main() {
	opts := options{}
	cmd := &cobra.Command{
		Use:           "soak",
		Short:         "Stress the playback session and check its invariants",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return soak(cmd.Context(), opts, logger)
		},
	}
	cmd.Flags().DurationVar(&opts.duration, "duration", 10*time.Second, "how long to hammer the live session")
	cmd.Flags().IntVar(&opts.workers, "workers", 8, "concurrent command senders")
	cmd.Flags().DurationVar(&opts.tick, "tick", time.Millisecond, "session tick interval")
	cmd.Flags().IntVar(&opts.steps, "steps", 1_000_000, "random reducer steps")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func soak(ctx context.Context, opts options, logger *zap.Logger) error {
	if err := fuzzReducer(opts.steps); err != nil {
		return fmt.Errorf("reducer: %w", err)
	}
	logger.Info("reducer ok", zap.Int("steps", opts.steps))

	ctx, cancel := context.WithTimeout(ctx, opts.duration)
	defer cancel()
	stats, err := hammer(ctx, opts)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	logger.Info("session ok",
		zap.Int64("commands", stats.commands),
		zap.Int64("observed", stats.observed),
		zap.Uint64("generations", stats.generations))
	return nil
}

func randomTrack(r *rand.Rand, n int) playback.Track {
	return playback.Track{
		ID:       int64(n),
		Title:    fmt.Sprintf("track %d", n),
		Duration: r.IntN(20),
		Source:   fmt.Sprintf("soak://%d", n),
	}
}

// check verifies the state invariants that hold for every committed state.
func check(s playback.State) error {
	switch {
	case s.Track == nil && s.Elapsed != 0:
		return fmt.Errorf("elapsed %d without a track", s.Elapsed)
	case s.Track != nil && (s.Elapsed < 0 || s.Elapsed > s.Track.Duration):
		return fmt.Errorf("elapsed %d outside [0, %d]", s.Elapsed, s.Track.Duration)
	case s.Phase == playback.PhaseStopped && s.Elapsed != 0:
		return fmt.Errorf("stopped with elapsed %d", s.Elapsed)
	}
	return nil
}

// fuzzReducer applies random commands, including ticks and failures for
// old generations, straight to the reducer.
func fuzzReducer(steps int) error {
	r := rand.New(rand.NewPCG(1, 2))
	var s playback.State
	for i := range steps {
		var c playback.Command
		stale := s.Generation > 0 && r.IntN(4) == 0
		gen := s.Generation
		if stale {
			gen = r.Uint64N(s.Generation)
		}
		switch r.IntN(8) {
		case 0:
			c = playback.LoadTrack{Track: randomTrack(r, i)}
		case 1:
			c = playback.Start{}
		case 2:
			c = playback.Pause{}
		case 3:
			c = playback.Stop{}
		case 4:
			c = playback.Toggle{}
		case 5:
			c = playback.Fail{Generation: gen}
		default:
			c = playback.Tick{Generation: gen}
		}

		next, changed := playback.Apply(s, c)
		if err := check(next); err != nil {
			return fmt.Errorf("step %d %s: %w", i, c.Name(), err)
		}
		switch c.(type) {
		case playback.Tick, playback.Fail:
			if stale && changed {
				return fmt.Errorf("step %d: stale %s changed state", i, c.Name())
			}
		}
		if _, isLoad := c.(playback.LoadTrack); isLoad != (next.Generation != s.Generation) {
			return fmt.Errorf("step %d %s: generation %d -> %d", i, c.Name(), s.Generation, next.Generation)
		}
		s = next
	}
	return nil
}

type stats struct {
	commands    int64
	observed    int64
	generations uint64
}

// hammer drives a live session from several goroutines while an observer
// checks each delivered state.
func hammer(ctx context.Context, opts options) (stats, error) {
	svc := playback.New(playback.Options{TickInterval: opts.tick, Logger: zap.NewNop()})
	defer svc.Close()

	var (
		mu       sync.Mutex
		firstErr error
		lastGen  uint64
		sources  = make(map[uint64]string)
		observed atomic.Int64
		commands atomic.Int64
		nextID   atomic.Int64
	)
	report := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	svc.Register("soak", func(s playback.State) error {
		observed.Add(1)
		if err := check(s); err != nil {
			report(err)
			return nil
		}
		mu.Lock()
		defer mu.Unlock()
		if s.Generation < lastGen {
			firstErr = fmt.Errorf("generation went back from %d to %d", lastGen, s.Generation)
			return nil
		}
		lastGen = s.Generation
		if s.Track != nil {
			// A track must never show up under another load's generation.
			if src, ok := sources[s.Generation]; ok && src != s.Track.Source {
				firstErr = fmt.Errorf("generation %d carries %s, loaded %s", s.Generation, s.Track.Source, src)
			}
			sources[s.Generation] = s.Track.Source
		}
		return nil
	})

	var wg sync.WaitGroup
	for w := range opts.workers {
		wg.Go(func() {
			r := rand.New(rand.NewPCG(uint64(w), 7))
			for ctx.Err() == nil {
				switch r.IntN(6) {
				case 0:
					svc.LoadTrack(randomTrack(r, int(nextID.Add(1))))
				case 1:
					svc.Toggle()
				case 2:
					svc.Pause()
				case 3:
					svc.Start()
				case 4:
					svc.Stop()
				default:
					svc.ReportFailure(svc.Snapshot().Generation, nil)
				}
				commands.Add(1)
				time.Sleep(time.Duration(r.IntN(500)) * time.Microsecond)
			}
		})
	}
	wg.Wait()

	// The final snapshot must also hold.
	if err := check(svc.Snapshot()); err != nil {
		report(err)
	}

	mu.Lock()
	defer mu.Unlock()
	return stats{
		commands:    commands.Load(),
		observed:    observed.Load(),
		generations: lastGen,
	}, firstErr
}
