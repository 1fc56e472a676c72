package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/pointerlock/internal/config"
	"github.com/bnema/pointerlock/internal/logger"
	"github.com/bnema/pointerlock/internal/sink"
	"github.com/bnema/pointerlock/pointerlock"
	"github.com/bnema/pointerlock/wlclient"
	"github.com/spf13/cobra"
)

const (
	streamBatchDelay = 5 * time.Millisecond
	streamBatchSize  = 4096
)

var relayDuration time.Duration

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Lock the pointer and relay relative motion",
	Long: `Create a bare surface, lock the pointer to it and forward every
relative motion event to the configured sink until the duration elapses or
the process is interrupted.

The lock only becomes active once the compositor gives the surface pointer
focus. Applications embedding pointerlock pass their own mapped surface.`,
	RunE: runRelay,
}

func init() {
	relayCmd.Flags().DurationVar(&relayDuration, "duration", 0, "stop after this long (0 runs until interrupted)")
	relayCmd.Flags().String("sink", config.DefaultConfig.Relay.Sink, "motion sink: log, uinput or stream")
	relayCmd.Flags().Bool("unaccelerated", config.DefaultConfig.Relay.UseUnaccelerated, "forward unaccelerated deltas to uinput")
	relayCmd.Flags().Float64("sensitivity", config.DefaultConfig.Relay.Sensitivity, "uinput delta multiplier")
	relayCmd.Flags().String("output", config.DefaultConfig.Relay.StreamPath, "stream sink output file, - for stdout")
	relayCmd.Flags().String("lifetime", config.DefaultConfig.Lock.Lifetime, "lock lifetime: persistent or oneshot")
	relayCmd.Flags().Duration("timeout", config.DefaultConfig.Lock.RoundtripTimeout, "timeout for each discovery roundtrip")
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	motion, closeSink, err := openSink(cfg.Relay, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSink(); err != nil {
			logger.Warn("Failed to close sink", "error", err)
		}
	}()

	display, err := wlclient.Connect(displayName)
	if err != nil {
		return err
	}
	defer display.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if relayDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, relayDuration)
		defer cancel()
	}

	state := pointerlock.New(
		pointerlock.WithLifetime(parseLifetime(cfg.Lock.Lifetime)),
		pointerlock.WithRoundtripTimeout(cfg.Lock.RoundtripTimeout),
		pointerlock.WithMotionSink(motion),
	)
	if err := state.Initialize(ctx, display, nil); err != nil {
		return err
	}
	// Run closes the connection on the way out, and with it the compositor
	// drops the lock, the surface and every bound global.
	defer func() {
		if !display.Closed() {
			state.Close()
		}
	}()

	compositor, ok := state.Compositor().(*wlclient.Compositor)
	if !ok {
		return errors.New("no wl_compositor to create a surface with")
	}
	surface, err := compositor.CreateSurface()
	if err != nil {
		return err
	}
	defer func() {
		if display.Closed() {
			return
		}
		state.Unlock()
		if err := surface.Destroy(); err != nil {
			logger.Debug("Failed to destroy surface", "error", err)
		}
	}()
	state.SetSurface(surface)

	if err := state.Lock(); err != nil {
		return err
	}

	logger.Info("Pointer locked, relaying motion",
		"sink", cfg.Relay.Sink,
		"lifetime", cfg.Lock.Lifetime,
		"relaying", state.Status().Relaying)

	err = display.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.Info("Relay stopped")
		return nil
	}
	return err
}

func parseLifetime(s string) pointerlock.Lifetime {
	if s == "oneshot" {
		return pointerlock.LifetimeOneshot
	}
	return pointerlock.LifetimePersistent
}

// openSink builds the configured sink. Non-log sinks are teed with the debug
// log sink. The returned close func releases whatever the sink opened.
func openSink(cfg config.RelayConfig, stdout io.Writer) (pointerlock.MotionFunc, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Sink {
	case config.SinkLog:
		return sink.Log(), noop, nil

	case config.SinkUinput:
		u, err := sink.OpenUinput(cfg.UinputPath, cfg.UinputName, sink.UinputOptions{
			Sensitivity:   cfg.Sensitivity,
			Unaccelerated: cfg.UseUnaccelerated,
		})
		if err != nil {
			return nil, nil, err
		}
		return sink.Tee(u.Motion, sink.Log()), u.Close, nil

	case config.SinkStream:
		w := stdout
		var file *os.File
		if cfg.StreamPath != "" && cfg.StreamPath != "-" {
			f, err := os.Create(cfg.StreamPath)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create stream output: %w", err)
			}
			file, w = f, f
		}

		batch := sink.NewBatchWriter(w, streamBatchDelay, streamBatchSize)
		stream := sink.NewStream(batch)
		closeFn := func() error {
			err := batch.Close()
			if file != nil {
				if cerr := file.Close(); err == nil {
					err = cerr
				}
			}
			return err
		}
		return sink.Tee(stream.Motion, sink.Log()), closeFn, nil
	}

	return nil, nil, fmt.Errorf("unknown sink %q", cfg.Sink)
}
