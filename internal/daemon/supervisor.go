package daemon

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/shotclip/shotclip/internal/domain"
)

// RunFunc is one supervised pipeline attempt: resolve configuration, build
// the pipeline, block until exit. started reports the resolved watch
// directory once the pipeline is live.
type RunFunc func(ctx context.Context, started func(watchDir string)) error

// SupervisorConfig holds supervisor tuning knobs.
type SupervisorConfig struct {
	InitialBackoff    time.Duration // first crash-restart delay (default 2s)
	MaxBackoff        time.Duration // restart delay cap (default 5min)
	DrainTimeout      time.Duration // graceful-shutdown wait (default 5s)
	HeartbeatInterval time.Duration // state-file liveness refresh (default 30s)
}

// DefaultSupervisorConfig returns default supervisor configuration.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		InitialBackoff:    2 * time.Second,
		MaxBackoff:        5 * time.Minute,
		DrainTimeout:      5 * time.Second,
		HeartbeatInterval: 30 * time.Second,
	}
}

// Supervisor owns the process lifecycle: Stopped -> Starting -> Running ->
// Stopping -> Stopped, with CrashBackoff between failed attempts. It is the
// only component allowed to restart or halt the pipeline, and the only
// writer of ServiceState.
type Supervisor struct {
	config   SupervisorConfig
	registry domain.StateRegistry
	run      RunFunc
	logger   *zap.Logger
	version  string
}

// NewSupervisor creates a supervisor around one RunFunc.
func NewSupervisor(config SupervisorConfig, registry domain.StateRegistry, run RunFunc, logger *zap.Logger, version string) *Supervisor {
	return &Supervisor{
		config:   config,
		registry: registry,
		run:      run,
		logger:   logger,
		version:  version,
	}
}

// Run blocks until ctx is canceled, restarting the pipeline after crashes
// with exponential backoff. Returns nil on a clean shutdown.
func (s *Supervisor) Run(ctx context.Context) error {
	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go s.heartbeatLoop(heartbeatCtx)

	backoff := s.config.InitialBackoff

	for {
		select {
		case <-ctx.Done():
			s.transition(domain.StateStopped, "")
			return nil
		default:
		}

		s.transition(domain.StateStarting, "")

		reachedRunning := make(chan struct{})
		attemptErr := make(chan error, 1)
		go func() {
			attemptErr <- s.run(ctx, func(watchDir string) {
				s.logger.Info("pipeline running", zap.String("watch_dir", watchDir))
				s.recordRunning(watchDir)
				close(reachedRunning)
			})
		}()

		select {
		case err := <-attemptErr:
			if ctx.Err() != nil {
				s.shutdown(nil)
				return nil
			}
			select {
			case <-reachedRunning:
				// The attempt was healthy before it died; start the next
				// backoff ladder from the bottom.
				backoff = s.config.InitialBackoff
			default:
			}

			// Unexpected exit: configuration failure, watch lost, or a nil
			// return, which is still abnormal for an infinite pipeline.
			msg := "pipeline exited unexpectedly"
			if err != nil {
				msg = err.Error()
			}
			s.logger.Error("pipeline crashed, backing off",
				zap.String("error", msg),
				zap.Duration("backoff", backoff))
			s.transition(domain.StateCrashBackoff, msg)

			select {
			case <-ctx.Done():
				s.transition(domain.StateStopped, "")
				return nil
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, s.config.MaxBackoff)

		case <-ctx.Done():
			s.shutdown(attemptErr)
			return nil
		}
	}
}

// shutdown waits up to DrainTimeout for the in-flight attempt to finish.
// In-flight clipboard writes are allowed to complete; only a wedged pipeline
// is abandoned.
func (s *Supervisor) shutdown(attempt <-chan error) {
	s.transition(domain.StateStopping, "")
	if attempt != nil {
		select {
		case <-attempt:
		case <-time.After(s.config.DrainTimeout):
			s.logger.Warn("pipeline did not stop within drain timeout",
				zap.Duration("timeout", s.config.DrainTimeout))
		}
	}
	s.transition(domain.StateStopped, "")
	s.logger.Info("supervisor stopped")
}

func (s *Supervisor) transition(state domain.ServiceState, lastErr string) {
	if err := s.registry.SetState(state, lastErr); err != nil {
		s.logger.Warn("failed to record state",
			zap.String("state", string(state)), zap.Error(err))
	}
}

// recordRunning replaces the whole entry so PID, version, and the watch
// directory land in the state file for the status command.
func (s *Supervisor) recordRunning(watchDir string) {
	err := s.registry.Save(domain.StateEntry{
		PID:        os.Getpid(),
		State:      domain.StateRunning,
		WatchDir:   watchDir,
		AppVersion: s.version,
	})
	if err != nil {
		s.logger.Warn("failed to record state", zap.Error(err))
	}
}

func (s *Supervisor) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.registry.Heartbeat(); err != nil {
				s.logger.Debug("heartbeat failed", zap.Error(err))
			}
		}
	}
}
