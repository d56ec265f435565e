package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"circuitflow/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Execution Service — decorative progress run
// ─────────────────────────────────────────────────────────────

const runJobID = "run"

// ExecutionService drives the Idle → Running → Idle progress animation.
// A run never reads or writes blocks; it only needs to know the canvas
// is non-empty when it starts.
type ExecutionService struct {
	mu      sync.Mutex
	state   domain.ExecutionState
	cancel  context.CancelFunc
	done    chan struct{}
	guard   runningJobsGuard
	blocks  func() int
	tick    time.Duration
	step    int
	emitter EventEmitter
	logger  *slog.Logger
}

// NewExecutionService creates an ExecutionService. blockCount is consulted
// once per Start.
func NewExecutionService(blockCount func() int, tick time.Duration, step int, emitter EventEmitter, logger *slog.Logger) *ExecutionService {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if tick <= 0 {
		tick = 200 * time.Millisecond
	}
	if step <= 0 {
		step = 10
	}
	return &ExecutionService{blocks: blockCount, tick: tick, step: step, emitter: emitter, logger: logger}
}

// State returns the current run state.
func (s *ExecutionService) State() domain.ExecutionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins a run bound to ctx. It returns false, changing nothing, when
// the canvas is empty or a run is already active.
func (s *ExecutionService) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsRunning || s.blocks() == 0 {
		return false
	}
	if !s.guard.TryLock(runJobID) {
		return false
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.state = domain.ExecutionState{IsRunning: true, Progress: 0}
	s.emitter.Emit(runCtx, EventExecutionProgress, s.state)
	s.logger.Info("execution started", "tick", s.tick)

	go s.run(runCtx, done)
	return true
}

func (s *ExecutionService) run(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(s.tick)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			if s.done == done {
				s.reset()
			}
			s.mu.Unlock()
			return
		case <-ticker.C:
			if s.advance(ctx, done) {
				return
			}
		}
	}
}

// advance applies one tick and reports whether the run is over. Progress
// holds at 100 for one tick before the state resets.
func (s *ExecutionService) advance(ctx context.Context, done chan struct{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil || s.done != done {
		return true
	}
	if s.state.Progress >= 100 {
		s.reset()
		s.emitter.Emit(ctx, EventExecutionFinished, s.state)
		s.logger.Info("execution finished")
		return true
	}
	s.state.Progress = min(s.state.Progress+s.step, 100)
	s.emitter.Emit(ctx, EventExecutionProgress, s.state)
	return false
}

// reset returns to idle and releases the run guard. Caller holds mu.
func (s *ExecutionService) reset() {
	if s.cancel != nil {
		s.cancel()
		s.guard.Unlock(runJobID)
	}
	s.cancel = nil
	s.done = nil
	s.state = domain.ExecutionState{}
}

// Stop cancels an active run and waits for its ticker to exit. No progress
// event is emitted once Stop returns.
func (s *ExecutionService) Stop(ctx context.Context) {
	s.mu.Lock()
	done := s.done
	wasRunning := s.state.IsRunning
	s.reset()
	if wasRunning {
		s.emitter.Emit(ctx, EventExecutionProgress, s.state)
	}
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Close stops any active run. It is safe to call more than once.
func (s *ExecutionService) Close() {
	s.Stop(context.Background())
}
