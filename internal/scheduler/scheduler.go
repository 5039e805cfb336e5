// Package scheduler drives the polling cycle: resolve the symbol universe,
// walk it with inter-request pacing, run fetch→compute→evaluate→dispatch per
// symbol, then sleep until the next cycle.
//
// The loop is a small state machine: Idle → Resolving → Polling → CycleSleep
// → Polling → ... It only terminates on context cancellation, which is
// observed at every pacing and sleep boundary so shutdown latency is bounded
// by one inter-symbol delay, not one full cycle.
package scheduler

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"whale-trap-scanner/internal/dispatch"
	"whale-trap-scanner/internal/indicator"
	"whale-trap-scanner/internal/metrics"
	"whale-trap-scanner/internal/model"
	"whale-trap-scanner/internal/ratelimit"
	"whale-trap-scanner/internal/rule"
)

// State is the scheduler's current lifecycle phase.
type State int32

const (
	StateIdle State = iota
	StateResolving
	StatePolling
	StateCycleSleep
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StatePolling:
		return "polling"
	case StateCycleSleep:
		return "cycle_sleep"
	default:
		return "unknown"
	}
}

// CandleSource fetches a bounded candle window for one symbol.
type CandleSource interface {
	Klines(ctx context.Context, symbol, interval string, limit int) (*model.Series, error)
}

// UniverseResolver produces the symbol set to poll.
type UniverseResolver interface {
	Resolve(ctx context.Context) []string
}

// AlertSink consumes fired signals.
type AlertSink interface {
	Dispatch(ctx context.Context, sig *model.Signal) dispatch.Result
}

// Broadcaster pushes sent signals to live subscribers. Optional.
type Broadcaster interface {
	Broadcast(sig *model.Signal)
}

// Config holds the scheduler's timing and concurrency parameters.
type Config struct {
	Interval      string        // kline interval, e.g. "15m"
	Limit         int           // candles per fetch
	Pacing        time.Duration // delay between symbols within a cycle
	CycleSleep    time.Duration // delay between full cycles
	Workers       int           // concurrent symbol workers; <=1 means strictly sequential
	RefreshCycles int           // re-resolve the universe every N cycles; 0 disables refresh
	Symbols       []string      // static universe override; skips the resolver when set
}

// Deps are the scheduler's collaborators. Broadcaster and Limiter may be nil.
type Deps struct {
	Source      CandleSource
	Resolver    UniverseResolver
	Policy      rule.Policy
	Dispatcher  AlertSink
	Broadcaster Broadcaster
	Limiter     *ratelimit.Limiter
	Metrics     *metrics.Metrics
}

// Scheduler owns the polling loop, the symbol universe, and nothing else:
// per-symbol series and indicator sets never outlive one evaluation.
type Scheduler struct {
	cfg   Config
	deps  Deps
	state atomic.Int32
}

// New creates a scheduler.
func New(cfg Config, deps Deps) *Scheduler {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Scheduler{cfg: cfg, deps: deps}
}

// State returns the current lifecycle phase.
func (s *Scheduler) State() State { return State(s.state.Load()) }

func (s *Scheduler) setState(st State) { s.state.Store(int32(st)) }

// Run executes the polling loop until ctx is cancelled. Cancellation is a
// clean shutdown, not an error.
func (s *Scheduler) Run(ctx context.Context) error {
	symbols := s.resolveUniverse(ctx)

	cycle := 0
	for {
		if ctx.Err() != nil {
			s.setState(StateIdle)
			return nil
		}
		cycle++

		s.setState(StatePolling)
		start := time.Now()
		s.runCycle(ctx, symbols)
		s.deps.Metrics.CycleDuration.Observe(time.Since(start).Seconds())
		s.deps.Metrics.LastCycleUnix.SetToCurrentTime()
		log.Printf("[scheduler] cycle %d complete over %d symbols in %s",
			cycle, len(symbols), time.Since(start).Round(time.Millisecond))

		if s.cfg.RefreshCycles > 0 && cycle%s.cfg.RefreshCycles == 0 {
			symbols = s.resolveUniverse(ctx)
		}

		s.setState(StateCycleSleep)
		if err := sleep(ctx, s.cfg.CycleSleep); err != nil {
			s.setState(StateIdle)
			return nil
		}
	}
}

// resolveUniverse picks the static override when configured, otherwise asks
// the resolver. The resolver never fails (it falls back internally), so
// neither does this.
func (s *Scheduler) resolveUniverse(ctx context.Context) []string {
	s.setState(StateResolving)
	if len(s.cfg.Symbols) > 0 {
		s.deps.Metrics.UniverseSize.Set(float64(len(s.cfg.Symbols)))
		return s.cfg.Symbols
	}
	symbols := s.deps.Resolver.Resolve(ctx)
	s.deps.Metrics.UniverseSize.Set(float64(len(symbols)))
	return symbols
}

func (s *Scheduler) runCycle(ctx context.Context, symbols []string) {
	if s.cfg.Workers > 1 {
		s.runCyclePooled(ctx, symbols)
		return
	}

	for i, sym := range symbols {
		if ctx.Err() != nil {
			return
		}
		s.processSymbol(ctx, sym)
		if i < len(symbols)-1 {
			if err := sleep(ctx, s.cfg.Pacing); err != nil {
				return
			}
		}
	}
}

// runCyclePooled evaluates symbols on a bounded worker pool. The shared token
// bucket rations the outbound request budget; each symbol is still owned by
// exactly one worker, so no evaluation state is shared.
func (s *Scheduler) runCyclePooled(ctx context.Context, symbols []string) {
	work := make(chan string)
	var wg sync.WaitGroup

	for w := 0; w < s.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Keep draining after cancellation so the producer never
			// blocks on a send with no receiver left.
			for sym := range work {
				if ctx.Err() != nil {
					continue
				}
				if s.deps.Limiter != nil {
					if err := s.deps.Limiter.Wait(ctx); err != nil {
						continue
					}
				}
				s.processSymbol(ctx, sym)
			}
		}()
	}

	for _, sym := range symbols {
		select {
		case work <- sym:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(work)
	wg.Wait()
}

// processSymbol runs one fetch→compute→evaluate→dispatch pass. Every failure
// is a skip: nothing here may abort the cycle.
func (s *Scheduler) processSymbol(ctx context.Context, sym string) {
	m := s.deps.Metrics

	fetchStart := time.Now()
	series, err := s.deps.Source.Klines(ctx, sym, s.cfg.Interval, s.cfg.Limit)
	m.FetchTotal.Inc()
	m.FetchDuration.Observe(time.Since(fetchStart).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.FetchFailures.Inc()
		m.SymbolsSkipped.Inc()
		log.Printf("[scheduler] %s skipped: stage=fetch cause=%v", sym, err)
		return
	}

	set, err := indicator.Compute(series)
	if err != nil {
		m.SymbolsSkipped.Inc()
		log.Printf("[scheduler] %s skipped: stage=compute cause=%v", sym, err)
		return
	}

	sig := s.deps.Policy.Evaluate(series, set)
	if sig == nil {
		return
	}
	m.SignalsTotal.WithLabelValues(sig.Policy).Inc()
	log.Printf("[scheduler] %s signal fired: %s", sym, sig.Message)

	res := s.deps.Dispatcher.Dispatch(ctx, sig)
	m.AlertsTotal.WithLabelValues(res.String()).Inc()
	if res == dispatch.Sent && s.deps.Broadcaster != nil {
		s.deps.Broadcaster.Broadcast(sig)
	}
}

// sleep blocks for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
