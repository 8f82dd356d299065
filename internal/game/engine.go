package game

import (
	"fmt"
	"log"
	"sync"
	"time"

	"showdown/internal/config"
)

// TickStats describes one completed tick for metrics.
type TickStats struct {
	Duration time.Duration
	Match    MatchStats
	Events   int
	Outcome  Outcome
}

// Engine drives a Match in real time. It owns the only goroutine that
// mutates the match; other goroutines submit input and read published
// snapshots.
type Engine struct {
	mu     sync.RWMutex
	cfg    config.SimConfig
	roster *Roster
	match  *Match
	input  Input

	tickRate int
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}

	tickCount int64

	eventLog  *EventLog
	snapshots SnapshotStore

	onTick func(TickStats)
}

// NewEngine creates an engine with no match running.
func NewEngine(cfg config.SimConfig, roster *Roster) *Engine {
	if roster == nil {
		roster = DefaultRoster()
	}
	tickRate := cfg.Match.TickRate
	if tickRate <= 0 {
		tickRate = config.DefaultMatch().TickRate
	}
	return &Engine{
		cfg:      cfg,
		roster:   roster,
		tickRate: tickRate,
		eventLog: NewEventLog(),
	}
}

// SetTickObserver registers a callback invoked after every tick, outside
// the engine lock.
func (e *Engine) SetTickObserver(fn func(TickStats)) {
	e.mu.Lock()
	e.onTick = fn
	e.mu.Unlock()
}

// Start begins the real-time loop and the event log writer
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopChan = make(chan struct{})
	e.ticker = time.NewTicker(time.Second / time.Duration(e.tickRate))
	ticker, stop := e.ticker, e.stopChan
	e.mu.Unlock()

	e.eventLog.Start()

	go func() {
		for {
			select {
			case <-ticker.C:
				e.tick()
			case <-stop:
				return
			}
		}
	}()

	log.Printf("🎮 Simulation engine started at %d TPS", e.tickRate)
}

// Stop stops the loop and flushes the event log
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.ticker.Stop()
	close(e.stopChan)
	e.mu.Unlock()

	e.eventLog.Stop()
	log.Println("🛑 Simulation engine stopped")
}

// Running reports whether the loop is active.
func (e *Engine) Running() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// TickRate is the loop frequency.
func (e *Engine) TickRate() int { return e.tickRate }

// StartMatch replaces the current match. Zero-valued options take the
// configured defaults.
func (e *Engine) StartMatch(opts MatchOptions) (*Snapshot, error) {
	if opts.Mode == "" {
		opts.Mode = ParseMode(e.cfg.Match.Mode)
	}
	if opts.Mode != ModeShowdown && opts.Mode != ModeKnockout {
		return nil, fmt.Errorf("unknown mode %q", opts.Mode)
	}
	if opts.Bots < 0 {
		return nil, fmt.Errorf("bots must be >= 0, got %d", opts.Bots)
	}
	if opts.Bots == 0 {
		if opts.Mode == ModeKnockout {
			opts.Bots = e.cfg.Match.KnockoutBots
		} else {
			opts.Bots = e.cfg.Match.ShowdownBots
		}
	}
	if limit := e.cfg.Limits.MaxEntities - 1; limit > 0 && opts.Bots > limit {
		return nil, fmt.Errorf("bots must be <= %d, got %d", limit, opts.Bots)
	}
	if opts.Seed == 0 {
		opts.Seed = e.cfg.Match.Seed
	}

	m := NewMatch(opts, e.cfg, e.roster)

	e.mu.Lock()
	e.match = m
	e.input = Input{}
	e.eventLog.EmitAll(m.DrainEvents())
	snap := e.snapshots.Produce(m)
	e.mu.Unlock()

	return snap, nil
}

// SetInput replaces the held input. Fire and Ability latch until the next
// tick consumes them.
func (e *Engine) SetInput(in Input) {
	e.mu.Lock()
	in.Fire = in.Fire || e.input.Fire
	in.Ability = in.Ability || e.input.Ability
	e.input = in
	e.mu.Unlock()
}

func (e *Engine) tick() {
	e.Step(time.Second / time.Duration(e.tickRate))
}

// Step advances the current match by dt. The real-time loop calls it every
// tick; tests and the terminal client may call it directly.
func (e *Engine) Step(dt time.Duration) {
	start := time.Now()

	e.mu.Lock()
	m := e.match
	if m == nil {
		e.mu.Unlock()
		return
	}
	e.tickCount++

	m.SetInput(e.input)
	e.input.Fire = false
	e.input.Ability = false
	m.Update(dt)

	events := m.DrainEvents()
	events = append(events, NewEvent(EventTick, m.TickCount, "", TickPayload{
		Elapsed:     m.Now.Seconds(),
		EntityCount: len(m.Entities),
		DeltaTimeNs: dt.Nanoseconds(),
	}))
	e.eventLog.EmitAll(events)
	e.snapshots.Produce(m)

	stats := TickStats{
		Duration: time.Since(start),
		Match:    m.Stats(),
		Events:   len(events),
		Outcome:  m.Outcome,
	}
	observer := e.onTick
	e.mu.Unlock()

	if observer != nil {
		observer(stats)
	}
}

// GetSnapshot returns the latest published snapshot (nil before the first
// match).
func (e *Engine) GetSnapshot() *Snapshot {
	return e.snapshots.Latest()
}

// Events returns buffered events after sequence since.
func (e *Engine) Events(since uint64, limit int) []Event {
	return e.eventLog.Since(since, limit)
}

// EventLog exposes the bus for subscribers.
func (e *Engine) EventLog() *EventLog { return e.eventLog }

// Roster is the character table in use.
func (e *Engine) Roster() *Roster { return e.roster }

// GetEventLogStats returns event bus counters
func (e *Engine) GetEventLogStats() map[string]interface{} {
	return e.eventLog.GetStats()
}

// MatchStats reports the current match counters.
func (e *Engine) MatchStats() (MatchStats, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.match == nil {
		return MatchStats{}, false
	}
	return e.match.Stats(), true
}
