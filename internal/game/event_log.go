package game

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	EventBufferSize      = 1024                   // Circular history size
	MaxEventsPerSec      = 10000                  // Global rate limit for noisy events
	MaxEventsPerEntity   = 200                    // Per-entity rate limit per second
	BatchFlushSize       = 64                     // Events per subscriber batch
	BatchFlushInterval   = 100 * time.Millisecond // How often subscribers are fed
	EntityLimiterCleanup = 5 * time.Minute        // Cleanup interval for entity limiters
)

// EventSink receives batches of events in sequence order.
type EventSink func(batch []Event)

// EventLog is a bounded, rate-limited event history. Critical events
// (ammo, ability ready, eliminations, results) bypass the limiters.
// Subscribers are fed asynchronously in batches.
type EventLog struct {
	mu        sync.RWMutex
	buffer    [EventBufferSize]Event
	writeHead uint64 // sequence of the newest event
	flushHead uint64 // sequence of the newest event handed to sinks

	globalLimiter  *rate.Limiter
	entityLimiters sync.Map // map[string]*entityLimiterEntry

	sinksMu sync.RWMutex
	sinks   []EventSink

	lifeMu   sync.Mutex // serializes Start and Stop
	writerWg sync.WaitGroup
	stopChan chan struct{}
	running  atomic.Bool

	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
}

type entityLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64 // unix nano
}

// NewEventLog creates a new bounded event log
func NewEventLog() *EventLog {
	return &EventLog{
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
	}
}

// Subscribe registers a sink. Sinks run on the writer goroutine and must
// not block for long.
func (el *EventLog) Subscribe(sink EventSink) {
	el.sinksMu.Lock()
	el.sinks = append(el.sinks, sink)
	el.sinksMu.Unlock()
}

// Start begins the async writer goroutines. A stopped log can be started
// again.
func (el *EventLog) Start() {
	el.lifeMu.Lock()
	defer el.lifeMu.Unlock()
	if el.running.Load() {
		return
	}
	el.running.Store(true)
	el.stopChan = make(chan struct{})
	stop := el.stopChan

	el.writerWg.Add(2)
	go el.writerLoop(stop)
	go el.cleanupLoop(stop)
}

// Stop flushes pending events and shuts down the writer. Stopping a log
// that is not running does nothing.
func (el *EventLog) Stop() {
	el.lifeMu.Lock()
	defer el.lifeMu.Unlock()
	if !el.running.Load() {
		return
	}
	close(el.stopChan)
	el.writerWg.Wait()
	el.running.Store(false)
}

// Emit appends an event. Returns false if it was rate limited.
func (el *EventLog) Emit(event Event) bool {
	if !event.Type.Critical() {
		if !el.globalLimiter.Allow() {
			atomic.AddUint64(&el.droppedCount, 1)
			return false
		}
		if event.EntityID != "" && !el.entityLimiter(event.EntityID).Allow() {
			atomic.AddUint64(&el.droppedCount, 1)
			return false
		}
	}

	el.mu.Lock()
	el.writeHead++
	event.Sequence = el.writeHead
	el.buffer[event.Sequence%EventBufferSize] = event
	if el.writeHead-el.flushHead > EventBufferSize {
		// slow sinks lose the oldest events
		dropped := el.writeHead - el.flushHead - EventBufferSize
		el.flushHead += dropped
		atomic.AddUint64(&el.droppedCount, dropped)
	}
	el.mu.Unlock()

	atomic.AddUint64(&el.totalCount, 1)
	return true
}

// EmitAll appends a tick's worth of events in order.
func (el *EventLog) EmitAll(events []Event) {
	for _, e := range events {
		el.Emit(e)
	}
}

// Since returns buffered events with sequence greater than seq, oldest
// first, up to limit (0 = everything buffered).
func (el *EventLog) Since(seq uint64, limit int) []Event {
	el.mu.RLock()
	defer el.mu.RUnlock()

	oldest := uint64(1)
	if el.writeHead > EventBufferSize {
		oldest = el.writeHead - EventBufferSize + 1
	}
	from := seq + 1
	if from < oldest {
		from = oldest
	}
	if from > el.writeHead {
		return nil
	}

	n := el.writeHead - from + 1
	if limit > 0 && n > uint64(limit) {
		n = uint64(limit)
	}
	out := make([]Event, 0, n)
	for s := from; s < from+n; s++ {
		out = append(out, el.buffer[s%EventBufferSize])
	}
	return out
}

// LastSequence is the sequence of the newest buffered event.
func (el *EventLog) LastSequence() uint64 {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.writeHead
}

func (el *EventLog) entityLimiter(id string) *rate.Limiter {
	now := time.Now().UnixNano()
	if v, ok := el.entityLimiters.Load(id); ok {
		e := v.(*entityLimiterEntry)
		e.lastUsed.Store(now)
		return e.limiter
	}
	entry := &entityLimiterEntry{
		limiter: rate.NewLimiter(MaxEventsPerEntity, MaxEventsPerEntity/10),
	}
	entry.lastUsed.Store(now)
	actual, _ := el.entityLimiters.LoadOrStore(id, entry)
	return actual.(*entityLimiterEntry).limiter
}

// writerLoop feeds subscribers in batches
func (el *EventLog) writerLoop(stop <-chan struct{}) {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			el.flush()
			return
		case <-ticker.C:
			el.flush()
		}
	}
}

// flush hands every unflushed event to the sinks.
func (el *EventLog) flush() {
	for {
		el.mu.Lock()
		batch := el.collectBatch()
		el.mu.Unlock()
		if len(batch) == 0 {
			return
		}

		el.sinksMu.RLock()
		for _, sink := range el.sinks {
			sink(batch)
		}
		el.sinksMu.RUnlock()
	}
}

// collectBatch must be called with el.mu held.
func (el *EventLog) collectBatch() []Event {
	var batch []Event
	for el.flushHead < el.writeHead && len(batch) < BatchFlushSize {
		el.flushHead++
		batch = append(batch, el.buffer[el.flushHead%EventBufferSize])
	}
	return batch
}

// cleanupLoop removes stale entity limiters
func (el *EventLog) cleanupLoop(stop <-chan struct{}) {
	defer el.writerWg.Done()

	ticker := time.NewTicker(EntityLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			el.cleanupEntityLimiters()
		}
	}
}

func (el *EventLog) cleanupEntityLimiters() {
	cutoff := time.Now().Add(-EntityLimiterCleanup).UnixNano()
	el.entityLimiters.Range(func(key, value interface{}) bool {
		if value.(*entityLimiterEntry).lastUsed.Load() < cutoff {
			el.entityLimiters.Delete(key)
		}
		return true
	})
}

// GetStats returns counters for monitoring
func (el *EventLog) GetStats() map[string]interface{} {
	el.mu.RLock()
	pending := el.writeHead - el.flushHead
	el.mu.RUnlock()

	return map[string]interface{}{
		"total":   atomic.LoadUint64(&el.totalCount),
		"dropped": atomic.LoadUint64(&el.droppedCount),
		"pending": pending,
		"running": el.running.Load(),
	}
}

// GetDroppedCount returns the number of dropped events
func (el *EventLog) GetDroppedCount() uint64 {
	return atomic.LoadUint64(&el.droppedCount)
}

// GetTotalCount returns the total number of events accepted
func (el *EventLog) GetTotalCount() uint64 {
	return atomic.LoadUint64(&el.totalCount)
}
