// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package batch coalesces bursts of part events into fixed flush windows.
package batch

import (
	"sync"
	"time"

	"github.com/jeranaias/chamber-tui/internal/model"
)

// DefaultWindow is the batching window for ordinary part events.
// Text deltas arriving within one window are applied in a single pass.
const DefaultWindow = 50 * time.Millisecond

// =============================================================================
// PART EVENT
// =============================================================================

// PartEvent is one inbound part update from the event stream.
type PartEvent struct {
	SessionID       string
	MessageID       string
	Part            model.Part
	Role            model.Role
	ActiveSessionID string
}

// Apply consumes one event against live state. Events within a flush are
// applied strictly in enqueue order, so event n sees the effects of n-1.
type Apply func(PartEvent)

// =============================================================================
// QUEUE
// =============================================================================

// Queue is a single-consumer micro-batcher for part events.
//
// The first enqueue into an empty queue schedules a flush one window later;
// subsequent enqueues within the window do not reschedule. A terminal
// step-finish part overrides the window and drains synchronously, so the
// "turn complete" transition is never delayed by batching.
//
// Flushes never overlap: events enqueued while a flush is applying land in
// the next batch. A terminal part arriving mid-flush marks that next batch
// urgent, so it drains as soon as the current one completes instead of
// waiting out another window. All mutation is serialized behind one mutex,
// standing in for the single-threaded event loop this contract comes from.
type Queue struct {
	mu       sync.Mutex
	window   time.Duration
	apply    Apply
	queue    []PartEvent
	timer    *time.Timer
	flushing bool
	urgent   bool
	stopped  bool
}

// NewQueue creates a queue flushing into apply. A window of zero uses
// DefaultWindow.
func NewQueue(window time.Duration, apply Apply) *Queue {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Queue{window: window, apply: apply}
}

// Enqueue appends an event. Terminal parts flush the whole queue
// immediately and synchronously, cancelling any pending timer.
func (q *Queue) Enqueue(ev PartEvent) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.queue = append(q.queue, ev)

	if ev.Part.IsTerminal() {
		if q.flushing {
			q.urgent = true
			q.mu.Unlock()
			return
		}
		q.mu.Unlock()
		q.flush()
		return
	}

	if q.timer == nil && !q.flushing {
		q.timer = time.AfterFunc(q.window, q.flush)
	}
	q.mu.Unlock()
}

// Flush drains the current batch immediately. Exposed for shutdown paths
// that must not lose buffered events.
func (q *Queue) Flush() {
	q.flush()
}

// Stop cancels any pending flush timer and rejects further enqueues.
// Already-buffered events are drained first.
func (q *Queue) Stop() {
	q.flush()
	q.mu.Lock()
	q.stopped = true
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.mu.Unlock()
}

// Pending returns the number of buffered events. Useful for tests.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// flush snapshots the queue and applies it in order. A flush in progress
// makes this a no-op; events enqueued mid-flush are picked up by a freshly
// scheduled timer once the current batch completes, or drained right away
// when one of them was terminal.
func (q *Queue) flush() {
	q.mu.Lock()
	if q.flushing {
		q.mu.Unlock()
		return
	}
	q.flushing = true
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	pending := q.queue
	q.queue = nil
	q.mu.Unlock()

	for i := range pending {
		q.apply(pending[i])
	}

	q.mu.Lock()
	q.flushing = false
	urgent := q.urgent
	q.urgent = false
	more := len(q.queue) > 0
	if more && !urgent && q.timer == nil && !q.stopped {
		q.timer = time.AfterFunc(q.window, q.flush)
	}
	q.mu.Unlock()

	if more && urgent {
		q.flush()
	}
}
