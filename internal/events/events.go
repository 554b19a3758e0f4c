// Package events implements a process-wide event channel: a typed,
// bounded-fan-out broadcast bus for semantic index lifecycle
// notifications. Subscribers are independent and a slow subscriber
// cannot block the publisher or other subscribers.
package events

import (
	"log/slog"
	"sync"
)

// Kind identifies an event's type.
type Kind string

const (
	KindSemanticIndexBuildStarted   Kind = "semanticIndexBuildStarted"
	KindSemanticIndexBuildFinished  Kind = "semanticIndexBuildFinished"
	KindSemanticIndexUpdateStarted  Kind = "semanticIndexUpdateStarted"
	KindSemanticIndexUpdateFinished Kind = "semanticIndexUpdateFinished"
)

// Event is the closed event enum payload. Only the fields relevant to Kind are populated.
type Event struct {
	Kind    Kind
	RepoID  string
	Payload Payload
}

// Payload carries the fields specific to a given Kind. Unused fields are
// left at their zero value.
type Payload struct {
	FilesProcessed int
	ChunksEmbedded int
	ChangedFiles   int
	RemovedFiles   int
	DurationMs     int64
}

// BuildStarted constructs a semanticIndexBuildStarted event.
func BuildStarted(repoID string) Event {
	return Event{Kind: KindSemanticIndexBuildStarted, RepoID: repoID}
}

// BuildFinished constructs a semanticIndexBuildFinished event.
func BuildFinished(repoID string, filesProcessed, chunksEmbedded int, durationMs int64) Event {
	return Event{
		Kind:   KindSemanticIndexBuildFinished,
		RepoID: repoID,
		Payload: Payload{
			FilesProcessed: filesProcessed,
			ChunksEmbedded: chunksEmbedded,
			DurationMs:     durationMs,
		},
	}
}

// UpdateStarted constructs a semanticIndexUpdateStarted event.
func UpdateStarted(repoID string) Event {
	return Event{Kind: KindSemanticIndexUpdateStarted, RepoID: repoID}
}

// UpdateFinished constructs a semanticIndexUpdateFinished event.
func UpdateFinished(repoID string, changedFiles, removedFiles int, durationMs int64) Event {
	return Event{
		Kind:   KindSemanticIndexUpdateFinished,
		RepoID: repoID,
		Payload: Payload{
			ChangedFiles: changedFiles,
			RemovedFiles: removedFiles,
			DurationMs:   durationMs,
		},
	}
}

// subscriberBufferSize bounds per-subscriber fan-out so one slow listener
// cannot grow without limit.
const subscriberBufferSize = 32

// Bus is a process-wide, bounded-fan-out event broadcaster. The zero value
// is not usable; construct with NewBus.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a new listener and returns a channel of events plus
// an unsubscribe function. The caller must call unsubscribe when done
// listening, or the channel leaks for the life of the bus.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, subscriberBufferSize)
	b.subs[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(existing)
		}
	}
	return ch, unsubscribe
}

// Publish broadcasts an event to every current subscriber. A subscriber
// whose buffer is full has the event dropped for it rather than blocking
// the publisher.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			slog.Warn("events: subscriber buffer full, dropping event",
				slog.Int("subscriber_id", id),
				slog.String("kind", string(ev.Kind)),
				slog.String("repo_id", ev.RepoID),
			)
		}
	}
}

// Close unsubscribes and closes every subscriber channel. Safe to call
// once; the bus is not usable afterward.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
