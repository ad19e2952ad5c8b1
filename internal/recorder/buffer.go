package recorder

import (
	"context"
	"sync"
)

// Buffer queues accepted footprints until a flush delivers them to the
// persistence service. Delivery is at-least-once: a failed flush leaves the
// queue untouched for the next attempt.
type Buffer struct {
	mu       sync.Mutex
	pending  []*Footprint
	inFlight bool

	poster Poster
	userID string
}

func NewBuffer(poster Poster, userID string) *Buffer {
	return &Buffer{poster: poster, userID: userID}
}

// Enqueue appends a footprint. Never blocks.
func (b *Buffer) Enqueue(fp Footprint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, &fp)
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Flush posts a snapshot of the pending queue. Only one flush runs at a
// time; a concurrent call returns immediately so the same batch is never
// submitted twice. On success exactly the snapshotted items are removed,
// so footprints enqueued while the post was in flight survive into the
// next flush.
func (b *Buffer) Flush(ctx context.Context) error {
	b.mu.Lock()
	if b.inFlight || len(b.pending) == 0 {
		b.mu.Unlock()
		return nil
	}
	b.inFlight = true
	snapshot := make([]*Footprint, len(b.pending))
	copy(snapshot, b.pending)
	b.mu.Unlock()

	batch := make([]Footprint, len(snapshot))
	for i, fp := range snapshot {
		batch[i] = *fp
	}
	_, err := b.poster.BulkCreateFootprints(ctx, b.userID, batch)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.inFlight = false
	if err != nil {
		return err
	}

	sent := make(map[*Footprint]struct{}, len(snapshot))
	for _, fp := range snapshot {
		sent[fp] = struct{}{}
	}
	kept := b.pending[:0]
	for _, fp := range b.pending {
		if _, ok := sent[fp]; !ok {
			kept = append(kept, fp)
		}
	}
	b.pending = kept
	return nil
}
