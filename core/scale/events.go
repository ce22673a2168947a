package scale

import (
	"context"
	"sort"
	"sync"
)

type EventKind string

const (
	Created EventKind = "created"
	Updated EventKind = "updated"
	Deleted EventKind = "deleted"
)

// Event describes a committed change to a grading scale.
// OldName is the name before the change; it differs from Scale.Name on renames.
type Event struct {
	Kind    EventKind
	Scale   GradingScale
	OldName string
}

// Listener is called synchronously after a change is committed.
type Listener func(ctx context.Context, ev Event)

type listeners struct {
	mu     sync.RWMutex
	nextID int
	fns    map[int]Listener
}

func (l *listeners) add(fn Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fns == nil {
		l.fns = make(map[int]Listener)
	}
	id := l.nextID
	l.nextID++
	l.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

func (l *listeners) notify(ctx context.Context, ev Event) {
	l.mu.RLock()
	ids := make([]int, 0, len(l.fns))
	for id := range l.fns {
		ids = append(ids, id)
	}
	l.mu.RUnlock()

	// registration order
	sort.Ints(ids)
	for _, id := range ids {
		l.mu.RLock()
		fn, ok := l.fns[id]
		l.mu.RUnlock()
		if ok {
			fn(ctx, ev)
		}
	}
}
