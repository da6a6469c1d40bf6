package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"friedrich-quiz-service/internal/store"
)

// Store is an in-process implementation of store.Store. Each watcher gets
// its own ordered queue drained by a dedicated goroutine, which gives
// every client commit-ordered snapshots that include its own writes.
type Store struct {
	mu       sync.Mutex
	docs     map[string]store.Fields
	watchers map[*watcher]struct{}
}

func NewStore() *Store {
	return &Store{
		docs:     make(map[string]store.Fields),
		watchers: make(map[*watcher]struct{}),
	}
}

func (s *Store) Get(_ context.Context, path string) (store.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields, ok := s.docs[path]
	if !ok {
		return store.Snapshot{}, false, nil
	}
	return store.Snapshot{Path: path, Fields: cloneFields(fields)}, true, nil
}

func (s *Store) Set(ctx context.Context, path string, fields store.Fields, merge bool) error {
	return s.Apply(ctx, store.Batch{Writes: []store.Write{{Path: path, Fields: fields, Replace: !merge}}})
}

func (s *Store) Update(_ context.Context, path string, fields store.Fields) error {
	s.mu.Lock()
	if _, ok := s.docs[path]; !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	s.applyLocked([]store.Write{{Path: path, Fields: fields}})
	s.mu.Unlock()
	return nil
}

func (s *Store) Apply(_ context.Context, batch store.Batch) error {
	s.mu.Lock()
	for _, g := range batch.Guards {
		fields, ok := s.docs[g.Path]
		if !ok || !store.ValuesEqual(fields[g.Field], g.Want) {
			s.mu.Unlock()
			return store.ErrPreconditionFailed
		}
	}
	s.applyLocked(batch.Writes)
	s.mu.Unlock()
	return nil
}

// applyLocked commits writes and enqueues fresh views to affected watchers.
func (s *Store) applyLocked(writes []store.Write) {
	changed := make(map[string]bool, len(writes))
	for _, w := range writes {
		doc := s.docs[w.Path]
		if doc == nil || w.Replace {
			doc = make(store.Fields, len(w.Fields))
		}
		for k, v := range w.Fields {
			if inc, ok := v.(store.Increment); ok {
				doc[k] = addValue(doc[k], int64(inc))
				continue
			}
			doc[k] = v
		}
		s.docs[w.Path] = doc
		changed[w.Path] = true
	}

	for w := range s.watchers {
		if w.matchesAny(changed) {
			w.enqueue(s.viewLocked(w))
		}
	}
}

func (s *Store) List(_ context.Context, collection string) ([]store.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.childrenLocked(collection), nil
}

func (s *Store) Watch(_ context.Context, target string, fn func([]store.Snapshot)) (func(), error) {
	if target == "" {
		return nil, fmt.Errorf("watch: empty target")
	}
	w := newWatcher(target, fn)

	s.mu.Lock()
	s.watchers[w] = struct{}{}
	w.enqueue(s.viewLocked(w))
	s.mu.Unlock()

	go w.run()

	cancel := func() {
		s.mu.Lock()
		delete(s.watchers, w)
		s.mu.Unlock()
		w.close()
	}
	return cancel, nil
}

func (s *Store) viewLocked(w *watcher) []store.Snapshot {
	if w.collection {
		return s.childrenLocked(w.target)
	}
	fields, ok := s.docs[w.target]
	if !ok {
		return nil
	}
	return []store.Snapshot{{Path: w.target, Fields: cloneFields(fields)}}
}

func (s *Store) childrenLocked(collection string) []store.Snapshot {
	var snaps []store.Snapshot
	for path, fields := range s.docs {
		if store.Parent(path) == collection {
			snaps = append(snaps, store.Snapshot{Path: path, Fields: cloneFields(fields)})
		}
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Path < snaps[j].Path })
	return snaps
}

type watcher struct {
	target     string
	collection bool
	fn         func([]store.Snapshot)

	mu     sync.Mutex
	cond   *sync.Cond
	queue  [][]store.Snapshot
	closed bool
}

func newWatcher(target string, fn func([]store.Snapshot)) *watcher {
	w := &watcher{
		target:     target,
		collection: store.IsCollection(target),
		fn:         fn,
	}
	w.cond = sync.NewCond(&w.mu)
	return w
}

func (w *watcher) matchesAny(paths map[string]bool) bool {
	if !w.collection {
		return paths[w.target]
	}
	for path := range paths {
		if store.Parent(path) == w.target {
			return true
		}
	}
	return false
}

func (w *watcher) enqueue(view []store.Snapshot) {
	w.mu.Lock()
	if !w.closed {
		w.queue = append(w.queue, view)
		w.cond.Signal()
	}
	w.mu.Unlock()
}

func (w *watcher) run() {
	for {
		w.mu.Lock()
		for len(w.queue) == 0 && !w.closed {
			w.cond.Wait()
		}
		if len(w.queue) == 0 {
			w.mu.Unlock()
			return
		}
		view := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()
		w.fn(view)
	}
}

func (w *watcher) close() {
	w.mu.Lock()
	w.closed = true
	w.queue = nil
	w.cond.Signal()
	w.mu.Unlock()
}

// cloneFields normalizes a document through JSON so watchers see the same
// value types a remote store would hand back.
func cloneFields(fields store.Fields) store.Fields {
	data, err := json.Marshal(fields)
	if err != nil {
		return store.Fields{}
	}
	var out store.Fields
	if err := json.Unmarshal(data, &out); err != nil {
		return store.Fields{}
	}
	return out
}

func addValue(existing any, delta int64) any {
	switch v := existing.(type) {
	case nil:
		return delta
	case int:
		return int64(v) + delta
	case int64:
		return v + delta
	case float64:
		return v + float64(delta)
	case json.Number:
		f, _ := v.Float64()
		return f + float64(delta)
	default:
		return delta
	}
}
