package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"friedrich-quiz-service/internal/store"
)

// Store implements store.Store on Redis so multiple service instances can
// coordinate the same rooms.
//
// Layout:
//   - one hash per document at "doc:{path}", fields JSON-encoded
//   - collection membership in a set at "col:{collection}"
//   - change notifications published per room on "watch:{rooms/CODE}"
//
// Batch guards run as an optimistic WATCH/MULTI transaction on the guarded
// documents, which is the compare-and-swap the phase controller relies on.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Get(ctx context.Context, path string) (store.Snapshot, bool, error) {
	raw, err := s.client.HGetAll(ctx, docKey(path)).Result()
	if err != nil {
		return store.Snapshot{}, false, err
	}
	if len(raw) == 0 {
		return store.Snapshot{}, false, nil
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return store.Snapshot{}, false, err
	}
	return store.Snapshot{Path: path, Fields: fields}, true, nil
}

func (s *Store) Set(ctx context.Context, path string, fields store.Fields, merge bool) error {
	return s.Apply(ctx, store.Batch{Writes: []store.Write{{Path: path, Fields: fields, Replace: !merge}}})
}

func (s *Store) Update(ctx context.Context, path string, fields store.Fields) error {
	exists, err := s.client.Exists(ctx, docKey(path)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return store.ErrNotFound
	}
	return s.Apply(ctx, store.Batch{Writes: []store.Write{{Path: path, Fields: fields}}})
}

func (s *Store) Apply(ctx context.Context, batch store.Batch) error {
	if len(batch.Guards) == 0 {
		if _, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return queueWrites(ctx, pipe, batch.Writes)
		}); err != nil {
			return err
		}
		s.publish(ctx, batch.Writes)
		return nil
	}

	keys := make([]string, 0, len(batch.Guards))
	seen := make(map[string]bool, len(batch.Guards))
	for _, g := range batch.Guards {
		if key := docKey(g.Path); !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		for _, g := range batch.Guards {
			raw, err := tx.HGet(ctx, docKey(g.Path), g.Field).Result()
			if errors.Is(err, redis.Nil) {
				return store.ErrPreconditionFailed
			}
			if err != nil {
				return err
			}
			var got any
			if err := json.Unmarshal([]byte(raw), &got); err != nil {
				return err
			}
			if !store.ValuesEqual(got, g.Want) {
				return store.ErrPreconditionFailed
			}
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return queueWrites(ctx, pipe, batch.Writes)
		})
		return err
	}, keys...)
	if errors.Is(err, redis.TxFailedErr) {
		// A concurrent writer touched a guarded document mid-transaction.
		// The reconcile loop re-evaluates from fresh state, so losing here
		// is equivalent to the guard failing.
		return store.ErrPreconditionFailed
	}
	if err != nil {
		return err
	}
	s.publish(ctx, batch.Writes)
	return nil
}

func (s *Store) List(ctx context.Context, collection string) ([]store.Snapshot, error) {
	members, err := s.client.SMembers(ctx, colKey(collection)).Result()
	if err != nil {
		return nil, err
	}
	snaps := make([]store.Snapshot, 0, len(members))
	for _, path := range members {
		snap, ok, err := s.Get(ctx, path)
		if err != nil {
			return nil, err
		}
		if ok {
			snaps = append(snaps, snap)
		}
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Path < snaps[j].Path })
	return snaps, nil
}

func (s *Store) Watch(ctx context.Context, target string, fn func([]store.Snapshot)) (func(), error) {
	pubsub := s.client.Subscribe(ctx, channelFor(target))
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, err
	}
	msgs := pubsub.Channel()
	done := make(chan struct{})

	go func() {
		if view, err := s.view(ctx, target); err == nil {
			fn(view)
		} else {
			log.Printf("store watch %s: initial read: %v", target, err)
		}
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				if !targetMatches(target, msg.Payload) {
					continue
				}
				view, err := s.view(context.Background(), target)
				if err != nil {
					log.Printf("store watch %s: read: %v", target, err)
					continue
				}
				fn(view)
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}
	return cancel, nil
}

func (s *Store) view(ctx context.Context, target string) ([]store.Snapshot, error) {
	if store.IsCollection(target) {
		return s.List(ctx, target)
	}
	snap, ok, err := s.Get(ctx, target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return []store.Snapshot{snap}, nil
}

func (s *Store) publish(ctx context.Context, writes []store.Write) {
	published := make(map[string]bool, len(writes))
	for _, w := range writes {
		if published[w.Path] {
			continue
		}
		published[w.Path] = true
		// best-effort: a dropped notification is covered by the next write
		_ = s.client.Publish(ctx, channelFor(w.Path), w.Path).Err()
	}
}

func queueWrites(ctx context.Context, pipe redis.Pipeliner, writes []store.Write) error {
	for _, w := range writes {
		key := docKey(w.Path)
		if w.Replace {
			pipe.Del(ctx, key)
		}
		for field, value := range w.Fields {
			if inc, ok := value.(store.Increment); ok {
				pipe.HIncrBy(ctx, key, field, int64(inc))
				continue
			}
			data, err := json.Marshal(value)
			if err != nil {
				return err
			}
			pipe.HSet(ctx, key, field, string(data))
		}
		pipe.SAdd(ctx, colKey(store.Parent(w.Path)), w.Path)
	}
	return nil
}

func targetMatches(target, path string) bool {
	if store.IsCollection(target) {
		return store.Parent(path) == target
	}
	return path == target
}

func docKey(path string) string {
	return "doc:" + path
}

func colKey(collection string) string {
	return "col:" + collection
}

// channelFor scopes notifications to one room: every path below
// "rooms/CODE" shares the "watch:rooms/CODE" channel.
func channelFor(path string) string {
	parts := strings.SplitN(path, "/", 3)
	if len(parts) < 2 {
		return "watch:" + path
	}
	return "watch:" + parts[0] + "/" + parts[1]
}

func decodeFields(raw map[string]string) (store.Fields, error) {
	fields := make(store.Fields, len(raw))
	for k, v := range raw {
		var value any
		if err := json.Unmarshal([]byte(v), &value); err != nil {
			return nil, err
		}
		fields[k] = value
	}
	return fields, nil
}
