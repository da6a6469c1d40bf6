package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"friedrich-quiz-service/internal/store"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStore(client), mr
}

func TestSetGetRoundtrip(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	err := s.Set(ctx, "rooms/AAAAAA", store.Fields{"phase": "lobby", "qIndex": -1, "hostId": "u1"}, false)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("doc:rooms/AAAAAA") {
		t.Fatalf("expected doc hash in redis")
	}

	snap, ok, err := s.Get(ctx, "rooms/AAAAAA")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if snap.Fields["phase"] != "lobby" || snap.Fields["hostId"] != "u1" {
		t.Fatalf("fields %v", snap.Fields)
	}
	if !store.ValuesEqual(snap.Fields["qIndex"], -1) {
		t.Fatalf("qIndex %v", snap.Fields["qIndex"])
	}
}

func TestUpdateMissingDoc(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.Update(context.Background(), "rooms/AAAAAA", store.Fields{"phase": "question"}); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApplyIncrementAndGuard(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_ = s.Set(ctx, "rooms/AAAAAA", store.Fields{"scoredUpTo": -1}, false)
	_ = s.Set(ctx, "rooms/AAAAAA/players/u1", store.Fields{"totalScore": 0}, false)

	batch := store.Batch{
		Guards: []store.Guard{{Path: "rooms/AAAAAA", Field: "scoredUpTo", Want: -1}},
		Writes: []store.Write{
			{Path: "rooms/AAAAAA/players/u1", Fields: store.Fields{"totalScore": store.Increment(10), "lastDelta": 10}},
			{Path: "rooms/AAAAAA", Fields: store.Fields{"scoredUpTo": 0, "phase": "feedback"}},
		},
	}
	if err := s.Apply(ctx, batch); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := s.Apply(ctx, batch); err != store.ErrPreconditionFailed {
		t.Fatalf("replayed apply: expected ErrPreconditionFailed, got %v", err)
	}

	snap, _, err := s.Get(ctx, "rooms/AAAAAA/players/u1")
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if !store.ValuesEqual(snap.Fields["totalScore"], 10) {
		t.Fatalf("totalScore %v, want 10", snap.Fields["totalScore"])
	}
}

func TestListTracksCollectionMembership(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_ = s.Set(ctx, "rooms/AAAAAA/players/u2", store.Fields{"name": "Bob"}, false)
	_ = s.Set(ctx, "rooms/AAAAAA/players/u1", store.Fields{"name": "Alice"}, false)
	_ = s.Set(ctx, "rooms/AAAAAA/submissions/0_u1", store.Fields{"uid": "u1"}, false)

	snaps, err := s.List(ctx, "rooms/AAAAAA/players")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 players, got %d", len(snaps))
	}
	if snaps[0].Path != "rooms/AAAAAA/players/u1" {
		t.Fatalf("expected path-sorted result, got %v", snaps[0].Path)
	}
}

func TestWatchDeliversOnPublish(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_ = s.Set(ctx, "rooms/AAAAAA", store.Fields{"phase": "lobby"}, false)

	got := make(chan []store.Snapshot, 16)
	cancel, err := s.Watch(ctx, "rooms/AAAAAA", func(view []store.Snapshot) {
		got <- view
	})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer cancel()

	initial := recvView(t, got)
	if len(initial) != 1 || initial[0].Fields["phase"] != "lobby" {
		t.Fatalf("initial view %v", initial)
	}

	if err := s.Update(ctx, "rooms/AAAAAA", store.Fields{"phase": "question"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	view := recvView(t, got)
	if view[0].Fields["phase"] != "question" {
		t.Fatalf("after update: %v", view)
	}
}

func recvView(t *testing.T, ch chan []store.Snapshot) []store.Snapshot {
	t.Helper()
	select {
	case view := <-ch:
		return view
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for watch callback")
		return nil
	}
}
