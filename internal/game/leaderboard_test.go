package game

import (
	"testing"
	"time"

	"friedrich-quiz-service/internal/domain"
)

func TestLeaderboardSortsByScoreThenJoinOrder(t *testing.T) {
	base := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	players := []domain.Player{
		{ID: "a", Name: "Anna", TotalScore: 10, JoinedAt: base},
		{ID: "b", Name: "Ben", TotalScore: 30, JoinedAt: base.Add(time.Second)},
		{ID: "c", Name: "Cleo", TotalScore: 10, JoinedAt: base.Add(2 * time.Second)},
		{ID: "d", Name: "Dora", TotalScore: 25, JoinedAt: base.Add(3 * time.Second)},
	}

	lb := BuildLeaderboard("ABC123", players)
	if lb.RoomID != "ABC123" {
		t.Fatalf("room id %q", lb.RoomID)
	}
	gotOrder := []string{}
	for _, e := range lb.Entries {
		gotOrder = append(gotOrder, e.UserID)
	}
	want := []string{"b", "d", "a", "c"}
	for i := range want {
		if gotOrder[i] != want[i] {
			t.Fatalf("order %v, want %v", gotOrder, want)
		}
	}
	for i, e := range lb.Entries {
		if e.Rank != i+1 {
			t.Fatalf("entry %d has rank %d", i, e.Rank)
		}
	}
}

func TestRankSayings(t *testing.T) {
	if got := rankSaying(1, 4); got != "Du bist HIMM." {
		t.Fatalf("rank 1: %q", got)
	}
	if got := rankSaying(4, 4); got != "Weißt du überhaupt, wer Friedrich ist?" {
		t.Fatalf("last rank: %q", got)
	}
	if got := rankSaying(2, 4); got != middleSayings[0] {
		t.Fatalf("rank 2: %q", got)
	}
	if got := rankSaying(3, 9); got != middleSayings[1] {
		t.Fatalf("rank 3: %q", got)
	}
	// middle sayings cycle
	if got := rankSaying(2+len(middleSayings), 100); got != middleSayings[0] {
		t.Fatalf("cycled rank: %q", got)
	}
}
