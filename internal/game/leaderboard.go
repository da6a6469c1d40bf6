package game

import (
	"sort"

	"friedrich-quiz-service/internal/domain"
)

var middleSayings = []string{
	"Stabil – aber da geht noch was.",
	"Nicht schlecht, Soldat.",
	"Du bist auf dem richtigen Weg.",
	"Solide Runde.",
	"Fast königlich.",
}

// BuildLeaderboard ranks players by total score descending, ties broken by
// join order.
func BuildLeaderboard(roomID string, players []domain.Player) domain.Leaderboard {
	sorted := make([]domain.Player, len(players))
	copy(sorted, players)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TotalScore != sorted[j].TotalScore {
			return sorted[i].TotalScore > sorted[j].TotalScore
		}
		if !sorted[i].JoinedAt.Equal(sorted[j].JoinedAt) {
			return sorted[i].JoinedAt.Before(sorted[j].JoinedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	lb := domain.Leaderboard{RoomID: roomID, Entries: make([]domain.LeaderboardEntry, 0, len(sorted))}
	for i, p := range sorted {
		rank := i + 1
		lb.Entries = append(lb.Entries, domain.LeaderboardEntry{
			UserID: p.ID,
			Name:   p.Name,
			Rank:   rank,
			Score:  p.TotalScore,
			Saying: rankSaying(rank, len(sorted)),
		})
	}
	return lb
}

func rankSaying(rank, total int) string {
	if rank == 1 {
		return "Du bist HIMM."
	}
	if rank == total {
		return "Weißt du überhaupt, wer Friedrich ist?"
	}
	return middleSayings[(rank-2)%len(middleSayings)]
}
