package domain

import "time"

// Phase is the shared game phase stored on the room document.
type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhaseQuestion Phase = "question"
	PhaseFeedback Phase = "feedback"
	PhaseResults  Phase = "results"
)

// Room is the single shared document every client converges on.
// Mutated only by the acting host; never deleted within a session.
type Room struct {
	HostID            string    `json:"hostId"`
	Phase             Phase     `json:"phase"`
	QIndex            int       `json:"qIndex"`     // -1 before start
	ScoredUpTo        int       `json:"scoredUpTo"` // highest scored qIndex, monotone, <= QIndex
	QuestionStartedAt time.Time `json:"questionStartedAt"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Player is one participant document, keyed by their anonymous identity.
type Player struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	JoinedAt   time.Time `json:"joinedAt"`
	TotalScore int       `json:"totalScore"`
	LastDelta  int       `json:"lastDelta"`
	LastMsg    string    `json:"lastMsg"`
	ReadyNext  bool      `json:"readyNext"`
}

// GeoPoint is a latitude/longitude pair for map questions.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Answer carries a submitted answer for any question variant. Exactly one
// field is set for a real submission; the zero value models a player who
// never answered.
type Answer struct {
	Option  string    `json:"option,omitempty"`
	Options []string  `json:"options,omitempty"`
	Pick    *GeoPoint `json:"pick,omitempty"`
}

// IsZero reports whether no answer was given.
func (a Answer) IsZero() bool {
	return a.Option == "" && len(a.Options) == 0 && a.Pick == nil
}

// Submission records one player's answer for one question index.
// Stored under the key "{qIndex}_{uid}", written at most once per player
// per question.
type Submission struct {
	UID         string    `json:"uid"`
	QIndex      int       `json:"qIndex"`
	Answer      Answer    `json:"answer"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// LeaderboardEntry is a ranked row of the final scoreboard.
type LeaderboardEntry struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Rank   int    `json:"rank"`
	Score  int    `json:"score"`
	Saying string `json:"saying"`
}

// Leaderboard captures the ordered scoreboard shown in the results phase.
type Leaderboard struct {
	RoomID  string             `json:"roomId"`
	Entries []LeaderboardEntry `json:"entries"`
}
