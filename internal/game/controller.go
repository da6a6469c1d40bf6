package game

import (
	"context"
	"errors"
	"fmt"
	"log"

	"friedrich-quiz-service/internal/domain"
	"friedrich-quiz-service/internal/quiz"
	"friedrich-quiz-service/internal/store"
)

// reconcile is the single reconciliation function behind both the watch
// callbacks and the poll ticker. It is safe to invoke redundantly: every
// transition it commits is an atomic batch guarded on the expected prior
// phase state, so a second invocation (or a second client acting as host)
// loses the compare-and-swap instead of double-applying.
func (s *Session) reconcile(ctx context.Context) {
	s.mu.Lock()
	if s.closed || s.room == nil || s.room.HostID != s.uid {
		s.mu.Unlock()
		return
	}
	room := *s.room
	code := s.roomID
	players := make([]domain.Player, len(s.players))
	copy(players, s.players)
	subs := make([]domain.Submission, 0, len(s.submissions))
	for _, sub := range s.submissions {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	var err error
	switch room.Phase {
	case domain.PhaseQuestion:
		err = s.finishQuestion(ctx, code, room, players, subs)
	case domain.PhaseFeedback:
		err = s.advanceFromFeedback(ctx, code, room, players)
	}
	if err != nil && !errors.Is(err, store.ErrPreconditionFailed) {
		log.Printf("host %s: reconcile room %s: %v", s.uid, code, err)
	}
}

// StartGame moves the room out of the lobby into question 0. Host only.
func (s *Session) StartGame(ctx context.Context) error {
	s.mu.Lock()
	room := s.room
	code := s.roomID
	players := make([]domain.Player, len(s.players))
	copy(players, s.players)
	s.mu.Unlock()

	if room == nil {
		// the initial watch snapshot may not have landed yet
		snap, ok, err := s.store.Get(ctx, roomPath(code))
		if err != nil {
			return fmt.Errorf("start game: %w", err)
		}
		if !ok {
			return domain.ErrRoomNotFound
		}
		fresh := &domain.Room{}
		if err := snap.Decode(fresh); err != nil {
			return fmt.Errorf("start game: %w", err)
		}
		room = fresh
	}
	if room.HostID != s.uid {
		return domain.ErrNotHost
	}
	if len(players) == 0 {
		players = []domain.Player{{ID: s.uid}}
	}
	err := s.startQuestion(ctx, code, players, 0, []store.Guard{
		{Path: roomPath(code), Field: "phase", Want: domain.PhaseLobby},
	})
	if errors.Is(err, store.ErrPreconditionFailed) {
		// already started, nothing to do
		return nil
	}
	return err
}

// startQuestion resets every player's readiness and flips the room into
// the question phase, all in one guarded batch.
func (s *Session) startQuestion(ctx context.Context, code string, players []domain.Player, qIndex int, guards []store.Guard) error {
	batch := store.Batch{Guards: guards}
	for _, p := range players {
		batch.Writes = append(batch.Writes, store.Write{
			Path:   playerPath(code, p.ID),
			Fields: store.Fields{"readyNext": false},
		})
	}
	batch.Writes = append(batch.Writes, store.Write{
		Path: roomPath(code),
		Fields: store.Fields{
			"phase":             domain.PhaseQuestion,
			"qIndex":            qIndex,
			"questionStartedAt": s.clock(),
		},
	})
	return s.store.Apply(ctx, batch)
}

// finishQuestion commits the question→feedback transition once every
// current player has submitted (or the answer timeout has passed). Scoring
// and the scoredUpTo bump share one batch guarded on scoredUpTo still
// being qIndex-1, so redundant hosts cannot double-apply increments.
func (s *Session) finishQuestion(ctx context.Context, code string, room domain.Room, players []domain.Player, subs []domain.Submission) error {
	q := room.QIndex
	if q < 0 || q >= len(s.set.Questions) || len(players) == 0 {
		return nil
	}
	if room.ScoredUpTo >= q {
		return nil
	}

	byUID := make(map[string]domain.Submission, len(subs))
	for _, sub := range subs {
		if sub.QIndex == q {
			byUID[sub.UID] = sub
		}
	}
	complete := true
	for _, p := range players {
		if _, ok := byUID[p.ID]; !ok {
			complete = false
			break
		}
	}
	if !complete && !s.questionExpired(room) {
		return nil
	}

	// Fresh read narrows the race window; the guard below closes it.
	snap, ok, err := s.store.Get(ctx, roomPath(code))
	if err != nil {
		return fmt.Errorf("recheck room: %w", err)
	}
	if !ok {
		return nil
	}
	var fresh domain.Room
	if err := snap.Decode(&fresh); err != nil {
		return fmt.Errorf("recheck room: %w", err)
	}
	if fresh.ScoredUpTo >= q {
		return nil
	}

	question := s.set.Questions[q]
	batch := store.Batch{
		Guards: []store.Guard{{Path: roomPath(code), Field: "scoredUpTo", Want: q - 1}},
	}
	for _, p := range players {
		// a missing submission scores as the empty answer
		points, msg := quiz.Score(question, byUID[p.ID].Answer)
		batch.Writes = append(batch.Writes, store.Write{
			Path: playerPath(code, p.ID),
			Fields: store.Fields{
				"totalScore": store.Increment(points),
				"lastDelta":  points,
				"lastMsg":    msg,
			},
		})
	}
	batch.Writes = append(batch.Writes, store.Write{
		Path: roomPath(code),
		Fields: store.Fields{
			"phase":      domain.PhaseFeedback,
			"scoredUpTo": q,
		},
	})
	return s.store.Apply(ctx, batch)
}

func (s *Session) questionExpired(room domain.Room) bool {
	if s.cfg.AnswerTimeout <= 0 || room.QuestionStartedAt.IsZero() {
		return false
	}
	return s.clock().Sub(room.QuestionStartedAt) >= s.cfg.AnswerTimeout
}

// advanceFromFeedback moves to the next question, or to results after the
// last one, once every player has pressed "Weiter".
func (s *Session) advanceFromFeedback(ctx context.Context, code string, room domain.Room, players []domain.Player) error {
	if len(players) == 0 {
		return nil
	}
	for _, p := range players {
		if !p.ReadyNext {
			return nil
		}
	}

	guards := []store.Guard{
		{Path: roomPath(code), Field: "phase", Want: domain.PhaseFeedback},
		{Path: roomPath(code), Field: "qIndex", Want: room.QIndex},
	}
	next := room.QIndex + 1
	if next < len(s.set.Questions) {
		return s.startQuestion(ctx, code, players, next, guards)
	}

	batch := store.Batch{Guards: guards}
	for _, p := range players {
		batch.Writes = append(batch.Writes, store.Write{
			Path:   playerPath(code, p.ID),
			Fields: store.Fields{"readyNext": false},
		})
	}
	batch.Writes = append(batch.Writes, store.Write{
		Path:   roomPath(code),
		Fields: store.Fields{"phase": domain.PhaseResults},
	})
	return s.store.Apply(ctx, batch)
}
