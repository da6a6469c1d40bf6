package game

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"friedrich-quiz-service/internal/domain"
	"friedrich-quiz-service/internal/quiz"
	"friedrich-quiz-service/internal/store"
)

const defaultPollInterval = 800 * time.Millisecond

// Config tunes the reconcile loop.
type Config struct {
	// PollInterval is the ticker that backs up the watch callbacks so a
	// missed snapshot can never stall the game. Defaults to 800ms.
	PollInterval time.Duration
	// AnswerTimeout, when non-zero, lets the host score a question whose
	// start is older than the timeout even if submissions are missing.
	AnswerTimeout time.Duration
}

// Update is pushed to the renderer whenever shared room state changes.
type Update struct {
	Room    domain.Room
	Players []domain.Player
}

// Session is one client's connection to a room: its identity, its watches
// on the shared store, and, when its identity matches the room's hostId,
// the phase controller. Controller logic is re-entrant and guard-protected,
// so several clients believing they are host cannot double-apply a
// transition.
type Session struct {
	store store.Store
	set   quiz.Set
	cfg   Config
	uid   string
	name  string
	clock func() time.Time
	rnd   *rand.Rand

	mu          sync.Mutex
	roomID      string
	room        *domain.Room
	players     []domain.Player
	submissions map[string]domain.Submission
	unsubs      []func()
	stopPoll    chan struct{}
	closed      bool

	updates chan Update
}

// NewSession creates a detached session for one participant. An empty uid
// gets a fresh anonymous identity.
func NewSession(st store.Store, set quiz.Set, cfg Config, uid, name string) (*Session, error) {
	return NewSessionWithClock(st, set, cfg, uid, name, time.Now)
}

// NewSessionWithClock is a test hook for deterministic timestamps.
func NewSessionWithClock(st store.Store, set quiz.Set, cfg Config, uid, name string, now func() time.Time) (*Session, error) {
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if uid == "" {
		uid = uuid.NewString()
	}
	return &Session{
		store:       st,
		set:         set,
		cfg:         cfg,
		uid:         uid,
		name:        name,
		clock:       now,
		rnd:         rand.New(rand.NewSource(now().UnixNano())),
		submissions: make(map[string]domain.Submission),
		updates:     make(chan Update, 8),
	}, nil
}

func (s *Session) UID() string  { return s.uid }
func (s *Session) Name() string { return s.name }

func (s *Session) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// Room returns the latest room snapshot, if one has arrived.
func (s *Session) Room() (domain.Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room == nil {
		return domain.Room{}, false
	}
	return *s.room, true
}

// Players returns the latest player list in join order.
func (s *Session) Players() []domain.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Player, len(s.players))
	copy(out, s.players)
	return out
}

// IsHost reports whether this client currently holds the host role.
func (s *Session) IsHost() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room != nil && s.room.HostID == s.uid
}

// Updates delivers state changes to the renderer. Stale intermediate
// updates may be dropped; the latest one always arrives.
func (s *Session) Updates() <-chan Update {
	return s.updates
}

// Questions exposes the fixed question list this session plays.
func (s *Session) Questions() []quiz.Question {
	return s.set.Questions
}

// CreateRoom allocates a fresh room code, writes the room and host player
// documents and attaches to the room. Codes colliding with an existing
// room are re-rolled.
func (s *Session) CreateRoom(ctx context.Context) (string, error) {
	const attempts = 5
	for i := 0; i < attempts; i++ {
		code := NewRoomCode(s.rnd)
		if _, exists, err := s.store.Get(ctx, roomPath(code)); err != nil {
			return "", fmt.Errorf("create room: %w", err)
		} else if exists {
			continue
		}

		err := s.store.Set(ctx, roomPath(code), store.Fields{
			"hostId":     s.uid,
			"phase":      domain.PhaseLobby,
			"qIndex":     -1,
			"scoredUpTo": -1,
			"createdAt":  s.clock(),
		}, false)
		if err != nil {
			return "", fmt.Errorf("create room: %w", err)
		}
		if err := s.writePlayer(ctx, code, false); err != nil {
			return "", fmt.Errorf("create room: %w", err)
		}
		return code, s.enterRoom(ctx, code)
	}
	return "", fmt.Errorf("create room: no free code after %d attempts", attempts)
}

// JoinRoom attaches to an existing room by code.
func (s *Session) JoinRoom(ctx context.Context, code string) error {
	code = NormalizeCode(code)
	if len(code) != codeLength {
		return domain.ErrBadRoomCode
	}
	if _, exists, err := s.store.Get(ctx, roomPath(code)); err != nil {
		return fmt.Errorf("join room: %w", err)
	} else if !exists {
		return domain.ErrRoomNotFound
	}
	if err := s.writePlayer(ctx, code, true); err != nil {
		return fmt.Errorf("join room: %w", err)
	}
	return s.enterRoom(ctx, code)
}

func (s *Session) writePlayer(ctx context.Context, code string, merge bool) error {
	return s.store.Set(ctx, playerPath(code, s.uid), store.Fields{
		"id":         s.uid,
		"name":       s.name,
		"joinedAt":   s.clock(),
		"totalScore": 0,
		"lastDelta":  0,
		"lastMsg":    "",
		"readyNext":  false,
	}, merge)
}

func (s *Session) enterRoom(ctx context.Context, code string) error {
	s.mu.Lock()
	s.roomID = code
	s.mu.Unlock()

	unsubRoom, err := s.store.Watch(ctx, roomPath(code), s.onRoom)
	if err != nil {
		return fmt.Errorf("watch room: %w", err)
	}
	unsubPlayers, err := s.store.Watch(ctx, playersCol(code), s.onPlayers)
	if err != nil {
		unsubRoom()
		return fmt.Errorf("watch players: %w", err)
	}
	unsubSubs, err := s.store.Watch(ctx, submissionsCol(code), s.onSubmissions)
	if err != nil {
		unsubRoom()
		unsubPlayers()
		return fmt.Errorf("watch submissions: %w", err)
	}

	stop := make(chan struct{})
	s.mu.Lock()
	s.unsubs = append(s.unsubs, unsubRoom, unsubPlayers, unsubSubs)
	s.stopPoll = stop
	s.mu.Unlock()

	go s.pollLoop(stop)
	return nil
}

func (s *Session) onRoom(snaps []store.Snapshot) {
	if len(snaps) == 0 {
		return
	}
	var room domain.Room
	if err := snaps[0].Decode(&room); err != nil {
		log.Printf("session %s: decode room: %v", s.uid, err)
		return
	}
	s.mu.Lock()
	s.room = &room
	s.mu.Unlock()

	s.notify()
	s.reconcile(context.Background())
}

func (s *Session) onPlayers(snaps []store.Snapshot) {
	players := make([]domain.Player, 0, len(snaps))
	for _, snap := range snaps {
		var p domain.Player
		if err := snap.Decode(&p); err != nil {
			log.Printf("session %s: decode player: %v", s.uid, err)
			continue
		}
		players = append(players, p)
	}
	sort.SliceStable(players, func(i, j int) bool {
		if !players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].JoinedAt.Before(players[j].JoinedAt)
		}
		return players[i].ID < players[j].ID
	})

	s.mu.Lock()
	s.players = players
	s.mu.Unlock()

	s.notify()
	s.reconcile(context.Background())
}

func (s *Session) onSubmissions(snaps []store.Snapshot) {
	subs := make(map[string]domain.Submission, len(snaps))
	for _, snap := range snaps {
		var sub domain.Submission
		if err := snap.Decode(&sub); err != nil {
			log.Printf("session %s: decode submission: %v", s.uid, err)
			continue
		}
		subs[snap.Path] = sub
	}

	s.mu.Lock()
	s.submissions = subs
	s.mu.Unlock()

	s.reconcile(context.Background())
}

func (s *Session) notify() {
	s.mu.Lock()
	if s.room == nil || s.closed {
		s.mu.Unlock()
		return
	}
	u := Update{Room: *s.room, Players: make([]domain.Player, len(s.players))}
	copy(u.Players, s.players)
	s.mu.Unlock()

	select {
	case s.updates <- u:
	default:
		// drop the stale update so a slow renderer never blocks the game
		select {
		case <-s.updates:
		default:
		}
		select {
		case s.updates <- u:
		default:
		}
	}
}

func (s *Session) pollLoop(stop chan struct{}) {
	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.reconcile(context.Background())
		}
	}
}

// SubmitAnswer records this player's answer for the active question. The
// write merges under the (qIndex, uid) key, so resubmitting is idempotent.
func (s *Session) SubmitAnswer(ctx context.Context, answer domain.Answer) error {
	s.mu.Lock()
	room := s.room
	code := s.roomID
	s.mu.Unlock()
	if room == nil || room.Phase != domain.PhaseQuestion {
		return fmt.Errorf("no question is active")
	}
	q := s.set.Questions[room.QIndex]
	switch q.Kind {
	case quiz.KindSingle:
		if answer.Option == "" {
			return domain.ErrAnswerRequired
		}
	case quiz.KindMap:
		if answer.Pick == nil {
			return domain.ErrAnswerRequired
		}
	}

	sub := domain.Submission{UID: s.uid, QIndex: room.QIndex, Answer: answer, SubmittedAt: s.clock()}
	fields, err := store.FieldsOf(sub)
	if err != nil {
		return fmt.Errorf("submit answer: %w", err)
	}
	if err := s.store.Set(ctx, submissionPath(code, room.QIndex, s.uid), fields, true); err != nil {
		return fmt.Errorf("submit answer: %w", err)
	}
	return nil
}

// HasSubmitted reports whether this player already answered the active
// question.
func (s *Session) HasSubmitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room == nil {
		return false
	}
	_, ok := s.submissions[submissionPath(s.roomID, s.room.QIndex, s.uid)]
	return ok
}

// MarkReady flags this player as done with the feedback screen.
func (s *Session) MarkReady(ctx context.Context) error {
	s.mu.Lock()
	code := s.roomID
	s.mu.Unlock()
	err := s.store.Update(ctx, playerPath(code, s.uid), store.Fields{"readyNext": true})
	if err == store.ErrNotFound {
		return domain.ErrPlayerNotFound
	}
	return err
}

// Results builds the current leaderboard.
func (s *Session) Results() domain.Leaderboard {
	s.mu.Lock()
	code := s.roomID
	players := make([]domain.Player, len(s.players))
	copy(players, s.players)
	s.mu.Unlock()
	return BuildLeaderboard(code, players)
}

// Close tears the session down: every watcher is unsubscribed and the poll
// loop stopped, so no stale callback can mutate an abandoned room.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubs := s.unsubs
	s.unsubs = nil
	stop := s.stopPoll
	s.stopPoll = nil
	s.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	if stop != nil {
		close(stop)
	}
}
