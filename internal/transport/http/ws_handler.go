package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"friedrich-quiz-service/internal/domain"
	"friedrich-quiz-service/internal/game"
	"friedrich-quiz-service/internal/quiz"
	"friedrich-quiz-service/internal/store"
)

// WSHandler attaches one game session per websocket connection.
type WSHandler struct {
	store    store.Store
	sets     *quiz.Repository
	setID    string
	gameCfg  game.Config
	upgrader websocket.Upgrader
}

func NewWSHandler(st store.Store, sets *quiz.Repository, setID string, gameCfg game.Config) *WSHandler {
	return &WSHandler{
		store:   st,
		sets:    sets,
		setID:   setID,
		gameCfg: gameCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	Code string `json:"code"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type helloPayload struct {
	UID string `json:"uid"`
}

type joinedPayload struct {
	Code   string `json:"code"`
	IsHost bool   `json:"isHost"`
}

type playerView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TotalScore int    `json:"totalScore"`
	LastDelta  int    `json:"lastDelta"`
	LastMsg    string `json:"lastMsg"`
	ReadyNext  bool   `json:"readyNext"`
	IsHost     bool   `json:"isHost"`
}

type statePayload struct {
	Code    string       `json:"code"`
	Phase   domain.Phase `json:"phase"`
	QIndex  int          `json:"qIndex"`
	Players []playerView `json:"players"`
}

type questionPayload struct {
	Index   int       `json:"index"`
	Total   int       `json:"total"`
	Kind    quiz.Kind `json:"kind"`
	Title   string    `json:"title"`
	Prompt  string    `json:"prompt"`
	Options []string  `json:"options,omitempty"`
}

type feedbackPayload struct {
	Delta   int    `json:"delta"`
	Msg     string `json:"msg"`
	Total   int    `json:"total"`
	Waiting int    `json:"waiting"`
}

// ServeWS upgrades the request and runs one participant's connection:
// create/join wire the session into a room, then shared-state updates flow
// out and player actions flow in until either side hangs up.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "missing name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	set, err := h.sets.GetSet(r.Context(), h.setID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	session, err := game.NewSession(h.store, set, h.gameCfg, r.URL.Query().Get("uid"), name)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer session.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update := <-session.Updates():
				for _, msg := range h.render(session, update) {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "hello", Payload: helloPayload{UID: session.UID()}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "create":
			code, err := session.CreateRoom(r.Context())
			if err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "joined", Payload: joinedPayload{Code: code, IsHost: true}}
		case "join":
			var payload joinPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errMsg(err)
				continue
			}
			if err := session.JoinRoom(r.Context(), payload.Code); err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "joined", Payload: joinedPayload{Code: session.RoomID(), IsHost: session.IsHost()}}
		case "start":
			if err := session.StartGame(r.Context()); err != nil {
				send <- errMsg(err)
			}
		case "answer":
			var answer domain.Answer
			if err := json.Unmarshal(inbound.Payload, &answer); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			if err := session.SubmitAnswer(r.Context(), answer); err != nil {
				send <- errMsg(err)
			}
		case "ready":
			if err := session.MarkReady(r.Context()); err != nil {
				send <- errMsg(err)
			}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// render turns one shared-state update into the outbound messages this
// participant should see for the current phase.
func (h *WSHandler) render(session *game.Session, update game.Update) []outboundMessage[any] {
	players := make([]playerView, 0, len(update.Players))
	for _, p := range update.Players {
		players = append(players, playerView{
			ID:         p.ID,
			Name:       p.Name,
			TotalScore: p.TotalScore,
			LastDelta:  p.LastDelta,
			LastMsg:    p.LastMsg,
			ReadyNext:  p.ReadyNext,
			IsHost:     p.ID == update.Room.HostID,
		})
	}
	msgs := []outboundMessage[any]{{Type: "state", Payload: statePayload{
		Code:    session.RoomID(),
		Phase:   update.Room.Phase,
		QIndex:  update.Room.QIndex,
		Players: players,
	}}}

	questions := session.Questions()
	switch update.Room.Phase {
	case domain.PhaseQuestion:
		if q := update.Room.QIndex; q >= 0 && q < len(questions) {
			msgs = append(msgs, outboundMessage[any]{Type: "question", Payload: questionPayload{
				Index:   q,
				Total:   len(questions),
				Kind:    questions[q].Kind,
				Title:   questions[q].Title,
				Prompt:  questions[q].Prompt,
				Options: questions[q].Options,
			}})
		}
	case domain.PhaseFeedback:
		waiting := 0
		var me domain.Player
		for _, p := range update.Players {
			if !p.ReadyNext {
				waiting++
			}
			if p.ID == session.UID() {
				me = p
			}
		}
		msgs = append(msgs, outboundMessage[any]{Type: "feedback", Payload: feedbackPayload{
			Delta:   me.LastDelta,
			Msg:     me.LastMsg,
			Total:   me.TotalScore,
			Waiting: waiting,
		}})
	case domain.PhaseResults:
		msgs = append(msgs, outboundMessage[any]{Type: "results", Payload: session.Results()})
	}
	return msgs
}

func errMsg(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}
