package domain

import "errors"

var (
	// ErrRoomNotFound is returned when joining a room code that does not exist.
	ErrRoomNotFound = errors.New("room not found")
	// ErrPlayerNotFound is returned when a player acts before joining a room.
	ErrPlayerNotFound = errors.New("player not found in room")
	// ErrNameRequired is returned when creating or joining without a display name.
	ErrNameRequired = errors.New("name required")
	// ErrBadRoomCode is returned for a malformed room code.
	ErrBadRoomCode = errors.New("room code must be 6 characters")
	// ErrAnswerRequired is returned when submitting with no option selected.
	ErrAnswerRequired = errors.New("no answer selected")
	// ErrNotHost is returned when a non-host tries a host-only action.
	ErrNotHost = errors.New("only the host may do that")
	// ErrQuestionSetNotFound indicates the question set could not be loaded.
	ErrQuestionSetNotFound = errors.New("question set not found")
)
