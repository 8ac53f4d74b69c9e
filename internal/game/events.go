package game

import "time"

// EventKind names one variant of the closed notification set. Consumers can
// reconstruct full state from any event carrying a Snapshot; there is no
// partial-diff contract.
type EventKind string

const (
	EventGameFound       EventKind = "game_found"
	EventGameStarted     EventKind = "game_started"
	EventMoveMade        EventKind = "move_made"
	EventGameEnded       EventKind = "game_ended"
	EventDrawOffered     EventKind = "draw_offered"
	EventDrawDeclined    EventKind = "draw_declined"
	EventClockPaused     EventKind = "clock_paused"
	EventClockResumed    EventKind = "clock_resumed"
	EventClockUpdate     EventKind = "clock_update"
	EventSpectatorJoined EventKind = "spectator_joined"
	EventSpectatorLeft   EventKind = "spectator_left"
	EventChatMessage     EventKind = "chat_message"
	EventError           EventKind = "error"
)

type Event interface {
	Kind() EventKind
}

// PublishFunc delivers an event to a session's room. Broadcasts are
// fire-and-forget relative to the session loop.
type PublishFunc func(sessionID string, event Event)

type GameFound struct {
	SessionID string      `json:"sessionId"`
	White     PlayerInfo  `json:"white"`
	Black     PlayerInfo  `json:"black"`
	Control   TimeControl `json:"timeControl"`
}

func (GameFound) Kind() EventKind { return EventGameFound }

type GameStarted struct {
	SessionID string        `json:"sessionId"`
	State     Snapshot      `json:"state"`
	Clocks    ClockSnapshot `json:"clocks"`
}

func (GameStarted) Kind() EventKind { return EventGameStarted }

type MoveMade struct {
	SessionID string        `json:"sessionId"`
	Move      MoveRecord    `json:"move"`
	State     Snapshot      `json:"state"`
	Clocks    ClockSnapshot `json:"clocks"`
}

func (MoveMade) Kind() EventKind { return EventMoveMade }

type GameEnded struct {
	SessionID string   `json:"sessionId"`
	Outcome   Outcome  `json:"outcome"`
	Reason    string   `json:"reason"`
	State     Snapshot `json:"state"`
}

func (GameEnded) Kind() EventKind { return EventGameEnded }

type DrawOffered struct {
	SessionID string `json:"sessionId"`
	ByPlayer  string `json:"byPlayer"`
	ByColor   Color  `json:"byColor"`
}

func (DrawOffered) Kind() EventKind { return EventDrawOffered }

type DrawDeclined struct {
	SessionID string `json:"sessionId"`
	ByPlayer  string `json:"byPlayer"`
}

func (DrawDeclined) Kind() EventKind { return EventDrawDeclined }

type ClockPaused struct {
	SessionID string        `json:"sessionId"`
	Clocks    ClockSnapshot `json:"clocks"`
}

func (ClockPaused) Kind() EventKind { return EventClockPaused }

type ClockResumed struct {
	SessionID string        `json:"sessionId"`
	Clocks    ClockSnapshot `json:"clocks"`
}

func (ClockResumed) Kind() EventKind { return EventClockResumed }

type ClockUpdate struct {
	SessionID string        `json:"sessionId"`
	Clocks    ClockSnapshot `json:"clocks"`
}

func (ClockUpdate) Kind() EventKind { return EventClockUpdate }

type SpectatorJoined struct {
	SessionID   string `json:"sessionId"`
	SpectatorID string `json:"spectatorId"`
}

func (SpectatorJoined) Kind() EventKind { return EventSpectatorJoined }

type SpectatorLeft struct {
	SessionID   string `json:"sessionId"`
	SpectatorID string `json:"spectatorId"`
}

func (SpectatorLeft) Kind() EventKind { return EventSpectatorLeft }

type ChatMessage struct {
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (ChatMessage) Kind() EventKind { return EventChatMessage }

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (Error) Kind() EventKind { return EventError }
