package websocket

import "github.com/stemsi/student-registry/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action of a client message.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventStudentCreated Event = "student.created"
	EventPong           Event = "pong"
	EventError          Event = "error"
)

// StudentCreatedEvent is pushed to every admin connection after a registration.
type StudentCreatedEvent struct {
	Event   Event         `json:"event"`
	Student model.Student `json:"student"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}
