package ws

import (
	"time"
)

// Message types sent to clients.
const (
	TypeConnected   = "connected"
	TypePong        = "pong"
	TypeTasksError  = "tasks:error"
	TypeTasksUpdate = "tasks:update"
)

// TypePing is the only client-to-server message type.
const TypePing = "ping"

// UpdateData summarizes a task snapshot for the wire; clients refetch the
// full payload over HTTP.
type UpdateData struct {
	TasksCount int `json:"tasksCount"`
}

// Envelope is the wire shape of every server-to-client message. Fields that
// do not apply to a given type are omitted.
type Envelope struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      *UpdateData `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// clientMessage is the wire shape of client-to-server messages.
type clientMessage struct {
	Type string `json:"type"`
}

func connectedMessage() Envelope {
	return Envelope{Type: TypeConnected, Message: "WebSocket connected"}
}

func pongMessage() Envelope {
	return Envelope{Type: TypePong}
}

func tasksUpdateMessage(count int, at time.Time) Envelope {
	return Envelope{
		Type:      TypeTasksUpdate,
		Timestamp: at.UTC().Format(time.RFC3339),
		Data:      &UpdateData{TasksCount: count},
	}
}

func tasksErrorMessage(errMsg string, at time.Time) Envelope {
	return Envelope{
		Type:      TypeTasksError,
		Timestamp: at.UTC().Format(time.RFC3339),
		Error:     errMsg,
	}
}
