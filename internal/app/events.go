package app

import (
	"encoding/json"

	"github.com/dkeye/Plaza/internal/core"
	"github.com/dkeye/Plaza/internal/domain"
)

// Wire event payloads shared by the dispatcher and the gateway acks.

type stateEvent struct {
	Type string `json:"type"`
	core.RoomSnapshot
}

type participantEvent struct {
	Type     string          `json:"type"`
	Room     domain.RoomID   `json:"room"`
	Identity domain.Identity `json:"identity"`
}

type messageEvent struct {
	Type string `json:"type"`
	domain.ChatMessage
}

type signalEvent struct {
	Type    string          `json:"type"`
	From    domain.Identity `json:"from"`
	Payload json.RawMessage `json:"payload"`
}
