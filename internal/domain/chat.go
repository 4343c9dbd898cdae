package domain

import "time"

type MessageID string

// ChatMessage is append-only. Seq is assigned by the store at append
// time and is the ordering authority; client timestamps are ignored.
type ChatMessage struct {
	ID     MessageID `json:"id"`
	Room   RoomID    `json:"room"`
	From   Identity  `json:"from"`
	Text   string    `json:"text"`
	Seq    int64     `json:"seq"`
	SentAt time.Time `json:"sent_at"`
}
