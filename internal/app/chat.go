package app

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Plaza/internal/core"
	"github.com/dkeye/Plaza/internal/domain"
	"github.com/dkeye/Plaza/internal/storage"
)

var (
	ErrEmptyMessage   = errors.New("empty message")
	ErrMessageTooLong = errors.New("message too long")
)

// ChatRelay appends messages to the room log and fans them out. Unlike
// position broadcasts a chat message is not superseded by later events,
// so the sender gets an explicit ack (id + sequence) or an error and
// can retry; the store's append sequence is the ordering authority.
type ChatRelay struct {
	Registry *Registry
	Dispatch *Dispatcher
	Store    storage.Store
	Cache    *storage.ChatCache
	MaxLen   int

	now func() time.Time
}

func NewChatRelay(registry *Registry, dispatch *Dispatcher, store storage.Store, cache *storage.ChatCache, maxLen int) *ChatRelay {
	return &ChatRelay{
		Registry: registry,
		Dispatch: dispatch,
		Store:    store,
		Cache:    cache,
		MaxLen:   maxLen,
		now:      time.Now,
	}
}

// Post validates, appends and broadcasts one message.
func (c *ChatRelay) Post(ctx context.Context, connID core.ConnID, text string) (domain.ChatMessage, error) {
	identity, ok := c.Registry.IdentityOf(connID)
	if !ok {
		return domain.ChatMessage{}, ErrNotJoined
	}
	roomID, ok := c.Registry.RoomOf(identity.ID)
	if !ok {
		return domain.ChatMessage{}, ErrNotJoined
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ChatMessage{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > c.MaxLen {
		return domain.ChatMessage{}, ErrMessageTooLong
	}

	msg := domain.ChatMessage{
		ID:     domain.MessageID(uuid.NewString()),
		Room:   roomID,
		From:   identity,
		Text:   text,
		SentAt: c.now(),
	}
	doc := &storage.MessageDoc{
		ID:       string(msg.ID),
		RoomID:   string(roomID),
		FromID:   string(identity.ID),
		FromName: identity.Name,
		Text:     text,
		SentAt:   msg.SentAt,
	}
	seq, err := c.Store.AppendMessage(ctx, doc)
	if err != nil {
		log.Error().Err(err).Str("module", "app.chat").Str("room", string(roomID)).Msg("append message")
		return domain.ChatMessage{}, err
	}
	msg.Seq = seq

	ev := messageEvent{Type: "newMessage", ChatMessage: msg}
	if frame, err := marshalFrame(ev); err == nil {
		c.Cache.Push(ctx, string(roomID), frame)
	}
	c.Dispatch.Broadcast(roomID, ev)
	return msg, nil
}

// Recent returns cached message frames for replay on join, oldest first.
func (c *ChatRelay) Recent(ctx context.Context, roomID domain.RoomID) [][]byte {
	return c.Cache.Recent(ctx, string(roomID))
}
