package room

import (
	"context"
	"encoding/json"

	"roomsync/internal/app/entity"
	"roomsync/internal/app/store"
)

// ChatKey is the well-known store list holding the serialized chat history
// in insertion order.
const ChatKey = "room:chat"

// ChatLog appends chat events to the durable ordered list. Events are never
// mutated or removed.
type ChatLog struct {
	store store.Store
}

// NewChatLog binds the log to a store instance.
func NewChatLog(st store.Store) *ChatLog {
	return &ChatLog{store: st}
}

// Append serializes ev and appends it to the chat list, returning once the
// store acknowledges the write.
func (l *ChatLog) Append(ctx context.Context, ev entity.ChatEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return l.store.RPush(ctx, ChatKey, string(raw))
}
