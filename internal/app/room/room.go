/*
Package room contains the core logic of the presence server.

This file defines the Room: the single shared scope of membership and
broadcast. It owns the accounts adapter, the membership registry, the chat
log and the set of live sessions, and implements login resolution, movement,
chat and departure.
*/
package room

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"roomsync/internal/app/entity"
	"roomsync/internal/app/store"
	"roomsync/internal/pkg/logx"
	"roomsync/internal/pkg/randx"
)

// Room coordinates all live sessions of the single shared room.
type Room struct {
	registry *Registry
	accounts *Accounts
	chat     *ChatLog

	// clock supplies chat timestamps in milliseconds. Swappable in tests.
	clock func() int64

	// mu guards sessions. Only Active sessions are in the set; broadcasts
	// iterate it under the read lock.
	mu       sync.RWMutex
	sessions map[*Session]struct{}

	// loginMu serializes identity resolution. Two simultaneous logins with
	// the same candidate id must not both load the same stored entity; the
	// second resolver observes the first in the registry and mints a fresh
	// identity instead.
	loginMu sync.Mutex

	logger zerolog.Logger
}

// Restore is the process-start entry point. It binds the given store for all
// account, membership and chat operations for the lifetime of the process
// and rebuilds the live membership from the persistent hash. A failure here
// is a fatal startup error.
func Restore(ctx context.Context, st store.Store) (*Room, error) {
	registry := NewRegistry(st)
	if err := registry.Restore(ctx); err != nil {
		return nil, err
	}

	return &Room{
		registry: registry,
		accounts: NewAccounts(st),
		chat:     NewChatLog(st),
		clock:    func() int64 { return time.Now().UnixMilli() },
		sessions: make(map[*Session]struct{}),
		logger:   logx.Logger().With().Str("component", "room").Logger(),
	}, nil
}

// Registry exposes the membership registry, mainly for the health surface.
func (r *Room) Registry() *Registry {
	return r.registry
}

// Join resolves the candidate id to an entity, registers it as a member and
// returns it. The welcome sent to the session carries the membership
// snapshot taken after registration, so new members always see themselves.
// All other sessions get a join broadcast.
func (r *Room) Join(ctx context.Context, s *Session, candidateID string) entity.Entity {
	r.loginMu.Lock()
	resolved, minted := r.resolveLocked(ctx, candidateID)
	r.registry.Add(ctx, resolved)
	members := r.registry.Snapshot()
	r.loginMu.Unlock()

	r.mu.Lock()
	r.sessions[s] = struct{}{}
	r.mu.Unlock()

	if welcome, err := encodeEvent(TypeWelcome, WelcomePayload{You: resolved, Members: members}); err != nil {
		r.logger.Error().Err(err).Msg("Failed to encode welcome")
	} else {
		s.trySend(welcome)
	}

	if join, err := encodeEvent(TypeJoin, resolved); err != nil {
		r.logger.Error().Err(err).Msg("Failed to encode join broadcast")
	} else {
		r.broadcast(join, s)
	}

	r.logger.Info().
		Str("member_id", resolved.ID).
		Str("candidate_id", candidateID).
		Bool("minted", minted).
		Int("members", len(members)).
		Msg("Member joined")

	return resolved
}

// resolveLocked implements the login resolution policy. Caller holds
// loginMu.
//
// An empty candidate, an unknown candidate, or a candidate already present
// in the room all resolve to a freshly minted identity; only a known,
// not-currently-present id loads the stored record unchanged. Store errors
// during resolution are logged and treated as "record does not exist".
func (r *Room) resolveLocked(ctx context.Context, candidateID string) (entity.Entity, bool) {
	if candidateID != "" && !r.registry.Contains(candidateID) {
		stored, ok, err := r.accounts.Load(ctx, candidateID)
		if err != nil {
			r.logger.Warn().Err(err).Str("candidate_id", candidateID).Msg("Account load failed, treating id as unknown")
		} else if ok {
			return stored, false
		}
	}

	return r.mint(ctx), true
}

// mint creates a fresh entity with an id unique against both the live
// registry and the stored accounts, and persists it.
func (r *Room) mint(ctx context.Context) entity.Entity {
	var id string
	for {
		id = randx.EntityID()
		if r.registry.Contains(id) {
			continue
		}
		if _, exists, err := r.accounts.Load(ctx, id); err == nil && exists {
			continue
		}
		break
	}

	minted := entity.New(id)
	if err := r.accounts.Save(ctx, minted); err != nil {
		r.logger.Warn().Err(err).Str("member_id", id).Msg("Minted account not persisted; continuing")
	}
	return minted
}

// Move updates the session's position in the live registry and broadcasts
// the updated entity to the other sessions. Returns the updated entity.
func (r *Room) Move(ctx context.Context, s *Session, pos MovePayload) entity.Entity {
	moved := s.entity
	moved.X, moved.Y, moved.Z = pos.X, pos.Y, pos.Z

	r.registry.Add(ctx, moved)

	if frame, err := encodeEvent(TypeMove, moved); err != nil {
		r.logger.Error().Err(err).Msg("Failed to encode move broadcast")
	} else {
		r.broadcast(frame, s)
	}

	return moved
}

// Say records a chat event and broadcasts it to the other sessions. A store
// failure is logged and swallowed; the session stays up and the broadcast
// still goes out.
func (r *Room) Say(ctx context.Context, s *Session, message string) {
	ev := entity.ChatEvent{
		Talker:  s.entity.ID,
		Message: message,
		Date:    r.clock(),
	}

	if err := r.chat.Append(ctx, ev); err != nil {
		r.logger.Warn().Err(err).Str("talker", ev.Talker).Msg("Chat event not persisted; continuing")
	}

	if frame, err := encodeEvent(TypeHear, ev); err != nil {
		r.logger.Error().Err(err).Msg("Failed to encode hear broadcast")
	} else {
		r.broadcast(frame, s)
	}
}

// Leave removes a disconnecting session. If it had reached Active, its
// entity leaves the registry and the remaining sessions get exactly one
// departure broadcast. A disconnect while still authenticating only
// releases the session.
func (r *Room) Leave(ctx context.Context, s *Session) {
	r.mu.Lock()
	_, wasActive := r.sessions[s]
	delete(r.sessions, s)
	r.mu.Unlock()

	s.closeSend()

	if !wasActive {
		return
	}

	r.registry.Remove(ctx, s.entity.ID)

	if frame, err := encodeEvent(TypeLeave, s.entity.ID); err != nil {
		r.logger.Error().Err(err).Msg("Failed to encode leave broadcast")
	} else {
		r.broadcast(frame, nil)
	}

	r.logger.Info().
		Str("member_id", s.entity.ID).
		Int("members", r.registry.Len()).
		Msg("Member left")
}

// broadcast delivers a frame to every live session except exclude. Delivery
// is best-effort per recipient; a full queue drops the frame for that
// recipient only.
func (r *Room) broadcast(frame []byte, exclude *Session) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for sess := range r.sessions {
		if sess == exclude {
			continue
		}
		sess.trySend(frame)
	}
}

// Shutdown releases every live session. Membership is deliberately left in
// the store so the next process start can restore it.
func (r *Room) Shutdown() {
	r.mu.Lock()
	live := make([]*Session, 0, len(r.sessions))
	for sess := range r.sessions {
		live = append(live, sess)
	}
	r.sessions = make(map[*Session]struct{})
	r.mu.Unlock()

	for _, sess := range live {
		sess.closeSend()
	}

	r.logger.Info().Int("sessions", len(live)).Msg("Room shut down")
}
