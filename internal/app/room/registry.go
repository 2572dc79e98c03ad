/*
Package room contains the core logic of the presence server.

This file defines the membership Registry: the authoritative "who is in the
room right now" map, backed by a persistent hash so a restart can rebuild it.
*/
package room

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"roomsync/internal/app/entity"
	"roomsync/internal/app/store"
	"roomsync/internal/pkg/logx"
)

// MembersKey is the well-known store hash mapping member id to serialized
// entity snapshot.
const MembersKey = "room:members"

// Registry tracks currently-present entities.
//
// The in-memory map is the live source of truth; every mutation is mirrored
// to the members hash best-effort so the room survives a process restart.
// List and Snapshot return copies taken under the lock, so no reader ever
// observes a partially-applied update.
type Registry struct {
	mu      sync.RWMutex
	members map[string]entity.Entity

	store  store.Store
	logger zerolog.Logger
}

// NewRegistry binds a registry to its persistent hash.
func NewRegistry(st store.Store) *Registry {
	return &Registry{
		members: make(map[string]entity.Entity),
		store:   st,
		logger:  logx.Logger().With().Str("component", "registry").Logger(),
	}
}

// Restore rebuilds the live membership from the persistent hash. Called once
// at process start; a store failure here is a fatal startup error. Fields
// that fail to deserialize are skipped with a log line.
func (r *Registry) Restore(ctx context.Context) error {
	fields, err := r.store.HGetAll(ctx, MembersKey)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, raw := range fields {
		var e entity.Entity
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			r.logger.Warn().Err(err).Str("member_id", id).Msg("Skipping malformed member record during restore")
			continue
		}
		r.members[id] = e
	}

	if len(r.members) > 0 {
		r.logger.Info().Int("members", len(r.members)).Msg("Membership restored from store")
	}
	return nil
}

// Add upserts the entity snapshot under its id and mirrors it to the
// persistent hash. Store failures are logged and swallowed; the live map
// has already been updated.
func (r *Registry) Add(ctx context.Context, e entity.Entity) {
	r.mu.Lock()
	r.members[e.ID] = e
	r.mu.Unlock()

	raw, err := json.Marshal(e)
	if err != nil {
		r.logger.Error().Err(err).Str("member_id", e.ID).Msg("Failed to serialize member snapshot")
		return
	}
	if err := r.store.HSet(ctx, MembersKey, e.ID, string(raw)); err != nil {
		r.logger.Warn().Err(err).Str("member_id", e.ID).Msg("Member snapshot not persisted; continuing")
	}
}

// Remove deletes the entry for id, if present, from both the live map and
// the persistent hash. Removing an absent id is a no-op.
func (r *Registry) Remove(ctx context.Context, id string) {
	r.mu.Lock()
	delete(r.members, id)
	r.mu.Unlock()

	if err := r.store.HDel(ctx, MembersKey, id); err != nil {
		r.logger.Warn().Err(err).Str("member_id", id).Msg("Member removal not persisted; continuing")
	}
}

// Contains reports whether id is currently present.
func (r *Registry) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.members[id]
	return ok
}

// List returns a point-in-time snapshot of all present entities.
func (r *Registry) List() []entity.Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entity.Entity, 0, len(r.members))
	for _, e := range r.members {
		out = append(out, e)
	}
	return out
}

// Snapshot returns a point-in-time copy of the id-to-entity map.
func (r *Registry) Snapshot() map[string]entity.Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]entity.Entity, len(r.members))
	for id, e := range r.members {
		out[id] = e
	}
	return out
}

// Len returns the number of present members.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.members)
}
