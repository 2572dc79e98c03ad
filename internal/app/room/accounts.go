/*
Package room contains the core logic of the presence server: account
resolution, live room membership, the durable chat log, per-connection
sessions and broadcast fan-out.

This file defines the Accounts adapter, which persists Entity records in the
store under per-user keys.
*/
package room

import (
	"context"
	"encoding/json"

	"roomsync/internal/app/entity"
	"roomsync/internal/app/store"
	"roomsync/internal/pkg/errs"
)

// accountKey returns the store key holding the entity record for id.
func accountKey(id string) string {
	return "account:" + id + ":entity"
}

// Accounts loads and saves persistent Entity records.
type Accounts struct {
	store store.Store
}

// NewAccounts binds the adapter to a store instance.
func NewAccounts(st store.Store) *Accounts {
	return &Accounts{store: st}
}

// Load fetches the stored entity for id. An unknown id is reported through
// the boolean, not as an error. A record that fails to deserialize is
// reported as a MalformedPayload error.
func (a *Accounts) Load(ctx context.Context, id string) (entity.Entity, bool, error) {
	raw, ok, err := a.store.Get(ctx, accountKey(id))
	if err != nil {
		return entity.Entity{}, false, err
	}
	if !ok {
		return entity.Entity{}, false, nil
	}

	var e entity.Entity
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return entity.Entity{}, false, errs.Malformed(err)
	}
	return e, true, nil
}

// Save serializes and stores e under its id, overwriting any prior value.
// Saving the same entity twice leaves the store unchanged.
func (a *Accounts) Save(ctx context.Context, e entity.Entity) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, accountKey(e.ID), string(raw))
}
