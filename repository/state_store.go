package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrConflict is returned when an optimistic update kept losing to concurrent writers.
var ErrConflict = errors.New("state update conflict")

// Mutation describes what Update should write back. A nil *Mutation leaves the key untouched.
type Mutation struct {
	Value  []byte
	TTL    time.Duration
	Delete bool
}

// UpdateFunc receives the current value (nil when absent) and returns the mutation to apply.
// It may be invoked more than once for a single Update call and must not have side effects
// beyond setting captured result variables.
type UpdateFunc func(current []byte) (*Mutation, error)

// StateStore is the key-value abstraction behind every guard counter, lock, and OTP record.
// Update is atomic per key: concurrent updates on the same key are serialized, updates on
// different keys are independent.
type StateStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Delete(ctx context.Context, key string) error
}

// GetJSON loads key into dst. It reports false when the key is absent.
func GetJSON(ctx context.Context, store StateStore, key string, dst interface{}) (bool, error) {
	data, found, err := store.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

// UpdateJSON runs fn over the decoded record stored at key. fn gets a zero T and found=false
// when the key is absent; it returns the TTL to save with, or a nil TTL pointer to leave the
// record untouched. Returning del=true deletes the key.
func UpdateJSON[T any](ctx context.Context, store StateStore, key string, fn func(rec *T, found bool) (ttl *time.Duration, del bool, err error)) error {
	return store.Update(ctx, key, func(current []byte) (*Mutation, error) {
		var rec T
		found := current != nil
		if found {
			if err := json.Unmarshal(current, &rec); err != nil {
				return nil, fmt.Errorf("failed to unmarshal %s: %w", key, err)
			}
		}

		ttl, del, err := fn(&rec, found)
		if err != nil {
			return nil, err
		}
		if del {
			return &Mutation{Delete: true}, nil
		}
		if ttl == nil {
			return nil, nil
		}

		data, err := json.Marshal(&rec)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", key, err)
		}
		return &Mutation{Value: data, TTL: *ttl}, nil
	})
}

// Keep is a helper for UpdateJSON callbacks that save with the given TTL.
func Keep(ttl time.Duration) *time.Duration {
	return &ttl
}
