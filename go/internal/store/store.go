package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a document does not exist
var ErrNotFound = errors.New("document not found")

// Collection addresses a set of documents, e.g. {cricket, teams}.
type Collection struct {
	Sport  string
	Entity string
}

func (c Collection) String() string {
	return c.Sport + "/" + c.Entity
}

// Global entities are not tied to a sport.
const Global = "global"

// DocumentStore is the persistence boundary for teams, players, auction
// records and history. Documents are JSON objects with an "id" field.
type DocumentStore interface {
	List(ctx context.Context, c Collection) ([]json.RawMessage, error)
	Get(ctx context.Context, c Collection, id string) (json.RawMessage, error)
	Put(ctx context.Context, c Collection, id string, doc json.RawMessage) error
	Delete(ctx context.Context, c Collection, id string) error
}

// GetAs loads a document and decodes it into T
func GetAs[T any](ctx context.Context, s DocumentStore, c Collection, id string) (*T, error) {
	raw, err := s.Get(ctx, c, id)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s/%s: %w", c, id, err)
	}
	return &v, nil
}

// ListAs loads every document of a collection and decodes them into T
func ListAs[T any](ctx context.Context, s DocumentStore, c Collection) ([]T, error) {
	raws, err := s.List(ctx, c)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("failed to decode document in %s: %w", c, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// PutAs encodes v and stores it under id
func PutAs[T any](ctx context.Context, s DocumentStore, c Collection, id string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", c, id, err)
	}
	return s.Put(ctx, c, id, raw)
}

func validateKey(c Collection, id string) error {
	if c.Sport == "" || c.Entity == "" {
		return fmt.Errorf("collection requires sport and entity, got %q", c.String())
	}
	if id == "" {
		return fmt.Errorf("document id cannot be empty")
	}
	return nil
}
