// Package queue persists overflow requests in a FIFO list shared by all instances.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/docmatch/internal/db"
	"github.com/kailas-cloud/docmatch/internal/domain"
	"github.com/kailas-cloud/docmatch/internal/domain/request"
)

// DefaultKey is the list holding deferred requests.
const DefaultKey = "requestQueue"

const itemVersion = 1

type itemDTO struct {
	V        int    `json:"v"`
	ClientID string `json:"clientId"`
	Doc      string `json:"doc"`
	Body     string `json:"body"`
}

// store is the consumer interface for the overflow list (ISP).
type store interface {
	RPush(ctx context.Context, key string, value []byte) error
	LPop(ctx context.Context, key string) ([]byte, error)
	LLen(ctx context.Context, key string) (int64, error)
}

// Repo is a durable FIFO of requests.
type Repo struct {
	store store
	key   string
}

// New creates a queue repository on the default key.
func New(s store) *Repo {
	return &Repo{store: s, key: DefaultKey}
}

// WithKey overrides the list key.
func (r *Repo) WithKey(key string) *Repo {
	if key != "" {
		r.key = key
	}
	return r
}

// Key returns the list key.
func (r *Repo) Key() string { return r.key }

// Push appends req to the tail.
func (r *Repo) Push(ctx context.Context, req request.Request) error {
	data, err := json.Marshal(itemDTO{
		V:        itemVersion,
		ClientID: req.ClientID,
		Doc:      req.DocID,
		Body:     req.Body(),
	})
	if err != nil {
		return fmt.Errorf("marshal queue item: %w", err)
	}
	if err := r.store.RPush(ctx, r.key, data); err != nil {
		return fmt.Errorf("push %s: %w: %w", req.DocID, domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Pop removes the head. ok is false when the queue is empty.
// A malformed head is consumed and reported as ErrMalformedPayload.
func (r *Repo) Pop(ctx context.Context) (request.Request, bool, error) {
	data, err := r.store.LPop(ctx, r.key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return request.Request{}, false, nil
		}
		return request.Request{}, false, fmt.Errorf("pop: %w: %w", domain.ErrStoreUnavailable, err)
	}

	var dto itemDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return request.Request{}, true, fmt.Errorf("decode queue item: %w: %w", domain.ErrMalformedPayload, err)
	}
	if dto.V != itemVersion {
		return request.Request{}, true, fmt.Errorf("queue item version %d: %w", dto.V, domain.ErrMalformedPayload)
	}

	req, err := request.FromBody(dto.ClientID, dto.Doc, dto.Body)
	if err != nil {
		return request.Request{}, true, fmt.Errorf("queue item: %w: %w", domain.ErrMalformedPayload, err)
	}
	return req, true, nil
}

// Len returns the number of deferred requests.
func (r *Repo) Len(ctx context.Context) (int64, error) {
	n, err := r.store.LLen(ctx, r.key)
	if err != nil {
		return 0, fmt.Errorf("queue len: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return n, nil
}
