package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade, consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	KVStore
	ListStore
	PubSub
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// ListStore provides FIFO list operations (RPUSH on the tail, LPOP from the head).
type ListStore interface {
	RPush(ctx context.Context, key string, value []byte) error
	// LPop returns ErrKeyNotFound when the list is empty.
	LPop(ctx context.Context, key string) ([]byte, error)
	LLen(ctx context.Context, key string) (int64, error)
}

// MessageHandler receives a single pub/sub message.
type MessageHandler func(channel string, payload []byte)

// PubSub provides fire-and-forget publish and blocking subscribe.
type PubSub interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe blocks until ctx is cancelled or the connection fails.
	Subscribe(ctx context.Context, handler MessageHandler, channels ...string) error
}
