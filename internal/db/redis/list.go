package redis

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kailas-cloud/docmatch/internal/db"
)

// RPush appends a value to the tail of a list.
func (s *Store) RPush(ctx context.Context, key string, value []byte) error {
	if err := s.client.RPush(ctx, key, value).Err(); err != nil {
		return &db.Error{Op: db.OpRPush, Err: err}
	}
	return nil
}

// LPop removes and returns the head of a list.
func (s *Store) LPop(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.LPop(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpLPop, Err: err}
	}
	return data, nil
}

// LLen returns the list length (0 for a missing key).
func (s *Store) LLen(ctx context.Context, key string) (int64, error) {
	n, err := s.client.LLen(ctx, key).Result()
	if err != nil {
		return 0, &db.Error{Op: db.OpLLen, Err: err}
	}
	return n, nil
}
