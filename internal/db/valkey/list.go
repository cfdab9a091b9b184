package valkey

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/docmatch/internal/db"
)

// RPush appends a value to the tail of a list.
func (s *Store) RPush(ctx context.Context, key string, value []byte) error {
	cmd := s.b().Rpush().Key(key).Element(rueidis.BinaryString(value)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpRPush, Err: err}
	}
	return nil
}

// LPop removes and returns the head of a list.
func (s *Store) LPop(ctx context.Context, key string) ([]byte, error) {
	cmd := s.b().Lpop().Key(key).Build()
	data, err := s.do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpLPop, Err: err}
	}
	return data, nil
}

// LLen returns the list length (0 for a missing key).
func (s *Store) LLen(ctx context.Context, key string) (int64, error) {
	cmd := s.b().Llen().Key(key).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpLLen, Err: err}
	}
	return n, nil
}
