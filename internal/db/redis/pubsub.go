package redis

import (
	"context"

	"github.com/kailas-cloud/docmatch/internal/db"
)

// Publish sends a message to a channel.
func (s *Store) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := s.client.Publish(ctx, channel, payload).Err(); err != nil {
		return &db.Error{Op: db.OpPublish, Err: err}
	}
	return nil
}

// Subscribe delivers messages from the given channels to handler until ctx is done.
func (s *Store) Subscribe(ctx context.Context, handler db.MessageHandler, channels ...string) error {
	ps := s.client.Subscribe(ctx, channels...)
	defer func() { _ = ps.Close() }()

	// Wait for the subscription confirmation so callers know the channels are live.
	if _, err := ps.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return &db.Error{Op: db.OpSubscribe, Err: err}
	}

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			handler(msg.Channel, []byte(msg.Payload))
		}
	}
}
