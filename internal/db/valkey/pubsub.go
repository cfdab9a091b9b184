package valkey

import (
	"context"
	"errors"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/docmatch/internal/db"
)

// Publish sends a message to a channel.
func (s *Store) Publish(ctx context.Context, channel string, payload []byte) error {
	cmd := s.b().Publish().Channel(channel).Message(rueidis.BinaryString(payload)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpPublish, Err: err}
	}
	return nil
}

// Subscribe delivers messages from the given channels to handler until ctx is done.
func (s *Store) Subscribe(ctx context.Context, handler db.MessageHandler, channels ...string) error {
	cmd := s.b().Subscribe().Channel(channels...).Build()
	err := s.client.Receive(ctx, cmd, func(msg rueidis.PubSubMessage) {
		handler(msg.Channel, []byte(msg.Message))
	})
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return &db.Error{Op: db.OpSubscribe, Err: err}
}
