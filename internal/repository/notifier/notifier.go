// Package notifier publishes user notifications onto the relay channel.
package notifier

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docmatch/internal/domain/notification"
	"github.com/kailas-cloud/docmatch/internal/domain/request"
)

// DefaultChannel is the pub/sub channel consumed by the client relay.
const DefaultChannel = "after-analysis"

type messageDTO struct {
	User        string `json:"user"`
	Destination string `json:"destination"`
	Payload     string `json:"payload"`
}

type errorDTO struct {
	Message   string `json:"message"`
	ErrorCode int    `json:"errorCode"`
}

// publisher is the consumer interface for notification delivery (ISP).
type publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Notifier sends best-effort notifications. Delivery failures are logged, never returned.
type Notifier struct {
	pub     publisher
	channel string
	logger  *zap.Logger
}

// New creates a notifier on the default channel.
func New(pub publisher, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{pub: pub, channel: DefaultChannel, logger: logger}
}

// WithChannel overrides the publish channel.
func (n *Notifier) WithChannel(ch string) *Notifier {
	if ch != "" {
		n.channel = ch
	}
	return n
}

// Send publishes msg. Messages addressed to the insider client are dropped.
func (n *Notifier) Send(ctx context.Context, msg notification.Message) {
	if msg.User == "" || msg.User == request.Insider {
		return
	}

	data, err := json.Marshal(messageDTO{
		User:        msg.User,
		Destination: msg.Destination,
		Payload:     msg.Payload,
	})
	if err != nil {
		n.logger.Error("Failed to encode notification", zap.String("user", msg.User), zap.Error(err))
		return
	}

	if err := n.pub.Publish(ctx, n.channel, data); err != nil {
		n.logger.Warn("Failed to publish notification",
			zap.String("user", msg.User),
			zap.String("destination", msg.Destination),
			zap.Error(err),
		)
	}
}

// SendError delivers an error payload on the result destination.
func (n *Notifier) SendError(ctx context.Context, user string, p notification.ErrorPayload) {
	data, err := json.Marshal(errorDTO{Message: p.Message, ErrorCode: p.ErrorCode})
	if err != nil {
		n.logger.Error("Failed to encode error payload", zap.Error(err))
		return
	}
	n.Send(ctx, notification.Message{
		User:        user,
		Destination: notification.DestinationResult,
		Payload:     string(data),
	})
}
