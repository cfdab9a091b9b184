// Package pubsub accepts match submissions published on store channels.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docmatch/internal/db"
	"github.com/kailas-cloud/docmatch/internal/domain/notification"
	"github.com/kailas-cloud/docmatch/internal/domain/request"
	"github.com/kailas-cloud/docmatch/internal/logger"
)

// DefaultChannels are the submission channels of the web and desktop clients.
var DefaultChannels = []string{"analysis", "web-analysis"}

// submissionDTO is the payload published by clients.
type submissionDTO struct {
	ClientID string `json:"clientId"`
	Doc      string `json:"doc"`
	Body     string `json:"body"`
}

// Dispatcher admits match requests.
type Dispatcher interface {
	Submit(ctx context.Context, req request.Request) request.Submission
}

// ErrorNotifier reports failed submissions back to the client.
type ErrorNotifier interface {
	SendError(ctx context.Context, user string, p notification.ErrorPayload)
}

// subscriber is the consumer interface for the store pub/sub (ISP).
type subscriber interface {
	Subscribe(ctx context.Context, handler db.MessageHandler, channels ...string) error
}

// Listener forwards channel messages to the dispatcher.
type Listener struct {
	sub        subscriber
	dispatcher Dispatcher
	notifier   ErrorNotifier
	channels   []string
	logger     *zap.Logger
}

// NewListener creates a listener on the default channels.
func NewListener(sub subscriber, dispatcher Dispatcher, notifier ErrorNotifier, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{
		sub:        sub,
		dispatcher: dispatcher,
		notifier:   notifier,
		channels:   DefaultChannels,
		logger:     logger,
	}
}

// WithChannels overrides the subscribed channels.
func (l *Listener) WithChannels(channels []string) *Listener {
	if len(channels) > 0 {
		l.channels = channels
	}
	return l
}

// Run subscribes and blocks until ctx is done or the subscription fails.
func (l *Listener) Run(ctx context.Context) error {
	l.logger.Info("Submission listener started", zap.Strings("channels", l.channels))
	if err := l.sub.Subscribe(ctx, func(channel string, payload []byte) {
		l.Handle(ctx, channel, payload)
	}, l.channels...); err != nil {
		return fmt.Errorf("subscribe %v: %w", l.channels, err)
	}
	l.logger.Info("Submission listener stopped")
	return nil
}

// Handle processes one message. Malformed messages are logged and dropped.
func (l *Listener) Handle(ctx context.Context, channel string, payload []byte) {
	log := l.logger.With(zap.String("channel", channel))

	var dto submissionDTO
	if err := json.Unmarshal(payload, &dto); err != nil {
		log.Warn("Dropped malformed submission", zap.Error(err))
		return
	}
	if dto.Doc == "" {
		dto.Doc = uuid.NewString()
	}

	req, err := request.FromBody(dto.ClientID, dto.Doc, dto.Body)
	if err != nil {
		log.Warn("Dropped invalid submission", zap.Error(err))
		return
	}

	ctx = logger.ContextWithLogger(ctx, log)
	sub := l.dispatcher.Submit(ctx, req)
	if sub.Status != request.Failed {
		log.Debug("Submission admitted",
			zap.String("doc_id", req.DocID),
			zap.String("status", string(sub.Status)),
		)
		return
	}

	log.Error("Submission failed",
		zap.String("doc_id", req.DocID),
		zap.String("client_id", req.ClientID),
		zap.String("reason", sub.Reason),
	)
	l.notifier.SendError(ctx, req.ClientID, notification.ErrorPayload{
		Message:   sub.Reason,
		ErrorCode: http.StatusInternalServerError,
	})
}
