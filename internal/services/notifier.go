package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Notifier wraps a NotificationSink with the non-critical side effect
// contract: failures are logged with context and never returned to the
// caller, so a broker outage cannot fail a booking or refund.
type Notifier struct {
	sink   NotificationSink
	logger *logrus.Logger
}

// NewNotifier creates a new Notifier. sink may be nil, which silently
// disables notifications.
func NewNotifier(sink NotificationSink, logger *logrus.Logger) *Notifier {
	return &Notifier{sink: sink, logger: logger}
}

// TrySend delivers a notification without ever failing the caller. It uses
// its own short timeout so a slow broker cannot hold a request goroutine.
func (n *Notifier) TrySend(queueName string, userID uuid.UUID, title, message, entityRef string) {
	if n == nil || n.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.sink.Send(ctx, queueName, userID, title, message, entityRef); err != nil {
		n.logger.WithError(err).WithFields(logrus.Fields{
			"queue":      queueName,
			"user_id":    userID,
			"entity_ref": entityRef,
		}).Warn("notification delivery failed")
	}
}
