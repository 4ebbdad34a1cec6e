package notification

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Message struct {
	Email   string
	Subject string
	Body    string
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// LogNotifier writes confirmations to the application log instead of a mail
// relay.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.Info("confirmation dispatched",
		zap.String("email", msg.Email),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

// Dispatch sends msg in the background. Failures are logged and never reach
// the caller.
func Dispatch(n Notifier, msg Message, timeout time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := n.Notify(ctx, msg); err != nil {
			logger.Warn("confirmation dispatch failed",
				zap.String("email", msg.Email),
				zap.Error(err),
			)
		}
	}()
	return done
}
