package notify

import (
	"context"
	"errors"
	"log/slog"
)

var (
	ErrDispatchFailure = errors.New("push dispatch failed")
	ErrQueueFull       = errors.New("push queue is full")
	ErrStopped         = errors.New("push dispatcher stopped")
)

// Provider hands a job to a push service.
type Provider interface {
	Send(ctx context.Context, job Job) error
}

// LogProvider only logs jobs. Used in development when no push service is configured.
type LogProvider struct {
	Logger *slog.Logger
}

func (p LogProvider) Send(_ context.Context, job Job) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("push notification",
		"job", job.ID,
		"title", job.Title,
		"body", job.Body,
		"chatId", job.Payload.ChatID)
	return nil
}
