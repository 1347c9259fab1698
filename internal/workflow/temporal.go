package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"switchboard.app/server/core/config"
)

type TemporalSignaler struct {
	client client.Client
}

// Dial connects to the Temporal frontend described by cfg.
func Dial(cfg config.TemporalConfig) (*TemporalSignaler, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    newTemporalLogger(slog.Default()),
	})
	if err != nil {
		return nil, fmt.Errorf("dialing temporal at %s: %w", cfg.HostPort, err)
	}
	return &TemporalSignaler{client: c}, nil
}

func NewTemporalSignaler(c client.Client) *TemporalSignaler {
	return &TemporalSignaler{client: c}
}

// Signal targets the latest run of workflowID.
func (s *TemporalSignaler) Signal(ctx context.Context, workflowID, signalName string, payload any) error {
	err := s.client.SignalWorkflow(ctx, workflowID, "", signalName, payload)
	if err == nil {
		return nil
	}

	var notFound *serviceerror.NotFound
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, workflowID)
	}
	return fmt.Errorf("signaling workflow %s: %w", workflowID, err)
}

func (s *TemporalSignaler) Close() {
	s.client.Close()
}

// temporalLogger adapts slog to the Temporal SDK logger interface.
type temporalLogger struct {
	logger *slog.Logger
}

func newTemporalLogger(logger *slog.Logger) *temporalLogger {
	return &temporalLogger{logger: logger.With("component", "switchboard.temporal")}
}

func (l *temporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(msg, keyvals...)
}

func (l *temporalLogger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info(msg, keyvals...)
}

func (l *temporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn(msg, keyvals...)
}

func (l *temporalLogger) Error(msg string, keyvals ...interface{}) {
	l.logger.Error(msg, keyvals...)
}
