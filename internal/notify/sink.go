// Package notify delivers alert notifications to operators. All sinks are
// best effort; the alert gate records history whether or not delivery works.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/BradenHooton/sentinel/internal/models"
)

// Sink delivers a notification
type Sink interface {
	Notify(ctx context.Context, n models.Notification) error
}

// NoopSink drops every notification. Used when no channel is configured.
type NoopSink struct{}

// Notify implements Sink
func (NoopSink) Notify(context.Context, models.Notification) error {
	return nil
}

// LogSink writes notifications to the structured log
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Notify implements Sink
func (s *LogSink) Notify(ctx context.Context, n models.Notification) error {
	level := slog.LevelInfo
	switch n.Severity {
	case models.SeverityWarning:
		level = slog.LevelWarn
	case models.SeverityError:
		level = slog.LevelError
	}

	s.logger.LogAttrs(ctx, level, "alert notification",
		slog.String("alert_id", n.AlertID.String()),
		slog.String("alert_type", string(n.Type)),
		slog.String("title", n.Title),
		slog.String("body", n.Body),
		slog.Bool("require_interaction", n.RequireInteraction),
	)
	return nil
}

// MultiSink fans a notification out to every sink. All sinks are tried; the
// returned error joins the individual failures.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a MultiSink, skipping nil sinks
func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Notify implements Sink
func (m *MultiSink) Notify(ctx context.Context, n models.Notification) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of sinks
func (m *MultiSink) Len() int {
	return len(m.sinks)
}
