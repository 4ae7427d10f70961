package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BradenHooton/sentinel/internal/models"
	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is prepended to the alert type to form the subject
const DefaultSubjectPrefix = "alerts"

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes notifications as JSON on "<prefix>.<alert type>"
type NATSSink struct {
	pub    publisher
	conn   *nats.Conn
	prefix string
}

// NewNATSSink connects to url and returns a sink publishing under prefix
func NewNATSSink(url, prefix string) (*NATSSink, error) {
	conn, err := nats.Connect(url, nats.Name("sentinel-alerts"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	s := newNATSSink(conn, prefix)
	s.conn = conn
	return s, nil
}

func newNATSSink(pub publisher, prefix string) *NATSSink {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSSink{pub: pub, prefix: strings.TrimSuffix(prefix, ".")}
}

// Subject returns the subject a notification of type t is published on
func (s *NATSSink) Subject(t models.AlertType) string {
	return s.prefix + "." + strings.ToLower(string(t))
}

// Notify implements Sink
func (s *NATSSink) Notify(_ context.Context, n models.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := s.pub.Publish(s.Subject(n.Type), data); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Close drains and closes the connection
func (s *NATSSink) Close() {
	if s.conn != nil {
		_ = s.conn.Drain()
		s.conn.Close()
	}
}
