// Package events defines the gateway's cross-process notification
// envelope and a thin NATS client wrapper, adapted from the teacher's
// internal/nats.Client, stripped of the Claude-process request/reply
// bridge (which belonged to the execution plane this spec excludes).
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// EventType identifies the kind of gateway notification.
type EventType string

const (
	// ConfigReloaded is published by the Config Watcher whenever it
	// applies an out-of-band edit to the tunnel or credential files
	// (spec §4.6), so sibling gateway processes sharing the same files
	// pick up the change without waiting on their own fsnotify latency.
	ConfigReloaded EventType = "config.reloaded"

	// PipelineStepConfirmed is published by the validate handler when a
	// confirmed step leaves the run in progress. The /ws/pipeline/:run_id
	// stream does not consume it; that stream polls the run store.
	PipelineStepConfirmed EventType = "pipeline.step_confirmed"

	// PipelineRunFinished is published by the validate handler, in place
	// of PipelineStepConfirmed, when a confirmed step completes the run.
	// Aborting a run does not publish it.
	PipelineRunFinished EventType = "pipeline.run_finished"
)

// Event is the envelope published on every gateway NATS subject.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const subjectPrefix = "gateway."

func subjectFor(t EventType) string {
	return subjectPrefix + string(t)
}

// Client wraps a NATS connection for publishing and subscribing to
// gateway events. A nil *Client is valid and treats every operation as a
// no-op, so the gateway runs fine with NATS_URL unset (single-process
// mode, per SPEC_FULL.md's domain-stack wiring note).
type Client struct {
	conn *nats.Conn
}

// Connect dials url. An empty url returns a nil *Client (no-op mode).
func Connect(url, name string) (*Client, error) {
	if url == "" {
		return nil, nil
	}

	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats %s: %w", url, err)
	}

	slog.Info("nats connected", "url", url, "name", name)
	return &Client{conn: nc}, nil
}

// Publish sends an Event of the given type with payload marshaled as the
// event body. A nil Client is a no-op.
func (c *Client) Publish(t EventType, payload interface{}) {
	if c == nil || c.conn == nil {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("marshaling event payload", "type", t, "error", err)
		return
	}

	ev := Event{Type: t, Timestamp: time.Now().UTC(), Payload: body}
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("marshaling event envelope", "type", t, "error", err)
		return
	}

	if err := c.conn.Publish(subjectFor(t), data); err != nil {
		slog.Warn("publishing event", "type", t, "error", err)
	}
}

// Subscribe registers handler for events of type t. A nil Client makes
// this a no-op that returns a no-op (non-nil) unsubscribe function.
func (c *Client) Subscribe(t EventType, handler func(Event)) (func(), error) {
	if c == nil || c.conn == nil {
		return func() {}, nil
	}

	sub, err := c.conn.Subscribe(subjectFor(t), func(msg *nats.Msg) {
		var ev Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			slog.Warn("unmarshaling event", "type", t, "error", err)
			return
		}
		handler(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", subjectFor(t), err)
	}

	return func() { _ = sub.Unsubscribe() }, nil
}

// Connected reports whether c has a live NATS connection. A nil Client
// (NATS_URL unset) reports false, meaning the gateway is running in
// single-process mode.
func (c *Client) Connected() bool {
	return c != nil && c.conn != nil
}

// Close closes the connection without draining it. A nil Client is a
// no-op.
func (c *Client) Close() {
	if c == nil || c.conn == nil {
		return
	}
	c.conn.Close()
	slog.Info("nats client closed")
}
