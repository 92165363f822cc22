package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/foundry/internal/model"
)

// TopicPrefix is the leading segment of every record topic.
const TopicPrefix = "foundry"

// TopicAll matches every record topic (NATS wildcard syntax).
const TopicAll = TopicPrefix + ".>"

// Action names the kind of change a record event reports.
type Action string

const (
	ActionCreated    Action = "created"
	ActionUpdated    Action = "updated"
	ActionDeleted    Action = "deleted"
	ActionChildAdded Action = "child_added"
)

// Topic returns the subject for a change to res, e.g.
// "foundry.campaign.planets.updated".
func Topic(res model.Resource, action Action) string {
	return TopicPrefix + "." + res.Topic() + "." + string(action)
}

// ResourcePattern matches every action on res, e.g. "foundry.talents.*".
func ResourcePattern(res model.Resource) string {
	return TopicPrefix + "." + res.Topic() + ".*"
}

// ParseTopic splits a record topic back into its resource segment and
// action. ok is false for subjects outside the foundry namespace.
func ParseTopic(topic string) (resource string, action Action, ok bool) {
	rest, found := strings.CutPrefix(topic, TopicPrefix+".")
	if !found {
		return "", "", false
	}
	i := strings.LastIndexByte(rest, '.')
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return strings.ReplaceAll(rest[:i], ".", "/"), Action(rest[i+1:]), true
}

// RecordChanged is the payload published for every record event. Record is
// omitted for deletions.
type RecordChanged struct {
	Resource string        `json:"resource"`
	ID       int64         `json:"id"`
	Record   *model.Record `json:"record,omitempty"`
}

// Encode renders an event payload as compact JSON without HTML escaping, so
// record text reaches subscribers exactly as the HTTP API returns it.
func Encode(event any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(event); err != nil {
		return nil, fmt.Errorf("marshaling event: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Publisher emits record events. Publishing is best-effort: callers log a
// failure and carry on.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subscriber delivers raw event payloads. The cancel func returned by
// Subscribe unsubscribes and closes the channel.
type Subscriber interface {
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}

// NoopPublisher drops every event. The server uses it when no NATS URL is
// configured.
type NoopPublisher struct{}

func (*NoopPublisher) Publish(context.Context, string, any) error { return nil }
func (*NoopPublisher) Close() error                               { return nil }
