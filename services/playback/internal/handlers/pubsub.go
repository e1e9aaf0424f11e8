package handlers

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	platformconfig "github.com/example/vod-platform/internal/platform/config"
)

// SubjectProgress carries async watch-progress writes to the consumer.
const SubjectProgress = "playback.progress"

var ErrAsyncPublishDisabled = errors.New("async publish is disabled")

// EventPublisher publishes progress writes to JetStream so the HTTP path can
// acknowledge with 202 and let the consumer apply them.
type EventPublisher struct {
	js          nats.JetStreamContext
	asyncWrites bool
}

func NewEventPublisher(js nats.JetStreamContext) *EventPublisher {
	return &EventPublisher{
		js:          js,
		asyncWrites: platformconfig.EnvBool("PLAYBACK_ASYNC_WRITES", true),
	}
}

func (p *EventPublisher) Enabled() bool {
	return p != nil && p.js != nil && p.asyncWrites
}

func (p *EventPublisher) PublishJSON(subject string, payload map[string]any) (string, error) {
	if !p.Enabled() {
		return "", ErrAsyncPublishDisabled
	}

	eventID := uuid.NewString()
	payload["event_id"] = eventID
	if _, ok := payload["created_at"]; !ok {
		payload["created_at"] = time.Now().UTC().Format(time.RFC3339)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	if _, err := p.js.Publish(subject, body); err != nil {
		return "", err
	}
	return eventID, nil
}
