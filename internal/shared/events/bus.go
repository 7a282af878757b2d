package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
	"github.com/google/uuid"
	"github.com/legalaid-center/platform/internal/shared/config"
	"github.com/legalaid-center/platform/internal/shared/types"
)

// Event represents a workflow domain event published to the stream.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`   // e.g. case.approved, task.status_changed
	Source    string    `json:"source"` // emitting module
	Timestamp time.Time `json:"timestamp"`

	// Actor information
	ActorID   types.ID `json:"actor_id"`
	ActorRole string   `json:"actor_role"`

	// Entity information
	EntityID   types.ID `json:"entity_id"`
	FromStatus string   `json:"from_status,omitempty"`
	ToStatus   string   `json:"to_status,omitempty"`

	// Event data
	Data any `json:"data,omitempty"`
}

// NewEvent creates a new event with auto-generated ID and timestamp
func NewEvent(eventType, source string, entityID types.ID) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		EntityID:  entityID,
	}
}

// WithActor sets the actor information on the event
func (e Event) WithActor(actorID types.ID, actorRole string) Event {
	e.ActorID = actorID
	e.ActorRole = actorRole
	return e
}

// WithStatusChange sets the from/to statuses on the event
func (e Event) WithStatusChange(from, to string) Event {
	e.FromStatus = from
	e.ToStatus = to
	return e
}

// Handler is a function that handles an event
type Handler func(ctx context.Context, event Event) error

// EventBus defines the interface for event publishing and subscription
type EventBus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, pattern string, handler Handler) error
	Close()
}

// Bus publishes workflow events to KurrentDB streams
type Bus struct {
	client *esdb.Client
	prefix string
}

var _ EventBus = (*Bus)(nil)

// NewBus creates a new event bus connected to KurrentDB
func NewBus(ctx context.Context, cfg config.EventStoreConfig) (*Bus, error) {
	settings, err := esdb.ParseConnectionString(connectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	client, err := esdb.NewClient(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create event store client: %w", err)
	}

	return &Bus{client: client, prefix: "legalaid"}, nil
}

func connectionString(cfg config.EventStoreConfig) string {
	var auth string
	if cfg.Username != "" && cfg.Password != "" {
		auth = fmt.Sprintf("%s:%s@", cfg.Username, cfg.Password)
	}

	params := ""
	if cfg.Insecure {
		params = "?tls=false&tlsVerifyCert=false"
	}

	return fmt.Sprintf("esdb://%s%s:%d%s", auth, cfg.Host, cfg.Port, params)
}

// Publish publishes an event to the bus
func (b *Bus) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// case.approved -> legalaid-case-approved
	stream := fmt.Sprintf("%s-%s", b.prefix, normalizeEventType(event.Type))

	eventID, err := uuid.Parse(event.ID)
	if err != nil {
		eventID = uuid.New()
	}

	esdbEvent := esdb.EventData{
		EventType:   event.Type,
		ContentType: esdb.ContentTypeJson,
		Data:        data,
		EventID:     eventID,
	}

	_, err = b.client.AppendToStream(ctx, stream, esdb.AppendToStreamOptions{
		ExpectedRevision: esdb.Any{},
	}, esdbEvent)

	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Subscribe creates a catch-up subscription for events matching a wildcard
// pattern like "case.*"
func (b *Bus) Subscribe(ctx context.Context, pattern string, handler Handler) error {
	sub, err := b.client.SubscribeToAll(ctx, esdb.SubscribeToAllOptions{
		From: esdb.End{},
		Filter: &esdb.SubscriptionFilter{
			Type:  esdb.EventFilterType,
			Regex: patternToRegex(pattern),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to pattern: %w", err)
	}

	go b.consume(ctx, sub, handler)
	return nil
}

func (b *Bus) consume(ctx context.Context, sub *esdb.Subscription, handler Handler) {
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			subEvent := sub.Recv()
			if subEvent.SubscriptionDropped != nil {
				log.Printf("event subscription dropped: %v", subEvent.SubscriptionDropped.Error)
				return
			}
			if subEvent.EventAppeared == nil || subEvent.EventAppeared.Event == nil {
				continue
			}

			recorded := subEvent.EventAppeared.Event
			if len(recorded.EventType) > 0 && recorded.EventType[0] == '$' {
				continue
			}

			var event Event
			if err := json.Unmarshal(recorded.Data, &event); err != nil {
				log.Printf("failed to decode event %s: %v", recorded.EventID, err)
				continue
			}

			if err := handler(ctx, event); err != nil {
				log.Printf("event handler failed for %s: %v", event.Type, err)
			}
		}
	}
}

// Close closes the event bus connection
func (b *Bus) Close() {
	if b.client != nil {
		b.client.Close()
	}
}

// normalizeEventType converts event type to stream-safe format
func normalizeEventType(eventType string) string {
	result := make([]byte, len(eventType))
	for i := 0; i < len(eventType); i++ {
		if eventType[i] == '.' {
			result[i] = '-'
		} else {
			result[i] = eventType[i]
		}
	}
	return string(result)
}

// patternToRegex converts a simple wildcard pattern to regex
func patternToRegex(pattern string) string {
	result := make([]byte, 0, len(pattern)*2)
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '.':
			result = append(result, '\\', '.')
		case '*':
			result = append(result, '.', '*')
		default:
			result = append(result, pattern[i])
		}
	}
	return string(result)
}
