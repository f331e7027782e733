package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Dhia9030/CarRental-sub000/internal/core/events"
)

const eventsChannel = "rental:events"

// Hub fans booking and payment events out to SSE subscribers. Events enter
// from the in-process bus and are mirrored through redis pub/sub so every
// instance behind the load balancer sees the same stream.
type Hub struct {
	redis       *redis.Client
	logger      *slog.Logger
	mu          sync.RWMutex
	subscribers map[string]chan []byte
}

func NewHub(redisClient *redis.Client, logger *slog.Logger) *Hub {
	return &Hub{
		redis:       redisClient,
		logger:      logger,
		subscribers: make(map[string]chan []byte),
	}
}

// Start wires the hub into the event bus and, when redis is configured,
// begins relaying the shared channel. Blocks only in background goroutines.
func (h *Hub) Start(ctx context.Context, bus *events.EventBus) {
	bus.SubscribeAll(func(ctx context.Context, event events.Event) error {
		return h.publish(ctx, event)
	})

	if h.redis != nil {
		go h.relayRedis(ctx)
	}
}

// publish serializes the event and hands it to redis (cross-instance) or
// directly to local subscribers when redis is off.
func (h *Hub) publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(map[string]interface{}{
		"id":        event.EventID(),
		"type":      event.EventType(),
		"timestamp": event.OccurredAt(),
		"data":      event.Payload(),
	})
	if err != nil {
		return err
	}

	if h.redis != nil {
		if err := h.redis.Publish(ctx, eventsChannel, payload).Err(); err != nil {
			h.logger.Error("failed to publish event to redis", "error", err)
			// Fall through so local subscribers still get the event.
			h.broadcast(payload)
		}
		return nil
	}

	h.broadcast(payload)
	return nil
}

func (h *Hub) relayRedis(ctx context.Context) {
	sub := h.redis.Subscribe(ctx, eventsChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast([]byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subscribers {
		select {
		case ch <- payload:
		default:
			// Slow subscriber; drop rather than block the stream.
			h.logger.Warn("dropping event for slow subscriber", "subscriber_id", id)
		}
	}
}

// Subscribe registers an SSE consumer. The returned cancel func must be
// called when the client disconnects.
func (h *Hub) Subscribe() (id string, ch <-chan []byte, cancel func()) {
	id = uuid.New().String()
	c := make(chan []byte, 16)

	h.mu.Lock()
	h.subscribers[id] = c
	h.mu.Unlock()

	h.logger.Info("sse subscriber connected", "subscriber_id", id)

	return id, c, func() {
		h.mu.Lock()
		delete(h.subscribers, id)
		h.mu.Unlock()
		close(c)
		h.logger.Info("sse subscriber disconnected", "subscriber_id", id)
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
