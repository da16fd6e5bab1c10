package ws

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"inkroom/internal/event"
)

const liveChannel = "inkroom-live"

// Hub is the process-wide broadcaster and connection registry. The run
// loop is the only goroutine that touches the client map; registration,
// removal and fan-out all go through its channels, so the map never sees
// concurrent mutation.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// Optional bridge across instances. When set, Publish goes out via
	// redis and the subscribe loop feeds broadcast, exactly like a local
	// publish.
	redis *redis.Client
	log   *slog.Logger
}

func NewHub(log *slog.Logger, redisClient *redis.Client) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		redis:      redisClient,
		log:        log,
	}
}

// Publish fans the event out to every open connection, best-effort. It
// never blocks on a slow consumer and never returns an error: mutation
// correctness must not depend on delivery.
func (h *Hub) Publish(evt event.Event) {
	data, err := evt.Marshal()
	if err != nil {
		h.log.Error("marshal live event", "type", evt.Type, "err", err)
		return
	}

	if h.redis != nil {
		if err := h.redis.Publish(context.Background(), liveChannel, data).Err(); err != nil {
			h.log.Error("redis publish", "type", evt.Type, "err", err)
		}
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.log.Warn("broadcast buffer full, event dropped", "type", evt.Type)
	}
}

// Register attaches a client to the fan-out. After the run loop has
// stopped it is a no-op, so connections arriving mid-shutdown do not
// park their handler goroutine forever.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Unregister is idempotent: removing a client twice is a no-op.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow or stalled consumer: drop it rather than
					// block everyone else.
					h.log.Warn("dropping slow connection")
					close(client.send)
					delete(h.clients, client)
				}
			}

		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return
		}
	}
}

// SubscribeToRedis feeds events published by other instances into the
// local fan-out. Only started when the redis bridge is configured.
func (h *Hub) SubscribeToRedis(ctx context.Context) {
	pubsub := h.redis.Subscribe(ctx, liveChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast <- []byte(msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}
