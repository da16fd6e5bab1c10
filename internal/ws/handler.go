package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"inkroom/internal/apperr"
	"inkroom/internal/channel"
	"inkroom/internal/chat"
	"inkroom/internal/event"
	"inkroom/internal/middleware"
)

const replayLimit = 50

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for now (dev mode)
	},
}

type Handler struct {
	hub           *Hub
	chats         *chat.Service
	channels      *channel.Service
	replayChannel string
	log           *slog.Logger
}

func NewHandler(hub *Hub, chats *chat.Service, channels *channel.Service, replayChannel string, log *slog.Logger) *Handler {
	return &Handler{
		hub:           hub,
		chats:         chats,
		channels:      channels,
		replayChannel: replayChannel,
		log:           log,
	}
}

// ServeWs upgrades the request and attaches the viewer to the hub. Recent
// history of the default channel is replayed as message-created events so
// a fresh viewer starts from a populated view.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	if _, ok := r.Context().Value(middleware.UserKey).(string); !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade", "err", err)
		return
	}

	client := newClient(h.hub, conn, h.log)
	h.hub.Register(client)

	// Replay writes to the raw conn before the pumps start, while this
	// goroutine is still the only writer. Only the hub may touch
	// client.send; a send here would panic once the hub closes it.
	// Events broadcast mid-replay queue in client.send and follow.
	h.replayHistory(r, conn)

	go client.writePump()
	go client.readPump()
}

func (h *Handler) replayHistory(r *http.Request, conn *websocket.Conn) {
	c, err := h.channels.FindByName(r.Context(), h.replayChannel)
	if err != nil {
		if !apperr.IsNotFound(err) {
			h.log.Warn("resolve replay channel", "channel", h.replayChannel, "err", err)
		}
		return
	}

	messages, err := h.chats.ListMessages(r.Context(), c.ID, replayLimit)
	if err != nil {
		h.log.Warn("load history", "channel", c.ID, "err", err)
		return
	}

	for i := range messages {
		data, err := event.New(event.TypeMessageCreated, &messages[i]).Marshal()
		if err != nil {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug("history replay write", "err", err)
			return
		}
	}
}
