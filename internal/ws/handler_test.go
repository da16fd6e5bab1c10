package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"inkroom/internal/apperr"
	"inkroom/internal/channel"
	"inkroom/internal/chat"
	"inkroom/internal/event"
	"inkroom/internal/middleware"
)

type replayChatStore struct {
	recent []chat.Message
}

func (s *replayChatStore) InsertMessage(ctx context.Context, channelID, userID, body string, imageData *string) (*chat.Message, error) {
	return nil, apperr.Validation("not supported")
}

func (s *replayChatStore) ListRecent(ctx context.Context, channelID string, limit int) ([]chat.Message, error) {
	return s.recent, nil
}

func (s *replayChatStore) WindowMessages(ctx context.Context, channelID string, from, to time.Time) ([]chat.Message, error) {
	return nil, nil
}

func (s *replayChatStore) InsertReaction(ctx context.Context, messageID, userID, emoji string) (*chat.Reaction, error) {
	return nil, apperr.Validation("not supported")
}

func (s *replayChatStore) DeleteReaction(ctx context.Context, messageID, userID, emoji string) error {
	return apperr.NotFound("reaction not found")
}

type replayChannelStore struct {
	byName map[string]*channel.Channel
}

func (s *replayChannelStore) Create(ctx context.Context, name, createdBy string) (*channel.Channel, error) {
	return nil, apperr.Validation("not supported")
}

func (s *replayChannelStore) GetByID(ctx context.Context, id string) (*channel.Channel, error) {
	return nil, apperr.NotFound("channel not found")
}

func (s *replayChannelStore) FindByName(ctx context.Context, name string) (*channel.Channel, error) {
	if c, ok := s.byName[name]; ok {
		return c, nil
	}
	return nil, apperr.NotFound("channel not found")
}

func (s *replayChannelStore) ListForUser(ctx context.Context, userID string) ([]channel.Channel, error) {
	return nil, nil
}

func (s *replayChannelStore) AddMember(ctx context.Context, channelID, userID string) (*channel.Member, error) {
	return nil, apperr.Validation("not supported")
}

func (s *replayChannelStore) ListMembers(ctx context.Context, channelID string) ([]channel.Member, error) {
	return nil, nil
}

func newReplayServer(t *testing.T, hub *Hub, recent []chat.Message) *httptest.Server {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	chats := chat.NewService(&replayChatStore{recent: recent}, hub)
	channels := channel.NewService(&replayChannelStore{
		byName: map[string]*channel.Channel{"general": {ID: "ch1", Name: "general"}},
	})
	handler := NewHandler(hub, chats, channels, "general", log)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), middleware.UserKey, "u1")
		handler.ServeWs(w, r.WithContext(ctx))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialWs(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) event.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var evt event.Event
	require.NoError(t, json.Unmarshal(data, &evt))
	return evt
}

func TestServeWs_ReplaysHistoryBeforeLiveEvents(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(t)
	srv := newReplayServer(t, hub, []chat.Message{
		{ID: "m2", ChannelID: "ch1", Body: "second"},
		{ID: "m1", ChannelID: "ch1", Body: "first"},
	})

	conn := dialWs(t, srv)

	// History arrives oldest-first, ahead of anything live.
	for _, want := range []string{"first", "second"} {
		evt := readEvent(t, conn)
		req.Equal(event.TypeMessageCreated, evt.Type)
		payload, ok := evt.Payload.(map[string]any)
		req.True(ok)
		req.Equal(want, payload["body"])
	}

	hub.Publish(event.New(event.TypeMessageCreated, map[string]string{"body": "live"}))
	evt := readEvent(t, conn)
	payload, ok := evt.Payload.(map[string]any)
	req.True(ok)
	req.Equal("live", payload["body"])
}

func TestServeWs_ReplaySurvivesHubShutdown(t *testing.T) {
	req := require.New(t)

	hub := NewHub(slog.New(slog.DiscardHandler), nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	cancel()
	<-hub.done

	srv := newReplayServer(t, hub, []chat.Message{
		{ID: "m1", ChannelID: "ch1", Body: "first"},
	})

	// A viewer connecting while the hub is gone must still get history,
	// not a panic, and the handler must return rather than park on
	// registration.
	conn := dialWs(t, srv)
	evt := readEvent(t, conn)
	req.Equal(event.TypeMessageCreated, evt.Type)
}

func TestServeWs_RejectsAnonymousViewer(t *testing.T) {
	hub := newTestHub(t)
	log := slog.New(slog.DiscardHandler)
	chats := chat.NewService(&replayChatStore{}, hub)
	channels := channel.NewService(&replayChannelStore{})
	handler := NewHandler(hub, chats, channels, "general", log)

	srv := httptest.NewServer(http.HandlerFunc(handler.ServeWs))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
