package chat

import (
	"context"
	"strings"
	"time"

	"github.com/samber/lo"

	"inkroom/internal/apperr"
	"inkroom/internal/event"
)

// Store is what the mutation path needs from the storage collaborator.
type Store interface {
	InsertMessage(ctx context.Context, channelID, userID, body string, imageData *string) (*Message, error)
	ListRecent(ctx context.Context, channelID string, limit int) ([]Message, error)
	WindowMessages(ctx context.Context, channelID string, from, to time.Time) ([]Message, error)
	InsertReaction(ctx context.Context, messageID, userID, emoji string) (*Reaction, error)
	DeleteReaction(ctx context.Context, messageID, userID, emoji string) error
}

// Publisher pushes live events to connected viewers. Publishing is
// best-effort and never fails the mutation.
type Publisher interface {
	Publish(evt event.Event)
}

type Service struct {
	store     Store
	publisher Publisher
}

func NewService(store Store, publisher Publisher) *Service {
	return &Service{store: store, publisher: publisher}
}

// PostMessage is the single write path for messages, human or
// system-authored. The event is published only after the write succeeds.
func (s *Service) PostMessage(ctx context.Context, authorID, channelID, body string, imageData *string) (*Message, error) {
	if authorID == "" {
		return nil, apperr.Validation("author is required")
	}
	if channelID == "" {
		return nil, apperr.Validation("channel is required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, apperr.Validation("body is required")
	}

	m, err := s.store.InsertMessage(ctx, channelID, authorID, body, imageData)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(event.New(event.TypeMessageCreated, m))
	return m, nil
}

// ListMessages returns the most recent messages in display order, oldest
// first.
func (s *Service) ListMessages(ctx context.Context, channelID string, limit int) ([]Message, error) {
	if channelID == "" {
		return nil, apperr.Validation("channel is required")
	}
	messages, err := s.store.ListRecent(ctx, channelID, limit)
	if err != nil {
		return nil, err
	}
	return lo.Reverse(messages), nil
}

func (s *Service) WindowMessages(ctx context.Context, channelID string, from, to time.Time) ([]Message, error) {
	return s.store.WindowMessages(ctx, channelID, from, to)
}

// AddReaction rejects a duplicate triple with a conflict instead of
// toggling; no event is emitted for the rejected call.
func (s *Service) AddReaction(ctx context.Context, messageID, userID, emoji string) (*Reaction, error) {
	if messageID == "" || userID == "" || emoji == "" {
		return nil, apperr.Validation("messageId, userId and emoji are required")
	}

	rc, err := s.store.InsertReaction(ctx, messageID, userID, emoji)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(event.New(event.TypeReactionAdded, rc))
	return rc, nil
}

// RemoveReaction publishes only the identifying triple; removing an
// absent reaction is a not-found, so a double removal never double-emits.
func (s *Service) RemoveReaction(ctx context.Context, messageID, userID, emoji string) error {
	if messageID == "" || userID == "" || emoji == "" {
		return apperr.Validation("messageId, userId and emoji are required")
	}

	if err := s.store.DeleteReaction(ctx, messageID, userID, emoji); err != nil {
		return err
	}

	s.publisher.Publish(event.New(event.TypeReactionRemoved, ReactionKey{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
	}))
	return nil
}
