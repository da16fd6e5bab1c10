package chat

import (
	"time"

	"inkroom/internal/user"
)

type Message struct {
	ID        string     `json:"id"`
	ChannelID string     `json:"channelId"`
	UserID    string     `json:"userId"`
	Body      string     `json:"body"`
	Image     *string    `json:"image,omitempty"` // data URI built from stored base64
	CreatedAt time.Time  `json:"createdAt"`
	User      user.User  `json:"user"`
	Reactions []Reaction `json:"reactions"`
}

type Reaction struct {
	ID        string    `json:"id"`
	MessageID string    `json:"messageId"`
	UserID    string    `json:"userId"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`
	User      user.User `json:"user"`
}

// ReactionKey identifies a reaction triple. Removal events carry only the
// key, not the full entity.
type ReactionKey struct {
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
	Emoji     string `json:"emoji"`
}

type PostMessageRequest struct {
	ChannelID string `json:"channelId" validate:"required"`
	Body      string `json:"body" validate:"required"`
}

type AddReactionRequest struct {
	MessageID string `json:"messageId" validate:"required"`
	Emoji     string `json:"emoji" validate:"required"`
}
