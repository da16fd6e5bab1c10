package channel

import (
	"time"

	"inkroom/internal/user"
)

type Channel struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"createdById"`
	CreatedAt time.Time `json:"createdAt"`
}

type Member struct {
	ChannelID string    `json:"channelId"`
	JoinedAt  time.Time `json:"joinedAt"`
	User      user.User `json:"user"`
}

type CreateRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type JoinRequest struct {
	ChannelID string `json:"channelId" validate:"required"`
}
