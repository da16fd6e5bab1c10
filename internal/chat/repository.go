package chat

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"inkroom/internal/apperr"
	"inkroom/internal/db"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(conn *sql.DB) *Repository {
	return &Repository{db: conn}
}

const messageColumns = `
	m.id, m.channel_id, m.user_id, m.body, m.image_data, m.created_at,
	u.id, u.email, u.name, u.avatar_url
`

func scanMessage(row interface{ Scan(...any) error }) (*Message, error) {
	m := &Message{Reactions: []Reaction{}}
	var imageData *string
	err := row.Scan(
		&m.ID, &m.ChannelID, &m.UserID, &m.Body, &imageData, &m.CreatedAt,
		&m.User.ID, &m.User.Email, &m.User.Name, &m.User.AvatarURL,
	)
	if err != nil {
		return nil, err
	}
	m.Image = imageDataURI(imageData)
	return m, nil
}

// imageDataURI wraps stored base64 payload in a displayable URI.
func imageDataURI(b64 *string) *string {
	if b64 == nil || *b64 == "" {
		return nil
	}
	uri := "data:image/png;base64," + *b64
	return &uri
}

// InsertMessage persists a message and returns it with author fields
// resolved. Reactions are necessarily empty on a fresh message.
func (r *Repository) InsertMessage(ctx context.Context, channelID, userID, body string, imageData *string) (*Message, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO messages (id, channel_id, user_id, body, image_data) VALUES ($1, $2, $3, $4, $5)",
		id, channelID, userID, body, imageData,
	)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return nil, apperr.NotFound("channel or user not found")
		}
		return nil, err
	}
	return r.GetMessage(ctx, id)
}

func (r *Repository) GetMessage(ctx context.Context, id string) (*Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.id = $1
	`
	m, err := scanMessage(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("message not found")
		}
		return nil, err
	}

	grouped, err := r.reactionsFor(ctx, []string{m.ID})
	if err != nil {
		return nil, err
	}
	if rs, ok := grouped[m.ID]; ok {
		m.Reactions = rs
	}
	return m, nil
}

// ListRecent returns the newest messages first; callers reverse for
// display order.
func (r *Repository) ListRecent(ctx context.Context, channelID string, limit int) ([]Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.channel_id = $1
		ORDER BY m.created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, channelID, limit)
	if err != nil {
		return nil, err
	}
	messages, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachReactions(ctx, messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// WindowMessages returns every message in [from, to], oldest first. There
// is deliberately no row limit: the aggregation pipeline needs the full
// window.
func (r *Repository) WindowMessages(ctx context.Context, channelID string, from, to time.Time) ([]Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.channel_id = $1 AND m.created_at >= $2 AND m.created_at <= $3
		ORDER BY m.created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, channelID, from, to)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

func collectMessages(rows *sql.Rows) ([]Message, error) {
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

func (r *Repository) attachReactions(ctx context.Context, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}
	ids := make([]string, len(messages))
	for i := range messages {
		ids[i] = messages[i].ID
	}
	grouped, err := r.reactionsFor(ctx, ids)
	if err != nil {
		return err
	}
	for i := range messages {
		if rs, ok := grouped[messages[i].ID]; ok {
			messages[i].Reactions = rs
		}
	}
	return nil
}

func (r *Repository) reactionsFor(ctx context.Context, messageIDs []string) (map[string][]Reaction, error) {
	query := `
		SELECT rc.id, rc.message_id, rc.user_id, rc.emoji, rc.created_at,
		       u.id, u.email, u.name, u.avatar_url
		FROM reactions rc
		JOIN users u ON u.id = rc.user_id
		WHERE rc.message_id = ANY($1)
		ORDER BY rc.created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, messageIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grouped := make(map[string][]Reaction)
	for rows.Next() {
		var rc Reaction
		err := rows.Scan(
			&rc.ID, &rc.MessageID, &rc.UserID, &rc.Emoji, &rc.CreatedAt,
			&rc.User.ID, &rc.User.Email, &rc.User.Name, &rc.User.AvatarURL,
		)
		if err != nil {
			return nil, err
		}
		grouped[rc.MessageID] = append(grouped[rc.MessageID], rc)
	}
	return grouped, rows.Err()
}

// InsertReaction rejects a duplicate (message, user, emoji) triple with a
// conflict; the unique constraint settles concurrent duplicates.
func (r *Repository) InsertReaction(ctx context.Context, messageID, userID, emoji string) (*Reaction, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO reactions (id, message_id, user_id, emoji) VALUES ($1, $2, $3, $4)",
		id, messageID, userID, emoji,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.Conflict("reaction already exists")
		}
		if db.IsForeignKeyViolation(err) {
			return nil, apperr.NotFound("message or user not found")
		}
		return nil, err
	}

	rc := &Reaction{}
	query := `
		SELECT rc.id, rc.message_id, rc.user_id, rc.emoji, rc.created_at,
		       u.id, u.email, u.name, u.avatar_url
		FROM reactions rc
		JOIN users u ON u.id = rc.user_id
		WHERE rc.id = $1
	`
	err = r.db.QueryRowContext(ctx, query, id).Scan(
		&rc.ID, &rc.MessageID, &rc.UserID, &rc.Emoji, &rc.CreatedAt,
		&rc.User.ID, &rc.User.Email, &rc.User.Name, &rc.User.AvatarURL,
	)
	if err != nil {
		return nil, err
	}
	return rc, nil
}

func (r *Repository) DeleteReaction(ctx context.Context, messageID, userID, emoji string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM reactions WHERE message_id = $1 AND user_id = $2 AND emoji = $3",
		messageID, userID, emoji,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("reaction not found")
	}
	return nil
}
