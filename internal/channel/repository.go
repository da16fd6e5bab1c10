package channel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

// Create inserts the channel and its creator's membership atomically.
func (r *Repository) Create(ctx context.Context, name, createdBy string) (*Channel, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c := &Channel{ID: uuid.NewString(), Name: name, CreatedBy: createdBy}
	err = tx.QueryRowContext(ctx,
		"INSERT INTO channels (id, name, created_by) VALUES ($1, $2, $3) RETURNING created_at",
		c.ID, c.Name, c.CreatedBy,
	).Scan(&c.CreatedAt)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO channel_members (channel_id, user_id) VALUES ($1, $2)",
		c.ID, createdBy,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Channel, error) {
	c := &Channel{}
	query := "SELECT id, name, created_by, created_at FROM channels WHERE id = $1"

	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.CreatedBy, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("channel not found")
		}
		return nil, err
	}
	return c, nil
}

func (r *Repository) FindByName(ctx context.Context, name string) (*Channel, error) {
	c := &Channel{}
	query := "SELECT id, name, created_by, created_at FROM channels WHERE name = $1 ORDER BY created_at LIMIT 1"

	err := r.db.QueryRowContext(ctx, query, name).Scan(&c.ID, &c.Name, &c.CreatedBy, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound(fmt.Sprintf("channel %q not found", name))
		}
		return nil, err
	}
	return c, nil
}

func (r *Repository) ListForUser(ctx context.Context, userID string) ([]Channel, error) {
	query := `
		SELECT c.id, c.name, c.created_by, c.created_at
		FROM channels c
		JOIN channel_members cm ON cm.channel_id = c.id
		WHERE cm.user_id = $1
		ORDER BY c.created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []Channel
	for rows.Next() {
		var c Channel
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

// AddMember enforces the one-membership-per-(channel,user) invariant via
// the primary key; a duplicate join surfaces as a conflict.
func (r *Repository) AddMember(ctx context.Context, channelID, userID string) (*Member, error) {
	m := &Member{ChannelID: channelID}
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO channel_members (channel_id, user_id) VALUES ($1, $2) RETURNING joined_at",
		channelID, userID,
	).Scan(&m.JoinedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.Conflict("already a member of this channel")
		}
		return nil, err
	}
	m.User.ID = userID
	return m, nil
}

func (r *Repository) ListMembers(ctx context.Context, channelID string) ([]Member, error) {
	query := `
		SELECT cm.joined_at, u.id, u.email, u.name, u.avatar_url
		FROM channel_members cm
		JOIN users u ON u.id = cm.user_id
		WHERE cm.channel_id = $1
		ORDER BY cm.joined_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		m := Member{ChannelID: channelID}
		if err := rows.Scan(&m.JoinedAt, &m.User.ID, &m.User.Email, &m.User.Name, &m.User.AvatarURL); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
