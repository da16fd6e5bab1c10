package channel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"inkroom/internal/apperr"
)

type fakeStore struct {
	channels map[string]*Channel // by id
	members  map[string]bool     // channelID+userID
	created  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		channels: make(map[string]*Channel),
		members:  make(map[string]bool),
	}
}

func (f *fakeStore) Create(_ context.Context, name, createdBy string) (*Channel, error) {
	f.created++
	c := &Channel{ID: "ch-" + name, Name: name, CreatedBy: createdBy}
	f.channels[c.ID] = c
	f.members[c.ID+createdBy] = true
	return c, nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*Channel, error) {
	c, ok := f.channels[id]
	if !ok {
		return nil, apperr.NotFound("channel not found")
	}
	return c, nil
}

func (f *fakeStore) FindByName(_ context.Context, name string) (*Channel, error) {
	for _, c := range f.channels {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, apperr.NotFound("channel not found")
}

func (f *fakeStore) ListForUser(_ context.Context, _ string) ([]Channel, error) {
	return nil, nil
}

func (f *fakeStore) AddMember(_ context.Context, channelID, userID string) (*Member, error) {
	key := channelID + userID
	if f.members[key] {
		return nil, apperr.Conflict("already a member of this channel")
	}
	f.members[key] = true
	return &Member{ChannelID: channelID}, nil
}

func (f *fakeStore) ListMembers(_ context.Context, _ string) ([]Member, error) {
	return nil, nil
}

func TestService_Create_RequiresName(t *testing.T) {
	req := require.New(t)
	store := newFakeStore()
	svc := NewService(store)

	_, err := svc.Create(context.Background(), "", "u1")
	req.True(apperr.IsValidation(err))
	req.Zero(store.created)
}

func TestService_FindByName(t *testing.T) {
	req := require.New(t)
	store := newFakeStore()
	svc := NewService(store)

	created, err := svc.Create(context.Background(), "general", "u1")
	req.NoError(err)

	found, err := svc.FindByName(context.Background(), "general")
	req.NoError(err)
	req.Equal(created.ID, found.ID)

	_, err = svc.FindByName(context.Background(), "missing")
	req.True(apperr.IsNotFound(err))
}

func TestService_Join_DuplicateMembershipIsConflict(t *testing.T) {
	req := require.New(t)
	store := newFakeStore()
	svc := NewService(store)

	c, err := svc.Create(context.Background(), "art", "u1")
	req.NoError(err)

	// The creator was auto-added on create.
	_, err = svc.Join(context.Background(), c.ID, "u1")
	req.True(apperr.IsConflict(err))

	_, err = svc.Join(context.Background(), c.ID, "u2")
	req.NoError(err)
	_, err = svc.Join(context.Background(), c.ID, "u2")
	req.True(apperr.IsConflict(err))
}

func TestService_Join_UnknownChannelIsNotFound(t *testing.T) {
	req := require.New(t)
	svc := NewService(newFakeStore())

	_, err := svc.Join(context.Background(), "missing", "u1")
	req.True(apperr.IsNotFound(err))
}
