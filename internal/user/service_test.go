package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"inkroom/internal/apperr"
	"inkroom/internal/event"
)

type fakeStore struct {
	users map[string]*User // by id

	lastName      *string
	lastAvatarURL *string
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]*User)}
}

func (f *fakeStore) CreateUser(_ context.Context, u *User) (*User, error) {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return nil, apperr.Conflict("email already registered")
		}
	}
	u.ID = "u" + u.Email
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeStore) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return u, nil
}

func (f *fakeStore) UpdateProfile(_ context.Context, id string, name, avatarURL *string) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	f.lastName, f.lastAvatarURL = name, avatarURL
	if name != nil {
		u.Name = name
	}
	if avatarURL != nil {
		u.AvatarURL = avatarURL
	}
	return u, nil
}

type capturingPublisher struct {
	events []event.Event
}

func (p *capturingPublisher) Publish(evt event.Event) {
	p.events = append(p.events, evt)
}

func strptr(s string) *string { return &s }

func TestService_Register_HashesPassword(t *testing.T) {
	req := require.New(t)
	store := newFakeStore()
	svc := NewService(store, &capturingPublisher{}, "secret")

	u, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    "ada@example.com",
		Password: "hunter2hunter2",
	})

	req.NoError(err)
	req.NotEqual("hunter2hunter2", u.Password)
	req.NoError(bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("hunter2hunter2")))
}

func TestService_Login_RejectsWrongPassword(t *testing.T) {
	req := require.New(t)
	store := newFakeStore()
	svc := NewService(store, &capturingPublisher{}, "secret")

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    "ada@example.com",
		Password: "hunter2hunter2",
	})
	req.NoError(err)

	_, err = svc.Login(context.Background(), &LoginRequest{
		Email:    "ada@example.com",
		Password: "wrong",
	})
	req.True(apperr.IsValidation(err))
}

func TestService_LoginThenValidateToken_RoundTrips(t *testing.T) {
	req := require.New(t)
	store := newFakeStore()
	svc := NewService(store, &capturingPublisher{}, "secret")

	u, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    "ada@example.com",
		Password: "hunter2hunter2",
	})
	req.NoError(err)

	res, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "ada@example.com",
		Password: "hunter2hunter2",
	})
	req.NoError(err)

	id, email, err := svc.ValidateToken(res.AccessToken)
	req.NoError(err)
	req.Equal(u.ID, id)
	req.Equal("ada@example.com", email)
}

func TestService_UpdateProfile_NameOnlyLeavesAvatarUntouched(t *testing.T) {
	req := require.New(t)
	store := newFakeStore()
	pub := &capturingPublisher{}
	svc := NewService(store, pub, "secret")

	u, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    "ada@example.com",
		Password: "hunter2hunter2",
	})
	req.NoError(err)
	store.users[u.ID].AvatarURL = strptr("https://example.com/old.png")

	updated, err := svc.UpdateProfile(context.Background(), u.ID, &UpdateProfileRequest{
		Name: strptr("Ada"),
	})

	req.NoError(err)
	req.Equal("Ada", *updated.Name)
	req.Equal("https://example.com/old.png", *updated.AvatarURL)
	// The absent field must reach the store as nil, not empty.
	req.Nil(store.lastAvatarURL)
	req.NotNil(store.lastName)

	// The full identity is broadcast so rendered messages can be patched.
	req.Len(pub.events, 1)
	req.Equal(event.TypeProfileUpdated, pub.events[0].Type)
	payload := pub.events[0].Payload.(*User)
	req.Equal("Ada", *payload.Name)
	req.Equal("https://example.com/old.png", *payload.AvatarURL)
}

func TestUser_DisplayNameFallsBackToEmail(t *testing.T) {
	req := require.New(t)

	u := &User{Email: "ada@example.com"}
	req.Equal("ada@example.com", u.DisplayName())

	u.Name = strptr("")
	req.Equal("ada@example.com", u.DisplayName())

	u.Name = strptr("Ada")
	req.Equal("Ada", u.DisplayName())
}
