package user

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"inkroom/internal/apperr"
	"inkroom/internal/event"
)

// Store is what the service needs from the storage collaborator.
type Store interface {
	CreateUser(ctx context.Context, u *User) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	UpdateProfile(ctx context.Context, id string, name, avatarURL *string) (*User, error)
}

// Publisher pushes live events to connected viewers.
type Publisher interface {
	Publish(evt event.Event)
}

type Service struct {
	store     Store
	publisher Publisher
	jwtSecret string
}

type Claims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func NewService(store Store, publisher Publisher, secret string) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		jwtSecret: secret,
	}
}

func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*User, error) {
	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Email:    req.Email,
		Name:     req.Name,
		Password: string(hashedPwd),
	}

	return s.store.CreateUser(ctx, u)
}

func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	u, err := s.store.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		return nil, apperr.Validation("invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ID:    u.ID,
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "inkroom",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	})

	ss, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		AccessToken: ss,
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
	}, nil
}

func (s *Service) ValidateToken(tokenString string) (string, string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	})

	if err != nil || !token.Valid {
		return "", "", err
	}

	return claims.ID, claims.Email, nil
}

func (s *Service) GetProfile(ctx context.Context, id string) (*User, error) {
	return s.store.GetByID(ctx, id)
}

// UpdateProfile applies the provided fields only, then broadcasts the full
// updated identity so viewers can patch already-rendered messages in place.
func (s *Service) UpdateProfile(ctx context.Context, id string, req *UpdateProfileRequest) (*User, error) {
	u, err := s.store.UpdateProfile(ctx, id, req.Name, req.AvatarURL)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(event.New(event.TypeProfileUpdated, u))
	return u, nil
}
