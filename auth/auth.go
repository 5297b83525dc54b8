package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	gallery "github.com/bitmark-inc/client-gallery"
	"github.com/bitmark-inc/client-gallery/log"
)

var (
	ErrMissingFields      = errors.New("name, email and password are required")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserStore is the part of the gallery store the auth service depends on
type UserStore interface {
	CreateUser(ctx context.Context, user gallery.User) (gallery.User, error)
	GetUserByEmail(ctx context.Context, email string) (gallery.User, error)
}

// Result is returned to a client after a successful registration or login
type Result struct {
	Token string             `json:"token"`
	User  gallery.PublicUser `json:"user"`
}

type Service struct {
	store      UserStore
	secret     []byte
	ttl        time.Duration
	bcryptCost int
	now        func() time.Time
}

func New(store UserStore, secret string, ttl time.Duration, bcryptCost int) *Service {
	if ttl <= 0 {
		ttl = gallery.DefaultTokenTTL
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}

	return &Service{
		store:      store,
		secret:     []byte(secret),
		ttl:        ttl,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user with a salted password hash and returns a signed token.
func (s *Service) Register(ctx context.Context, name, email, password string) (Result, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return Result{}, ErrMissingFields
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		log.Info("user already exists", log.SourceAuth, zap.String("email", email))
		return Result{}, ErrUserExists
	} else if !errors.Is(err, gallery.ErrUserNotFound) {
		return Result{}, fmt.Errorf("look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return Result{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, gallery.User{
		Name:      name,
		Email:     email,
		Password:  string(hash),
		CreatedAt: s.now(),
	})
	if err != nil {
		if errors.Is(err, gallery.ErrDuplicateEmail) {
			return Result{}, ErrUserExists
		}
		return Result{}, fmt.Errorf("create user: %w", err)
	}

	log.Info("user created", log.SourceAuth, zap.String("userID", user.ID.Hex()))

	return s.result(user)
}

// Login checks the credentials of a user. Unknown emails and wrong passwords
// both return ErrInvalidCredentials and are only told apart in logs.
func (s *Service) Login(ctx context.Context, email, password string) (Result, error) {
	email = normalizeEmail(email)

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gallery.ErrUserNotFound) {
			log.Info("login with unknown email", log.SourceAuth, zap.String("email", email))
			return Result{}, ErrInvalidCredentials
		}
		return Result{}, fmt.Errorf("look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		log.Info("login with invalid password", log.SourceAuth, zap.String("email", email))
		return Result{}, ErrInvalidCredentials
	}

	return s.result(user)
}

func (s *Service) result(user gallery.User) (Result, error) {
	token, err := s.IssueToken(user)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Token: token,
		User:  user.Public(),
	}, nil
}
