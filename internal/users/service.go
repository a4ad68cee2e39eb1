package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

// Store is the persistence the service needs; *Repo implements it.
type Store interface {
	Create(ctx context.Context, u User) (User, error)
	ByUsername(ctx context.Context, username string) (User, error)
	Taken(ctx context.Context, exceptID int64, username, displayName, email string) ([]error, error)
	Update(ctx context.Context, id int64, patch UserPatch) (User, error)
}

type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log}
}

func (s *Service) Register(ctx context.Context, in Registration) (User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Password == "" {
		return User{}, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return User{}, fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}

	taken, err := s.store.Taken(ctx, 0, in.Username, in.Username, in.Email)
	if err != nil {
		return User{}, err
	}
	if len(taken) > 0 {
		return User{}, taken[0]
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.store.Create(ctx, User{
		Username:     in.Username,
		DisplayName:  in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return User{}, err
	}
	s.log.Info("user registered", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

// Login checks the password only. Issuing sessions is left to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (User, error) {
	u, err := s.store.ByUsername(ctx, username)
	if err != nil {
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("compare password: %w", err)
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, username string) (User, error) {
	return s.store.ByUsername(ctx, username)
}

// Update applies patch to the user named username. Every conflicting field
// is reported in a single error.
func (s *Service) Update(ctx context.Context, username string, patch UserPatch) (User, error) {
	if patch.empty() {
		return User{}, ErrEmptyPatch
	}
	patch = UserPatch{
		Email:       trimmed(patch.Email),
		Username:    trimmed(patch.Username),
		DisplayName: trimmed(patch.DisplayName),
	}
	if patch.Email != nil {
		if _, err := mail.ParseAddress(*patch.Email); err != nil {
			return User{}, fmt.Errorf("%w: email is not valid", ErrInvalidInput)
		}
	}
	if (patch.Username != nil && *patch.Username == "") ||
		(patch.DisplayName != nil && *patch.DisplayName == "") {
		return User{}, fmt.Errorf("%w: names must not be empty", ErrInvalidInput)
	}

	u, err := s.store.ByUsername(ctx, username)
	if err != nil {
		return User{}, err
	}

	taken, err := s.store.Taken(ctx, u.ID, deref(patch.Username), deref(patch.DisplayName), deref(patch.Email))
	if err != nil {
		return User{}, err
	}
	if len(taken) > 0 {
		return User{}, errors.Join(taken...)
	}

	return s.store.Update(ctx, u.ID, patch)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
