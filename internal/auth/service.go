package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"parking-share-backend/internal/apperr"
	"parking-share-backend/internal/authz"
	"parking-share-backend/internal/model"
	"parking-share-backend/internal/notification"
	"parking-share-backend/internal/store"
)

const minPasswordLength = 8

var validate = validator.New()

// Service registers and authenticates users.
type Service struct {
	store      store.Store
	issuer     *Issuer
	notifier   notification.Notifier
	bcryptCost int
}

func NewService(s store.Store, issuer *Issuer, n notification.Notifier, bcryptCost int) *Service {
	if n == nil {
		n = notification.Nop{}
	}
	return &Service{store: s, issuer: issuer, notifier: n, bcryptCost: bcryptCost}
}

// RegisterInput is a new account request.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// Profile is the signed-in user's view of their account.
type Profile struct {
	User         *model.User        `json:"user"`
	Capabilities authz.Capabilities `json:"capabilities"`
}

// Register creates an unverified resident and signs them in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, Token, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, Token{}, apperr.New(apperr.KindInvalidInput, "a valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, Token{}, apperr.New(apperr.KindInvalidInput, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, Token{}, apperr.ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, Token{}, err
	}

	hash, err := HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, Token{}, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        strings.TrimSpace(in.Phone),
		Role:         model.RoleResident,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, Token{}, err
	}

	tok, err := s.issuer.Issue(user.ID, string(user.Role))
	if err != nil {
		return nil, Token{}, err
	}

	s.notifier.Notify(notification.Event{
		Type:   notification.EventWelcome,
		UserID: user.ID,
		Title:  "Welcome",
		Body:   "Your account is waiting for verification by the building administrator.",
	})
	return user, tok, nil
}

// Login checks the credentials and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, Token, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, Token{}, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, Token{}, err
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return nil, Token{}, apperr.ErrInvalidCredentials
	}

	tok, err := s.issuer.Issue(user.ID, string(user.Role))
	if err != nil {
		return nil, Token{}, err
	}
	return user, tok, nil
}

// Me returns the user's profile with their resolved capabilities.
func (s *Service) Me(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &Profile{User: user, Capabilities: authz.Resolve(user)}, nil
}

// VerifyUser marks a resident as verified by an administrator.
func (s *Service) VerifyUser(ctx context.Context, userID string) (*model.User, error) {
	if err := s.store.SetUserVerified(ctx, userID, true); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, err
	}
	return s.store.GetUser(ctx, userID)
}

// ListPointTransactions returns the user's points ledger, newest first.
func (s *Service) ListPointTransactions(ctx context.Context, userID string) ([]model.PointTransaction, error) {
	return s.store.ListPointTransactions(ctx, userID)
}
