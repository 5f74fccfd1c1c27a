package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fantasy12/apperr"
	"fantasy12/auth"
	"fantasy12/models"
	"fantasy12/store"
)

type AuthService struct {
	Store  store.Store
	Tokens auth.TokenManager
	Hasher auth.PasswordHasher
	Audit  *AuditService
}

func NewAuthService(s store.Store, tokens auth.TokenManager, hasher auth.PasswordHasher, audit *AuditService) *AuthService {
	return &AuthService{Store: s, Tokens: tokens, Hasher: hasher, Audit: audit}
}

// Session is a user with a freshly issued bearer token.
type Session struct {
	User  *models.User
	Token string
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	TaxID    string `json:"cpf"`
	Phone    string `json:"phone"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, apperr.Validation("name, email and password are required")
	}
	if !validEmail(email) {
		return nil, apperr.Validation("invalid email")
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperr.Validation("password must be at least %d characters", minPasswordLength)
	}
	taxID, err := normalizeTaxID(in.TaxID)
	if err != nil {
		return nil, err
	}
	if err := checkUnique(ctx, s.Store, email, taxID, ""); err != nil {
		return nil, err
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Internal("failed to register user", err)
	}
	u := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		TaxID:        taxID,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
		Role:         models.RoleUser,
		Balance:      decimal.Zero,
	}
	if err := s.Store.CreateUser(ctx, u); err != nil {
		return nil, fromStore(err, "", "email or CPF already registered")
	}

	token, err := s.Tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, apperr.Internal("failed to issue token", err)
	}
	s.Audit.Record(ctx, actorOf(u), ActionRegister, "Novo usuário cadastrado", models.LogSuccess)
	return &Session{User: u, Token: token}, nil
}

var errBadCredentials = apperr.Unauthorized("invalid email or password")

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}
	u, err := s.Store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, apperr.Internal("failed to log in", err)
	}
	if u.PasswordHash == "" || !s.Hasher.Check(password, u.PasswordHash) {
		return nil, errBadCredentials
	}

	token, err := s.Tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, apperr.Internal("failed to issue token", err)
	}
	s.Audit.Record(ctx, actorOf(u), ActionLogin, "Usuário acessou o sistema", models.LogInfo)
	return &Session{User: u, Token: token}, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.Store.GetUser(ctx, userID)
	return u, fromStore(err, "user not found", "")
}

// Logout only leaves an audit trail; tokens are discarded by the client.
func (s *AuthService) Logout(ctx context.Context, userID string) {
	actor := Actor{ID: userID}
	if u, err := s.Store.GetUser(ctx, userID); err == nil {
		actor = actorOf(u)
	}
	s.Audit.Record(ctx, actor, ActionLogout, "Usuário saiu do sistema", models.LogInfo)
}
