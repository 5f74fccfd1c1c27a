package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fantasy12/apperr"
	"fantasy12/auth"
	"fantasy12/models"
	"fantasy12/store"
)

type UserService struct {
	Store  store.Store
	Hasher auth.PasswordHasher
	Audit  *AuditService
}

func NewUserService(s store.Store, hasher auth.PasswordHasher, audit *AuditService) *UserService {
	return &UserService{Store: s, Hasher: hasher, Audit: audit}
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.Store.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to list users", err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	u, err := s.Store.GetUser(ctx, id)
	return u, fromStore(err, "user not found", "")
}

type CreateUserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	TaxID    string `json:"cpf"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Create adds a user without going through registration. The password is
// optional; users created without one cannot log in until they set it.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if in.Name == "" || email == "" {
		return nil, apperr.Validation("name and email are required")
	}
	if !validEmail(email) {
		return nil, apperr.Validation("invalid email")
	}
	taxID, err := normalizeTaxID(in.TaxID)
	if err != nil {
		return nil, err
	}
	if err := checkUnique(ctx, s.Store, email, taxID, ""); err != nil {
		return nil, err
	}

	u := &models.User{
		ID:      uuid.NewString(),
		Name:    in.Name,
		Email:   email,
		TaxID:   taxID,
		Phone:   strings.TrimSpace(in.Phone),
		Role:    models.RoleUser,
		Balance: decimal.Zero,
	}
	if in.Password != "" {
		if len(in.Password) < minPasswordLength {
			return nil, apperr.Validation("password must be at least %d characters", minPasswordLength)
		}
		if u.PasswordHash, err = s.Hasher.Hash(in.Password); err != nil {
			return nil, apperr.Internal("failed to create user", err)
		}
	}
	if err := s.Store.CreateUser(ctx, u); err != nil {
		return nil, fromStore(err, "", "email or CPF already registered")
	}
	return u, nil
}

type UpdateUserInput struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	TaxID    *string `json:"cpf"`
	Phone    *string `json:"phone"`
	Password *string `json:"password"`
}

// Update edits the caller's own profile. The row is locked so a concurrent
// balance or inventory change is never overwritten.
func (s *UserService) Update(ctx context.Context, callerID, id string, in UpdateUserInput) (*models.User, error) {
	if callerID != id {
		return nil, apperr.Forbidden("you can only edit your own profile")
	}

	var name, email, phone, hash string
	var taxID *string
	var err error
	if in.Name != nil {
		if name = strings.TrimSpace(*in.Name); name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
	}
	if in.Email != nil {
		if email = normalizeEmail(*in.Email); !validEmail(email) {
			return nil, apperr.Validation("invalid email")
		}
	}
	if in.TaxID != nil {
		if taxID, err = normalizeTaxID(*in.TaxID); err != nil {
			return nil, err
		}
	}
	if in.Phone != nil {
		phone = strings.TrimSpace(*in.Phone)
	}
	if in.Password != nil {
		if len(*in.Password) < minPasswordLength {
			return nil, apperr.Validation("password must be at least %d characters", minPasswordLength)
		}
		if hash, err = s.Hasher.Hash(*in.Password); err != nil {
			return nil, apperr.Internal("failed to update user", err)
		}
	}

	var updated *models.User
	err = s.Store.Tx(ctx, func(tx store.Store) error {
		u, err := tx.GetUserForUpdate(ctx, id)
		if err != nil {
			return fromStore(err, "user not found", "")
		}
		if in.Name != nil {
			u.Name = name
		}
		if in.Email != nil {
			u.Email = email
		}
		if in.TaxID != nil {
			u.TaxID = taxID
		}
		if in.Phone != nil {
			u.Phone = phone
		}
		if in.Password != nil {
			u.PasswordHash = hash
		}
		if err := checkUnique(ctx, tx, u.Email, u.TaxID, u.ID); err != nil {
			return err
		}
		if err := tx.SaveUser(ctx, u); err != nil {
			return fromStore(err, "user not found", "email or CPF already in use by another user")
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, actorOf(updated), ActionProfile, "Atualizou os dados do perfil", models.LogInfo)
	return updated, nil
}

// Delete soft-deletes the caller's own account.
func (s *UserService) Delete(ctx context.Context, callerID, id string) error {
	if callerID != id {
		return apperr.Forbidden("you can only delete your own account")
	}
	u, err := s.Store.GetUser(ctx, id)
	if err != nil {
		return fromStore(err, "user not found", "")
	}
	if err := s.Store.DeleteUser(ctx, id); err != nil {
		return fromStore(err, "user not found", "")
	}
	s.Audit.Record(ctx, actorOf(u), ActionUserDeleted, "Removeu a própria conta", models.LogWarning)
	return nil
}

type AdminUpdateInput struct {
	Role         *models.Role
	Balance      *decimal.Decimal
	Doubles      *int
	SuperDoubles *int
}

// AdminUpdate changes the role, balance or inventory of any user.
func (s *UserService) AdminUpdate(ctx context.Context, admin *models.User, id string, in AdminUpdateInput) (*models.User, error) {
	if admin == nil || !admin.IsAdmin() {
		return nil, apperr.Forbidden("admin role required")
	}
	if in.Role != nil && !in.Role.Valid() {
		return nil, apperr.Validation("invalid role %q", *in.Role)
	}
	if in.Balance != nil && in.Balance.IsNegative() {
		return nil, apperr.Validation("balance cannot be negative")
	}
	if (in.Doubles != nil && *in.Doubles < 0) || (in.SuperDoubles != nil && *in.SuperDoubles < 0) {
		return nil, apperr.Validation("inventory cannot be negative")
	}

	var updated *models.User
	err := s.Store.Tx(ctx, func(tx store.Store) error {
		u, err := tx.GetUserForUpdate(ctx, id)
		if err != nil {
			return fromStore(err, "user not found", "")
		}
		if in.Role != nil {
			u.Role = *in.Role
		}
		if in.Balance != nil {
			u.Balance = *in.Balance
		}
		if in.Doubles != nil {
			u.Doubles = *in.Doubles
		}
		if in.SuperDoubles != nil {
			u.SuperDoubles = *in.SuperDoubles
		}
		if err := tx.SaveUser(ctx, u); err != nil {
			return fromStore(err, "user not found", "")
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, actorOf(admin), ActionProfile, "Ajuste administrativo em "+updated.Name, models.LogWarning)
	return updated, nil
}

// Transactions lists the caller's own ledger, newest first.
func (s *UserService) Transactions(ctx context.Context, callerID, id string) ([]models.Transaction, error) {
	if callerID != id {
		return nil, apperr.Forbidden("you can only view your own transactions")
	}
	if _, err := s.Store.GetUser(ctx, id); err != nil {
		return nil, fromStore(err, "user not found", "")
	}
	txs, err := s.Store.ListTransactions(ctx, id)
	if err != nil {
		return nil, apperr.Internal("failed to list transactions", err)
	}
	return txs, nil
}
