// Package store persists the domain models. Services depend on the Store
// interface; Gorm is the production implementation and storetest provides an
// in-memory one for tests.
package store

import (
	"context"
	"errors"
	"time"

	"fantasy12/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type Users interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	// GetUserForUpdate locks the user row until the surrounding transaction ends.
	GetUserForUpdate(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// FindUserByEmailOrTaxID returns any live user other than exceptID owning
	// email or taxID. An empty taxID only matches on email.
	FindUserByEmailOrTaxID(ctx context.Context, email, taxID, exceptID string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUsers(ctx context.Context, ids []string) ([]models.User, error)
	SaveUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id string) error
}

type Rounds interface {
	// ListRounds returns rounds by start date with games in display order.
	ListRounds(ctx context.Context) ([]models.Round, error)
	GetRound(ctx context.Context, id string) (*models.Round, error)
	GetRoundForUpdate(ctx context.Context, id string) (*models.Round, error)
	CreateRound(ctx context.Context, r *models.Round) error
	// SaveRound writes the round columns only, never its games.
	SaveRound(ctx context.Context, r *models.Round) error
	CreateGame(ctx context.Context, g *models.Game) error
	SaveGame(ctx context.Context, g *models.Game) error
	ListRoundsToClose(ctx context.Context, now time.Time) ([]models.Round, error)
	ListSettledRounds(ctx context.Context) ([]models.Round, error)
}

type Pools interface {
	// ListPools returns pools with participants in join order.
	ListPools(ctx context.Context) ([]models.Pool, error)
	GetPool(ctx context.Context, id string) (*models.Pool, error)
	GetPoolForUpdate(ctx context.Context, id string) (*models.Pool, error)
	CreatePool(ctx context.Context, p *models.Pool) error
	SavePool(ctx context.Context, p *models.Pool) error
	// AddParticipant fails with ErrDuplicate when the user already joined.
	AddParticipant(ctx context.Context, pp *models.PoolParticipant) error
	CountParticipants(ctx context.Context, poolID string) (int, error)
}

type TicketFilter struct {
	RoundIDs []string
	UserIDs  []string
	Statuses []models.TicketStatus
}

type Tickets interface {
	// CreateTicket fails with ErrDuplicate when the user already has a
	// ticket for the round.
	CreateTicket(ctx context.Context, t *models.Ticket) error
	GetTicket(ctx context.Context, userID, roundID string) (*models.Ticket, error)
	ListTickets(ctx context.Context, f TicketFilter) ([]models.Ticket, error)
	SaveTicket(ctx context.Context, t *models.Ticket) error
}

type AuditLogs interface {
	CreateLog(ctx context.Context, l *models.LogEntry) error
	// ListLogs returns the newest limit entries, newest first, with UserName
	// replaced by the current name of users that still exist.
	ListLogs(ctx context.Context, limit int) ([]models.LogEntry, error)
	ListLogsBetween(ctx context.Context, from, to time.Time) ([]models.LogEntry, error)
}

type Ledger interface {
	CreatePurchase(ctx context.Context, p *models.Purchase) error
	CreateTransaction(ctx context.Context, t *models.Transaction) error
	ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error)
}

// Store is the full persistence collaborator.
type Store interface {
	Users
	Rounds
	Pools
	Tickets
	AuditLogs
	Ledger

	// Tx runs fn inside a transaction. Everything fn writes through the Store
	// it receives is committed when fn returns nil and discarded otherwise.
	Tx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}
