package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Outcome is one possible result of a game from team A's point of view.
type Outcome string

const (
	OutcomeA    Outcome = "A"
	OutcomeDraw Outcome = "Draw"
	OutcomeB    Outcome = "B"
)

func (o Outcome) Valid() bool {
	return o == OutcomeA || o == OutcomeDraw || o == OutcomeB
}

// Selection is a prediction for one game of a ticket.
type Selection struct {
	GameID        string    `json:"gameId"`
	Outcome       []Outcome `json:"outcome"`
	IsDouble      bool      `json:"isDouble"`
	IsSuperDouble bool      `json:"isSuperDouble"`
}

type TicketStatus string

const (
	TicketPending TicketStatus = "pending"
	TicketPaid    TicketStatus = "paid"
	TicketWon     TicketStatus = "won"
	TicketLost    TicketStatus = "lost"
)

// Ticket is one user's submission for a round. At most one per (user, round).
type Ticket struct {
	ID         string                         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID     string                         `gorm:"type:varchar(36);not null;uniqueIndex:idx_ticket_user_round" json:"userId"`
	RoundID    string                         `gorm:"type:varchar(36);not null;uniqueIndex:idx_ticket_user_round;index" json:"roundId"`
	Selections datatypes.JSONType[[]Selection] `gorm:"type:jsonb;not null" json:"selections"`
	BaseStake  decimal.Decimal                `gorm:"type:numeric(14,2);not null" json:"baseStake"`
	TotalCost  decimal.Decimal                `gorm:"type:numeric(14,2);not null" json:"totalCost"`
	Points     int                            `gorm:"not null;default:0" json:"points"`
	Status     TicketStatus                   `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`

	Timestamps
}
