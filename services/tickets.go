package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"fantasy12/apperr"
	"fantasy12/metrics"
	"fantasy12/models"
	"fantasy12/rules"
	"fantasy12/store"
)

type TicketService struct {
	Store        store.Store
	Audit        *AuditService
	StakePerGame decimal.Decimal
}

func NewTicketService(s store.Store, audit *AuditService, stakePerGame decimal.Decimal) *TicketService {
	return &TicketService{Store: s, Audit: audit, StakePerGame: stakePerGame}
}

type PlaceTicketInput struct {
	Selections []models.Selection `json:"selections"`
}

// Place validates a ticket against the round, debits its cost and stores it
// as paid. A user holds at most one ticket per round. The round row stays
// locked until commit so the round cannot close or settle underneath.
func (s *TicketService) Place(ctx context.Context, userID, roundID string, in PlaceTicketInput) (*models.Ticket, error) {
	var (
		ticket *models.Ticket
		user   *models.User
		round  *models.Round
	)
	err := s.Store.Tx(ctx, func(tx store.Store) error {
		var err error
		if round, err = tx.GetRoundForUpdate(ctx, roundID); err != nil {
			return fromStore(err, "round not found", "")
		}
		if round.Status != models.RoundOpen {
			return apperr.Validation("round is not open for bets")
		}
		if err := rules.ValidateTicket(in.Selections, round.Games); err != nil {
			return err
		}
		cost := rules.ComputeTicketCost(in.Selections, s.StakePerGame)

		if user, err = tx.GetUserForUpdate(ctx, userID); err != nil {
			return fromStore(err, "user not found", "")
		}
		if err := rules.CheckAffordable(cost, user); err != nil {
			return err
		}
		user.Balance = user.Balance.Sub(cost.Total)
		user.Doubles -= cost.Doubles
		user.SuperDoubles -= cost.SuperDoubles
		if err := tx.SaveUser(ctx, user); err != nil {
			return apperr.Internal("failed to debit balance", err)
		}

		ticket = &models.Ticket{
			ID:         uuid.NewString(),
			UserID:     user.ID,
			RoundID:    round.ID,
			Selections: datatypes.NewJSONType(in.Selections),
			BaseStake:  s.StakePerGame,
			TotalCost:  cost.Total,
			Status:     models.TicketPending,
		}
		if err := tx.CreateTicket(ctx, ticket); err != nil {
			return fromStore(err, "", "you already have a ticket for this round")
		}
		err = tx.CreateTransaction(ctx, &models.Transaction{
			ID:           uuid.NewString(),
			UserID:       user.ID,
			Type:         models.TxBetDebit,
			FichasAmount: cost.Total.Neg(),
			ReferenceID:  ticket.ID,
			Status:       models.TxConfirmed,
		})
		if err != nil {
			return apperr.Internal("failed to record bet", err)
		}
		ticket.Status = models.TicketPaid
		if err := tx.SaveTicket(ctx, ticket); err != nil {
			return apperr.Internal("failed to confirm ticket", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.TicketsPlaced.Inc()
	s.Audit.Record(ctx, actorOf(user), ActionBet,
		fmt.Sprintf("Realizou aposta na rodada %s (%s)", round.Title, chips(ticket.TotalCost)), models.LogSuccess)
	return ticket, nil
}

func (s *TicketService) Mine(ctx context.Context, userID, roundID string) (*models.Ticket, error) {
	t, err := s.Store.GetTicket(ctx, userID, roundID)
	return t, fromStore(err, "no ticket for this round", "")
}
