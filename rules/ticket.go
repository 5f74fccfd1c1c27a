package rules

import (
	"github.com/shopspring/decimal"

	"fantasy12/apperr"
	"fantasy12/models"
)

// TicketCost is the price of a ticket: chips debited from the balance plus
// the power-ups consumed from the inventory.
type TicketCost struct {
	Total        decimal.Decimal
	Doubles      int
	SuperDoubles int
}

// Multiplier returns the point multiplier of a selection.
func Multiplier(sel models.Selection) int {
	if len(sel.Outcome) < 2 {
		return 1
	}
	if sel.IsSuperDouble {
		return 4
	}
	return 2
}

// ValidateSelection checks the outcome set and power-up flags of sel.
func ValidateSelection(sel models.Selection) error {
	if sel.GameID == "" {
		return apperr.Validation("selection is missing gameId")
	}
	switch len(sel.Outcome) {
	case 0:
		return apperr.Validation("selection for game %s has no outcome", sel.GameID)
	case 1, 2:
	default:
		return apperr.Validation("selection for game %s covers every outcome", sel.GameID)
	}
	seen := make(map[models.Outcome]bool, len(sel.Outcome))
	for _, o := range sel.Outcome {
		if !o.Valid() {
			return apperr.Validation("invalid outcome %q for game %s", o, sel.GameID)
		}
		if seen[o] {
			return apperr.Validation("duplicate outcome %q for game %s", o, sel.GameID)
		}
		seen[o] = true
	}
	flagged := sel.IsDouble || sel.IsSuperDouble
	if len(sel.Outcome) == 2 && !flagged {
		return apperr.Validation("two outcomes for game %s need a double or super double", sel.GameID)
	}
	if len(sel.Outcome) == 1 && flagged {
		return apperr.Validation("double on game %s needs two outcomes", sel.GameID)
	}
	return nil
}

// ValidateTicket checks that selections hold exactly one valid selection per
// game of the round.
func ValidateTicket(selections []models.Selection, games []models.Game) error {
	if len(selections) != len(games) {
		return apperr.Validation("ticket must have one selection per game (%d games, %d selections)", len(games), len(selections))
	}
	inRound := make(map[string]bool, len(games))
	for _, g := range games {
		inRound[g.ID] = true
	}
	picked := make(map[string]bool, len(selections))
	for _, sel := range selections {
		if err := ValidateSelection(sel); err != nil {
			return err
		}
		if !inRound[sel.GameID] {
			return apperr.Validation("game %s is not part of this round", sel.GameID)
		}
		if picked[sel.GameID] {
			return apperr.Validation("game %s selected more than once", sel.GameID)
		}
		picked[sel.GameID] = true
	}
	return nil
}

// ComputeTicketCost charges stakePerGame for every selection. Doubles and
// super doubles cost no chips; they are paid from the inventory.
func ComputeTicketCost(selections []models.Selection, stakePerGame decimal.Decimal) TicketCost {
	cost := TicketCost{
		Total: stakePerGame.Mul(decimal.NewFromInt(int64(len(selections)))),
	}
	for _, sel := range selections {
		if len(sel.Outcome) < 2 {
			continue
		}
		if sel.IsSuperDouble {
			cost.SuperDoubles++
		} else if sel.IsDouble {
			cost.Doubles++
		}
	}
	return cost
}

// CheckAffordable fails with InsufficientFunds or InsufficientInventory when
// the user cannot cover cost.
func CheckAffordable(cost TicketCost, u *models.User) error {
	if u.Balance.LessThan(cost.Total) {
		return apperr.InsufficientFunds("insufficient balance: ticket costs %s chips, balance is %s", cost.Total.String(), u.Balance.String())
	}
	if u.Doubles < cost.Doubles {
		return apperr.InsufficientInventory("not enough doubles: need %d, have %d", cost.Doubles, u.Doubles)
	}
	if u.SuperDoubles < cost.SuperDoubles {
		return apperr.InsufficientInventory("not enough super doubles: need %d, have %d", cost.SuperDoubles, u.SuperDoubles)
	}
	return nil
}
