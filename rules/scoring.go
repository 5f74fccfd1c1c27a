package rules

import (
	"slices"

	"fantasy12/models"
)

// GameOutcome derives the result of a game from its final score.
func GameOutcome(scoreA, scoreB int) models.Outcome {
	switch {
	case scoreA > scoreB:
		return models.OutcomeA
	case scoreA < scoreB:
		return models.OutcomeB
	default:
		return models.OutcomeDraw
	}
}

// ScoreSelection returns the points sel earns on g and whether g counts
// towards the ticket at all. Only finished games with a score count.
func ScoreSelection(sel models.Selection, g models.Game, pointsPerHit int) (points int, played bool) {
	if g.Status != models.GameFinished || g.ScoreA == nil || g.ScoreB == nil {
		return 0, false
	}
	if slices.Contains(sel.Outcome, GameOutcome(*g.ScoreA, *g.ScoreB)) {
		return pointsPerHit * Multiplier(sel), true
	}
	return 0, true
}

type TicketResult struct {
	Points int
	Hits   int
	Won    bool
}

// ScoreTicket adds up ScoreSelection over the ticket. A ticket wins when it
// hits every game that was played.
func ScoreTicket(selections []models.Selection, games []models.Game, pointsPerHit int) TicketResult {
	byID := make(map[string]models.Game, len(games))
	for _, g := range games {
		byID[g.ID] = g
	}
	var res TicketResult
	played := 0
	for _, sel := range selections {
		g, ok := byID[sel.GameID]
		if !ok {
			continue
		}
		points, counted := ScoreSelection(sel, g, pointsPerHit)
		if !counted {
			continue
		}
		played++
		if points > 0 {
			res.Hits++
			res.Points += points
		}
	}
	res.Won = played > 0 && res.Hits == played
	return res
}
