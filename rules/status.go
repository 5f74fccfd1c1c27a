package rules

import "fantasy12/models"

var roundOrder = map[models.RoundStatus]int{
	models.RoundDraft:   0,
	models.RoundOpen:    1,
	models.RoundClosed:  2,
	models.RoundSettled: 3,
}

func ValidRoundStatus(s models.RoundStatus) bool {
	_, ok := roundOrder[s]
	return ok
}

// CanAdvanceRound reports whether a round may move from one status to
// another. Rounds only move forward.
func CanAdvanceRound(from, to models.RoundStatus) bool {
	f, ok1 := roundOrder[from]
	t, ok2 := roundOrder[to]
	return ok1 && ok2 && t >= f
}

var gameNext = map[models.GameStatus][]models.GameStatus{
	models.GameScheduled: {models.GameLive, models.GameFinished, models.GameCancelled},
	models.GameLive:      {models.GameFinished, models.GameCancelled},
	models.GameFinished:  nil,
	models.GameCancelled: nil,
}

func ValidGameStatus(s models.GameStatus) bool {
	_, ok := gameNext[s]
	return ok
}

// CanAdvanceGame reports whether a game may move from one status to another.
// Finished and cancelled are terminal.
func CanAdvanceGame(from, to models.GameStatus) bool {
	if from == to {
		return ValidGameStatus(from)
	}
	for _, s := range gameNext[from] {
		if s == to {
			return true
		}
	}
	return false
}
