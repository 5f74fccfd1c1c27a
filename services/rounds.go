package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"fantasy12/apperr"
	"fantasy12/models"
	"fantasy12/rules"
	"fantasy12/store"
)

// NewGamePrefix marks client-side ids of games that do not exist yet.
const NewGamePrefix = "g-new-"

type RoundService struct {
	Store        store.Store
	Audit        *AuditService
	PointsPerHit int
	now          func() time.Time
}

func NewRoundService(s store.Store, audit *AuditService, pointsPerHit int) *RoundService {
	return &RoundService{Store: s, Audit: audit, PointsPerHit: pointsPerHit, now: time.Now}
}

type GameInput struct {
	ID     string            `json:"id"`
	TeamA  *string           `json:"teamA"`
	TeamB  *string           `json:"teamB"`
	Date   *time.Time        `json:"date"`
	Status models.GameStatus `json:"status"`
	Order  *int              `json:"order"`
	ScoreA *int              `json:"scoreA"`
	ScoreB *int              `json:"scoreB"`
}

func isNewGame(id string) bool {
	return id == "" || strings.HasPrefix(id, NewGamePrefix)
}

type CreateRoundInput struct {
	Title     string             `json:"title"`
	StartDate time.Time          `json:"startDate"`
	EndDate   time.Time          `json:"endDate"`
	Status    models.RoundStatus `json:"status"`
	Games     []GameInput        `json:"games"`
}

func (s *RoundService) List(ctx context.Context) ([]models.Round, error) {
	rounds, err := s.Store.ListRounds(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to list rounds", err)
	}
	return rounds, nil
}

func (s *RoundService) Get(ctx context.Context, id string) (*models.Round, error) {
	r, err := s.Store.GetRound(ctx, id)
	return r, fromStore(err, "round not found", "")
}

func validateDates(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return apperr.Validation("startDate and endDate are required")
	}
	if end.Before(start) {
		return apperr.Validation("endDate must not be before startDate")
	}
	return nil
}

// newGame builds a game for insertion. Position is the fallback order.
func newGame(roundID string, in GameInput, position int) (models.Game, error) {
	g := models.Game{
		ID:      uuid.NewString(),
		RoundID: roundID,
		Status:  models.GameScheduled,
		Order:   position,
	}
	if in.TeamA != nil {
		g.TeamA = strings.TrimSpace(*in.TeamA)
	}
	if in.TeamB != nil {
		g.TeamB = strings.TrimSpace(*in.TeamB)
	}
	if g.TeamA == "" || g.TeamB == "" {
		return g, apperr.Validation("game %d: teamA and teamB are required", position)
	}
	if in.Date != nil {
		g.Date = *in.Date
	}
	if in.Order != nil {
		g.Order = *in.Order
	}
	if in.Status != "" {
		if !rules.ValidGameStatus(in.Status) {
			return g, apperr.Validation("game %d: invalid status %q", position, in.Status)
		}
		g.Status = in.Status
	}
	g.ScoreA, g.ScoreB = in.ScoreA, in.ScoreB
	return g, validateScores(g)
}

func validateScores(g models.Game) error {
	if (g.ScoreA != nil && *g.ScoreA < 0) || (g.ScoreB != nil && *g.ScoreB < 0) {
		return apperr.Validation("game %s x %s: scores cannot be negative", g.TeamA, g.TeamB)
	}
	return nil
}

func uniqueOrders(games []models.Game) error {
	seen := make(map[int]bool, len(games))
	for _, g := range games {
		if seen[g.Order] {
			return apperr.Validation("duplicate game order %d", g.Order)
		}
		seen[g.Order] = true
	}
	return nil
}

func (s *RoundService) Create(ctx context.Context, in CreateRoundInput) (*models.Round, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	if err := validateDates(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = models.RoundDraft
	}
	if !rules.ValidRoundStatus(status) || status == models.RoundSettled {
		return nil, apperr.Validation("invalid round status %q", status)
	}

	r := &models.Round{
		ID:        uuid.NewString(),
		Title:     title,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Status:    status,
	}
	for i, gi := range in.Games {
		g, err := newGame(r.ID, gi, i+1)
		if err != nil {
			return nil, err
		}
		r.Games = append(r.Games, g)
	}
	if err := uniqueOrders(r.Games); err != nil {
		return nil, err
	}
	if err := s.Store.CreateRound(ctx, r); err != nil {
		return nil, fromStore(err, "", "duplicate game order")
	}
	return s.Get(ctx, r.ID)
}

type UpdateRoundInput struct {
	Title     *string             `json:"title"`
	StartDate *time.Time          `json:"startDate"`
	EndDate   *time.Time          `json:"endDate"`
	Status    *models.RoundStatus `json:"status"`
	Games     []GameInput         `json:"games"`
}

// Update edits a round and upserts its games: ids starting with
// NewGamePrefix are inserted with a fresh id, the others are updated in
// place. Games missing from the payload are left untouched.
func (s *RoundService) Update(ctx context.Context, id string, in UpdateRoundInput) (*models.Round, error) {
	err := s.Store.Tx(ctx, func(tx store.Store) error {
		r, err := tx.GetRoundForUpdate(ctx, id)
		if err != nil {
			return fromStore(err, "round not found", "")
		}
		if r.Status == models.RoundSettled {
			return apperr.Conflict("round is settled and can no longer be changed")
		}

		if in.Title != nil {
			if r.Title = strings.TrimSpace(*in.Title); r.Title == "" {
				return apperr.Validation("title cannot be empty")
			}
		}
		if in.StartDate != nil {
			r.StartDate = *in.StartDate
		}
		if in.EndDate != nil {
			r.EndDate = *in.EndDate
		}
		if err := validateDates(r.StartDate, r.EndDate); err != nil {
			return err
		}
		if in.Status != nil && *in.Status != r.Status {
			if *in.Status == models.RoundSettled {
				return apperr.Validation("rounds are settled through the settle operation")
			}
			if !rules.CanAdvanceRound(r.Status, *in.Status) {
				return apperr.Validation("round cannot go from %s to %s", r.Status, *in.Status)
			}
			r.Status = *in.Status
		}

		existing := make(map[string]int, len(r.Games))
		for i, g := range r.Games {
			existing[g.ID] = i
		}
		merged := make([]models.Game, len(r.Games))
		copy(merged, r.Games)
		changed := map[string]bool{}
		var created []models.Game

		for i, gi := range in.Games {
			if isNewGame(gi.ID) {
				g, err := newGame(r.ID, gi, len(merged)+1)
				if err != nil {
					return err
				}
				merged = append(merged, g)
				created = append(created, g)
				continue
			}
			idx, ok := existing[gi.ID]
			if !ok {
				return apperr.NotFound("game %s not found in this round", gi.ID)
			}
			g := merged[idx]
			if err := applyGameUpdate(&g, gi, i+1); err != nil {
				return err
			}
			merged[idx] = g
			changed[g.ID] = true
		}
		if err := uniqueOrders(merged); err != nil {
			return err
		}
		if len(created) > 0 {
			// Existing tickets carry one selection per game.
			tickets, err := tx.ListTickets(ctx, store.TicketFilter{RoundIDs: []string{r.ID}})
			if err != nil {
				return apperr.Internal("failed to check tickets", err)
			}
			if len(tickets) > 0 {
				return apperr.Conflict("games cannot be added once tickets have been placed")
			}
		}

		if err := tx.SaveRound(ctx, r); err != nil {
			return fromStore(err, "round not found", "")
		}
		// Park moved games on temporary negative orders first so swaps do
		// not trip the (round_id, sort_order) unique index.
		for i, g := range r.Games {
			if changed[g.ID] && merged[i].Order != g.Order {
				parked := g
				parked.Order = -1 - i
				if err := tx.SaveGame(ctx, &parked); err != nil {
					return fromStore(err, "game not found", "duplicate game order")
				}
			}
		}
		for i := range r.Games {
			if changed[merged[i].ID] {
				if err := tx.SaveGame(ctx, &merged[i]); err != nil {
					return fromStore(err, "game not found", "duplicate game order")
				}
			}
		}
		for i := range created {
			if err := tx.CreateGame(ctx, &created[i]); err != nil {
				return fromStore(err, "", "duplicate game order")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func applyGameUpdate(g *models.Game, in GameInput, position int) error {
	if in.TeamA != nil {
		if g.TeamA = strings.TrimSpace(*in.TeamA); g.TeamA == "" {
			return apperr.Validation("game %d: teamA cannot be empty", position)
		}
	}
	if in.TeamB != nil {
		if g.TeamB = strings.TrimSpace(*in.TeamB); g.TeamB == "" {
			return apperr.Validation("game %d: teamB cannot be empty", position)
		}
	}
	if in.Date != nil {
		g.Date = *in.Date
	}
	if in.Order != nil {
		g.Order = *in.Order
	}
	if in.Status != "" && in.Status != g.Status {
		if !rules.CanAdvanceGame(g.Status, in.Status) {
			return apperr.Validation("game %s x %s cannot go from %s to %s", g.TeamA, g.TeamB, g.Status, in.Status)
		}
		g.Status = in.Status
	}
	if in.ScoreA != nil {
		g.ScoreA = in.ScoreA
	}
	if in.ScoreB != nil {
		g.ScoreB = in.ScoreB
	}
	return validateScores(*g)
}

// SettlementResult summarizes a settled round.
type SettlementResult struct {
	Round   *models.Round `json:"round"`
	Tickets int           `json:"tickets"`
	Winners int           `json:"winners"`
}

// Settle scores every ticket of a closed round and marks the round settled.
func (s *RoundService) Settle(ctx context.Context, admin *models.User, id string) (*SettlementResult, error) {
	if admin == nil || !admin.IsAdmin() {
		return nil, apperr.Forbidden("admin role required")
	}
	res := &SettlementResult{}
	err := s.Store.Tx(ctx, func(tx store.Store) error {
		r, err := tx.GetRoundForUpdate(ctx, id)
		if err != nil {
			return fromStore(err, "round not found", "")
		}
		switch r.Status {
		case models.RoundSettled:
			return apperr.Conflict("round is already settled")
		case models.RoundClosed:
		default:
			return apperr.Validation("round must be closed before settlement")
		}
		for _, g := range r.Games {
			switch {
			case g.Status == models.GameCancelled:
			case g.Status == models.GameFinished && g.ScoreA != nil && g.ScoreB != nil:
			default:
				return apperr.Validation("game %s x %s has no final score", g.TeamA, g.TeamB)
			}
		}

		tickets, err := tx.ListTickets(ctx, store.TicketFilter{RoundIDs: []string{r.ID}})
		if err != nil {
			return apperr.Internal("failed to load tickets", err)
		}
		for i := range tickets {
			t := &tickets[i]
			score := rules.ScoreTicket(t.Selections.Data(), r.Games, s.PointsPerHit)
			t.Points = score.Points
			t.Status = models.TicketLost
			if score.Won {
				t.Status = models.TicketWon
				res.Winners++
			}
			if err := tx.SaveTicket(ctx, t); err != nil {
				return apperr.Internal("failed to save ticket", err)
			}
		}
		res.Tickets = len(tickets)

		r.Status = models.RoundSettled
		if err := tx.SaveRound(ctx, r); err != nil {
			return apperr.Internal("failed to save round", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Round, err = s.Get(ctx, id); err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, actorOf(admin), ActionRoundSettled,
		fmt.Sprintf("Apurou a rodada %s (%d bilhetes, %d vencedores)", res.Round.Title, res.Tickets, res.Winners),
		models.LogSuccess)
	return res, nil
}

// CloseExpired closes open rounds whose end date has passed.
func (s *RoundService) CloseExpired(ctx context.Context) (int, error) {
	rounds, err := s.Store.ListRoundsToClose(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("list rounds to close: %w", err)
	}
	closed := 0
	for _, candidate := range rounds {
		err := s.Store.Tx(ctx, func(tx store.Store) error {
			r, err := tx.GetRoundForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if r.Status != models.RoundOpen {
				return errSkip
			}
			r.Status = models.RoundClosed
			return tx.SaveRound(ctx, r)
		})
		if errors.Is(err, errSkip) {
			continue
		}
		if err != nil {
			log.WithField("round_id", candidate.ID).WithError(err).Error("failed to close round")
			continue
		}
		closed++
		s.Audit.Record(ctx, actorOf(nil), ActionRoundClosed, "Rodada "+candidate.Title+" encerrada para apostas", models.LogInfo)
	}
	return closed, nil
}

var errSkip = errors.New("skip")
