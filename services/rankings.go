package services

import (
	"context"

	"fantasy12/apperr"
	"fantasy12/models"
	"fantasy12/rules"
	"fantasy12/store"
)

type RankingScope string

const (
	ScopeGeneral RankingScope = "general"
	ScopePro     RankingScope = "pro"
)

// RankingService builds leaderboards from settled tickets. Nothing is
// cached; every call reads the current tickets.
type RankingService struct {
	Store store.Store
}

func NewRankingService(s store.Store) *RankingService {
	return &RankingService{Store: s}
}

func settledIDs(rounds []models.Round) []string {
	ids := make([]string, 0, len(rounds))
	for _, r := range rounds {
		ids = append(ids, r.ID)
	}
	return ids
}

func (s *RankingService) pointsBy(ctx context.Context, f store.TicketFilter) (map[string]int, error) {
	points := map[string]int{}
	if len(f.RoundIDs) == 0 {
		return points, nil
	}
	tickets, err := s.Store.ListTickets(ctx, f)
	if err != nil {
		return nil, apperr.Internal("failed to load tickets", err)
	}
	for _, t := range tickets {
		points[t.UserID] += t.Points
	}
	return points, nil
}

func entriesFor(users []models.User, points map[string]int) []rules.RankingEntry {
	entries := make([]rules.RankingEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, rules.RankingEntry{
			UserID:   u.ID,
			UserName: u.Name,
			Points:   points[u.ID],
			IsPro:    u.IsPro(),
		})
	}
	return entries
}

// General ranks every user by points across all settled rounds. The pro
// scope keeps only PRO members.
func (s *RankingService) General(ctx context.Context, scope RankingScope) ([]rules.RankingEntry, error) {
	if scope == "" {
		scope = ScopeGeneral
	}
	if scope != ScopeGeneral && scope != ScopePro {
		return nil, apperr.Validation("invalid ranking scope %q", scope)
	}
	rounds, err := s.Store.ListSettledRounds(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to load rounds", err)
	}
	points, err := s.pointsBy(ctx, store.TicketFilter{
		RoundIDs: settledIDs(rounds),
		Statuses: []models.TicketStatus{models.TicketWon, models.TicketLost},
	})
	if err != nil {
		return nil, err
	}
	users, err := s.Store.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to list users", err)
	}
	if scope == ScopePro {
		pro := users[:0:0]
		for _, u := range users {
			if u.IsPro() {
				pro = append(pro, u)
			}
		}
		users = pro
	}
	return rules.ComputeRanking(entriesFor(users, points)), nil
}

// Round ranks the bettors of one round. Before settlement every ticket has
// zero points.
func (s *RankingService) Round(ctx context.Context, roundID string) ([]rules.RankingEntry, error) {
	if _, err := s.Store.GetRound(ctx, roundID); err != nil {
		return nil, fromStore(err, "round not found", "")
	}
	tickets, err := s.Store.ListTickets(ctx, store.TicketFilter{RoundIDs: []string{roundID}})
	if err != nil {
		return nil, apperr.Internal("failed to load tickets", err)
	}
	ids := make([]string, 0, len(tickets))
	points := make(map[string]int, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.UserID)
		points[t.UserID] = t.Points
	}
	return s.rankUsers(ctx, ids, points)
}

// Pool ranks the participants of a pool using the settled rounds that start
// inside the pool window. Participants keep join order on ties.
func (s *RankingService) Pool(ctx context.Context, poolID string) ([]rules.RankingEntry, error) {
	p, err := s.Store.GetPool(ctx, poolID)
	if err != nil {
		return nil, fromStore(err, "pool not found", "")
	}
	rounds, err := s.Store.ListSettledRounds(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to load rounds", err)
	}
	var inWindow []models.Round
	for _, r := range rounds {
		if p.StartDate != nil && r.StartDate.Before(*p.StartDate) {
			continue
		}
		if p.EndDate != nil && r.StartDate.After(*p.EndDate) {
			continue
		}
		inWindow = append(inWindow, r)
	}
	ids := p.ParticipantIDs()
	points, err := s.pointsBy(ctx, store.TicketFilter{
		RoundIDs: settledIDs(inWindow),
		UserIDs:  ids,
		Statuses: []models.TicketStatus{models.TicketWon, models.TicketLost},
	})
	if err != nil {
		return nil, err
	}
	return s.rankUsers(ctx, ids, points)
}

// rankUsers resolves ids to users, keeping the order of ids and skipping
// deleted accounts.
func (s *RankingService) rankUsers(ctx context.Context, ids []string, points map[string]int) ([]rules.RankingEntry, error) {
	if len(ids) == 0 {
		return []rules.RankingEntry{}, nil
	}
	found, err := s.Store.GetUsers(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("failed to load users", err)
	}
	byID := make(map[string]models.User, len(found))
	for _, u := range found {
		byID[u.ID] = u
	}
	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			users = append(users, u)
		}
	}
	return rules.ComputeRanking(entriesFor(users, points)), nil
}
