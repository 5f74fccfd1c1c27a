package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"fantasy12/auth"
	"fantasy12/models"
	"fantasy12/store/storetest"
)

const testPointsPerHit = 10

type fixture struct {
	store    *storetest.Store
	tokens   *auth.JWTManager
	audit    *AuditService
	auth     *AuthService
	users    *UserService
	rounds   *RoundService
	tickets  *TicketService
	pools    *PoolService
	rankings *RankingService
	payments *PaymentService
	shop     *ShopService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := storetest.New()
	hasher := &auth.BcryptHasher{Cost: bcrypt.MinCost}
	tokens := auth.NewJWTManager("test-secret", time.Hour)
	audit := NewAuditService(st)
	return &fixture{
		store:    st,
		tokens:   tokens,
		audit:    audit,
		auth:     NewAuthService(st, tokens, hasher, audit),
		users:    NewUserService(st, hasher, audit),
		rounds:   NewRoundService(st, audit, testPointsPerHit),
		tickets:  NewTicketService(st, audit, decimal.NewFromInt(1)),
		pools:    NewPoolService(st, audit),
		rankings: NewRankingService(st),
		payments: NewPaymentService(st, audit),
		shop:     NewShopService(st, audit),
	}
}

func (f *fixture) user(t *testing.T, name string, role models.Role, balance int64) *models.User {
	t.Helper()
	u := &models.User{
		ID:      uuid.NewString(),
		Name:    name,
		Email:   strings.ToLower(fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:6])),
		Role:    role,
		Balance: decimal.NewFromInt(balance),
	}
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return u
}

func (f *fixture) reloadPool(t *testing.T, id string) *models.Pool {
	t.Helper()
	p, err := f.store.GetPool(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (f *fixture) reload(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := f.store.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u
}

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func games(n int) []GameInput {
	out := make([]GameInput, n)
	for i := range out {
		out[i] = GameInput{
			TeamA: strp(fmt.Sprintf("Time %dA", i+1)),
			TeamB: strp(fmt.Sprintf("Time %dB", i+1)),
			Date:  ptrTime(time.Date(2026, 6, 1, 16, 0, 0, 0, time.UTC)),
		}
	}
	return out
}

func ptrTime(t time.Time) *time.Time { return &t }

// openRound creates an open round with n games.
func (f *fixture) openRound(t *testing.T, title string, n int) *models.Round {
	t.Helper()
	r, err := f.rounds.Create(context.Background(), CreateRoundInput{
		Title:     title,
		StartDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 6, 7, 0, 0, 0, 0, time.UTC),
		Status:    models.RoundOpen,
		Games:     games(n),
	})
	require.NoError(t, err)
	require.Len(t, r.Games, n)
	return r
}

// finish closes r and records the given scores, one pair per game.
func (f *fixture) finish(t *testing.T, r *models.Round, scores ...[2]int) {
	t.Helper()
	closed := models.RoundClosed
	in := UpdateRoundInput{Status: &closed}
	for i, g := range r.Games {
		in.Games = append(in.Games, GameInput{
			ID:     g.ID,
			Status: models.GameFinished,
			ScoreA: intp(scores[i][0]),
			ScoreB: intp(scores[i][1]),
		})
	}
	_, err := f.rounds.Update(context.Background(), r.ID, in)
	require.NoError(t, err)
}

func pick(g models.Game, outcomes ...models.Outcome) models.Selection {
	return models.Selection{GameID: g.ID, Outcome: outcomes}
}

func (f *fixture) actions() []string {
	var out []string
	for _, l := range f.store.Logs() {
		out = append(out, l.Action)
	}
	return out
}
