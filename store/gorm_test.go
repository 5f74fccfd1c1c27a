package store_test

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/datatypes"

	"fantasy12/apperr"
	"fantasy12/models"
	"fantasy12/services"
	"fantasy12/store"
)

func dockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

// setupStore starts a throwaway Postgres and returns a migrated store.
func setupStore(t *testing.T) *store.Gorm {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	if !dockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}
	ctx := context.Background()

	pg, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("fantasy12"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := store.Open(dsn, store.OpenOptions{MaxOpenConns: 10})
	require.NoError(t, err)
	return store.NewGorm(db)
}

func newUser(t *testing.T, s store.Store, name string, balance int64) *models.User {
	t.Helper()
	u := &models.User{
		ID:      uuid.NewString(),
		Name:    name,
		Email:   uuid.NewString()[:8] + "@example.com",
		Role:    models.RoleUser,
		Balance: decimal.NewFromInt(balance),
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestGormStore(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, s.Ping(ctx))
	})

	t.Run("users", func(t *testing.T) {
		cpf := "12345678901"
		u := newUser(t, s, "Bia", 50)
		u.TaxID = &cpf
		require.NoError(t, s.SaveUser(ctx, u))

		got, err := s.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(50).Equal(got.Balance))

		dup := &models.User{ID: uuid.NewString(), Name: "Other", Email: u.Email, Role: models.RoleUser}
		assert.ErrorIs(t, s.CreateUser(ctx, dup), store.ErrDuplicate)

		found, err := s.FindUserByEmailOrTaxID(ctx, "nobody@example.com", cpf, "")
		require.NoError(t, err)
		assert.Equal(t, u.ID, found.ID)
		_, err = s.FindUserByEmailOrTaxID(ctx, u.Email, cpf, u.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, s.DeleteUser(ctx, u.ID))
		_, err = s.GetUser(ctx, u.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, s.DeleteUser(ctx, u.ID), store.ErrNotFound)
	})

	t.Run("game order is unique per round", func(t *testing.T) {
		r := &models.Round{
			ID:        uuid.NewString(),
			Title:     "Rodada 1",
			StartDate: time.Now(),
			EndDate:   time.Now().Add(time.Hour),
			Status:    models.RoundOpen,
			Games: []models.Game{
				{ID: uuid.NewString(), TeamA: "A", TeamB: "B", Status: models.GameScheduled, Order: 2},
				{ID: uuid.NewString(), TeamA: "C", TeamB: "D", Status: models.GameScheduled, Order: 1},
			},
		}
		require.NoError(t, s.CreateRound(ctx, r))

		got, err := s.GetRound(ctx, r.ID)
		require.NoError(t, err)
		require.Len(t, got.Games, 2)
		assert.Equal(t, "C", got.Games[0].TeamA, "games come back in display order")

		clash := &models.Game{ID: uuid.NewString(), RoundID: r.ID, TeamA: "E", TeamB: "F", Status: models.GameScheduled, Order: 1}
		assert.ErrorIs(t, s.CreateGame(ctx, clash), store.ErrDuplicate)

		toClose, err := s.ListRoundsToClose(ctx, time.Now().Add(2*time.Hour))
		require.NoError(t, err)
		assert.NotEmpty(t, toClose)
	})

	t.Run("pool participants are unique", func(t *testing.T) {
		u := newUser(t, s, "Caio", 0)
		p := &models.Pool{
			ID:        uuid.NewString(),
			Slug:      "bolao-" + uuid.NewString()[:8],
			Title:     "Bolão",
			CreatorID: u.ID,
			EntryFee:  decimal.NewFromInt(10),
			Status:    models.PoolOpen,
		}
		require.NoError(t, s.CreatePool(ctx, p))
		require.NoError(t, s.AddParticipant(ctx, &models.PoolParticipant{ID: uuid.NewString(), PoolID: p.ID, UserID: u.ID, Paid: true}))

		err := s.AddParticipant(ctx, &models.PoolParticipant{ID: uuid.NewString(), PoolID: p.ID, UserID: u.ID})
		assert.ErrorIs(t, err, store.ErrDuplicate)

		n, err := s.CountParticipants(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		got, err := s.GetPool(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{u.ID}, got.ParticipantIDs())
	})

	t.Run("one ticket per user and round", func(t *testing.T) {
		u := newUser(t, s, "Duda", 0)
		roundID := uuid.NewString()
		ticket := func() *models.Ticket {
			return &models.Ticket{
				ID:         uuid.NewString(),
				UserID:     u.ID,
				RoundID:    roundID,
				Selections: datatypes.NewJSONType([]models.Selection{{GameID: "g1", Outcome: []models.Outcome{models.OutcomeA}}}),
				BaseStake:  decimal.NewFromInt(1),
				TotalCost:  decimal.NewFromInt(1),
				Status:     models.TicketPaid,
			}
		}
		require.NoError(t, s.CreateTicket(ctx, ticket()))
		assert.ErrorIs(t, s.CreateTicket(ctx, ticket()), store.ErrDuplicate)

		got, err := s.GetTicket(ctx, u.ID, roundID)
		require.NoError(t, err)
		assert.Equal(t, []models.Outcome{models.OutcomeA}, got.Selections.Data()[0].Outcome)
	})

	t.Run("transaction rolls back on error", func(t *testing.T) {
		u := newUser(t, s, "Eva", 0)
		boom := errors.New("boom")

		err := s.Tx(ctx, func(tx store.Store) error {
			locked, err := tx.GetUserForUpdate(ctx, u.ID)
			if err != nil {
				return err
			}
			locked.Balance = locked.Balance.Add(decimal.NewFromInt(100))
			if err := tx.SaveUser(ctx, locked); err != nil {
				return err
			}
			if err := tx.CreatePurchase(ctx, &models.Purchase{
				ID: uuid.NewString(), UserID: u.ID, PackageType: "pack-100",
				PriceCents: 9990, FichasAdded: 100, Status: models.PurchaseConfirmed,
			}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := s.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, got.Balance.IsZero())
		txs, err := s.ListTransactions(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, txs)
	})

	t.Run("row lock serializes debits", func(t *testing.T) {
		u := newUser(t, s, "Fabi", 5)
		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.Tx(ctx, func(tx store.Store) error {
					locked, err := tx.GetUserForUpdate(ctx, u.ID)
					if err != nil {
						return err
					}
					if locked.Balance.LessThan(decimal.NewFromInt(1)) {
						return errors.New("insufficient")
					}
					locked.Balance = locked.Balance.Sub(decimal.NewFromInt(1))
					return tx.SaveUser(ctx, locked)
				})
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 5, succeeded)
		got, err := s.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, got.Balance.IsZero())
	})

	t.Run("concurrent pool joins", func(t *testing.T) {
		audit := services.NewAuditService(s)
		pools := services.NewPoolService(s, audit)
		creator := newUser(t, s, "Hugo", 0)
		p, err := pools.Create(ctx, services.CreatePoolInput{
			Title: "Bolão", CreatorID: creator.ID, EntryFee: decimal.NewFromInt(10),
		})
		require.NoError(t, err)

		const n = 8
		var wg sync.WaitGroup
		errs := make(chan error, 2*n)
		var repeat *models.User
		for i := 0; i < n; i++ {
			u := newUser(t, s, "Pro", 0)
			u.Role = models.RolePro
			require.NoError(t, s.SaveUser(ctx, u))
			if repeat == nil {
				repeat = u
			}
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, err := pools.Join(ctx, p.ID, id)
				errs <- err
			}(u.ID)
		}
		wg.Wait()
		for i := 0; i < n; i++ {
			require.NoError(t, <-errs)
		}

		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := pools.Join(ctx, p.ID, repeat.ID)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			assert.True(t, apperr.Is(err, apperr.KindConflict), "%v", err)
		}

		got, err := s.GetPool(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, n+1, got.ParticipantsCount)
		assert.Len(t, got.Participants, n+1)
		assert.True(t, decimal.NewFromInt(10*(n+1)).Equal(got.PrizePool), got.PrizePool.String())
	})

	t.Run("round lock holds writers until commit", func(t *testing.T) {
		r := &models.Round{
			ID: uuid.NewString(), Title: "Rodada 2", Status: models.RoundOpen,
			StartDate: time.Now(), EndDate: time.Now().Add(time.Hour),
		}
		require.NoError(t, s.CreateRound(ctx, r))

		locked := make(chan struct{})
		release := make(chan struct{})
		first := make(chan error, 1)
		go func() {
			first <- s.Tx(ctx, func(tx store.Store) error {
				if _, err := tx.GetRoundForUpdate(ctx, r.ID); err != nil {
					return err
				}
				close(locked)
				<-release
				return nil
			})
		}()
		<-locked

		closed := make(chan error, 1)
		go func() {
			closed <- s.Tx(ctx, func(tx store.Store) error {
				got, err := tx.GetRoundForUpdate(ctx, r.ID)
				if err != nil {
					return err
				}
				got.Status = models.RoundClosed
				return tx.SaveRound(ctx, got)
			})
		}()

		select {
		case <-closed:
			t.Fatal("second writer got the round while it was locked")
		case <-time.After(300 * time.Millisecond):
		}
		close(release)
		require.NoError(t, <-first)
		require.NoError(t, <-closed)

		got, err := s.GetRound(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoundClosed, got.Status)
	})

	t.Run("logs show the live user name", func(t *testing.T) {
		u := newUser(t, s, "Gabi", 0)
		require.NoError(t, s.CreateLog(ctx, &models.LogEntry{
			ID: uuid.NewString(), Timestamp: time.Now().UTC(), UserID: u.ID,
			UserName: "Old", Action: "Login", Type: models.LogInfo,
		}))
		u.Name = "Gabriela"
		require.NoError(t, s.SaveUser(ctx, u))

		logs, err := s.ListLogs(ctx, 1)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "Gabriela", logs[0].UserName)

		day, err := s.ListLogsBetween(ctx, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.NotEmpty(t, day)
	})
}
