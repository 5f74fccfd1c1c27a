package services

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fantasy12/apperr"
	"fantasy12/models"
	"fantasy12/store"
	"fantasy12/store/storetest"
)

func TestPlaceTicketDebitsBalanceAndInventory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "Ana", models.RoleUser, 10)
	u.Doubles, u.SuperDoubles = 1, 1
	require.NoError(t, f.store.SaveUser(ctx, u))
	r := f.openRound(t, "Rodada 1", 3)

	double := pick(r.Games[1], models.OutcomeA, models.OutcomeDraw)
	double.IsDouble = true
	super := pick(r.Games[2], models.OutcomeB, models.OutcomeDraw)
	super.IsSuperDouble = true

	ticket, err := f.tickets.Place(ctx, u.ID, r.ID, PlaceTicketInput{Selections: []models.Selection{
		pick(r.Games[0], models.OutcomeA), double, super,
	}})
	require.NoError(t, err)
	assert.Equal(t, models.TicketPaid, ticket.Status)
	assert.True(t, ticket.TotalCost.Equal(decimal.NewFromInt(3)))
	assert.Len(t, ticket.Selections.Data(), 3)

	after := f.reload(t, u.ID)
	assert.True(t, after.Balance.Equal(decimal.NewFromInt(7)))
	assert.Zero(t, after.Doubles)
	assert.Zero(t, after.SuperDoubles)

	txs, err := f.store.ListTransactions(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TxBetDebit, txs[0].Type)
	assert.True(t, txs[0].FichasAmount.Equal(decimal.NewFromInt(-3)))
	assert.Equal(t, ticket.ID, txs[0].ReferenceID)
	assert.Equal(t, []string{ActionBet}, f.actions())

	mine, err := f.tickets.Mine(ctx, u.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, mine.ID)
}

func TestPlaceTicketRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.openRound(t, "Rodada 1", 2)
	full := []models.Selection{pick(r.Games[0], models.OutcomeA), pick(r.Games[1], models.OutcomeB)}

	t.Run("insufficient balance", func(t *testing.T) {
		u := f.user(t, "Pobre", models.RoleUser, 1)
		_, err := f.tickets.Place(ctx, u.ID, r.ID, PlaceTicketInput{Selections: full})
		assert.True(t, apperr.Is(err, apperr.KindInsufficientFunds))
		assert.True(t, f.reload(t, u.ID).Balance.Equal(decimal.NewFromInt(1)))
	})

	t.Run("missing double", func(t *testing.T) {
		u := f.user(t, "SemDupla", models.RoleUser, 10)
		double := pick(r.Games[1], models.OutcomeA, models.OutcomeB)
		double.IsDouble = true
		_, err := f.tickets.Place(ctx, u.ID, r.ID, PlaceTicketInput{Selections: []models.Selection{full[0], double}})
		assert.True(t, apperr.Is(err, apperr.KindInsufficientInventory))
		assert.True(t, f.reload(t, u.ID).Balance.Equal(decimal.NewFromInt(10)))
	})

	t.Run("incomplete ticket", func(t *testing.T) {
		u := f.user(t, "Pressa", models.RoleUser, 10)
		_, err := f.tickets.Place(ctx, u.ID, r.ID, PlaceTicketInput{Selections: full[:1]})
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	})

	t.Run("second ticket", func(t *testing.T) {
		u := f.user(t, "Repetido", models.RoleUser, 10)
		_, err := f.tickets.Place(ctx, u.ID, r.ID, PlaceTicketInput{Selections: full})
		require.NoError(t, err)
		_, err = f.tickets.Place(ctx, u.ID, r.ID, PlaceTicketInput{Selections: full})
		assert.True(t, apperr.Is(err, apperr.KindConflict))
		assert.True(t, f.reload(t, u.ID).Balance.Equal(decimal.NewFromInt(8)), "second attempt is rolled back")
	})

	t.Run("round not open", func(t *testing.T) {
		u := f.user(t, "Atrasado", models.RoleUser, 10)
		f.finish(t, r, [2]int{1, 0}, [2]int{0, 1})
		_, err := f.tickets.Place(ctx, u.ID, r.ID, PlaceTicketInput{Selections: full})
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	})

	t.Run("unknown round", func(t *testing.T) {
		u := f.user(t, "Perdido", models.RoleUser, 10)
		_, err := f.tickets.Place(ctx, u.ID, "missing", PlaceTicketInput{Selections: full})
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})
}

func TestConcurrentTicketsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "Ana", models.RoleUser, 5)

	const rounds = 6
	ids := make([]string, rounds)
	for i := range ids {
		ids[i] = f.openRound(t, "Rodada", 1).ID
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	placed := 0
	for _, id := range ids {
		wg.Add(1)
		go func(roundID string) {
			defer wg.Done()
			r, err := f.rounds.Get(ctx, roundID)
			if err != nil {
				return
			}
			if _, err := f.tickets.Place(ctx, u.ID, roundID, PlaceTicketInput{
				Selections: []models.Selection{pick(r.Games[0], models.OutcomeDraw)},
			}); err == nil {
				mu.Lock()
				placed++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 5, placed)
	assert.True(t, f.reload(t, u.ID).Balance.IsZero())
}

// roundReadSpy records how rounds are read inside transactions.
type roundReadSpy struct {
	*storetest.Store
	mu    *sync.Mutex
	reads *[]string
}

func (s *roundReadSpy) Tx(ctx context.Context, fn func(tx store.Store) error) error {
	return s.Store.Tx(ctx, func(tx store.Store) error {
		return fn(&roundReadSpy{Store: tx.(*storetest.Store), mu: s.mu, reads: s.reads})
	})
}

func (s *roundReadSpy) record(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.reads = append(*s.reads, name)
}

func (s *roundReadSpy) GetRound(ctx context.Context, id string) (*models.Round, error) {
	s.record("GetRound")
	return s.Store.GetRound(ctx, id)
}

func (s *roundReadSpy) GetRoundForUpdate(ctx context.Context, id string) (*models.Round, error) {
	s.record("GetRoundForUpdate")
	return s.Store.GetRoundForUpdate(ctx, id)
}

func TestPlaceTicketLocksRound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "Ana", models.RoleUser, 10)
	r := f.openRound(t, "Rodada 1", 2)

	var reads []string
	spy := &roundReadSpy{Store: f.store, mu: &sync.Mutex{}, reads: &reads}
	tickets := NewTicketService(spy, f.audit, decimal.NewFromInt(1))

	ticket, err := tickets.Place(ctx, u.ID, r.ID, PlaceTicketInput{Selections: []models.Selection{
		pick(r.Games[0], models.OutcomeA), pick(r.Games[1], models.OutcomeB),
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"GetRoundForUpdate"}, reads)

	stored, err := f.store.GetTicket(ctx, u.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, stored.ID)
	assert.Equal(t, models.TicketPaid, stored.Status)
}
