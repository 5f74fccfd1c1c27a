package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fantasy12/apperr"
	"fantasy12/models"
)

func TestPoolLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.user(t, "Ana", models.RoleUser, 0)
	pro := f.user(t, "Bia", models.RolePro, 0)
	basic := f.user(t, "Caio", models.RoleUser, 0)

	p, err := f.pools.Create(ctx, CreatePoolInput{
		Title:     "Bolão da Firma",
		CreatorID: creator.ID,
		EntryFee:  decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, p.ParticipantsCount)
	assert.True(t, p.PrizePool.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "Ana", p.CreatorName)
	assert.True(t, strings.HasPrefix(p.Slug, "bolao-da-firma-"), p.Slug)
	assert.Equal(t, []string{creator.ID}, p.ParticipantIDs())

	joined, err := f.pools.Join(ctx, p.ID, pro.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, joined.ParticipantsCount)
	assert.True(t, joined.PrizePool.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, []string{creator.ID, pro.ID}, joined.ParticipantIDs())

	_, err = f.pools.Join(ctx, p.ID, pro.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = f.pools.Join(ctx, p.ID, basic.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.pools.Join(ctx, "missing", pro.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	got, err := f.pools.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ParticipantsCount)
	assert.True(t, got.PrizePool.Equal(decimal.NewFromInt(20)))

	assert.Equal(t, []string{ActionPoolCreated, ActionPoolJoined}, f.actions())
}

func TestCreatePoolValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "Ana", models.RoleUser, 0)
	later := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	earlier := later.Add(-48 * time.Hour)

	_, err := f.pools.Create(ctx, CreatePoolInput{CreatorID: u.ID, EntryFee: decimal.NewFromInt(5)})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.pools.Create(ctx, CreatePoolInput{Title: "X", CreatorID: u.ID, EntryFee: decimal.NewFromInt(-1)})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.pools.Create(ctx, CreatePoolInput{Title: "X", CreatorID: u.ID, StartDate: &later, EndDate: &earlier})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.pools.Create(ctx, CreatePoolInput{Title: "X", CreatorID: "ghost"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSameTitleGetsDistinctSlugs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "Ana", models.RoleUser, 0)

	a, err := f.pools.Create(ctx, CreatePoolInput{Title: "Amigos", CreatorID: u.ID})
	require.NoError(t, err)
	b, err := f.pools.Create(ctx, CreatePoolInput{Title: "Amigos", CreatorID: u.ID})
	require.NoError(t, err)
	assert.NotEqual(t, a.Slug, b.Slug)
}

func TestPoolClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.user(t, "Ana", models.RoleUser, 0)
	pro := f.user(t, "Bia", models.RolePro, 0)
	admin := f.user(t, "Root", models.RoleAdmin, 0)

	p, err := f.pools.Create(ctx, CreatePoolInput{Title: "Copa", CreatorID: creator.ID, EntryFee: decimal.NewFromInt(5)})
	require.NoError(t, err)

	_, err = f.pools.Close(ctx, pro.ID, p.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	closed, err := f.pools.Close(ctx, creator.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PoolClosed, closed.Status)

	_, err = f.pools.Join(ctx, p.ID, pro.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, 1, f.reloadPool(t, p.ID).ParticipantsCount)

	_, err = f.pools.Close(ctx, admin.ID, p.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	_, err = f.pools.Close(ctx, admin.ID, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	assert.Contains(t, f.actions(), ActionPoolClosed)
}

func TestConcurrentJoinsKeepCountsConsistent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.user(t, "Ana", models.RoleUser, 0)
	p, err := f.pools.Create(ctx, CreatePoolInput{Title: "Copa", CreatorID: creator.ID, EntryFee: decimal.NewFromInt(10)})
	require.NoError(t, err)

	const n = 20
	members := make([]*models.User, n)
	for i := range members {
		members[i] = f.user(t, "Pro", models.RolePro, 0)
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, m := range members {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.pools.Join(ctx, p.ID, id)
			errs <- err
		}(m.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got := f.reloadPool(t, p.ID)
	assert.Equal(t, n+1, got.ParticipantsCount)
	assert.Len(t, got.Participants, n+1)
	assert.True(t, decimal.NewFromInt(10*(n+1)).Equal(got.PrizePool), got.PrizePool.String())
}

func TestConcurrentSameUserJoinsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator := f.user(t, "Ana", models.RoleUser, 0)
	pro := f.user(t, "Bia", models.RolePro, 0)
	p, err := f.pools.Create(ctx, CreatePoolInput{Title: "Copa", CreatorID: creator.ID, EntryFee: decimal.NewFromInt(10)})
	require.NoError(t, err)

	const attempts = 10
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.pools.Join(ctx, p.ID, pro.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok, conflicts := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.Is(err, apperr.KindConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, conflicts)

	got := f.reloadPool(t, p.ID)
	assert.Equal(t, 2, got.ParticipantsCount)
	assert.True(t, decimal.NewFromInt(20).Equal(got.PrizePool))
}
