package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fantasy12/apperr"
	"fantasy12/models"
)

func TestBuyPowerUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "Ana", models.RoleUser, 15)

	after, err := f.shop.Buy(ctx, u.ID, "dupla-3")
	require.NoError(t, err)
	assert.Equal(t, 3, after.Doubles)
	assert.True(t, after.Balance.Equal(decimal.NewFromInt(5)))

	after, err = f.shop.Buy(ctx, u.ID, "super-1")
	require.NoError(t, err)
	assert.Equal(t, 1, after.SuperDoubles)
	assert.True(t, after.Balance.IsZero())

	_, err = f.shop.Buy(ctx, u.ID, "dupla-1")
	assert.True(t, apperr.Is(err, apperr.KindInsufficientFunds))
	assert.Equal(t, 3, f.reload(t, u.ID).Doubles)

	_, err = f.shop.Buy(ctx, u.ID, "mega-100")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	txs, err := f.store.ListTransactions(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, models.TxPowerUpPurchase, txs[0].Type)
	assert.Equal(t, "super-1", txs[0].ReferenceID)
	assert.True(t, txs[1].FichasAmount.Equal(decimal.NewFromInt(-10)))
	assert.Equal(t, []string{ActionPowerUp, ActionPowerUp}, f.actions())
}
