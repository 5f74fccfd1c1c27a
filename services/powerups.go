package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fantasy12/apperr"
	"fantasy12/metrics"
	"fantasy12/models"
	"fantasy12/store"
)

type PowerUpKind string

const (
	PowerUpDouble      PowerUpKind = "double"
	PowerUpSuperDouble PowerUpKind = "superDouble"
)

// PowerUp is a store item that adds doubles or super doubles to the
// inventory in exchange for chips.
type PowerUp struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Kind     PowerUpKind     `json:"kind"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

var DefaultPowerUps = []PowerUp{
	{ID: "dupla-1", Name: "1 Dupla", Kind: PowerUpDouble, Quantity: 1, Price: decimal.NewFromInt(4)},
	{ID: "dupla-3", Name: "3 Duplas", Kind: PowerUpDouble, Quantity: 3, Price: decimal.NewFromInt(10)},
	{ID: "dupla-10", Name: "10 Duplas", Kind: PowerUpDouble, Quantity: 10, Price: decimal.NewFromInt(20)},
	{ID: "super-1", Name: "1 Super Dupla", Kind: PowerUpSuperDouble, Quantity: 1, Price: decimal.NewFromInt(5)},
	{ID: "super-4", Name: "4 Super Duplas", Kind: PowerUpSuperDouble, Quantity: 4, Price: decimal.NewFromInt(20)},
}

type ShopService struct {
	Store   store.Store
	Audit   *AuditService
	Catalog []PowerUp
}

func NewShopService(s store.Store, audit *AuditService) *ShopService {
	return &ShopService{Store: s, Audit: audit, Catalog: DefaultPowerUps}
}

func (s *ShopService) Item(id string) (PowerUp, bool) {
	for _, p := range s.Catalog {
		if p.ID == id {
			return p, true
		}
	}
	return PowerUp{}, false
}

// Buy pays for a power-up with chips and credits the inventory.
func (s *ShopService) Buy(ctx context.Context, userID, itemID string) (*models.User, error) {
	item, ok := s.Item(itemID)
	if !ok {
		return nil, apperr.NotFound("power-up %q not found", itemID)
	}
	var user *models.User
	err := s.Store.Tx(ctx, func(tx store.Store) error {
		var err error
		if user, err = tx.GetUserForUpdate(ctx, userID); err != nil {
			return fromStore(err, "user not found", "")
		}
		if user.Balance.LessThan(item.Price) {
			return apperr.InsufficientFunds("insufficient balance: %s costs %s chips", item.Name, item.Price.String())
		}
		user.Balance = user.Balance.Sub(item.Price)
		switch item.Kind {
		case PowerUpDouble:
			user.Doubles += item.Quantity
		case PowerUpSuperDouble:
			user.SuperDoubles += item.Quantity
		}
		if err := tx.SaveUser(ctx, user); err != nil {
			return fromStore(err, "user not found", "")
		}
		return fromStore(tx.CreateTransaction(ctx, &models.Transaction{
			ID:           uuid.NewString(),
			UserID:       user.ID,
			Type:         models.TxPowerUpPurchase,
			FichasAmount: item.Price.Neg(),
			ReferenceID:  item.ID,
			Status:       models.TxConfirmed,
		}), "", "")
	})
	if err != nil {
		return nil, err
	}
	metrics.PowerUpsSold.WithLabelValues(item.ID).Inc()
	s.Audit.Record(ctx, actorOf(user), ActionPowerUp,
		fmt.Sprintf("Comprou %s por %s", item.Name, chips(item.Price)), models.LogSuccess)
	return user, nil
}
