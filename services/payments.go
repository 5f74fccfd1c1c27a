package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"fantasy12/apperr"
	"fantasy12/metrics"
	"fantasy12/models"
	"fantasy12/store"
)

// ChipPackage is a chip bundle offered for real money.
type ChipPackage struct {
	PackageType string `json:"packageType"`
	Fichas      int64  `json:"fichas"`
	PriceCents  int64  `json:"priceCents"`
	Price       string `json:"price"`
}

// DefaultChipPackages prices one chip at R$ 1,00.
var DefaultChipPackages = []ChipPackage{
	{PackageType: "10 Fichas", Fichas: 10, PriceCents: 1000},
	{PackageType: "20 Fichas", Fichas: 20, PriceCents: 2000},
	{PackageType: "100 Fichas", Fichas: 100, PriceCents: 10000},
}

type PaymentService struct {
	Store    store.Store
	Audit    *AuditService
	Packages []ChipPackage
}

func NewPaymentService(s store.Store, audit *AuditService) *PaymentService {
	return &PaymentService{Store: s, Audit: audit, Packages: DefaultChipPackages}
}

// ListPackages returns the catalog with display prices filled in.
func (s *PaymentService) ListPackages() []ChipPackage {
	out := make([]ChipPackage, len(s.Packages))
	for i, p := range s.Packages {
		p.Price = brl(p.PriceCents)
		out[i] = p
	}
	return out
}

type ProcessPaymentInput struct {
	UserID      string `json:"userId"`
	PackageType string `json:"packageType"`
	PriceCents  int64  `json:"priceCents"`
	FichasAdded int64  `json:"fichasAdded"`
}

func (in ProcessPaymentInput) validate() error {
	if in.UserID == "" || strings.TrimSpace(in.PackageType) == "" {
		return apperr.Validation("userId and packageType are required")
	}
	if in.PriceCents <= 0 || in.FichasAdded <= 0 {
		return apperr.Validation("priceCents and fichasAdded must be positive")
	}
	return nil
}

// Process credits a confirmed chip purchase. The purchase, the ledger entry,
// the balance change and the audit entry commit together or not at all.
func (s *PaymentService) Process(ctx context.Context, in ProcessPaymentInput) (*models.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var user *models.User
	err := s.Store.Tx(ctx, func(tx store.Store) error {
		var err error
		if user, err = tx.GetUserForUpdate(ctx, in.UserID); err != nil {
			return fromStore(err, "user not found", "")
		}
		purchase := &models.Purchase{
			ID:          uuid.NewString(),
			UserID:      user.ID,
			PackageType: strings.TrimSpace(in.PackageType),
			PriceCents:  in.PriceCents,
			FichasAdded: in.FichasAdded,
			Status:      models.PurchaseConfirmed,
		}
		if err := tx.CreatePurchase(ctx, purchase); err != nil {
			return err
		}
		added := decimal.NewFromInt(in.FichasAdded)
		user.Balance = user.Balance.Add(added)
		if err := tx.SaveUser(ctx, user); err != nil {
			return err
		}
		err = tx.CreateTransaction(ctx, &models.Transaction{
			ID:           uuid.NewString(),
			UserID:       user.ID,
			Type:         models.TxPurchase,
			FichasAmount: added,
			ReferenceID:  purchase.ID,
			Status:       models.TxConfirmed,
		})
		if err != nil {
			return err
		}
		details := fmt.Sprintf("Comprou %s (+%s) por %s", purchase.PackageType, chips(added), brl(in.PriceCents))
		return s.Audit.RecordTx(ctx, tx, actorOf(user), ActionPurchase, details, models.LogSuccess)
	})
	if err != nil {
		if k := apperr.KindOf(err); k == apperr.KindNotFound || k == apperr.KindValidation {
			return nil, err
		}
		metrics.Payments.WithLabelValues("failed").Inc()
		log.WithField("user_id", in.UserID).WithError(err).Error("payment processing failed")
		return nil, apperr.Internal("payment processing failed", err)
	}
	metrics.Payments.WithLabelValues("confirmed").Inc()
	return user, nil
}
