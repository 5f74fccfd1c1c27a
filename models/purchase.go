package models

import (
	"github.com/shopspring/decimal"
)

type PurchaseStatus string

const (
	PurchaseConfirmed PurchaseStatus = "CONFIRMED"
)

// Purchase records a chip package bought with real money.
type Purchase struct {
	ID          string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string         `gorm:"type:varchar(36);not null;index" json:"userId"`
	PackageType string         `gorm:"not null" json:"packageType"`
	PriceCents  int64          `gorm:"not null" json:"priceCents"`
	FichasAdded int64          `gorm:"not null" json:"fichasAdded"`
	Status      PurchaseStatus `gorm:"type:varchar(16);not null" json:"status"`

	Timestamps
}

type TransactionType string

const (
	TxPurchase        TransactionType = "PURCHASE"
	TxBetDebit        TransactionType = "BET_DEBIT"
	TxPowerUpPurchase TransactionType = "POWERUP_PURCHASE"
)

type TransactionStatus string

const (
	TxConfirmed TransactionStatus = "CONFIRMED"
)

// Transaction is a ledger entry changing a user's chip balance.
// FichasAmount is signed: credits are positive, debits negative.
type Transaction struct {
	ID           string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID       string            `gorm:"type:varchar(36);not null;index" json:"userId"`
	Type         TransactionType   `gorm:"type:varchar(32);not null" json:"type"`
	FichasAmount decimal.Decimal   `gorm:"type:numeric(14,2);not null" json:"fichasAmount"`
	ReferenceID  string            `gorm:"type:varchar(36);index" json:"referenceId"`
	Status       TransactionStatus `gorm:"type:varchar(16);not null" json:"status"`

	Timestamps
}
