package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PoolStatus string

const (
	PoolOpen   PoolStatus = "open"
	PoolClosed PoolStatus = "closed"
)

// Pool is a private competition ("bolão"). ParticipantsCount and PrizePool
// are kept in step with the participant rows.
type Pool struct {
	ID                string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Slug              string          `gorm:"type:varchar(160);uniqueIndex" json:"slug"`
	Title             string          `gorm:"not null" json:"title"`
	Description       string          `gorm:"type:text" json:"description,omitempty"`
	CreatorID         string          `gorm:"type:varchar(36);not null;index" json:"creatorId"`
	CreatorName       string          `json:"creatorName"`
	EntryFee          decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"entryFee"`
	ParticipantsCount int             `gorm:"not null;default:0" json:"participantsCount"`
	PrizePool         decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"prizePool"`
	Status            PoolStatus      `gorm:"type:varchar(16);not null;default:'open'" json:"status"`
	StartDate         *time.Time      `json:"startDate,omitempty"`
	EndDate           *time.Time      `json:"endDate,omitempty"`

	Participants []PoolParticipant `gorm:"foreignKey:PoolID" json:"-"`

	Timestamps
}

type PoolParticipant struct {
	ID       string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PoolID   string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_pool_participant" json:"poolId"`
	UserID   string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_pool_participant" json:"userId"`
	Paid     bool      `gorm:"not null;default:false" json:"paid"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joinedAt"`
}

// ParticipantIDs lists the user ids in join order.
func (p *Pool) ParticipantIDs() []string {
	ids := make([]string, 0, len(p.Participants))
	for _, pp := range p.Participants {
		ids = append(ids, pp.UserID)
	}
	return ids
}
