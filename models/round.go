package models

import (
	"time"
)

type RoundStatus string

const (
	RoundDraft   RoundStatus = "draft"
	RoundOpen    RoundStatus = "open"
	RoundClosed  RoundStatus = "closed"
	RoundSettled RoundStatus = "settled"
)

type GameStatus string

const (
	GameScheduled GameStatus = "scheduled"
	GameLive      GameStatus = "live"
	GameFinished  GameStatus = "finished"
	GameCancelled GameStatus = "cancelled"
)

// Round is a betting period made of ordered games.
type Round struct {
	ID        string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title     string      `gorm:"not null" json:"title"`
	StartDate time.Time   `gorm:"not null;index" json:"startDate"`
	EndDate   time.Time   `gorm:"not null" json:"endDate"`
	Status    RoundStatus `gorm:"type:varchar(16);not null;default:'draft';index" json:"status"`

	Games []Game `gorm:"foreignKey:RoundID" json:"games"`

	Timestamps
}

// Game is a single match inside a round. Order is unique per round.
type Game struct {
	ID      string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RoundID string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_game_round_order" json:"roundId"`
	TeamA   string     `gorm:"not null" json:"teamA"`
	TeamB   string     `gorm:"not null" json:"teamB"`
	Date    time.Time  `json:"date"`
	Status  GameStatus `gorm:"type:varchar(16);not null;default:'scheduled'" json:"status"`
	Order   int        `gorm:"column:sort_order;not null;uniqueIndex:idx_game_round_order" json:"order"`
	ScoreA  *int       `json:"scoreA,omitempty"`
	ScoreB  *int       `json:"scoreB,omitempty"`

	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}
