package models

import (
	"time"
)

type LogType string

const (
	LogInfo    LogType = "info"
	LogSuccess LogType = "success"
	LogWarning LogType = "warning"
	LogError   LogType = "error"
)

func (t LogType) Valid() bool {
	switch t {
	case LogInfo, LogSuccess, LogWarning, LogError:
		return true
	}
	return false
}

// LogEntry is an append-only audit record. UserName is a snapshot taken at
// write time; readers resolve the live name when the user still exists.
type LogEntry struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	UserID    string    `gorm:"type:varchar(36);index" json:"userId"`
	UserName  string    `json:"userName"`
	Action    string    `gorm:"not null" json:"action"`
	Details   string    `gorm:"type:text" json:"details"`
	Type      LogType   `gorm:"type:varchar(16);not null;default:'info'" json:"type"`
}

func (LogEntry) TableName() string { return "audit_logs" }
