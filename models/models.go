package models

// All lists every persisted model for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Round{},
		&Game{},
		&Ticket{},
		&Pool{},
		&PoolParticipant{},
		&LogEntry{},
		&Purchase{},
		&Transaction{},
	}
}
