package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"fantasy12/apperr"
	"fantasy12/models"
	"fantasy12/store"
)

// Audit actions recorded by the services.
const (
	ActionLogin        = "Login"
	ActionLogout       = "Logout"
	ActionRegister     = "Cadastro"
	ActionProfile      = "Perfil Atualizado"
	ActionUserDeleted  = "Conta Removida"
	ActionPoolCreated  = "Bolão Criado"
	ActionPoolJoined   = "Entrou no Bolão"
	ActionPoolClosed   = "Bolão Encerrado"
	ActionBet          = "Aposta"
	ActionPurchase     = "Compra Realizada"
	ActionPowerUp      = "Compra de Power-up"
	ActionRoundSettled = "Rodada Apurada"
	ActionRoundClosed  = "Rodada Encerrada"
)

const DefaultLogLimit = 100

// Actor identifies who performed an audited action.
type Actor struct {
	ID   string
	Name string
}

func actorOf(u *models.User) Actor {
	if u == nil {
		return Actor{ID: "system", Name: "Sistema"}
	}
	return Actor{ID: u.ID, Name: u.Name}
}

// AuditService writes and reads the append-only audit trail.
type AuditService struct {
	Store store.AuditLogs
	now   func() time.Time
}

func NewAuditService(s store.AuditLogs) *AuditService {
	return &AuditService{Store: s, now: time.Now}
}

func (a *AuditService) entry(actor Actor, action, details string, typ models.LogType) *models.LogEntry {
	return &models.LogEntry{
		ID:        uuid.NewString(),
		Timestamp: a.now().UTC(),
		UserID:    actor.ID,
		UserName:  actor.Name,
		Action:    action,
		Details:   details,
		Type:      typ,
	}
}

// Record appends an audit entry. A failed write is logged and swallowed so
// the audited operation still succeeds.
func (a *AuditService) Record(ctx context.Context, actor Actor, action, details string, typ models.LogType) {
	if err := a.Store.CreateLog(ctx, a.entry(actor, action, details, typ)); err != nil {
		log.WithFields(log.Fields{
			"action":  action,
			"user_id": actor.ID,
		}).WithError(err).Warn("audit log write failed")
	}
}

// RecordTx appends an audit entry through tx and reports failure, for
// operations whose audit record is part of their transaction.
func (a *AuditService) RecordTx(ctx context.Context, tx store.AuditLogs, actor Actor, action, details string, typ models.LogType) error {
	return tx.CreateLog(ctx, a.entry(actor, action, details, typ))
}

type CreateLogInput struct {
	UserID   string         `json:"userId"`
	UserName string         `json:"userName"`
	Action   string         `json:"action"`
	Details  string         `json:"details"`
	Type     models.LogType `json:"type"`
}

// Create appends a client supplied entry. Unlike Record it reports failures.
func (a *AuditService) Create(ctx context.Context, in CreateLogInput) (*models.LogEntry, error) {
	in.Action = strings.TrimSpace(in.Action)
	if in.Action == "" {
		return nil, apperr.Validation("action is required")
	}
	if in.Type == "" {
		in.Type = models.LogInfo
	}
	if !in.Type.Valid() {
		return nil, apperr.Validation("invalid log type %q", in.Type)
	}
	e := a.entry(Actor{ID: in.UserID, Name: in.UserName}, in.Action, in.Details, in.Type)
	if err := a.Store.CreateLog(ctx, e); err != nil {
		return nil, apperr.Internal("failed to write log", err)
	}
	return e, nil
}

// List returns the newest entries first.
func (a *AuditService) List(ctx context.Context, limit int) ([]models.LogEntry, error) {
	if limit <= 0 || limit > DefaultLogLimit {
		limit = DefaultLogLimit
	}
	logs, err := a.Store.ListLogs(ctx, limit)
	if err != nil {
		return nil, apperr.Internal("failed to list logs", err)
	}
	return logs, nil
}

// Archiver stores JSON documents in object storage.
type Archiver interface {
	PutJSON(ctx context.Context, key string, v any) error
}

// ArchiveDay uploads the entries of the UTC day containing day and returns
// how many were written. Days without entries upload nothing.
func (a *AuditService) ArchiveDay(ctx context.Context, archiver Archiver, day time.Time) (int, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	logs, err := a.Store.ListLogsBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("list logs for %s: %w", from.Format(time.DateOnly), err)
	}
	if len(logs) == 0 {
		return 0, nil
	}
	key := "audit-logs/" + from.Format("2006/01/02") + ".json"
	if err := archiver.PutJSON(ctx, key, logs); err != nil {
		return 0, err
	}
	return len(logs), nil
}
