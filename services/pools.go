package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"

	"fantasy12/apperr"
	"fantasy12/models"
	"fantasy12/rules"
	"fantasy12/store"
)

type PoolService struct {
	Store store.Store
	Audit *AuditService
}

func NewPoolService(s store.Store, audit *AuditService) *PoolService {
	return &PoolService{Store: s, Audit: audit}
}

func (s *PoolService) List(ctx context.Context) ([]models.Pool, error) {
	pools, err := s.Store.ListPools(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to list pools", err)
	}
	return pools, nil
}

func (s *PoolService) Get(ctx context.Context, id string) (*models.Pool, error) {
	p, err := s.Store.GetPool(ctx, id)
	return p, fromStore(err, "pool not found", "")
}

type CreatePoolInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	CreatorID   string          `json:"creatorId"`
	EntryFee    decimal.Decimal `json:"entryFee"`
	StartDate   *time.Time      `json:"startDate"`
	EndDate     *time.Time      `json:"endDate"`
}

// poolSlug derives a URL slug from the title. The id suffix keeps slugs of
// equally named pools apart.
func poolSlug(title, id string) string {
	base := slug.Make(title)
	if base == "" {
		base = "bolao"
	}
	return base + "-" + strings.ReplaceAll(id, "-", "")[:8]
}

// Create opens a pool with its creator as the first, paid participant.
func (s *PoolService) Create(ctx context.Context, in CreatePoolInput) (*models.Pool, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || in.CreatorID == "" {
		return nil, apperr.Validation("title and creatorId are required")
	}
	if in.EntryFee.IsNegative() {
		return nil, apperr.Validation("entryFee cannot be negative")
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return nil, apperr.Validation("endDate must not be before startDate")
	}
	creator, err := s.Store.GetUser(ctx, in.CreatorID)
	if err != nil {
		return nil, fromStore(err, "creator not found", "")
	}

	id := uuid.NewString()
	p := &models.Pool{
		ID:                id,
		Slug:              poolSlug(title, id),
		Title:             title,
		Description:       strings.TrimSpace(in.Description),
		CreatorID:         creator.ID,
		CreatorName:       creator.Name,
		EntryFee:          in.EntryFee,
		ParticipantsCount: 1,
		PrizePool:         rules.ComputePoolPrize(in.EntryFee, 1),
		Status:            models.PoolOpen,
		StartDate:         in.StartDate,
		EndDate:           in.EndDate,
		Participants: []models.PoolParticipant{{
			ID:     uuid.NewString(),
			PoolID: id,
			UserID: creator.ID,
			Paid:   true,
		}},
	}
	if err := s.Store.CreatePool(ctx, p); err != nil {
		return nil, fromStore(err, "", "pool already exists")
	}
	s.Audit.Record(ctx, actorOf(creator), ActionPoolCreated, fmt.Sprintf("Criou o bolão %s", p.Title), models.LogSuccess)
	return s.Get(ctx, p.ID)
}

// Join adds a PRO user to an open pool and recomputes the prize from the
// participant rows.
func (s *PoolService) Join(ctx context.Context, poolID, userID string) (*models.Pool, error) {
	if userID == "" {
		return nil, apperr.Validation("userId is required")
	}
	u, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, fromStore(err, "user not found", "")
	}
	if !u.IsPro() {
		return nil, apperr.Forbidden("only PRO members can join pools")
	}

	var title string
	err = s.Store.Tx(ctx, func(tx store.Store) error {
		p, err := tx.GetPoolForUpdate(ctx, poolID)
		if err != nil {
			return fromStore(err, "pool not found", "")
		}
		if p.Status != models.PoolOpen {
			return apperr.Validation("pool is closed")
		}
		err = tx.AddParticipant(ctx, &models.PoolParticipant{
			ID:     uuid.NewString(),
			PoolID: p.ID,
			UserID: u.ID,
			Paid:   true,
		})
		if err != nil {
			return fromStore(err, "", "user already joined this pool")
		}
		n, err := tx.CountParticipants(ctx, p.ID)
		if err != nil {
			return apperr.Internal("failed to count participants", err)
		}
		p.ParticipantsCount = n
		p.PrizePool = rules.ComputePoolPrize(p.EntryFee, n)
		title = p.Title
		return fromStore(tx.SavePool(ctx, p), "pool not found", "")
	})
	if err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, actorOf(u), ActionPoolJoined, fmt.Sprintf("Entrou no bolão %s", title), models.LogSuccess)
	return s.Get(ctx, poolID)
}

// Close stops a pool from taking new participants. Only its creator or an
// admin may close it.
func (s *PoolService) Close(ctx context.Context, callerID, poolID string) (*models.Pool, error) {
	caller, err := s.Store.GetUser(ctx, callerID)
	if err != nil {
		return nil, fromStore(err, "user not found", "")
	}

	var title string
	err = s.Store.Tx(ctx, func(tx store.Store) error {
		p, err := tx.GetPoolForUpdate(ctx, poolID)
		if err != nil {
			return fromStore(err, "pool not found", "")
		}
		if p.CreatorID != caller.ID && !caller.IsAdmin() {
			return apperr.Forbidden("only the pool creator can close it")
		}
		if p.Status == models.PoolClosed {
			return apperr.Conflict("pool is already closed")
		}
		p.Status = models.PoolClosed
		title = p.Title
		return fromStore(tx.SavePool(ctx, p), "pool not found", "")
	})
	if err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, actorOf(caller), ActionPoolClosed, fmt.Sprintf("Encerrou o bolão %s", title), models.LogInfo)
	return s.Get(ctx, poolID)
}
