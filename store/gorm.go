package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"fantasy12/models"
)

type OpenOptions struct {
	MaxOpenConns  int
	MaxIdleConns  int
	ConnLifetime  time.Duration
	SlowThreshold time.Duration
}

// Open connects to Postgres and migrates the schema.
func Open(dsn string, opts OpenOptions) (*gorm.DB, error) {
	gormLogger := logger.New(
		log.StandardLogger(),
		logger.Config{
			SlowThreshold:             opts.SlowThreshold,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnLifetime)
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// Gorm implements Store on a gorm connection or transaction.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (s *Gorm) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *Gorm) Tx(ctx context.Context, fn func(tx Store) error) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Gorm{db: tx})
	})
}

func (s *Gorm) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

var forUpdate = clause.Locking{Strength: "UPDATE"}

func gamesInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC")
}

func participantsInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("joined_at ASC, id ASC")
}

// --- users ---

func (s *Gorm) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.conn(ctx).Create(u).Error)
}

func (s *Gorm) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Gorm) GetUserForUpdate(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).Clauses(forUpdate).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Gorm) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).First(&u, "email = ?", email).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Gorm) FindUserByEmailOrTaxID(ctx context.Context, email, taxID, exceptID string) (*models.User, error) {
	q := s.conn(ctx).Where("id <> ?", exceptID)
	if taxID != "" {
		q = q.Where("(email = ? OR cpf = ?)", email, taxID)
	} else {
		q = q.Where("email = ?", email)
	}
	var u models.User
	if err := q.First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Gorm) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.conn(ctx).Order("name ASC").Find(&users).Error; err != nil {
		return nil, translate(err)
	}
	return users, nil
}

func (s *Gorm) GetUsers(ctx context.Context, ids []string) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := s.conn(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, translate(err)
	}
	return users, nil
}

func (s *Gorm) SaveUser(ctx context.Context, u *models.User) error {
	return translate(s.conn(ctx).Save(u).Error)
}

func (s *Gorm) DeleteUser(ctx context.Context, id string) error {
	res := s.conn(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- rounds ---

func (s *Gorm) ListRounds(ctx context.Context) ([]models.Round, error) {
	var rounds []models.Round
	err := s.conn(ctx).
		Preload("Games", gamesInOrder).
		Order("start_date ASC").
		Find(&rounds).Error
	if err != nil {
		return nil, translate(err)
	}
	return rounds, nil
}

func (s *Gorm) GetRound(ctx context.Context, id string) (*models.Round, error) {
	var r models.Round
	if err := s.conn(ctx).Preload("Games", gamesInOrder).First(&r, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *Gorm) GetRoundForUpdate(ctx context.Context, id string) (*models.Round, error) {
	var r models.Round
	if err := s.conn(ctx).Clauses(forUpdate).First(&r, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	if err := gamesInOrder(s.conn(ctx)).Where("round_id = ?", id).Find(&r.Games).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *Gorm) CreateRound(ctx context.Context, r *models.Round) error {
	return translate(s.conn(ctx).Create(r).Error)
}

func (s *Gorm) SaveRound(ctx context.Context, r *models.Round) error {
	return translate(s.conn(ctx).Omit(clause.Associations).Save(r).Error)
}

func (s *Gorm) CreateGame(ctx context.Context, g *models.Game) error {
	return translate(s.conn(ctx).Create(g).Error)
}

func (s *Gorm) SaveGame(ctx context.Context, g *models.Game) error {
	return translate(s.conn(ctx).Save(g).Error)
}

func (s *Gorm) ListRoundsToClose(ctx context.Context, now time.Time) ([]models.Round, error) {
	var rounds []models.Round
	err := s.conn(ctx).
		Where("status = ? AND end_date <= ?", models.RoundOpen, now).
		Find(&rounds).Error
	if err != nil {
		return nil, translate(err)
	}
	return rounds, nil
}

func (s *Gorm) ListSettledRounds(ctx context.Context) ([]models.Round, error) {
	var rounds []models.Round
	err := s.conn(ctx).
		Where("status = ?", models.RoundSettled).
		Order("start_date ASC").
		Find(&rounds).Error
	if err != nil {
		return nil, translate(err)
	}
	return rounds, nil
}

// --- pools ---

func (s *Gorm) ListPools(ctx context.Context) ([]models.Pool, error) {
	var pools []models.Pool
	err := s.conn(ctx).
		Preload("Participants", participantsInOrder).
		Order("created_at DESC").
		Find(&pools).Error
	if err != nil {
		return nil, translate(err)
	}
	return pools, nil
}

func (s *Gorm) GetPool(ctx context.Context, id string) (*models.Pool, error) {
	var p models.Pool
	if err := s.conn(ctx).Preload("Participants", participantsInOrder).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Gorm) GetPoolForUpdate(ctx context.Context, id string) (*models.Pool, error) {
	var p models.Pool
	if err := s.conn(ctx).Clauses(forUpdate).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Gorm) CreatePool(ctx context.Context, p *models.Pool) error {
	return translate(s.conn(ctx).Create(p).Error)
}

func (s *Gorm) SavePool(ctx context.Context, p *models.Pool) error {
	return translate(s.conn(ctx).Omit(clause.Associations).Save(p).Error)
}

func (s *Gorm) AddParticipant(ctx context.Context, pp *models.PoolParticipant) error {
	return translate(s.conn(ctx).Create(pp).Error)
}

func (s *Gorm) CountParticipants(ctx context.Context, poolID string) (int, error) {
	var n int64
	err := s.conn(ctx).Model(&models.PoolParticipant{}).Where("pool_id = ?", poolID).Count(&n).Error
	return int(n), translate(err)
}

// --- tickets ---

func (s *Gorm) CreateTicket(ctx context.Context, t *models.Ticket) error {
	return translate(s.conn(ctx).Create(t).Error)
}

func (s *Gorm) GetTicket(ctx context.Context, userID, roundID string) (*models.Ticket, error) {
	var t models.Ticket
	if err := s.conn(ctx).First(&t, "user_id = ? AND round_id = ?", userID, roundID).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *Gorm) ListTickets(ctx context.Context, f TicketFilter) ([]models.Ticket, error) {
	q := s.conn(ctx).Order("created_at ASC")
	if len(f.RoundIDs) > 0 {
		q = q.Where("round_id IN ?", f.RoundIDs)
	}
	if len(f.UserIDs) > 0 {
		q = q.Where("user_id IN ?", f.UserIDs)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	var tickets []models.Ticket
	if err := q.Find(&tickets).Error; err != nil {
		return nil, translate(err)
	}
	return tickets, nil
}

func (s *Gorm) SaveTicket(ctx context.Context, t *models.Ticket) error {
	return translate(s.conn(ctx).Save(t).Error)
}

// --- audit logs ---

func (s *Gorm) CreateLog(ctx context.Context, l *models.LogEntry) error {
	return translate(s.conn(ctx).Create(l).Error)
}

func (s *Gorm) ListLogs(ctx context.Context, limit int) ([]models.LogEntry, error) {
	var logs []models.LogEntry
	err := s.conn(ctx).
		Table("audit_logs AS l").
		Select("l.id, l.timestamp, l.user_id, COALESCE(u.name, l.user_name) AS user_name, l.action, l.details, l.type").
		Joins("LEFT JOIN users u ON u.id = l.user_id AND u.deleted_at IS NULL").
		Order("l.timestamp DESC").
		Limit(limit).
		Scan(&logs).Error
	if err != nil {
		return nil, translate(err)
	}
	return logs, nil
}

func (s *Gorm) ListLogsBetween(ctx context.Context, from, to time.Time) ([]models.LogEntry, error) {
	var logs []models.LogEntry
	err := s.conn(ctx).
		Where("timestamp >= ? AND timestamp < ?", from, to).
		Order("timestamp ASC").
		Find(&logs).Error
	if err != nil {
		return nil, translate(err)
	}
	return logs, nil
}

// --- ledger ---

func (s *Gorm) CreatePurchase(ctx context.Context, p *models.Purchase) error {
	return translate(s.conn(ctx).Create(p).Error)
}

func (s *Gorm) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	return translate(s.conn(ctx).Create(t).Error)
}

func (s *Gorm) ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	var txs []models.Transaction
	if err := s.conn(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&txs).Error; err != nil {
		return nil, translate(err)
	}
	return txs, nil
}

var _ Store = (*Gorm)(nil)
