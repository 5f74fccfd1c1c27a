// Package storetest provides an in-memory store.Store for tests.
//
// Transactions are serialized and rolled back by restoring a snapshot.
// Unique constraints of the Postgres schema are enforced so callers see the
// same ErrDuplicate behaviour.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fantasy12/models"
	"fantasy12/store"
)

type state struct {
	users        map[string]models.User
	rounds       map[string]models.Round
	games        map[string]models.Game
	pools        map[string]models.Pool
	participants []models.PoolParticipant
	tickets      map[string]models.Ticket
	logs         []models.LogEntry
	purchases    []models.Purchase
	transactions []models.Transaction
}

func newState() *state {
	return &state{
		users:   map[string]models.User{},
		rounds:  map[string]models.Round{},
		games:   map[string]models.Game{},
		pools:   map[string]models.Pool{},
		tickets: map[string]models.Ticket{},
	}
}

func (s *state) clone() *state {
	c := &state{
		users:        make(map[string]models.User, len(s.users)),
		rounds:       make(map[string]models.Round, len(s.rounds)),
		games:        make(map[string]models.Game, len(s.games)),
		pools:        make(map[string]models.Pool, len(s.pools)),
		tickets:      make(map[string]models.Ticket, len(s.tickets)),
		participants: slices.Clone(s.participants),
		logs:         slices.Clone(s.logs),
		purchases:    slices.Clone(s.purchases),
		transactions: slices.Clone(s.transactions),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.rounds {
		c.rounds[k] = v
	}
	for k, v := range s.games {
		c.games[k] = v
	}
	for k, v := range s.pools {
		c.pools[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	return c
}

type core struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   *state
	fail map[string]error
	now  func() time.Time
}

// Store is an in-memory store.Store.
type Store struct {
	*core
	inTx bool
}

func New() *Store {
	return &Store{core: &core{st: newState(), fail: map[string]error{}, now: time.Now}}
}

// FailOn makes the next call of the named method return err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[method] = err
}

// lock serializes with running transactions unless already inside one.
func (s *Store) lock() func() {
	if !s.inTx {
		s.txMu.Lock()
	}
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		if !s.inTx {
			s.txMu.Unlock()
		}
	}
}

// injected must be called with mu held.
func (s *Store) injected(method string) error {
	if err, ok := s.fail[method]; ok {
		delete(s.fail, method)
		return err
	}
	return nil
}

func (s *Store) Tx(ctx context.Context, fn func(tx store.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	if err := fn(&Store{core: s.core, inTx: true}); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Ping(context.Context) error {
	unlock := s.lock()
	defer unlock()
	return s.injected("Ping")
}

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func dup(what string) error {
	return fmt.Errorf("%w: %s", store.ErrDuplicate, what)
}

// --- users ---

func (s *Store) userConflict(u *models.User) error {
	for _, other := range s.st.users {
		if other.ID == u.ID {
			continue
		}
		if other.Email == u.Email {
			return dup("users.email")
		}
		if u.TaxID != nil && other.TaxID != nil && *u.TaxID == *other.TaxID {
			return dup("users.cpf")
		}
	}
	return nil
}

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	unlock := s.lock()
	defer unlock()
	if err := s.injected("CreateUser"); err != nil {
		return err
	}
	newID(&u.ID)
	if _, ok := s.st.users[u.ID]; ok {
		return dup("users.id")
	}
	if err := s.userConflict(u); err != nil {
		return err
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	u.CreatedAt, u.UpdatedAt = s.now(), s.now()
	s.st.users[u.ID] = *u
	return nil
}

func (s *Store) getUser(id string) (*models.User, error) {
	u, ok := s.st.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (*models.User, error) {
	unlock := s.lock()
	defer unlock()
	if err := s.injected("GetUser"); err != nil {
		return nil, err
	}
	return s.getUser(id)
}

func (s *Store) GetUserForUpdate(_ context.Context, id string) (*models.User, error) {
	unlock := s.lock()
	defer unlock()
	if err := s.injected("GetUserForUpdate"); err != nil {
		return nil, err
	}
	return s.getUser(id)
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	unlock := s.lock()
	defer unlock()
	for _, u := range s.st.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) FindUserByEmailOrTaxID(_ context.Context, email, taxID, exceptID string) (*models.User, error) {
	unlock := s.lock()
	defer unlock()
	for _, u := range s.sortedUsers() {
		if u.ID == exceptID {
			continue
		}
		if u.Email == email || (taxID != "" && u.TaxID != nil && *u.TaxID == taxID) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) sortedUsers() []models.User {
	users := make([]models.User, 0, len(s.st.users))
	for _, u := range s.st.users {
		users = append(users, u)
	}
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
	return users
}

func (s *Store) ListUsers(context.Context) ([]models.User, error) {
	unlock := s.lock()
	defer unlock()
	if err := s.injected("ListUsers"); err != nil {
		return nil, err
	}
	return s.sortedUsers(), nil
}

func (s *Store) GetUsers(_ context.Context, ids []string) ([]models.User, error) {
	unlock := s.lock()
	defer unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := s.st.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *Store) SaveUser(_ context.Context, u *models.User) error {
	unlock := s.lock()
	defer unlock()
	if err := s.injected("SaveUser"); err != nil {
		return err
	}
	if err := s.userConflict(u); err != nil {
		return err
	}
	u.UpdatedAt = s.now()
	s.st.users[u.ID] = *u
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	unlock := s.lock()
	defer unlock()
	if _, ok := s.st.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.st.users, id)
	return nil
}

// --- rounds ---

func (s *Store) roundWithGames(r models.Round) models.Round {
	r.Games = nil
	for _, g := range s.st.games {
		if g.RoundID == r.ID {
			r.Games = append(r.Games, g)
		}
	}
	sort.Slice(r.Games, func(i, j int) bool { return r.Games[i].Order < r.Games[j].Order })
	return r
}

func (s *Store) sortedRounds(keep func(models.Round) bool) []models.Round {
	var out []models.Round
	for _, r := range s.st.rounds {
		if keep(r) {
			out = append(out, s.roundWithGames(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Store) ListRounds(context.Context) ([]models.Round, error) {
	unlock := s.lock()
	defer unlock()
	if err := s.injected("ListRounds"); err != nil {
		return nil, err
	}
	return s.sortedRounds(func(models.Round) bool { return true }), nil
}

func (s *Store) getRound(id string) (*models.Round, error) {
	r, ok := s.st.rounds[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	r = s.roundWithGames(r)
	return &r, nil
}

func (s *Store) GetRound(_ context.Context, id string) (*models.Round, error) {
	unlock := s.lock()
	defer unlock()
	return s.getRound(id)
}

func (s *Store) GetRoundForUpdate(_ context.Context, id string) (*models.Round, error) {
	unlock := s.lock()
	defer unlock()
	return s.getRound(id)
}

func (s *Store) putGame(g *models.Game, create bool) error {
	if create {
		newID(&g.ID)
		if _, ok := s.st.games[g.ID]; ok {
			return dup("games.id")
		}
		g.CreatedAt = s.now()
	}
	for _, other := range s.st.games {
		if other.ID != g.ID && other.RoundID == g.RoundID && other.Order == g.Order {
			return dup("idx_game_round_order")
		}
	}
	g.UpdatedAt = s.now()
	s.st.games[g.ID] = *g
	return nil
}

func (s *Store) CreateRound(_ context.Context, r *models.Round) error {
	unlock := s.lock()
	defer unlock()
	if err := s.injected("CreateRound"); err != nil {
		return err
	}
	newID(&r.ID)
	if _, ok := s.st.rounds[r.ID]; ok {
		return dup("rounds.id")
	}
	for i := range r.Games {
		r.Games[i].RoundID = r.ID
		if err := s.putGame(&r.Games[i], true); err != nil {
			return err
		}
	}
	r.CreatedAt, r.UpdatedAt = s.now(), s.now()
	stored := *r
	stored.Games = nil
	s.st.rounds[r.ID] = stored
	return nil
}

func (s *Store) SaveRound(_ context.Context, r *models.Round) error {
	unlock := s.lock()
	defer unlock()
	if err := s.injected("SaveRound"); err != nil {
		return err
	}
	r.UpdatedAt = s.now()
	stored := *r
	stored.Games = nil
	s.st.rounds[r.ID] = stored
	return nil
}

func (s *Store) CreateGame(_ context.Context, g *models.Game) error {
	unlock := s.lock()
	defer unlock()
	if err := s.injected("CreateGame"); err != nil {
		return err
	}
	return s.putGame(g, true)
}

func (s *Store) SaveGame(_ context.Context, g *models.Game) error {
	unlock := s.lock()
	defer unlock()
	if err := s.injected("SaveGame"); err != nil {
		return err
	}
	return s.putGame(g, false)
}

func (s *Store) ListRoundsToClose(_ context.Context, now time.Time) ([]models.Round, error) {
	unlock := s.lock()
	defer unlock()
	return s.sortedRounds(func(r models.Round) bool {
		return r.Status == models.RoundOpen && !r.EndDate.After(now)
	}), nil
}

func (s *Store) ListSettledRounds(context.Context) ([]models.Round, error) {
	unlock := s.lock()
	defer unlock()
	return s.sortedRounds(func(r models.Round) bool { return r.Status == models.RoundSettled }), nil
}

// --- pools ---

func (s *Store) poolWithParticipants(p models.Pool) models.Pool {
	p.Participants = nil
	for _, pp := range s.st.participants {
		if pp.PoolID == p.ID {
			p.Participants = append(p.Participants, pp)
		}
	}
	return p
}

func (s *Store) ListPools(context.Context) ([]models.Pool, error) {
	unlock := s.lock()
	defer unlock()
	if err := s.injected("ListPools"); err != nil {
		return nil, err
	}
	out := make([]models.Pool, 0, len(s.st.pools))
	for _, p := range s.st.pools {
		out = append(out, s.poolWithParticipants(p))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetPool(_ context.Context, id string) (*models.Pool, error) {
	unlock := s.lock()
	defer unlock()
	p, ok := s.st.pools[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p = s.poolWithParticipants(p)
	return &p, nil
}

func (s *Store) GetPoolForUpdate(_ context.Context, id string) (*models.Pool, error) {
	unlock := s.lock()
	defer unlock()
	p, ok := s.st.pools[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) addParticipant(pp *models.PoolParticipant) error {
	newID(&pp.ID)
	for _, other := range s.st.participants {
		if other.PoolID == pp.PoolID && other.UserID == pp.UserID {
			return dup("idx_pool_participant")
		}
	}
	pp.JoinedAt = s.now()
	s.st.participants = append(s.st.participants, *pp)
	return nil
}

func (s *Store) CreatePool(_ context.Context, p *models.Pool) error {
	unlock := s.lock()
	defer unlock()
	if err := s.injected("CreatePool"); err != nil {
		return err
	}
	newID(&p.ID)
	for _, other := range s.st.pools {
		if other.ID == p.ID {
			return dup("pools.id")
		}
		if p.Slug != "" && other.Slug == p.Slug {
			return dup("pools.slug")
		}
	}
	for i := range p.Participants {
		p.Participants[i].PoolID = p.ID
		if err := s.addParticipant(&p.Participants[i]); err != nil {
			return err
		}
	}
	p.CreatedAt, p.UpdatedAt = s.now(), s.now()
	stored := *p
	stored.Participants = nil
	s.st.pools[p.ID] = stored
	return nil
}

func (s *Store) SavePool(_ context.Context, p *models.Pool) error {
	unlock := s.lock()
	defer unlock()
	if err := s.injected("SavePool"); err != nil {
		return err
	}
	p.UpdatedAt = s.now()
	stored := *p
	stored.Participants = nil
	s.st.pools[p.ID] = stored
	return nil
}

func (s *Store) AddParticipant(_ context.Context, pp *models.PoolParticipant) error {
	unlock := s.lock()
	defer unlock()
	if err := s.injected("AddParticipant"); err != nil {
		return err
	}
	if _, ok := s.st.pools[pp.PoolID]; !ok {
		return errors.New("foreign key violation: pool does not exist")
	}
	return s.addParticipant(pp)
}

func (s *Store) CountParticipants(_ context.Context, poolID string) (int, error) {
	unlock := s.lock()
	defer unlock()
	n := 0
	for _, pp := range s.st.participants {
		if pp.PoolID == poolID {
			n++
		}
	}
	return n, nil
}

// --- tickets ---

func (s *Store) CreateTicket(_ context.Context, t *models.Ticket) error {
	unlock := s.lock()
	defer unlock()
	if err := s.injected("CreateTicket"); err != nil {
		return err
	}
	newID(&t.ID)
	for _, other := range s.st.tickets {
		if other.UserID == t.UserID && other.RoundID == t.RoundID {
			return dup("idx_ticket_user_round")
		}
	}
	t.CreatedAt, t.UpdatedAt = s.now(), s.now()
	s.st.tickets[t.ID] = *t
	return nil
}

func (s *Store) GetTicket(_ context.Context, userID, roundID string) (*models.Ticket, error) {
	unlock := s.lock()
	defer unlock()
	for _, t := range s.st.tickets {
		if t.UserID == userID && t.RoundID == roundID {
			return &t, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListTickets(_ context.Context, f store.TicketFilter) ([]models.Ticket, error) {
	unlock := s.lock()
	defer unlock()
	var out []models.Ticket
	for _, t := range s.st.tickets {
		if len(f.RoundIDs) > 0 && !slices.Contains(f.RoundIDs, t.RoundID) {
			continue
		}
		if len(f.UserIDs) > 0 && !slices.Contains(f.UserIDs, t.UserID) {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, t.Status) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) SaveTicket(_ context.Context, t *models.Ticket) error {
	unlock := s.lock()
	defer unlock()
	if err := s.injected("SaveTicket"); err != nil {
		return err
	}
	t.UpdatedAt = s.now()
	s.st.tickets[t.ID] = *t
	return nil
}

// --- audit logs ---

func (s *Store) CreateLog(_ context.Context, l *models.LogEntry) error {
	unlock := s.lock()
	defer unlock()
	if err := s.injected("CreateLog"); err != nil {
		return err
	}
	newID(&l.ID)
	if l.Timestamp.IsZero() {
		l.Timestamp = s.now()
	}
	s.st.logs = append(s.st.logs, *l)
	return nil
}

func (s *Store) ListLogs(_ context.Context, limit int) ([]models.LogEntry, error) {
	unlock := s.lock()
	defer unlock()
	if err := s.injected("ListLogs"); err != nil {
		return nil, err
	}
	out := slices.Clone(s.st.logs)
	slices.Reverse(out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		if u, ok := s.st.users[out[i].UserID]; ok {
			out[i].UserName = u.Name
		}
	}
	return out, nil
}

func (s *Store) ListLogsBetween(_ context.Context, from, to time.Time) ([]models.LogEntry, error) {
	unlock := s.lock()
	defer unlock()
	var out []models.LogEntry
	for _, l := range s.st.logs {
		if !l.Timestamp.Before(from) && l.Timestamp.Before(to) {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Logs returns every stored audit entry in insertion order.
func (s *Store) Logs() []models.LogEntry {
	unlock := s.lock()
	defer unlock()
	return slices.Clone(s.st.logs)
}

// --- ledger ---

func (s *Store) CreatePurchase(_ context.Context, p *models.Purchase) error {
	unlock := s.lock()
	defer unlock()
	if err := s.injected("CreatePurchase"); err != nil {
		return err
	}
	newID(&p.ID)
	p.CreatedAt, p.UpdatedAt = s.now(), s.now()
	s.st.purchases = append(s.st.purchases, *p)
	return nil
}

func (s *Store) CreateTransaction(_ context.Context, t *models.Transaction) error {
	unlock := s.lock()
	defer unlock()
	if err := s.injected("CreateTransaction"); err != nil {
		return err
	}
	newID(&t.ID)
	t.CreatedAt, t.UpdatedAt = s.now(), s.now()
	s.st.transactions = append(s.st.transactions, *t)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, userID string) ([]models.Transaction, error) {
	unlock := s.lock()
	defer unlock()
	var out []models.Transaction
	for i := len(s.st.transactions) - 1; i >= 0; i-- {
		if s.st.transactions[i].UserID == userID {
			out = append(out, s.st.transactions[i])
		}
	}
	return out, nil
}

// Purchases returns every stored purchase in insertion order.
func (s *Store) Purchases() []models.Purchase {
	unlock := s.lock()
	defer unlock()
	return slices.Clone(s.st.purchases)
}

var _ store.Store = (*Store)(nil)
