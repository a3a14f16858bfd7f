package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"betpulse/database"
	"betpulse/models"
	"betpulse/services/mpesa"
	"betpulse/utils"
)

// In-memory stores used across the service tests. The mutex-guarded
// conditional debit and compare-and-set mirror the atomicity guarantees of
// the SQL statements they stand in for.

type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{nextID: 1, users: map[int64]*models.User{}}
}

func (s *fakeUserStore) addUser(balance float64) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &models.User{
		ID:      s.nextID,
		Email:   fmt.Sprintf("user%d@test.local", s.nextID),
		Role:    models.RolePlayer,
		Balance: balance,
	}
	s.users[u.ID] = u
	s.nextID++
	return u
}

func (s *fakeUserStore) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return nil, models.ErrEmailTaken
		}
	}
	clone := *u
	clone.ID = s.nextID
	s.nextID++
	s.users[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (s *fakeUserStore) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (s *fakeUserStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (s *fakeUserStore) FindUserByResetToken(ctx context.Context, token string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ResetToken != nil && *u.ResetToken == token {
			out := *u
			return &out, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (s *fakeUserStore) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, nil
}

func (s *fakeUserStore) ConditionalDebit(ctx context.Context, id int64, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	if u.Balance < amount {
		return models.ErrInsufficientFunds
	}
	u.Balance -= amount
	return nil
}

func (s *fakeUserStore) Credit(ctx context.Context, id int64, delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	u.Balance += delta
	return nil
}

func (s *fakeUserStore) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (s *fakeUserStore) SetResetToken(ctx context.Context, id int64, token string, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	u.ResetToken = &token
	u.ResetTokenExpires = &expires
	return nil
}

func (s *fakeUserStore) ClearResetToken(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	u.ResetToken = nil
	u.ResetTokenExpires = nil
	return nil
}

func (s *fakeUserStore) UpdateUserProfile(ctx context.Context, id int64, phone, mpesaNumber string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	if phone != "" {
		u.Phone = phone
	}
	if mpesaNumber != "" {
		u.MpesaNumber = mpesaNumber
	}
	out := *u
	return &out, nil
}

type fakeGameStore struct {
	games map[string]*models.GameDefinition
}

func newFakeGameStore(games ...models.GameDefinition) *fakeGameStore {
	s := &fakeGameStore{games: map[string]*models.GameDefinition{}}
	for i := range games {
		s.games[games[i].Key] = &games[i]
	}
	return s
}

func (s *fakeGameStore) FindGameByKey(ctx context.Context, key string) (*models.GameDefinition, error) {
	g, ok := s.games[key]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := *g
	return &out, nil
}

func (s *fakeGameStore) ListGames(ctx context.Context) ([]models.GameDefinition, error) {
	var out []models.GameDefinition
	for _, g := range s.games {
		out = append(out, *g)
	}
	return out, nil
}

type fakeBetStore struct {
	mu        sync.Mutex
	nextID    int64
	bets      map[int64]*models.Bet
	createErr error
}

func newFakeBetStore() *fakeBetStore {
	return &fakeBetStore{nextID: 1, bets: map[int64]*models.Bet{}}
}

func (s *fakeBetStore) CreateBet(ctx context.Context, b *models.Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	b.ID = s.nextID
	b.CreatedAt = time.Now()
	s.nextID++
	clone := *b
	s.bets[clone.ID] = &clone
	return nil
}

func (s *fakeBetStore) FindBetByID(ctx context.Context, id int64) (*models.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bets[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := *b
	return &out, nil
}

func (s *fakeBetStore) CountBetsByUser(ctx context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, b := range s.bets {
		if b.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *fakeBetStore) ListUserBets(ctx context.Context, userID int64, limit int) ([]models.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Bet
	for _, b := range s.bets {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *fakeBetStore) GameStatistics(ctx context.Context) ([]database.GameStat, error) {
	return nil, nil
}

type fakeTxStore struct {
	mu     sync.Mutex
	nextID int64
	txs    map[int64]*models.Transaction
}

func newFakeTxStore() *fakeTxStore {
	return &fakeTxStore{nextID: 1, txs: map[int64]*models.Transaction{}}
}

func (s *fakeTxStore) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.nextID
	s.nextID++
	if t.Status == "" {
		t.Status = models.StatusPending
	}
	t.CreatedAt = time.Now()
	clone := *t
	s.txs[clone.ID] = &clone
	return nil
}

func (s *fakeTxStore) FindTransactionByID(ctx context.Context, id int64) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := *t
	return &out, nil
}

func (s *fakeTxStore) FindTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txs {
		if t.Reference == reference {
			out := *t
			return &out, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *fakeTxStore) FindTransactionByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txs {
		if utils.ToString(t.Metadata.Mpesa()["checkoutRequestId"]) == checkoutRequestID {
			out := *t
			return &out, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *fakeTxStore) FindTransactionByConversationID(ctx context.Context, conversationID string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txs {
		meta := t.Metadata.Mpesa()
		if utils.ToString(meta["conversationId"]) == conversationID ||
			utils.ToString(meta["originatorConversationId"]) == conversationID {
			out := *t
			return &out, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *fakeTxStore) CompareAndSetStatus(ctx context.Context, id int64, expected, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok {
		return false, models.ErrNotFound
	}
	if t.Status != expected {
		return false, nil
	}
	t.Status = next
	return true, nil
}

func (s *fakeTxStore) MergeMetadata(ctx context.Context, id int64, patch models.Metadata) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	t.Metadata = models.Metadata(utils.DeepMerge(t.Metadata, patch))
	out := *t
	return &out, nil
}

func (s *fakeTxStore) ListUserTransactions(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, t := range s.txs {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *fakeTxStore) ListTransactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, t := range s.txs {
		out = append(out, *t)
	}
	return out, nil
}

func (s *fakeTxStore) SummarizeFinance(ctx context.Context) (*database.FinanceSummary, error) {
	return &database.FinanceSummary{}, nil
}

// fakeProvider records outbound calls and returns canned responses.
type fakeProvider struct {
	mu       sync.Mutex
	stkCalls []mpesa.StkPushRequest
	b2cCalls []mpesa.B2CRequest
	stkErr   error
	b2cErr   error
	stkResp  mpesa.StkPushResponse
	b2cResp  mpesa.B2CResponse
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		stkResp: mpesa.StkPushResponse{
			MerchantRequestID: "merchant-1",
			CheckoutRequestID: "checkout-1",
			ResponseCode:      "0",
			CustomerMessage:   "Success. Request accepted for processing",
		},
		b2cResp: mpesa.B2CResponse{
			ConversationID:           "AG_20260829_001",
			OriginatorConversationID: "29112-001-1",
			ResponseCode:             "0",
			ResponseDescription:      "Accept the service request successfully.",
		},
	}
}

func (p *fakeProvider) InitiateSTKPush(ctx context.Context, payload mpesa.StkPushRequest) (*mpesa.StkPushResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stkCalls = append(p.stkCalls, payload)
	if p.stkErr != nil {
		return nil, p.stkErr
	}
	out := p.stkResp
	return &out, nil
}

func (p *fakeProvider) TriggerB2CPayout(ctx context.Context, payload mpesa.B2CRequest) (*mpesa.B2CResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.b2cCalls = append(p.b2cCalls, payload)
	if p.b2cErr != nil {
		return nil, p.b2cErr
	}
	out := p.b2cResp
	return &out, nil
}

func (p *fakeProvider) NormalizeMsisdn(phoneNumber string) string {
	if phoneNumber == "" {
		return ""
	}
	if len(phoneNumber) == 10 && phoneNumber[0] == '0' {
		return "254" + phoneNumber[1:]
	}
	return phoneNumber
}

func (p *fakeProvider) FormatInternationalMsisdn(phoneNumber string) string {
	return "+" + p.NormalizeMsisdn(phoneNumber)
}
