package services

import (
	"context"
	"fmt"
	"math"

	"betpulse/database"
	"betpulse/models"

	"github.com/sirupsen/logrus"
)

// GameService settles instant-win bets: stake debit, outcome computation,
// payout credit and record persistence as one logical unit.
type GameService struct {
	users UserStore
	games GameStore
	bets  BetStore
}

func NewGameService(users UserStore, games GameStore, bets BetStore) *GameService {
	return &GameService{users: users, games: games, bets: bets}
}

// BetResult is returned to the caller with the full fairness disclosure,
// including the revealed server seed for immediate self-verification.
type BetResult struct {
	Bet      models.Bet     `json:"bet"`
	Balance  float64        `json:"balance"`
	Fairness FairnessResult `json:"fairness"`
	Payout   float64        `json:"payout"`
	Win      bool           `json:"win"`
}

// PlaceBet runs the full settlement flow. The debit is an atomic
// conditional update, so two concurrent bets cannot both succeed on one
// wager's worth of balance. Validation happens before any side effect.
func (s *GameService) PlaceBet(ctx context.Context, userID int64, gameKey string, selection int, wager float64, clientSeed string) (*BetResult, error) {
	if selection < 0 || selection > 3 {
		return nil, fmt.Errorf("selection %d out of range: %w", selection, models.ErrInvalidArgument)
	}
	if wager <= 0 {
		return nil, fmt.Errorf("wager must be positive: %w", models.ErrInvalidArgument)
	}

	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	game, err := s.games.FindGameByKey(ctx, gameKey)
	if err != nil {
		return nil, err
	}

	if err := s.users.ConditionalDebit(ctx, user.ID, wager); err != nil {
		return nil, err
	}

	serverSeed := GenerateServerSeed()
	if clientSeed == "" {
		clientSeed = GenerateClientSeed()
	}

	// Nonce is the caller's bet sequence number, computed server-side so a
	// crafted request cannot replay a favorable tuple.
	priorBets, err := s.bets.CountBetsByUser(ctx, user.ID)
	if err != nil {
		return nil, s.debitedFailure(user.ID, wager, fmt.Errorf("failed to derive nonce: %w", err))
	}
	nonce := priorBets + 1

	fair := BuildFairResult(serverSeed, clientSeed, nonce)
	win := fair.Outcome == selection
	payout := 0.0
	if win {
		payout = math.Round(wager*game.PayoutMultiplier*100) / 100
	}

	bet := models.Bet{
		UserID:         user.ID,
		GameKey:        game.Key,
		Selection:      selection,
		Wager:          wager,
		Outcome:        fair.Outcome,
		Payout:         payout,
		Win:            win,
		ServerSeed:     fair.ServerSeed,
		ServerSeedHash: fair.ServerSeedHash,
		ClientSeed:     fair.ClientSeed,
		Nonce:          nonce,
	}
	if err := s.bets.CreateBet(ctx, &bet); err != nil {
		return nil, s.debitedFailure(user.ID, wager, err)
	}

	if payout > 0 {
		if err := s.users.Credit(ctx, user.ID, payout); err != nil {
			return nil, s.debitedFailure(user.ID, wager, fmt.Errorf("failed to credit payout: %w", err))
		}
	}

	updated, err := s.users.FindUserByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &BetResult{
		Bet:      bet,
		Balance:  updated.Balance,
		Fairness: fair,
		Payout:   payout,
		Win:      win,
	}, nil
}

// debitedFailure surfaces a failure that happened after the stake debit
// already committed. There is no compensating rollback here; the alert
// carries enough context for manual reconciliation.
func (s *GameService) debitedFailure(userID int64, wager float64, err error) error {
	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"wager":   wager,
	}).Errorf("bet settlement failed after stake debit committed: %v", err)
	return fmt.Errorf("bet settlement failed after debit of %.2f for user %d: %w", wager, userID, err)
}

// VerifyResult reports whether a stored bet's outcome matches a fresh
// recomputation from its seeds and nonce.
type VerifyResult struct {
	Bet     models.Bet `json:"bet"`
	Outcome int        `json:"outcome"`
	IsValid bool       `json:"is_valid"`
}

// VerifyBet recomputes the outcome from the stored fairness tuple. Pure
// recomputation: no mutation, identical results on every call.
func (s *GameService) VerifyBet(ctx context.Context, betID int64) (*VerifyResult, error) {
	bet, err := s.bets.FindBetByID(ctx, betID)
	if err != nil {
		return nil, err
	}

	recomputed := ComputeOutcome(bet.ServerSeed, bet.ClientSeed, bet.Nonce)
	return &VerifyResult{
		Bet:     *bet,
		Outcome: recomputed,
		IsValid: recomputed == bet.Outcome,
	}, nil
}

func (s *GameService) ListGames(ctx context.Context) ([]models.GameDefinition, error) {
	return s.games.ListGames(ctx)
}

func (s *GameService) ListUserBets(ctx context.Context, userID int64) ([]models.Bet, error) {
	return s.bets.ListUserBets(ctx, userID, 100)
}

func (s *GameService) GameStatistics(ctx context.Context) ([]database.GameStat, error) {
	return s.bets.GameStatistics(ctx)
}
