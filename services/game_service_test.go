package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"betpulse/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGameFixture(balance float64) (*GameService, *fakeUserStore, *fakeBetStore, *models.User) {
	users := newFakeUserStore()
	user := users.addUser(balance)
	games := newFakeGameStore(models.GameDefinition{
		Key:              "lucky-four",
		Name:             "Lucky Four",
		Category:         "instant",
		PayoutMultiplier: 3.8,
	})
	bets := newFakeBetStore()
	return NewGameService(users, games, bets), users, bets, user
}

func TestPlaceBetWin(t *testing.T) {
	svc, users, _, user := newGameFixture(100)

	result, err := svc.PlaceBet(context.Background(), user.ID, "lucky-four", 2, 40, "")
	require.NoError(t, err)

	if result.Win {
		assert.Equal(t, 152.0, result.Payout) // 40 * 3.8
		assert.Equal(t, 100.0-40+152, result.Balance)
	} else {
		assert.Zero(t, result.Payout)
		assert.Equal(t, 60.0, result.Balance)
	}

	stored, err := users.FindUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Balance, stored.Balance)

	assert.Equal(t, int64(1), result.Bet.Nonce)
	assert.Equal(t, HashServerSeed(result.Bet.ServerSeed), result.Bet.ServerSeedHash)
	assert.Equal(t, result.Bet.Outcome, ComputeOutcome(result.Bet.ServerSeed, result.Bet.ClientSeed, result.Bet.Nonce))
}

func TestPlaceBetValidation(t *testing.T) {
	svc, users, _, user := newGameFixture(100)

	_, err := svc.PlaceBet(context.Background(), user.ID, "lucky-four", 4, 10, "")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = svc.PlaceBet(context.Background(), user.ID, "lucky-four", -1, 10, "")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = svc.PlaceBet(context.Background(), user.ID, "lucky-four", 1, 0, "")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = svc.PlaceBet(context.Background(), user.ID, "no-such-game", 1, 10, "")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.PlaceBet(context.Background(), 999, "lucky-four", 1, 10, "")
	assert.ErrorIs(t, err, models.ErrUserNotFound)

	// nothing above should have touched the balance
	stored, err := users.FindUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, stored.Balance)
}

func TestPlaceBetInsufficientFunds(t *testing.T) {
	svc, users, bets, user := newGameFixture(25)

	_, err := svc.PlaceBet(context.Background(), user.ID, "lucky-four", 0, 50, "")
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	stored, err := users.FindUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 25.0, stored.Balance)

	count, err := bets.CountBetsByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Zero(t, count, "no bet record on a failed debit")
}

func TestPlaceBetConcurrentDebits(t *testing.T) {
	svc, users, _, user := newGameFixture(50)

	const attempts = 5
	results := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.PlaceBet(context.Background(), user.ID, "lucky-four", 1, 50, "")
		}(i)
	}
	wg.Wait()

	var succeeded, insufficient int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, models.ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded, "only one bet can consume the balance")
	assert.Equal(t, attempts-1, insufficient)

	stored, err := users.FindUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stored.Balance, 0.0)
}

func TestPlaceBetNonceIncrements(t *testing.T) {
	svc, _, _, user := newGameFixture(1000)

	for want := int64(1); want <= 3; want++ {
		result, err := svc.PlaceBet(context.Background(), user.ID, "lucky-four", 0, 10, "seedseedseedseed")
		require.NoError(t, err)
		assert.Equal(t, want, result.Bet.Nonce)
	}
}

func TestPlaceBetPersistFailureSurfaces(t *testing.T) {
	svc, users, bets, user := newGameFixture(100)
	bets.createErr = errors.New("disk full")

	_, err := svc.PlaceBet(context.Background(), user.ID, "lucky-four", 1, 30, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after debit")

	// the debit stands: the error is an alert, not a rollback
	stored, err := users.FindUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 70.0, stored.Balance)
}

func TestVerifyBet(t *testing.T) {
	svc, _, bets, user := newGameFixture(100)

	result, err := svc.PlaceBet(context.Background(), user.ID, "lucky-four", 3, 20, "")
	require.NoError(t, err)

	verified, err := svc.VerifyBet(context.Background(), result.Bet.ID)
	require.NoError(t, err)
	assert.True(t, verified.IsValid)
	assert.Equal(t, result.Bet.Outcome, verified.Outcome)

	// a tampered record fails verification
	bets.mu.Lock()
	bets.bets[result.Bet.ID].Outcome = (result.Bet.Outcome + 1) % 4
	bets.mu.Unlock()

	verified, err = svc.VerifyBet(context.Background(), result.Bet.ID)
	require.NoError(t, err)
	assert.False(t, verified.IsValid)

	_, err = svc.VerifyBet(context.Background(), 999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
