package services

import (
	"context"
	"fmt"
	"time"

	"betpulse/models"
)

var matchStatuses = map[string]bool{
	"scheduled": true,
	"live":      true,
	"suspended": true,
	"settled":   true,
}

// FootballService manages the pre-match catalogue: fixtures, their
// lifecycle status and recorded results.
type FootballService struct {
	matches MatchStore
}

func NewFootballService(matches MatchStore) *FootballService {
	return &FootballService{matches: matches}
}

func (s *FootballService) CreateMatch(ctx context.Context, league, home, away string, kickoff time.Time, market map[string]interface{}) (*models.FootballMatch, error) {
	if league == "" || home == "" || away == "" {
		return nil, fmt.Errorf("league and both teams are required: %w", models.ErrInvalidArgument)
	}
	if kickoff.Before(time.Now()) {
		return nil, fmt.Errorf("kickoff must be in the future: %w", models.ErrInvalidArgument)
	}
	m := &models.FootballMatch{
		League:   league,
		HomeTeam: home,
		AwayTeam: away,
		Kickoff:  kickoff,
		Market:   market,
	}
	if err := s.matches.CreateMatch(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *FootballService) GetMatch(ctx context.Context, id int64) (*models.FootballMatch, error) {
	return s.matches.FindMatchByID(ctx, id)
}

func (s *FootballService) ListMatches(ctx context.Context, status string) ([]models.FootballMatch, error) {
	if status != "" && !matchStatuses[status] {
		return nil, fmt.Errorf("unknown match status %q: %w", status, models.ErrInvalidArgument)
	}
	return s.matches.ListMatches(ctx, status)
}

func (s *FootballService) SetMatchStatus(ctx context.Context, id int64, status string) (*models.FootballMatch, error) {
	if !matchStatuses[status] {
		return nil, fmt.Errorf("unknown match status %q: %w", status, models.ErrInvalidArgument)
	}
	return s.matches.UpdateMatchStatus(ctx, id, status)
}

// RecordResult stores the final score and settles the fixture.
func (s *FootballService) RecordResult(ctx context.Context, id int64, result map[string]interface{}) (*models.FootballMatch, error) {
	if len(result) == 0 {
		return nil, fmt.Errorf("result payload is required: %w", models.ErrInvalidArgument)
	}
	match, err := s.matches.FindMatchByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if match.Status == "settled" {
		return nil, fmt.Errorf("match already settled: %w", models.ErrInvalidState)
	}
	return s.matches.RecordMatchResult(ctx, id, result)
}
