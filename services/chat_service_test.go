package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"betpulse/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatStore struct {
	mu       sync.Mutex
	messages []models.ChatMessage
}

func (s *fakeChatStore) CreateChatMessage(ctx context.Context, m *models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.CreatedAt = time.Now()
	s.messages = append(s.messages, *m)
	return nil
}

func (s *fakeChatStore) ListChatMessages(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := 0
	if len(s.messages) > limit {
		start = len(s.messages) - limit
	}
	out := make([]models.ChatMessage, len(s.messages)-start)
	copy(out, s.messages[start:])
	return out, nil
}

func TestPostMessage(t *testing.T) {
	store := &fakeChatStore{}
	svc := NewChatService(store, nil)

	userID := int64(7)
	msg, err := svc.PostMessage(context.Background(), &userID, "player@test.local", "  hello lobby  ")
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "hello lobby", msg.Message)
	assert.Equal(t, "player@test.local", msg.Author)
	require.NotNil(t, msg.UserID)
	assert.Equal(t, int64(7), *msg.UserID)
}

func TestPostMessageValidation(t *testing.T) {
	svc := NewChatService(&fakeChatStore{}, nil)

	_, err := svc.PostMessage(context.Background(), nil, "a", "   ")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	// oversized messages are truncated, not rejected
	long := strings.Repeat("x", 2000)
	msg, err := svc.PostMessage(context.Background(), nil, "", long)
	require.NoError(t, err)
	assert.Len(t, msg.Message, 500)
	assert.Equal(t, "anonymous", msg.Author)
}

func TestHistory(t *testing.T) {
	store := &fakeChatStore{}
	svc := NewChatService(store, nil)

	for i := 0; i < 60; i++ {
		_, err := svc.PostMessage(context.Background(), nil, "a", "msg")
		require.NoError(t, err)
	}

	history, err := svc.History(context.Background())
	require.NoError(t, err)
	assert.Len(t, history, 50)
}
