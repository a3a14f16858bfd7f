package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"betpulse/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	chatChannel        = "betpulse:chat"
	chatHistoryLimit   = 50
	chatMaxMessageSize = 500
)

// ChatService persists lobby messages and fans them out over Redis so
// every gateway instance sees every message regardless of which instance
// the author is connected to.
type ChatService struct {
	store ChatStore
	rdb   *redis.Client
}

func NewChatService(store ChatStore, rdb *redis.Client) *ChatService {
	return &ChatService{store: store, rdb: rdb}
}

// PostMessage stores the message and publishes it on the chat channel.
func (s *ChatService) PostMessage(ctx context.Context, userID *int64, author, text string) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty message: %w", models.ErrInvalidArgument)
	}
	if len(text) > chatMaxMessageSize {
		text = text[:chatMaxMessageSize]
	}
	if author == "" {
		author = "anonymous"
	}

	msg := &models.ChatMessage{
		ID:      uuid.NewString(),
		UserID:  userID,
		Author:  author,
		Message: text,
	}
	if err := s.store.CreateChatMessage(ctx, msg); err != nil {
		return nil, err
	}

	if s.rdb != nil {
		payload, err := json.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("failed to encode chat message: %w", err)
		}
		if err := s.rdb.Publish(ctx, chatChannel, payload).Err(); err != nil {
			// the message is durable, delivery to other gateways is best effort
			logrus.Warnf("failed to publish chat message %s: %v", msg.ID, err)
		}
	}
	return msg, nil
}

// History returns the most recent messages, oldest first.
func (s *ChatService) History(ctx context.Context) ([]models.ChatMessage, error) {
	return s.store.ListChatMessages(ctx, chatHistoryLimit)
}

// Subscribe delivers messages published by any gateway instance to fn
// until the context is cancelled.
func (s *ChatService) Subscribe(ctx context.Context, fn func(models.ChatMessage)) error {
	if s.rdb == nil {
		return fmt.Errorf("chat subscription requires redis")
	}
	sub := s.rdb.Subscribe(ctx, chatChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-ch:
			if !ok {
				return nil
			}
			var msg models.ChatMessage
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				logrus.Warnf("dropping malformed chat payload: %v", err)
				continue
			}
			fn(msg)
		}
	}
}
