package services

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"careerclips-backend/internal/models"
)

// UserChannel is the Redis pub/sub channel carrying a user's status updates.
func UserChannel(userID uuid.UUID) string {
	return "user_updates:" + userID.String()
}

// StatusPublisher fans enrichment updates out to WebSocket hubs via Redis.
type StatusPublisher struct {
	redis *redis.Client
}

func NewStatusPublisher(client *redis.Client) *StatusPublisher {
	return &StatusPublisher{redis: client}
}

func (p *StatusPublisher) Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to encode %s update for user %s: %v", msg.Type, userID, err)
		return
	}
	if err := p.redis.Publish(ctx, UserChannel(userID), data).Err(); err != nil {
		log.Printf("Failed to publish %s update for user %s: %v", msg.Type, userID, err)
	}
}
