package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const reminderKeyPrefix = "auction:reminded:"

// ReminderLedger implements domain.ReminderLedger with SETNX, so replicas
// sharing one Redis never send the same start reminder twice.
type ReminderLedger struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewReminderLedger(client *redis.Client, ttl time.Duration) *ReminderLedger {
	return &ReminderLedger{Client: client, TTL: ttl}
}

func (l *ReminderLedger) MarkReminded(ctx context.Context, auctionID uuid.UUID) (bool, error) {
	ok, err := l.Client.SetNX(ctx, reminderKeyPrefix+auctionID.String(), time.Now().UTC().Format(time.RFC3339), l.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("mark auction %s reminded: %w", auctionID, err)
	}
	return ok, nil
}
