package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// ReminderLedger implements domain.ReminderLedger for a single process.
type ReminderLedger struct {
	mu   sync.Mutex
	seen map[uuid.UUID]bool
}

func NewReminderLedger() *ReminderLedger {
	return &ReminderLedger{seen: make(map[uuid.UUID]bool)}
}

func (l *ReminderLedger) MarkReminded(_ context.Context, auctionID uuid.UUID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seen[auctionID] {
		return false, nil
	}
	l.seen[auctionID] = true
	return true, nil
}
