package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/maverick16108/atlas/internal/auction/domain"
	"github.com/maverick16108/atlas/internal/shared/websocket"
)

// Notifier pushes domain events to the auction rooms of the hub. A
// participant outcome only reaches the bidder it concerns.
type Notifier struct {
	hub *websocket.Hub
}

func NewNotifier(hub *websocket.Hub) *Notifier {
	return &Notifier{hub: hub}
}

func (n *Notifier) Name() string { return "websocket" }

// Send implements eventbus.Sink.
func (n *Notifier) Send(_ context.Context, event domain.Event) error {
	data, err := encodeEvent(event)
	if err != nil {
		return err
	}
	room := event.AuctionKey().String()
	if outcome, ok := event.(domain.ParticipantOutcome); ok {
		n.hub.SendToUser(room, outcome.BidderID.String(), data)
		return nil
	}
	n.hub.BroadcastToAuction(room, data)
	return nil
}

func encodeEvent(event domain.Event) ([]byte, error) {
	data, err := json.Marshal(ServerEventMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerEvent},
		Event:       string(event.Name()),
		Payload:     event,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", event.Name(), err)
	}
	return data, nil
}
