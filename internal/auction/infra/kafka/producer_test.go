package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/maverick16108/atlas/internal/auction/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMessage(t *testing.T) {
	auctionID := uuid.New()
	event := domain.BidPlaced{
		AuctionID: auctionID,
		BidID:     uuid.New(),
		BidderID:  uuid.New(),
		Amount:    decimal.RequireFromString("95.50"),
		BarCount:  8,
		IsGPB:     true,
		CreatedAt: time.Date(2026, 3, 2, 11, 5, 0, 0, time.UTC),
	}

	msg, err := encodeMessage(event)
	require.NoError(t, err)

	assert.Equal(t, auctionID.String(), string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event", msg.Headers[0].Key)
	assert.Equal(t, "bid_placed", string(msg.Headers[0].Value))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "95.5", body["amount"])
	assert.Equal(t, float64(8), body["bar_count"])
	assert.Equal(t, true, body["is_gpb"])
}
