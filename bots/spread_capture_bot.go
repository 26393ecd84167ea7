package bots

import (
	"context"
	"math/rand"

	"bourse/engine"
)

// SpreadCaptureBot quotes both sides inside a wide spread, earning the
// difference when both quotes fill.
type SpreadCaptureBot struct {
	rng       *rand.Rand
	minSpread int64
}

// NewSpreadCaptureBot quotes only when the spread is wider than
// minSpread ticks.
func NewSpreadCaptureBot(seed, minSpread int64) *SpreadCaptureBot {
	if minSpread < 2 {
		minSpread = 2
	}
	return &SpreadCaptureBot{rng: rand.New(rand.NewSource(seed)), minSpread: minSpread}
}

func (b *SpreadCaptureBot) Name() string { return "spread-capture" }

func (b *SpreadCaptureBot) Start(ctx context.Context, client *Client) {
	for client.Wait(ctx) {
		bid, ask, _, hasBid, hasAsk := client.Quote()
		if !hasBid || !hasAsk {
			continue
		}
		if ask-bid <= b.minSpread {
			continue
		}

		volume := b.rng.Int63n(3) + 1
		client.Place(engine.Bid, bid+1, volume, false)
		client.Place(engine.Ask, ask-1, volume, false)
	}
}
