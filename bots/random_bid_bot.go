package bots

import (
	"context"
	"math/rand"

	"bourse/engine"
)

// RandomBidBot posts small bids at random prices just under the market.
type RandomBidBot struct {
	rng  *rand.Rand
	base int64
}

// NewRandomBidBot seeds the bot; base anchors pricing before any trade
// establishes a valuation.
func NewRandomBidBot(seed, base int64) *RandomBidBot {
	return &RandomBidBot{rng: rand.New(rand.NewSource(seed)), base: base}
}

func (b *RandomBidBot) Name() string { return "random-bid" }

func (b *RandomBidBot) Start(ctx context.Context, client *Client) {
	for client.Wait(ctx) {
		_, ask, last, _, hasAsk := client.Quote()

		anchor := last
		if anchor == 0 {
			anchor = b.base
		}
		if hasAsk && ask < anchor {
			anchor = ask
		}

		price := anchor - b.rng.Int63n(10)
		if price <= 0 {
			price = 1
		}
		volume := b.rng.Int63n(5) + 1
		ioc := b.rng.Intn(10) == 0

		client.Place(engine.Bid, price, volume, ioc)
	}
}
