package bots

import (
	"context"
	"math/rand"

	"bourse/engine"
)

// RandomAskBot posts small asks at random prices just over the market.
type RandomAskBot struct {
	rng  *rand.Rand
	base int64
}

// NewRandomAskBot seeds the bot; base anchors pricing before any trade
// establishes a valuation.
func NewRandomAskBot(seed, base int64) *RandomAskBot {
	return &RandomAskBot{rng: rand.New(rand.NewSource(seed)), base: base}
}

func (b *RandomAskBot) Name() string { return "random-ask" }

func (b *RandomAskBot) Start(ctx context.Context, client *Client) {
	for client.Wait(ctx) {
		bid, _, last, hasBid, _ := client.Quote()

		anchor := last
		if anchor == 0 {
			anchor = b.base
		}
		if hasBid && bid > anchor {
			anchor = bid
		}

		price := anchor + b.rng.Int63n(10)
		if price <= 0 {
			price = 1
		}
		volume := b.rng.Int63n(5) + 1
		ioc := b.rng.Intn(10) == 0

		client.Place(engine.Ask, price, volume, ioc)
	}
}
