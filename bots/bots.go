// Package bots runs in-process liquidity bots against the exchange. Bots
// submit through the same scheduler queue as network clients, so their
// orders interleave with real traffic under the same single-writer
// discipline.
package bots

import (
	"context"
	"time"

	"bourse/engine"
)

// Trader is the narrow view of the server the bots trade through.
type Trader interface {
	Submit(userID uint64, ticker string, side engine.Side, price, volume int64, ioc bool)
	Quote(ticker string) (bid, ask, last int64, hasBid, hasAsk bool)
}

// Bot places orders for one account until its context is canceled.
type Bot interface {
	Name() string
	Start(ctx context.Context, client *Client)
}

// Client binds one bot to one account, one ticker and a shared throttle.
type Client struct {
	UserID   uint64
	Ticker   string
	trader   Trader
	throttle <-chan time.Time
}

// NewClient builds a client over the trader; all bots sharing the
// throttle channel take turns on it.
func NewClient(trader Trader, userID uint64, ticker string, throttle <-chan time.Time) *Client {
	return &Client{UserID: userID, Ticker: ticker, trader: trader, throttle: throttle}
}

// Wait blocks until the next throttle slot or cancellation.
func (c *Client) Wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-c.throttle:
		return true
	}
}

// Place submits a limit order for the bot's account.
func (c *Client) Place(side engine.Side, price, volume int64, ioc bool) {
	c.trader.Submit(c.UserID, c.Ticker, side, price, volume, ioc)
}

// Quote reads the bot's market.
func (c *Client) Quote() (bid, ask, last int64, hasBid, hasAsk bool) {
	return c.trader.Quote(c.Ticker)
}
