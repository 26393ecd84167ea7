package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bourse/engine"
	"bourse/metrics"
)

func newTestServer(t *testing.T) (*Server, *engine.Exchange) {
	t.Helper()
	exchange, err := engine.NewExchange(
		[]engine.TickerSpec{{ID: 1, Alias: "PHILIPS_A"}},
		[]engine.AccountSpec{{ID: 1, Alias: "A"}, {ID: 2, Alias: "B"}},
	)
	require.NoError(t, err)

	srv := New(exchange, Options{
		ListenAddr:    ":0",
		TickInterval:  time.Millisecond,
		AdminInterval: time.Second,
		AuthGrace:     time.Second,
	}, zap.NewNop(), metrics.New())
	return srv, exchange
}

func TestTickAppliesQueuedCommandsInOrder(t *testing.T) {
	srv, exchange := newTestServer(t)

	srv.Submit(1, "PHILIPS_A", engine.Bid, 100, 10, false)
	srv.Submit(2, "PHILIPS_A", engine.Ask, 100, 4, false)

	// nothing applied until a tick drains the queue
	book, _ := exchange.Ticker(1)
	assert.Empty(t, book.Depth().Bids)

	srv.tick()

	assert.Equal(t, int64(6), book.Depth().Bids[100])
	assert.Equal(t, int64(100), book.Valuation())

	a, _ := exchange.User(1)
	assert.Equal(t, int64(-400), a.Cash())
}

func TestTickConsumesTradesOnce(t *testing.T) {
	srv, exchange := newTestServer(t)

	srv.Submit(1, "PHILIPS_A", engine.Bid, 100, 5, false)
	srv.Submit(2, "PHILIPS_A", engine.Ask, 100, 5, false)
	srv.tick()

	// the trade was drained into the broadcast, not left in the log
	assert.Empty(t, exchange.Transactions())

	srv.tick()
	assert.Empty(t, exchange.Transactions())
}

func TestApplyRejectsWithoutSession(t *testing.T) {
	srv, exchange := newTestServer(t)

	// unknown ticker and unknown user must not panic with no live session
	srv.enqueue(command{userID: 1, act: orderAction{Ticker: "NOPE", Side: engine.Bid, Price: 1, Volume: 1}})
	srv.enqueue(command{userID: 42, act: orderAction{Ticker: "PHILIPS_A", Side: engine.Bid, Price: 1, Volume: 1}})
	srv.enqueue(command{userID: 42, act: cancelAction{}})
	srv.tick()

	book, _ := exchange.Ticker(1)
	assert.Empty(t, book.Depth().Bids)
	assert.Empty(t, book.Depth().Asks)
}

func TestCancelActionScopes(t *testing.T) {
	srv, exchange := newTestServer(t)

	srv.Submit(1, "PHILIPS_A", engine.Bid, 100, 10, false)
	srv.tick()

	srv.enqueue(command{userID: 1, act: cancelAction{Ticker: "PHILIPS_A"}})
	srv.tick()

	a, _ := exchange.User(1)
	assert.Empty(t, a.OrderIDs())
	book, _ := exchange.Ticker(1)
	assert.Empty(t, book.Depth().Bids)
}

func TestQuote(t *testing.T) {
	srv, _ := newTestServer(t)

	srv.Submit(1, "PHILIPS_A", engine.Bid, 98, 5, false)
	srv.Submit(2, "PHILIPS_A", engine.Ask, 102, 5, false)
	srv.tick()

	bid, ask, last, hasBid, hasAsk := srv.Quote("PHILIPS_A")
	require.True(t, hasBid)
	require.True(t, hasAsk)
	assert.Equal(t, int64(98), bid)
	assert.Equal(t, int64(102), ask)
	assert.Equal(t, int64(0), last)

	_, _, _, hasBid, hasAsk = srv.Quote("NOPE")
	assert.False(t, hasBid)
	assert.False(t, hasAsk)
}

func TestHubDropsSlowSubscribers(t *testing.T) {
	h := newHub[int]()
	sub := h.Subscribe(1)
	defer h.Unsubscribe(sub)

	h.Broadcast(1)
	h.Broadcast(2) // dropped, buffer full

	assert.Equal(t, 1, <-sub.ch)
	select {
	case v := <-sub.ch:
		t.Fatalf("unexpected value %d", v)
	default:
	}
}
