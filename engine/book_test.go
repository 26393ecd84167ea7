package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookAddAndDepth(t *testing.T) {
	b := NewBook("PHILIPS_A", 1)

	b.AddOrder(Order{ID: 1, UserID: 1, TickerID: 1, Side: Bid, Price: 100, Volume: 5})
	b.AddOrder(Order{ID: 2, UserID: 2, TickerID: 1, Side: Bid, Price: 100, Volume: 3})
	b.AddOrder(Order{ID: 3, UserID: 3, TickerID: 1, Side: Ask, Price: 110, Volume: 7})

	depth := b.Depth()
	assert.Equal(t, int64(8), depth.Bids[100])
	assert.Equal(t, int64(7), depth.Asks[110])

	best, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, int64(100), best)
	best, ok = b.BestAsk()
	require.True(t, ok)
	assert.Equal(t, int64(110), best)
}

func TestMatchEmptyOppositeSide(t *testing.T) {
	b := NewBook("PHILIPS_A", 1)
	ids := NewIDs()

	agg := Order{ID: 1, UserID: 1, TickerID: 1, Side: Bid, Price: 100, Volume: 10}
	b.AddOrder(agg)

	require.Empty(t, b.Match(agg, ids))
}

func TestMatchFillsAtRestingPrice(t *testing.T) {
	b := NewBook("PHILIPS_A", 1)
	ids := NewIDs()

	resting := Order{ID: 1, UserID: 1, TickerID: 1, Side: Ask, Price: 95, Volume: 4}
	b.AddOrder(resting)

	agg := Order{ID: 2, UserID: 2, TickerID: 1, Side: Bid, Price: 100, Volume: 10}
	b.AddOrder(agg)

	txs := b.Match(agg, ids)
	require.Len(t, txs, 1)
	// price improvement goes to the aggressor
	assert.Equal(t, int64(95), txs[0].Price)
	assert.Equal(t, int64(4), txs[0].Volume)
	assert.Equal(t, Bid, txs[0].Aggressor)
	assert.Equal(t, uint64(2), txs[0].BidID)
	assert.Equal(t, uint64(1), txs[0].AskID)
	assert.Equal(t, uint64(2), txs[0].BidderID)
	assert.Equal(t, uint64(1), txs[0].AskerID)
	assert.Equal(t, uint64(1), txs[0].TickerID)
}

func TestMatchWalksLevelsByPriceThenTime(t *testing.T) {
	b := NewBook("PHILIPS_A", 1)
	ids := NewIDs()

	// two asks at 90 (order 1 admitted before order 2), one at 95
	b.AddOrder(Order{ID: 1, UserID: 1, TickerID: 1, Side: Ask, Price: 90, Volume: 2})
	b.AddOrder(Order{ID: 2, UserID: 2, TickerID: 1, Side: Ask, Price: 90, Volume: 2})
	b.AddOrder(Order{ID: 3, UserID: 3, TickerID: 1, Side: Ask, Price: 95, Volume: 5})

	agg := Order{ID: 4, UserID: 4, TickerID: 1, Side: Bid, Price: 95, Volume: 5}
	b.AddOrder(agg)

	txs := b.Match(agg, ids)
	require.Len(t, txs, 3)

	assert.Equal(t, uint64(1), txs[0].AskID)
	assert.Equal(t, int64(90), txs[0].Price)
	assert.Equal(t, int64(2), txs[0].Volume)

	assert.Equal(t, uint64(2), txs[1].AskID)
	assert.Equal(t, int64(90), txs[1].Price)
	assert.Equal(t, int64(2), txs[1].Volume)

	assert.Equal(t, uint64(3), txs[2].AskID)
	assert.Equal(t, int64(95), txs[2].Price)
	assert.Equal(t, int64(1), txs[2].Volume)

	// transaction ids are sequential in match order
	assert.Equal(t, uint64(1), txs[0].ID)
	assert.Equal(t, uint64(2), txs[1].ID)
	assert.Equal(t, uint64(3), txs[2].ID)
}

func TestMatchStopsAtPriceBound(t *testing.T) {
	b := NewBook("PHILIPS_A", 1)
	ids := NewIDs()

	b.AddOrder(Order{ID: 1, UserID: 1, TickerID: 1, Side: Bid, Price: 100, Volume: 5})
	b.AddOrder(Order{ID: 2, UserID: 2, TickerID: 1, Side: Bid, Price: 98, Volume: 5})

	agg := Order{ID: 3, UserID: 3, TickerID: 1, Side: Ask, Price: 99, Volume: 20}
	b.AddOrder(agg)

	txs := b.Match(agg, ids)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(100), txs[0].Price)
	assert.Equal(t, int64(5), txs[0].Volume)
	assert.Equal(t, uint64(1), txs[0].BidID)
	assert.Equal(t, Ask, txs[0].Aggressor)
}

func TestMatchDoesNotMutateBook(t *testing.T) {
	b := NewBook("PHILIPS_A", 1)
	ids := NewIDs()

	b.AddOrder(Order{ID: 1, UserID: 1, TickerID: 1, Side: Ask, Price: 90, Volume: 4})
	agg := Order{ID: 2, UserID: 2, TickerID: 1, Side: Bid, Price: 90, Volume: 4}
	b.AddOrder(agg)

	_ = b.Match(agg, ids)

	depth := b.Depth()
	assert.Equal(t, int64(4), depth.Asks[90])
	assert.Equal(t, int64(4), depth.Bids[90])
}

func TestProcessTransactionReducesAndRemoves(t *testing.T) {
	b := NewBook("PHILIPS_A", 1)
	ids := NewIDs()

	b.AddOrder(Order{ID: 1, UserID: 1, TickerID: 1, Side: Ask, Price: 90, Volume: 4})
	agg := Order{ID: 2, UserID: 2, TickerID: 1, Side: Bid, Price: 95, Volume: 10}
	b.AddOrder(agg)

	txs := b.Match(agg, ids)
	require.Len(t, txs, 1)
	require.NoError(t, b.ProcessTransaction(agg, txs[0]))

	// ask fully filled: order and level gone
	depth := b.Depth()
	_, ok := depth.Asks[90]
	assert.False(t, ok)
	// aggressor partially filled, rests with the remainder
	assert.Equal(t, int64(6), depth.Bids[95])

	assert.Equal(t, int64(90), b.Valuation())
}

func TestProcessTransactionFullFillRemovesAggressor(t *testing.T) {
	b := NewBook("PHILIPS_A", 1)
	ids := NewIDs()

	b.AddOrder(Order{ID: 1, UserID: 1, TickerID: 1, Side: Ask, Price: 90, Volume: 10})
	agg := Order{ID: 2, UserID: 2, TickerID: 1, Side: Bid, Price: 90, Volume: 10}
	b.AddOrder(agg)

	txs := b.Match(agg, ids)
	require.Len(t, txs, 1)
	require.NoError(t, b.ProcessTransaction(agg, txs[0]))

	depth := b.Depth()
	assert.Empty(t, depth.Bids)
	assert.Empty(t, depth.Asks)
	assert.False(t, b.HasOrder(agg))
}

func TestProcessTransactionMissingOrderIsInconsistency(t *testing.T) {
	b := NewBook("PHILIPS_A", 1)

	agg := Order{ID: 2, UserID: 2, TickerID: 1, Side: Bid, Price: 95, Volume: 10}
	err := b.ProcessTransaction(agg, Transaction{
		ID: 1, Aggressor: Bid, Volume: 5, Price: 90, BidID: 2, AskID: 1,
	})
	require.ErrorIs(t, err, ErrInconsistency)
	assert.Equal(t, int64(0), b.Valuation())
}

func TestCancelOrder(t *testing.T) {
	b := NewBook("PHILIPS_A", 1)

	ord := Order{ID: 1, UserID: 1, TickerID: 1, Side: Bid, Price: 100, Volume: 5}
	b.AddOrder(ord)
	require.True(t, b.HasOrder(ord))

	require.NoError(t, b.CancelOrder(ord))
	assert.False(t, b.HasOrder(ord))
	assert.Empty(t, b.Depth().Bids)

	err := b.CancelOrder(ord)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCancelKeepsRemainingLevelOrders(t *testing.T) {
	b := NewBook("PHILIPS_A", 1)

	first := Order{ID: 1, UserID: 1, TickerID: 1, Side: Ask, Price: 100, Volume: 5}
	second := Order{ID: 2, UserID: 2, TickerID: 1, Side: Ask, Price: 100, Volume: 3}
	b.AddOrder(first)
	b.AddOrder(second)

	require.NoError(t, b.CancelOrder(first))
	assert.False(t, b.HasOrder(first))
	assert.True(t, b.HasOrder(second))
	assert.Equal(t, int64(3), b.Depth().Asks[100])
}
