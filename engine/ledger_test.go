package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserDefaultPassphraseIsAlias(t *testing.T) {
	u := NewUser(7, "trading-a", "", false)

	assert.True(t, u.Authenticate("trading-a", "trading-a"))
	assert.False(t, u.Authenticate("trading-a", "wrong"))
	assert.False(t, u.Authenticate("trading-b", "trading-a"))
}

func TestUserAddRemoveOrder(t *testing.T) {
	u := NewUser(1, "alice", "", false)
	ord := Order{ID: 10, UserID: 1, TickerID: 1, Side: Bid, Price: 100, Volume: 5}

	require.NoError(t, u.AddOrder(ord))
	assert.True(t, u.HasOrder(ord))
	assert.Equal(t, []uint64{10}, u.OrderIDs())

	err := u.AddOrder(ord)
	require.ErrorIs(t, err, ErrInconsistency)

	foreign := Order{ID: 11, UserID: 2, TickerID: 1, Side: Bid, Price: 100, Volume: 5}
	err = u.AddOrder(foreign)
	require.ErrorIs(t, err, ErrInconsistency)

	require.NoError(t, u.RemoveOrder(ord))
	assert.False(t, u.HasOrder(ord))
	err = u.RemoveOrder(ord)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFillOrderBidDebitsCashCreditsHoldings(t *testing.T) {
	u := NewUser(1, "alice", "", false)
	ord := Order{ID: 10, UserID: 1, TickerID: 3, Side: Bid, Price: 100, Volume: 10}
	require.NoError(t, u.AddOrder(ord))

	require.NoError(t, u.FillOrder(ord, 95, 4, Bid))

	assert.Equal(t, int64(-380), u.Cash())
	assert.Equal(t, int64(4), u.Holdings()[3])

	open, err := u.ViewOrder(10)
	require.NoError(t, err)
	assert.Equal(t, int64(6), open.Volume)
}

func TestFillOrderAskCreditsCashDebitsHoldings(t *testing.T) {
	u := NewUser(1, "bob", "", false)
	ord := Order{ID: 10, UserID: 1, TickerID: 3, Side: Ask, Price: 100, Volume: 4}
	require.NoError(t, u.AddOrder(ord))

	require.NoError(t, u.FillOrder(ord, 100, 4, Ask))

	assert.Equal(t, int64(400), u.Cash())
	assert.Equal(t, int64(-4), u.Holdings()[3])

	// fully filled order leaves the open index
	assert.False(t, u.HasOrder(ord))
	_, err := u.ViewOrder(10)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFillOrderOverfillIsInconsistency(t *testing.T) {
	u := NewUser(1, "alice", "", false)
	ord := Order{ID: 10, UserID: 1, TickerID: 3, Side: Bid, Price: 100, Volume: 2}
	require.NoError(t, u.AddOrder(ord))

	err := u.FillOrder(ord, 100, 5, Bid)
	require.ErrorIs(t, err, ErrInconsistency)

	err = u.FillOrder(Order{ID: 99, UserID: 1, TickerID: 3}, 100, 1, Bid)
	require.ErrorIs(t, err, ErrInconsistency)
}

func TestAssetsMarksToMarket(t *testing.T) {
	u := NewUser(1, "alice", "", false)
	ord := Order{ID: 10, UserID: 1, TickerID: 3, Side: Bid, Price: 100, Volume: 5}
	require.NoError(t, u.AddOrder(ord))
	require.NoError(t, u.FillOrder(ord, 100, 5, Bid))

	assets, err := u.Assets(map[uint64]int64{3: 120})
	require.NoError(t, err)
	// cash -500, holdings 5 @ 120
	assert.Equal(t, int64(100), assets)

	_, err = u.Assets(map[uint64]int64{})
	require.ErrorIs(t, err, ErrInconsistency)
}
