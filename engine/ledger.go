package engine

import (
	"fmt"
	"sort"
)

// User is one trading account: cash, per-ticker holdings, and the index
// of the account's orders still resting in some book. The open-order
// index mirrors the books exactly; every book-side fill or cancel is
// applied here in the same step.
//
// Cash and holdings are signed. An account may go cash-negative or hold
// negative shares; the engine performs no margin checks.
type User struct {
	id         uint64
	alias      string
	passphrase string
	admin      bool

	cash     int64
	holdings map[uint64]int64
	orders   map[uint64]Order
}

// NewUser creates an account. An empty passphrase defaults to the alias.
func NewUser(id uint64, alias, passphrase string, admin bool) *User {
	if passphrase == "" {
		passphrase = alias
	}
	return &User{
		id:         id,
		alias:      alias,
		passphrase: passphrase,
		admin:      admin,
		holdings:   make(map[uint64]int64),
		orders:     make(map[uint64]Order),
	}
}

// ID returns the account id.
func (u *User) ID() uint64 { return u.id }

// Alias returns the account name.
func (u *User) Alias() string { return u.alias }

// Admin reports whether the account receives privileged snapshots.
func (u *User) Admin() bool { return u.admin }

// Cash returns the account's cash balance in ticks.
func (u *User) Cash() int64 { return u.cash }

// Holdings returns a copy of the account's per-ticker share counts.
func (u *User) Holdings() map[uint64]int64 {
	out := make(map[uint64]int64, len(u.holdings))
	for ticker, volume := range u.holdings {
		out[ticker] = volume
	}
	return out
}

// Authenticate reports whether the supplied credentials match.
func (u *User) Authenticate(name, passphrase string) bool {
	return u.alias == name && u.passphrase == passphrase
}

// AddOrder registers a freshly created order as open.
func (u *User) AddOrder(ord Order) error {
	if ord.UserID != u.id {
		return fmt.Errorf("%w: order %d belongs to user %d, not %d",
			ErrInconsistency, ord.ID, ord.UserID, u.id)
	}
	if _, ok := u.orders[ord.ID]; ok {
		return fmt.Errorf("%w: order %d already open for user %d",
			ErrInconsistency, ord.ID, u.id)
	}
	u.orders[ord.ID] = ord
	return nil
}

// RemoveOrder erases an open order, as on cancel or IOC discard.
func (u *User) RemoveOrder(ord Order) error {
	if _, ok := u.orders[ord.ID]; !ok {
		return fmt.Errorf("%w: order %d not open for user %d", ErrNotFound, ord.ID, u.id)
	}
	delete(u.orders, ord.ID)
	return nil
}

// FillOrder applies one fill's economic effect to the account and
// decrements the open order, removing it when fully filled. A Bid fill
// buys: cash down by price*volume, holdings up by volume. An Ask fill is
// the mirror image, so each trade transfers cash and shares zero-sum
// between its two counterparties.
func (u *User) FillOrder(ord Order, price, volume int64, s Side) error {
	open, ok := u.orders[ord.ID]
	if !ok {
		return fmt.Errorf("%w: order %d not open for user %d",
			ErrInconsistency, ord.ID, u.id)
	}
	if open.Volume < volume {
		return fmt.Errorf("%w: order %d open volume %d below fill %d",
			ErrInconsistency, ord.ID, open.Volume, volume)
	}

	if s == Bid {
		u.cash -= price * volume
		u.holdings[ord.TickerID] += volume
	} else {
		u.cash += price * volume
		u.holdings[ord.TickerID] -= volume
	}

	open.Volume -= volume
	if open.Volume == 0 {
		delete(u.orders, ord.ID)
		return nil
	}
	u.orders[ord.ID] = open
	return nil
}

// ViewOrder returns the open order with the given id.
func (u *User) ViewOrder(orderID uint64) (Order, error) {
	ord, ok := u.orders[orderID]
	if !ok {
		return Order{}, fmt.Errorf("%w: order %d not open for user %d",
			ErrNotFound, orderID, u.id)
	}
	return ord, nil
}

// OrderIDs returns the account's open order ids in ascending order.
func (u *User) OrderIDs() []uint64 {
	ids := make([]uint64, 0, len(u.orders))
	for id := range u.orders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// HasOrder reports whether the order is open for this account.
func (u *User) HasOrder(ord Order) bool {
	_, ok := u.orders[ord.ID]
	return ok
}

// Assets marks the account to market: cash plus holdings at the supplied
// valuations. Every held ticker must have a valuation entry.
func (u *User) Assets(valuations map[uint64]int64) (int64, error) {
	total := u.cash
	for ticker, volume := range u.holdings {
		price, ok := valuations[ticker]
		if !ok {
			return 0, fmt.Errorf("%w: no valuation for ticker %d held by user %d",
				ErrInconsistency, ticker, u.id)
		}
		total += volume * price
	}
	return total, nil
}
