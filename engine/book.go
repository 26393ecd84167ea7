package engine

import (
	"fmt"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
)

// level is the FIFO queue of resting orders sharing one side and one
// price. Orders at the front were admitted earlier and fill first.
type level struct {
	orders []Order
}

func (l *level) volume() int64 {
	var total int64
	for _, ord := range l.orders {
		total += ord.Volume
	}
	return total
}

// Book holds the resting bids and asks for a single ticker. Price levels
// live in ordered maps keyed by price; a price key is present only while
// its queue is non-empty. Outside of an in-progress match the book is
// never crossed: best bid below best ask, or one side empty.
//
// The book carries no locking. Callers serialize every mutating call, see
// Exchange.
type Book struct {
	alias string
	id    uint64

	bids *treemap.Map // price -> *level, ascending
	asks *treemap.Map

	// last traded price, 0 before the first trade
	valuation int64
}

// NewBook returns an empty book for one ticker.
func NewBook(alias string, id uint64) *Book {
	return &Book{
		alias: alias,
		id:    id,
		bids:  treemap.NewWith(utils.Int64Comparator),
		asks:  treemap.NewWith(utils.Int64Comparator),
	}
}

// Alias returns the ticker's display name.
func (b *Book) Alias() string { return b.alias }

// ID returns the ticker id.
func (b *Book) ID() uint64 { return b.id }

// Valuation returns the last traded price, or 0 before any trade.
func (b *Book) Valuation() int64 { return b.valuation }

func (b *Book) sideLevels(s Side) *treemap.Map {
	if s == Bid {
		return b.bids
	}
	return b.asks
}

// AddOrder appends the order to the tail of the queue at its price on the
// matching side. No matching happens here.
func (b *Book) AddOrder(ord Order) {
	levels := b.sideLevels(ord.Side)
	if v, ok := levels.Get(ord.Price); ok {
		lvl := v.(*level)
		lvl.orders = append(lvl.orders, ord)
		return
	}
	levels.Put(ord.Price, &level{orders: []Order{ord}})
}

// Match computes the transactions triggered by the aggressor without
// mutating the book. The walk honours price-time priority: better
// opposite-side prices first, then admission order within a level. Fills
// execute at the resting order's price, so any price improvement goes to
// the aggressor. The aggressor itself is an ordinary queue entry at its
// own price; only the opposite side is consulted, and the walk stops the
// moment the aggressor's volume is exhausted or no level qualifies.
func (b *Book) Match(aggressor Order, ids *IDs) []Transaction {
	var txs []Transaction
	remaining := aggressor.Volume

	walk := func(price int64, lvl *level) bool {
		for _, resting := range lvl.orders {
			if remaining == 0 {
				return false
			}
			volume := min(remaining, resting.Volume)
			txs = append(txs, b.newTransaction(ids, aggressor, resting, price, volume))
			remaining -= volume
		}
		return remaining > 0
	}

	if aggressor.Side == Bid {
		it := b.asks.Iterator()
		for it.Next() {
			price := it.Key().(int64)
			if price > aggressor.Price {
				break
			}
			if !walk(price, it.Value().(*level)) {
				break
			}
		}
	} else {
		it := b.bids.Iterator()
		for it.End(); it.Prev(); {
			price := it.Key().(int64)
			if price < aggressor.Price {
				break
			}
			if !walk(price, it.Value().(*level)) {
				break
			}
		}
	}
	return txs
}

func (b *Book) newTransaction(ids *IDs, aggressor, resting Order, price, volume int64) Transaction {
	t := Transaction{
		ID:        ids.Next(CategoryTransaction),
		Aggressor: aggressor.Side,
		Volume:    volume,
		Price:     price,
		TickerID:  b.id,
	}
	if aggressor.Side == Bid {
		t.BidID, t.AskID = aggressor.ID, resting.ID
		t.BidderID, t.AskerID = aggressor.UserID, resting.UserID
	} else {
		t.BidID, t.AskID = resting.ID, aggressor.ID
		t.BidderID, t.AskerID = resting.UserID, aggressor.UserID
	}
	return t
}

// ProcessTransaction applies one transaction produced by Match: both
// participating orders are reduced by the transacted volume and removed,
// along with their price level if emptied, on reaching zero. The
// last-traded valuation moves to the transaction price.
func (b *Book) ProcessTransaction(aggressor Order, t Transaction) error {
	restingID := t.AskID
	if t.Aggressor == Ask {
		restingID = t.BidID
	}

	if err := b.reduce(t.Aggressor.Opposite(), t.Price, restingID, t.Volume); err != nil {
		return err
	}
	if err := b.reduce(aggressor.Side, aggressor.Price, aggressor.ID, t.Volume); err != nil {
		return err
	}
	b.valuation = t.Price
	return nil
}

func (b *Book) reduce(s Side, price int64, orderID uint64, volume int64) error {
	levels := b.sideLevels(s)
	v, ok := levels.Get(price)
	if !ok {
		return fmt.Errorf("%w: %s: no %s level at %d for order %d",
			ErrInconsistency, b.alias, s, price, orderID)
	}
	lvl := v.(*level)
	for i := range lvl.orders {
		if lvl.orders[i].ID != orderID {
			continue
		}
		if lvl.orders[i].Volume < volume {
			return fmt.Errorf("%w: %s: order %d volume %d below fill %d",
				ErrInconsistency, b.alias, orderID, lvl.orders[i].Volume, volume)
		}
		lvl.orders[i].Volume -= volume
		if lvl.orders[i].Volume == 0 {
			lvl.orders = append(lvl.orders[:i], lvl.orders[i+1:]...)
			if len(lvl.orders) == 0 {
				levels.Remove(price)
			}
		}
		return nil
	}
	return fmt.Errorf("%w: %s: order %d absent from %s level %d",
		ErrInconsistency, b.alias, orderID, s, price)
}

// CancelOrder removes the order from the queue at its price, dropping the
// price level if it empties. Returns ErrNotFound when absent.
func (b *Book) CancelOrder(ord Order) error {
	levels := b.sideLevels(ord.Side)
	v, ok := levels.Get(ord.Price)
	if !ok {
		return fmt.Errorf("%w: order %d on %s %s level %d",
			ErrNotFound, ord.ID, b.alias, ord.Side, ord.Price)
	}
	lvl := v.(*level)
	for i := range lvl.orders {
		if lvl.orders[i].ID != ord.ID {
			continue
		}
		lvl.orders = append(lvl.orders[:i], lvl.orders[i+1:]...)
		if len(lvl.orders) == 0 {
			levels.Remove(ord.Price)
		}
		return nil
	}
	return fmt.Errorf("%w: order %d on %s %s level %d",
		ErrNotFound, ord.ID, b.alias, ord.Side, ord.Price)
}

// HasOrder reports whether the order rests in the book at its stated
// price and side.
func (b *Book) HasOrder(ord Order) bool {
	v, ok := b.sideLevels(ord.Side).Get(ord.Price)
	if !ok {
		return false
	}
	for _, o := range v.(*level).orders {
		if o.ID == ord.ID {
			return true
		}
	}
	return false
}

// BestBid returns the highest resting bid price.
func (b *Book) BestBid() (int64, bool) {
	price, _ := b.bids.Max()
	if price == nil {
		return 0, false
	}
	return price.(int64), true
}

// BestAsk returns the lowest resting ask price.
func (b *Book) BestAsk() (int64, bool) {
	price, _ := b.asks.Min()
	if price == nil {
		return 0, false
	}
	return price.(int64), true
}

// Depth returns the aggregate resting volume per price on each side.
func (b *Book) Depth() Depth {
	d := Depth{
		Bids: make(map[int64]int64, b.bids.Size()),
		Asks: make(map[int64]int64, b.asks.Size()),
	}
	it := b.bids.Iterator()
	for it.Next() {
		d.Bids[it.Key().(int64)] = it.Value().(*level).volume()
	}
	it = b.asks.Iterator()
	for it.Next() {
		d.Asks[it.Key().(int64)] = it.Value().(*level).volume()
	}
	return d
}
