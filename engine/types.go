package engine

// Side represents the direction of an order.
type Side int

const (
	// Bid indicates a buy order.
	Bid Side = iota
	// Ask indicates a sell order.
	Ask
)

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

func (s Side) String() string {
	if s == Bid {
		return "BID"
	}
	return "ASK"
}

// Order describes one resting or aggressing limit order. Prices are
// expressed in ticks (hundredths of a currency unit) and volume counts
// whole shares. Volume is strictly positive for as long as the order is
// present anywhere; an order filled down to zero is removed outright.
type Order struct {
	ID       uint64
	UserID   uint64
	TickerID uint64
	Side     Side
	Price    int64
	Volume   int64
}

// Transaction records one executed fill between a bid and an ask.
// Transactions are immutable once created and accumulate in the
// exchange's chronological log.
type Transaction struct {
	ID        uint64
	Aggressor Side
	Volume    int64
	Price     int64
	BidID     uint64
	AskID     uint64
	BidderID  uint64
	AskerID   uint64
	TickerID  uint64
}

// Depth aggregates resting volume per price on each side of a book.
type Depth struct {
	Bids map[int64]int64
	Asks map[int64]int64
}

// TickerSpec declares one tradable instrument at exchange construction.
type TickerSpec struct {
	ID    uint64
	Alias string
}

// AccountSpec declares one trading account at exchange construction.
// An empty passphrase defaults to the account alias.
type AccountSpec struct {
	ID         uint64
	Alias      string
	Passphrase string
	Admin      bool
}
