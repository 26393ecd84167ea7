package engine

import (
	"fmt"
	"sort"
	"strings"
)

// Operator-facing text dumps. These are debug output, not a stable
// interface; nothing parses them.

func (o Order) String() string {
	return fmt.Sprintf("order %d: user %d %s %d @ %d on ticker %d",
		o.ID, o.UserID, o.Side, o.Volume, o.Price, o.TickerID)
}

func (t Transaction) String() string {
	return fmt.Sprintf("txn %d: %s aggressor, %d @ %d, bid %d (user %d) / ask %d (user %d), ticker %d",
		t.ID, t.Aggressor, t.Volume, t.Price, t.BidID, t.BidderID, t.AskID, t.AskerID, t.TickerID)
}

// ReprOrderBook renders the book as a bid/price/ask ladder, highest
// price first. Prices print in currency units.
func (b *Book) ReprOrderBook() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%8s|%8s|%-8s\n", "Bids", "Price", "Asks")
	sb.WriteString("--------------------------\n")

	depth := b.Depth()
	prices := make([]int64, 0, len(depth.Bids)+len(depth.Asks))
	seen := make(map[int64]bool)
	for price := range depth.Bids {
		prices = append(prices, price)
		seen[price] = true
	}
	for price := range depth.Asks {
		if !seen[price] {
			prices = append(prices, price)
		}
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i] > prices[j] })

	for _, price := range prices {
		fmt.Fprintf(&sb, "%8d|%8.2f|%-8d\n", depth.Bids[price], float64(price)/100, depth.Asks[price])
	}
	return sb.String()
}

func (u *User) repr(valuations map[uint64]int64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "name %s, id %d, cash %d\n", u.alias, u.id, u.cash)

	sb.WriteString("holdings:\n")
	if len(u.holdings) == 0 {
		sb.WriteString("    none\n")
	}
	tickers := make([]uint64, 0, len(u.holdings))
	for ticker := range u.holdings {
		tickers = append(tickers, ticker)
	}
	sort.Slice(tickers, func(i, j int) bool { return tickers[i] < tickers[j] })
	for _, ticker := range tickers {
		fmt.Fprintf(&sb, "    %d: %d\n", ticker, u.holdings[ticker])
	}

	sb.WriteString("orders:\n")
	orderIDs := u.OrderIDs()
	if len(orderIDs) == 0 {
		sb.WriteString("    none\n")
	}
	for _, id := range orderIDs {
		fmt.Fprintf(&sb, "    %s\n", u.orders[id])
	}

	if assets, err := u.Assets(valuations); err == nil {
		fmt.Fprintf(&sb, "assets %d\n", assets)
	}
	return sb.String()
}

// ReprTickers dumps every book's ladder.
func (e *Exchange) ReprTickers() string {
	var sb strings.Builder
	sb.WriteString("=== Tickers ===\n")
	for _, book := range e.Tickers() {
		fmt.Fprintf(&sb, "name %s, id %d\n", book.Alias(), book.ID())
		sb.WriteString(book.ReprOrderBook())
		sb.WriteString("\n")
	}
	return sb.String()
}

// ReprUsers dumps every account's ledger, marked to market.
func (e *Exchange) ReprUsers() string {
	var sb strings.Builder
	sb.WriteString("=== Users ===\n")
	valuations := e.Valuations()
	for _, user := range e.Users() {
		sb.WriteString(user.repr(valuations))
		sb.WriteString("\n")
	}
	return sb.String()
}

// ReprTransactions dumps the chronological transaction log.
func (e *Exchange) ReprTransactions() string {
	var sb strings.Builder
	sb.WriteString("=== Transactions ===\n")
	for _, t := range e.transactions {
		sb.WriteString(t.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
