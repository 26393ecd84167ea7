package engine

import (
	"fmt"
	"sort"
)

// Exchange owns every book and ledger, the chronological transaction
// log, and the id generator, and is the sole entry point for mutating
// operations. The set of tickers and accounts is fixed at construction.
//
// The exchange carries no internal locking: every mutating call must run
// to completion without interleaving with any other call, mutating or
// not. The server funnels all access through its tick queue and a single
// lock; see the concurrency notes there.
type Exchange struct {
	tickers map[uint64]*Book
	users   map[uint64]*User
	ids     *IDs

	// chronological across all tickers
	transactions []Transaction
}

// NewExchange builds an exchange with a fixed set of tickers and
// accounts. Ids and aliases must be unique within their kind.
func NewExchange(tickers []TickerSpec, accounts []AccountSpec) (*Exchange, error) {
	e := &Exchange{
		tickers: make(map[uint64]*Book, len(tickers)),
		users:   make(map[uint64]*User, len(accounts)),
		ids:     NewIDs(),
	}

	names := make(map[string]bool, len(tickers))
	for _, tk := range tickers {
		if _, ok := e.tickers[tk.ID]; ok {
			return nil, fmt.Errorf("duplicate ticker id %d", tk.ID)
		}
		if names[tk.Alias] {
			return nil, fmt.Errorf("duplicate ticker alias %q", tk.Alias)
		}
		names[tk.Alias] = true
		e.tickers[tk.ID] = NewBook(tk.Alias, tk.ID)
	}

	aliases := make(map[string]bool, len(accounts))
	for _, acct := range accounts {
		if _, ok := e.users[acct.ID]; ok {
			return nil, fmt.Errorf("duplicate account id %d", acct.ID)
		}
		if aliases[acct.Alias] {
			return nil, fmt.Errorf("duplicate account alias %q", acct.Alias)
		}
		aliases[acct.Alias] = true
		e.users[acct.ID] = NewUser(acct.ID, acct.Alias, acct.Passphrase, acct.Admin)
	}
	return e, nil
}

// PlaceOrder creates a limit order for the user, rests it in the book and
// the ledger, and matches it against the opposite side. With ioc set, any
// remainder still resting after matching is discarded from both book and
// ledger instead of staying on the book. The created order is returned
// with its assigned id and original volume.
func (e *Exchange) PlaceOrder(s Side, userID, tickerID uint64, price, volume int64, ioc bool) (Order, error) {
	book, ok := e.tickers[tickerID]
	if !ok {
		return Order{}, fmt.Errorf("%w: ticker %d", ErrNotFound, tickerID)
	}
	user, ok := e.users[userID]
	if !ok {
		return Order{}, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	if price <= 0 || volume <= 0 {
		return Order{}, fmt.Errorf("%w: price %d, volume %d", ErrInvalidOrder, price, volume)
	}

	ord := Order{
		ID:       e.ids.Next(CategoryOrder),
		UserID:   userID,
		TickerID: tickerID,
		Side:     s,
		Price:    price,
		Volume:   volume,
	}

	book.AddOrder(ord)
	if err := user.AddOrder(ord); err != nil {
		return Order{}, err
	}

	if err := e.processOrder(ord); err != nil {
		return Order{}, err
	}

	if ioc {
		if book.HasOrder(ord) {
			if err := book.CancelOrder(ord); err != nil {
				return Order{}, err
			}
		}
		if user.HasOrder(ord) {
			if err := user.RemoveOrder(ord); err != nil {
				return Order{}, err
			}
		}
	}
	return ord, nil
}

// processOrder matches the aggressor and applies every resulting
// transaction to the book and both counterparties' ledgers. Appending to
// the log, mutating the book, and updating the ledgers form one atomic
// unit per transaction; they all describe the same economic event.
func (e *Exchange) processOrder(aggressor Order) error {
	book := e.tickers[aggressor.TickerID]

	for _, t := range book.Match(aggressor, e.ids) {
		e.transactions = append(e.transactions, t)
		if err := e.applyTransaction(book, aggressor, t); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exchange) applyTransaction(book *Book, aggressor Order, t Transaction) error {
	if err := book.ProcessTransaction(aggressor, t); err != nil {
		return err
	}

	// The resting side's order record is read from its owner's ledger;
	// the aggressor side fills against the order just created.
	if t.Aggressor == Bid {
		resting, err := e.users[t.AskerID].ViewOrder(t.AskID)
		if err != nil {
			return fmt.Errorf("%w: asker %d missing order %d", ErrInconsistency, t.AskerID, t.AskID)
		}
		if err := e.users[t.AskerID].FillOrder(resting, t.Price, t.Volume, Ask); err != nil {
			return err
		}
		return e.users[t.BidderID].FillOrder(aggressor, t.Price, t.Volume, Bid)
	}

	resting, err := e.users[t.BidderID].ViewOrder(t.BidID)
	if err != nil {
		return fmt.Errorf("%w: bidder %d missing order %d", ErrInconsistency, t.BidderID, t.BidID)
	}
	if err := e.users[t.BidderID].FillOrder(resting, t.Price, t.Volume, Bid); err != nil {
		return err
	}
	return e.users[t.AskerID].FillOrder(aggressor, t.Price, t.Volume, Ask)
}

// CancelAll removes every open order of the user from the owning books
// and the ledger.
func (e *Exchange) CancelAll(userID uint64) error {
	user, ok := e.users[userID]
	if !ok {
		return fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}

	for _, orderID := range user.OrderIDs() {
		ord, err := user.ViewOrder(orderID)
		if err != nil {
			return err
		}
		if err := e.tickers[ord.TickerID].CancelOrder(ord); err != nil {
			return err
		}
		if err := user.RemoveOrder(ord); err != nil {
			return err
		}
	}
	return nil
}

// CancelTicker removes the user's open orders on one ticker only.
func (e *Exchange) CancelTicker(userID, tickerID uint64) error {
	user, ok := e.users[userID]
	if !ok {
		return fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	if _, ok := e.tickers[tickerID]; !ok {
		return fmt.Errorf("%w: ticker %d", ErrNotFound, tickerID)
	}

	for _, orderID := range user.OrderIDs() {
		ord, err := user.ViewOrder(orderID)
		if err != nil {
			return err
		}
		if ord.TickerID != tickerID {
			continue
		}
		if err := e.tickers[tickerID].CancelOrder(ord); err != nil {
			return err
		}
		if err := user.RemoveOrder(ord); err != nil {
			return err
		}
	}
	return nil
}

// Authenticate scans accounts for a credential match. The boolean result
// is false on a mismatch; authentication never errors.
func (e *Exchange) Authenticate(name, passphrase string) (uint64, bool) {
	for _, user := range e.users {
		if user.Authenticate(name, passphrase) {
			return user.ID(), true
		}
	}
	return 0, false
}

// Ticker returns the book for a ticker id.
func (e *Exchange) Ticker(id uint64) (*Book, error) {
	book, ok := e.tickers[id]
	if !ok {
		return nil, fmt.Errorf("%w: ticker %d", ErrNotFound, id)
	}
	return book, nil
}

// TickerByName returns the book whose alias matches name.
func (e *Exchange) TickerByName(name string) (*Book, error) {
	for _, book := range e.tickers {
		if book.Alias() == name {
			return book, nil
		}
	}
	return nil, fmt.Errorf("%w: ticker %q", ErrNotFound, name)
}

// HasTicker reports whether a ticker with the alias exists.
func (e *Exchange) HasTicker(name string) bool {
	_, err := e.TickerByName(name)
	return err == nil
}

// Tickers returns all books, ascending by id.
func (e *Exchange) Tickers() []*Book {
	books := make([]*Book, 0, len(e.tickers))
	for _, book := range e.tickers {
		books = append(books, book)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID() < books[j].ID() })
	return books
}

// User returns the ledger for a user id.
func (e *Exchange) User(id uint64) (*User, error) {
	user, ok := e.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	return user, nil
}

// Users returns all ledgers, ascending by id.
func (e *Exchange) Users() []*User {
	users := make([]*User, 0, len(e.users))
	for _, user := range e.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID() < users[j].ID() })
	return users
}

// Valuations snapshots every ticker's last-traded price.
func (e *Exchange) Valuations() map[uint64]int64 {
	valuations := make(map[uint64]int64, len(e.tickers))
	for id, book := range e.tickers {
		valuations[id] = book.Valuation()
	}
	return valuations
}

// Transactions returns a copy of the chronological transaction log.
func (e *Exchange) Transactions() []Transaction {
	out := make([]Transaction, len(e.transactions))
	copy(out, e.transactions)
	return out
}

// ConsumeTransactions returns the log and clears it, so a polling
// broadcaster sees each trade exactly once.
func (e *Exchange) ConsumeTransactions() []Transaction {
	out := e.transactions
	e.transactions = nil
	return out
}
