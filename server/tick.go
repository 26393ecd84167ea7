package server

import (
	"context"
	"time"

	"go.uber.org/zap"

	"bourse/engine"
)

func (s *Server) runScheduler(ctx context.Context) {
	tick := time.NewTicker(s.opts.TickInterval)
	defer tick.Stop()
	admin := time.NewTicker(s.opts.AdminInterval)
	defer admin.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			s.tick()
		case <-admin.C:
			s.adminTick()
		}
	}
}

// tick drains the command queue, applies every command to the exchange
// in arrival order, and broadcasts the post-tick state. The whole drain
// and every state read happen under the server mutex; only the sends go
// out without it.
func (s *Server) tick() {
	s.mu.Lock()
	cmds := s.pending
	s.pending = nil

	for _, cmd := range cmds {
		s.apply(cmd)
	}

	trades := s.collectTrades()
	valuations := make(map[string]int64)
	depths := make(map[string]depthPayload)
	for _, book := range s.exchange.Tickers() {
		valuations[book.Alias()] = book.Valuation()
		depth := book.Depth()
		depths[book.Alias()] = depthPayload{Bids: depth.Bids, Asks: depth.Asks}
	}

	recipients := s.sessions.authed()
	payloads := make(map[*session]tickPayload, len(recipients))
	for _, sess := range recipients {
		userID, ok := sess.user()
		if !ok {
			continue
		}
		portfolio, err := s.portfolio(userID)
		if err != nil {
			s.log.Error("portfolio snapshot failed", zap.Uint64("user", userID), zap.Error(err))
			continue
		}
		payloads[sess] = tickPayload{
			Valuations: valuations,
			Depths:     depths,
			Trades:     trades,
			Portfolio:  portfolio,
		}
	}
	s.mu.Unlock()

	s.met.Ticks.Inc()
	for _, trade := range trades {
		s.trades.Broadcast(trade)
	}
	for sess, payload := range payloads {
		sess.trySend(outbound{Type: "tick", Data: payload})
	}
}

// apply executes one queued command. Failures reject the issuing user's
// request and touch nothing else; an inconsistency is logged loudly but
// still isolated to this command.
func (s *Server) apply(cmd command) {
	switch act := cmd.act.(type) {
	case orderAction:
		book, err := s.exchange.TickerByName(act.Ticker)
		if err != nil {
			s.rejectUser(cmd.userID, "unknown ticker "+act.Ticker)
			return
		}
		ord, err := s.exchange.PlaceOrder(act.Side, cmd.userID, book.ID(), act.Price, act.Volume, act.IOC)
		if err != nil {
			s.log.Warn("order rejected",
				zap.Uint64("user", cmd.userID),
				zap.String("ticker", act.Ticker),
				zap.Error(err))
			s.rejectUser(cmd.userID, err.Error())
			return
		}
		s.met.Orders.WithLabelValues(act.Ticker, act.Side.String()).Inc()
		s.log.Debug("order placed",
			zap.Uint64("user", cmd.userID),
			zap.Uint64("order", ord.ID),
			zap.String("ticker", act.Ticker),
			zap.Stringer("side", act.Side),
			zap.Int64("price", act.Price),
			zap.Int64("volume", act.Volume),
			zap.Bool("ioc", act.IOC))
	case cancelAction:
		var err error
		if act.Ticker == "" {
			err = s.exchange.CancelAll(cmd.userID)
		} else {
			var book *engine.Book
			book, err = s.exchange.TickerByName(act.Ticker)
			if err == nil {
				err = s.exchange.CancelTicker(cmd.userID, book.ID())
			}
		}
		if err != nil {
			s.log.Warn("cancel rejected", zap.Uint64("user", cmd.userID), zap.Error(err))
			s.rejectUser(cmd.userID, err.Error())
			return
		}
		s.log.Debug("orders canceled", zap.Uint64("user", cmd.userID), zap.String("ticker", act.Ticker))
	}
}

// collectTrades drains the exchange log accumulated since the previous
// tick and counts it into the metrics. Caller holds s.mu.
func (s *Server) collectTrades() []tradePayload {
	txs := s.exchange.ConsumeTransactions()
	trades := make([]tradePayload, 0, len(txs))
	for _, t := range txs {
		alias := ""
		if book, err := s.exchange.Ticker(t.TickerID); err == nil {
			alias = book.Alias()
		}
		s.met.Trades.WithLabelValues(alias).Inc()
		s.met.TradeVolume.WithLabelValues(alias).Add(float64(t.Volume))
		trades = append(trades, tradePayload{
			ID:        t.ID,
			Ticker:    alias,
			Aggressor: t.Aggressor.String(),
			Price:     t.Price,
			Volume:    t.Volume,
		})
	}
	return trades
}

// portfolio builds one user's private snapshot. Caller holds s.mu.
func (s *Server) portfolio(userID uint64) (portfolioPayload, error) {
	user, err := s.exchange.User(userID)
	if err != nil {
		return portfolioPayload{}, err
	}

	holdings := make(map[string]int64)
	for tickerID, volume := range user.Holdings() {
		if book, err := s.exchange.Ticker(tickerID); err == nil {
			holdings[book.Alias()] = volume
		}
	}

	assets, err := user.Assets(s.exchange.Valuations())
	if err != nil {
		return portfolioPayload{}, err
	}

	orders := make([]orderPayload, 0, len(user.OrderIDs()))
	for _, orderID := range user.OrderIDs() {
		ord, err := user.ViewOrder(orderID)
		if err != nil {
			return portfolioPayload{}, err
		}
		alias := ""
		if book, err := s.exchange.Ticker(ord.TickerID); err == nil {
			alias = book.Alias()
		}
		orders = append(orders, orderPayload{
			ID:     ord.ID,
			Ticker: alias,
			Side:   ord.Side.String(),
			Price:  ord.Price,
			Volume: ord.Volume,
		})
	}

	return portfolioPayload{
		Cash:     user.Cash(),
		Holdings: holdings,
		Assets:   assets,
		Orders:   orders,
	}, nil
}

// adminTick sends the full per-account snapshot to admin users.
func (s *Server) adminTick() {
	s.mu.Lock()
	accounts := make([]accountPayload, 0, len(s.exchange.Users()))
	admins := make([]uint64, 0)
	for _, user := range s.exchange.Users() {
		portfolio, err := s.portfolio(user.ID())
		if err != nil {
			s.log.Error("account snapshot failed", zap.Uint64("user", user.ID()), zap.Error(err))
			continue
		}
		accounts = append(accounts, accountPayload{
			Alias:    user.Alias(),
			Cash:     portfolio.Cash,
			Holdings: portfolio.Holdings,
			Assets:   portfolio.Assets,
			Orders:   portfolio.Orders,
		})
		if user.Admin() {
			admins = append(admins, user.ID())
		}
	}
	s.mu.Unlock()

	for _, adminID := range admins {
		if sess, ok := s.sessions.byUserID(adminID); ok {
			sess.trySend(outbound{Type: "accounts", Data: accounts})
		}
	}
}

// rejectUser sends a reject to the user's live session, if any. Queued
// commands may outlive the connection that issued them.
func (s *Server) rejectUser(userID uint64, message string) {
	s.met.Rejects.Inc()
	if sess, ok := s.sessions.byUserID(userID); ok {
		sess.trySend(outbound{Type: "reject", Data: rejectReply{Message: message}})
	}
}
