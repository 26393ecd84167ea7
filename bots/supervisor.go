package bots

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Supervisor runs a swarm of bots over a shared throttle so the swarm as
// a whole submits at a bounded rate.
type Supervisor struct {
	bots     []Bot
	clients  []*Client
	throttle *time.Ticker
	log      *zap.Logger
}

// Assignment pairs one bot with the account and ticker it trades.
type Assignment struct {
	Bot    Bot
	UserID uint64
	Ticker string
}

// NewSupervisor builds clients for each assignment over one throttle.
func NewSupervisor(trader Trader, assignments []Assignment, orderInterval time.Duration, log *zap.Logger) *Supervisor {
	throttle := time.NewTicker(orderInterval)
	s := &Supervisor{throttle: throttle, log: log}
	for _, a := range assignments {
		s.bots = append(s.bots, a.Bot)
		s.clients = append(s.clients, NewClient(trader, a.UserID, a.Ticker, throttle.C))
	}
	return s
}

// Start launches every bot and blocks until the context is canceled.
func (s *Supervisor) Start(ctx context.Context) {
	defer s.throttle.Stop()

	for i, bot := range s.bots {
		client := s.clients[i]
		s.log.Info("starting bot",
			zap.String("bot", bot.Name()),
			zap.Uint64("user", client.UserID),
			zap.String("ticker", client.Ticker))
		go bot.Start(ctx, client)
	}

	<-ctx.Done()
	s.log.Info("stopping bots")
}
