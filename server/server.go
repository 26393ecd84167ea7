// Package server exposes the exchange over a websocket protocol.
//
// Clients connect to /ws, authenticate with an auth message, and from
// then on submit order and cancel actions. Actions are not applied
// inline: they queue up and a scheduler drains the queue once per tick,
// applying each action through the exchange one at a time. That queue,
// together with the server mutex held around every exchange access, is
// what satisfies the engine's single-writer contract. After each tick
// every authenticated session receives market data and its own portfolio;
// /ws/trades streams an anonymized trade feed to anyone.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"bourse/engine"
	"bourse/metrics"
)

// Options configures the transport and scheduler.
type Options struct {
	ListenAddr    string
	TickInterval  time.Duration
	AdminInterval time.Duration
	AuthGrace     time.Duration
	Metrics       bool
}

// Server owns the exchange, the session registry and the scheduler.
type Server struct {
	opts Options
	log  *zap.Logger
	met  *metrics.Metrics

	// mu serializes every exchange access, reads included: the engine
	// mutates containers in place and offers no internal locking.
	mu       sync.Mutex
	exchange *engine.Exchange
	pending  []command

	sessions *sessionRegistry
	trades   *hub[tradePayload]
	upgrader websocket.Upgrader
}

// New wires a server around an exchange.
func New(exchange *engine.Exchange, opts Options, log *zap.Logger, met *metrics.Metrics) *Server {
	return &Server{
		opts:     opts,
		log:      log,
		met:      met,
		exchange: exchange,
		sessions: newSessionRegistry(),
		trades:   newHub[tradePayload](),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
}

// Run serves until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/ws/trades", s.handleTradeStream)
	if s.opts.Metrics {
		mux.Handle("/metrics", s.met.Handler())
	}

	srv := &http.Server{Addr: s.opts.ListenAddr, Handler: mux}

	go s.runScheduler(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", s.opts.ListenAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.trades.Close()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sess := s.sessions.add(conn)
	s.met.Connections.Inc()
	s.log.Info("connection opened", zap.Uint64("session", sess.id))
	go sess.writeLoop()

	// unauthenticated connections are dropped after the grace period
	grace := time.AfterFunc(s.opts.AuthGrace, func() {
		if !sess.isAuthed() {
			s.log.Info("closing unauthenticated session", zap.Uint64("session", sess.id))
			sess.close()
		}
	})

	s.readLoop(sess)

	grace.Stop()
	s.sessions.remove(sess)
	sess.close()
	s.met.Connections.Dec()
	s.log.Info("connection closed", zap.Uint64("session", sess.id))
}

func (s *Server) readLoop(sess *session) {
	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.reject(sess, "malformed payload")
			continue
		}

		if msg.Type == "auth" {
			s.handleAuth(sess, msg)
			continue
		}

		userID, ok := sess.user()
		if !ok {
			s.reject(sess, "not authenticated")
			continue
		}

		act, err := decodeAction(msg)
		if err != nil {
			s.reject(sess, err.Error())
			continue
		}
		s.enqueue(command{userID: userID, act: act})
	}
}

func (s *Server) handleAuth(sess *session, msg clientMessage) {
	if sess.isAuthed() {
		sess.trySend(outbound{Type: "auth", Data: authReply{OK: false, Message: "already authenticated"}})
		return
	}
	if msg.Name == "" || msg.Passphrase == "" {
		sess.trySend(outbound{Type: "auth", Data: authReply{OK: false, Message: "malformed auth payload"}})
		return
	}

	s.mu.Lock()
	userID, ok := s.exchange.Authenticate(msg.Name, msg.Passphrase)
	s.mu.Unlock()

	if !ok {
		s.met.Rejects.Inc()
		sess.trySend(outbound{Type: "auth", Data: authReply{OK: false, Message: "incorrect credentials"}})
		s.log.Info("auth failed", zap.Uint64("session", sess.id), zap.String("name", msg.Name))
		return
	}

	if evicted := s.sessions.bind(sess, userID); evicted != nil {
		s.log.Info("evicting previous session for user",
			zap.Uint64("user", userID), zap.Uint64("session", evicted.id))
		evicted.close()
	}
	sess.trySend(outbound{Type: "auth", Data: authReply{OK: true, Message: "auth success"}})
	s.log.Info("user authenticated",
		zap.Uint64("session", sess.id), zap.Uint64("user", userID), zap.String("name", msg.Name))
}

func (s *Server) handleTradeStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.trades.Subscribe(32)
	defer s.trades.Unsubscribe(sub)

	for trade := range sub.ch {
		if err := conn.WriteJSON(outbound{Type: "trade", Data: trade}); err != nil {
			return
		}
	}
}

func (s *Server) reject(sess *session, message string) {
	s.met.Rejects.Inc()
	sess.trySend(outbound{Type: "reject", Data: rejectReply{Message: message}})
}

func (s *Server) enqueue(cmd command) {
	s.mu.Lock()
	s.pending = append(s.pending, cmd)
	s.mu.Unlock()
}

// Submit queues an action on behalf of an in-process client (the
// liquidity bots); it follows the same scheduler path as network orders.
func (s *Server) Submit(userID uint64, ticker string, side engine.Side, price, volume int64, ioc bool) {
	s.enqueue(command{userID: userID, act: orderAction{
		Ticker: ticker, Side: side, Price: price, Volume: volume, IOC: ioc,
	}})
}

// Quote reads a ticker's best bid/ask and last traded price.
func (s *Server) Quote(ticker string) (bid, ask, last int64, hasBid, hasAsk bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	book, err := s.exchange.TickerByName(ticker)
	if err != nil {
		return 0, 0, 0, false, false
	}
	bid, hasBid = book.BestBid()
	ask, hasAsk = book.BestAsk()
	return bid, ask, book.Valuation(), hasBid, hasAsk
}
