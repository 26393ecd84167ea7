package server

import (
	"fmt"
	"strings"

	"bourse/engine"
)

// clientMessage is the single inbound JSON envelope. The Type field
// selects which of the remaining fields matter.
type clientMessage struct {
	Type       string `json:"type"`
	Name       string `json:"name,omitempty"`
	Passphrase string `json:"passphrase,omitempty"`
	Ticker     string `json:"ticker,omitempty"`
	Side       string `json:"side,omitempty"`
	Price      int64  `json:"price,omitempty"`
	Volume     int64  `json:"volume,omitempty"`
	IOC        bool   `json:"ioc,omitempty"`
}

// action is the closed set of commands the scheduler applies to the
// exchange. Auth is not an action: it only reads, and is answered on the
// spot.
type action interface {
	isAction()
}

type orderAction struct {
	Ticker string
	Side   engine.Side
	Price  int64
	Volume int64
	IOC    bool
}

// cancelAction with an empty Ticker cancels across all tickers.
type cancelAction struct {
	Ticker string
}

func (orderAction) isAction()  {}
func (cancelAction) isAction() {}

// command pairs an action with the authenticated user that issued it.
type command struct {
	userID uint64
	act    action
}

// decodeAction maps an order/cancel message to its action, rejecting
// malformed payloads.
func decodeAction(msg clientMessage) (action, error) {
	switch msg.Type {
	case "order":
		if msg.Ticker == "" {
			return nil, fmt.Errorf("order: ticker is required")
		}
		side, err := parseSide(msg.Side)
		if err != nil {
			return nil, err
		}
		if msg.Price <= 0 || msg.Volume <= 0 {
			return nil, fmt.Errorf("order: price and volume must be positive")
		}
		return orderAction{
			Ticker: msg.Ticker,
			Side:   side,
			Price:  msg.Price,
			Volume: msg.Volume,
			IOC:    msg.IOC,
		}, nil
	case "cancel":
		return cancelAction{Ticker: msg.Ticker}, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
}

func parseSide(value string) (engine.Side, error) {
	switch strings.ToLower(value) {
	case "bid", "buy", "b":
		return engine.Bid, nil
	case "ask", "sell", "s":
		return engine.Ask, nil
	default:
		return 0, fmt.Errorf("unknown side %q", value)
	}
}

// Outbound payloads.

type outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type authReply struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type rejectReply struct {
	Message string `json:"message"`
}

type orderPayload struct {
	ID     uint64 `json:"id"`
	Ticker string `json:"ticker"`
	Side   string `json:"side"`
	Price  int64  `json:"price"`
	Volume int64  `json:"volume"`
}

type tradePayload struct {
	ID        uint64 `json:"id"`
	Ticker    string `json:"ticker"`
	Aggressor string `json:"aggressor"`
	Price     int64  `json:"price"`
	Volume    int64  `json:"volume"`
}

type depthPayload struct {
	Bids map[int64]int64 `json:"bids"`
	Asks map[int64]int64 `json:"asks"`
}

type portfolioPayload struct {
	Cash     int64            `json:"cash"`
	Holdings map[string]int64 `json:"holdings"`
	Assets   int64            `json:"assets"`
	Orders   []orderPayload   `json:"orders"`
}

// tickPayload is sent to every authenticated session once per scheduler
// tick: shared market data plus the session's own portfolio.
type tickPayload struct {
	Valuations map[string]int64        `json:"valuations"`
	Depths     map[string]depthPayload `json:"depths"`
	Trades     []tradePayload          `json:"trades"`
	Portfolio  portfolioPayload        `json:"portfolio"`
}

// accountPayload is the admin-only view of one ledger.
type accountPayload struct {
	Alias    string           `json:"alias"`
	Cash     int64            `json:"cash"`
	Holdings map[string]int64 `json:"holdings"`
	Assets   int64            `json:"assets"`
	Orders   []orderPayload   `json:"orders"`
}
