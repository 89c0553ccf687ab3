// Package placement validates and records new orders, including the
// compound flip that squares an open position before the new order.
package placement

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"neotrade/src/ledger"
	"neotrade/src/model"
	"neotrade/src/positions"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// closingSuffix marks the idempotency token of the closing half of a flip.
const closingSuffix = ":close"

const (
	// MaxOrderQuantity is the largest lot count of a single order.
	MaxOrderQuantity int64 = 10_000
	// MaxNetQuantity bounds the absolute net position of one symbol.
	MaxNetQuantity int64 = 1_000_000
)

// Ledger is what the service needs from the order ledger.
type Ledger interface {
	Append(ctx context.Context, id model.Identity, order *model.Order) error
	Snapshot(ctx context.Context, id model.Identity) ([]model.Order, error)
	FindByClientOrderID(ctx context.Context, id model.Identity, clientOrderID string) (*model.Order, error)
}

// Request describes one order placement. Price must be the live tick price the
// user saw; the service stamps it as is. Quantity 0 means one lot.
type Request struct {
	Symbol   string
	Side     model.Side
	Price    decimal.Decimal
	Quantity int64
	Flip     bool
	// ClientOrderID makes a retry of the same logical placement a no-op for
	// the halves that were already recorded.
	ClientOrderID string
}

// Result lists what was appended by a call. Closing is nil when no squaring
// order was needed. Duplicate is set when the whole request had already been
// recorded under the same ClientOrderID.
type Result struct {
	Closing   *model.Order
	Primary   *model.Order
	Duplicate bool
}

type Service struct {
	ledger Ledger
	now    func() time.Time
	log    *logger.Entry

	mu   sync.Mutex
	last int64
}

type Option func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(l Ledger, opts ...Option) *Service {
	s := &Service{
		ledger: l,
		now:    time.Now,
		log:    logger.WithField("component", "placement"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Place appends at most one closing order (flip only) and exactly one primary
// order. Nothing is retried; a failure is returned to the caller as is.
func (s *Service) Place(ctx context.Context, id model.Identity, req Request) (*Result, error) {
	if !id.Resolved() {
		return nil, ledger.ErrIdentityUnresolved
	}

	req, err := normalize(req)
	if err != nil {
		return nil, err
	}

	log := s.log.WithFields(logger.Fields{
		"user":   id.UserID,
		"symbol": req.Symbol,
		"side":   req.Side,
		"qty":    req.Quantity,
		"flip":   req.Flip,
	})

	if req.ClientOrderID != "" {
		existing, err := s.ledger.FindByClientOrderID(ctx, id, req.ClientOrderID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			log.WithField("client_order_id", req.ClientOrderID).Info("order already recorded, skipping")
			return &Result{Primary: existing, Duplicate: true}, nil
		}
	}

	result := &Result{}
	var floor int64

	if !req.Flip {
		if err := s.checkNetLimit(ctx, id, req); err != nil {
			log.WithError(err).Warn("order rejected")
			return nil, err
		}
	}

	if req.Flip {
		closing, err := s.squareOff(ctx, id, req)
		if err != nil {
			log.WithError(err).Error("flip aborted")
			return nil, err
		}
		if closing != nil {
			result.Closing = closing
			floor = closing.Timestamp + 1
		}
	}

	primary := &model.Order{
		Symbol:    req.Symbol,
		Side:      req.Side,
		Price:     req.Price,
		Quantity:  req.Quantity,
		Timestamp: s.stamp(floor),
		Status:    model.OrderStatusExecuted,
	}
	if req.ClientOrderID != "" {
		token := req.ClientOrderID
		primary.ClientOrderID = &token
	}

	if err := s.ledger.Append(ctx, id, primary); err != nil {
		log.WithError(err).Error("failed to record order")
		return nil, err
	}
	result.Primary = primary

	log.WithField("order_id", primary.ID).Info("order placed")
	return result, nil
}

// Reverse flips the open position of symbol into the opposite direction:
// a long becomes a PUT, a short becomes a CALL.
func (s *Service) Reverse(ctx context.Context, id model.Identity, symbol string, price decimal.Decimal, clientOrderID string) (*Result, error) {
	if !id.Resolved() {
		return nil, ledger.ErrIdentityUnresolved
	}

	symbol = strings.TrimSpace(symbol)
	clientOrderID = strings.TrimSpace(clientOrderID)
	if symbol == "" {
		return nil, invalid("symbol is required")
	}

	side, err := s.reverseSide(ctx, id, symbol, clientOrderID)
	if err != nil {
		return nil, err
	}

	return s.Place(ctx, id, Request{
		Symbol:        symbol,
		Side:          side,
		Price:         price,
		Quantity:      1,
		Flip:          true,
		ClientOrderID: clientOrderID,
	})
}

// reverseSide picks the direction of a reversal. A retried reversal whose
// closing half is already recorded is flat by now, so the side is taken from
// the closing order instead of the position.
func (s *Service) reverseSide(ctx context.Context, id model.Identity, symbol, clientOrderID string) (model.Side, error) {
	if clientOrderID != "" {
		closing, err := s.ledger.FindByClientOrderID(ctx, id, clientOrderID+closingSuffix)
		if err != nil {
			return "", err
		}
		if closing != nil {
			if closing.Side == model.SideSell {
				return model.SidePut, nil
			}
			return model.SideCall, nil
		}
		primary, err := s.ledger.FindByClientOrderID(ctx, id, clientOrderID)
		if err != nil {
			return "", err
		}
		if primary != nil {
			return primary.Side, nil
		}
	}

	orders, err := s.ledger.Snapshot(ctx, id)
	if err != nil {
		return "", err
	}

	net := positions.NetQuantity(orders, symbol)
	switch {
	case net > 0:
		return model.SidePut, nil
	case net < 0:
		return model.SideCall, nil
	}
	return "", ErrFlatPosition
}

// squareOff records the order closing the current position of req.Symbol.
// It returns (nil, nil) when the position is already flat.
func (s *Service) squareOff(ctx context.Context, id model.Identity, req Request) (*model.Order, error) {
	var closingToken string
	if req.ClientOrderID != "" {
		closingToken = req.ClientOrderID + closingSuffix
		prior, err := s.ledger.FindByClientOrderID(ctx, id, closingToken)
		if err != nil {
			return nil, &FlipAbortError{Symbol: req.Symbol, Err: err}
		}
		if prior != nil {
			// squared by an earlier attempt of this request
			return prior, nil
		}
	}

	orders, err := s.ledger.Snapshot(ctx, id)
	if err != nil {
		return nil, &FlipAbortError{Symbol: req.Symbol, Err: err}
	}

	net := positions.NetQuantity(orders, req.Symbol)
	if net == 0 {
		return nil, nil
	}
	if net > MaxNetQuantity || net < -MaxNetQuantity {
		return nil, &FlipAbortError{Symbol: req.Symbol, NetQuantity: net, Err: ErrPositionLimit}
	}

	side := model.SideBuy
	if net > 0 {
		side = model.SideSell
	}
	qty := net
	if qty < 0 {
		qty = -qty
	}

	closing := &model.Order{
		Symbol:    req.Symbol,
		Side:      side,
		Price:     req.Price,
		Quantity:  qty,
		Timestamp: s.stamp(0),
		Status:    model.OrderStatusSquaredOff,
	}
	if closingToken != "" {
		closing.ClientOrderID = &closingToken
	}

	if err := s.ledger.Append(ctx, id, closing); err != nil {
		return nil, &FlipAbortError{Symbol: req.Symbol, NetQuantity: net, Err: err}
	}

	s.log.WithFields(logger.Fields{
		"user":     id.UserID,
		"symbol":   req.Symbol,
		"net":      net,
		"order_id": closing.ID,
	}).Info("position squared off")

	return closing, nil
}

// checkNetLimit rejects an order that would move the net position of its
// symbol beyond MaxNetQuantity in either direction.
func (s *Service) checkNetLimit(ctx context.Context, id model.Identity, req Request) error {
	orders, err := s.ledger.Snapshot(ctx, id)
	if err != nil {
		return err
	}

	net := positions.NetQuantity(orders, req.Symbol)
	if net > MaxNetQuantity || net < -MaxNetQuantity {
		return fmt.Errorf("%w: net %d on %s", ErrPositionLimit, net, req.Symbol)
	}

	// both terms are bounded, so the sum cannot overflow
	next := net + req.Side.Direction()*req.Quantity
	if next > MaxNetQuantity || next < -MaxNetQuantity {
		return fmt.Errorf("%w: net %d on %s would become %d", ErrPositionLimit, net, req.Symbol, next)
	}
	return nil
}

// stamp returns a ms timestamp that is >= floor and strictly increasing
// across calls on this service, so ledger order follows placement order.
func (s *Service) stamp(floor int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UnixMilli()
	if ts <= s.last {
		ts = s.last + 1
	}
	if ts < floor {
		ts = floor
	}
	s.last = ts
	return ts
}

func normalize(req Request) (Request, error) {
	req.Symbol = strings.TrimSpace(req.Symbol)
	req.ClientOrderID = strings.TrimSpace(req.ClientOrderID)

	if req.Symbol == "" {
		return req, invalid("symbol is required")
	}
	if !req.Side.Valid() {
		return req, invalid("unknown side %q", req.Side)
	}
	// the recorded price is the rounded one, so that is what must be positive
	req.Price = req.Price.Round(2)
	if !req.Price.IsPositive() {
		return req, invalid("price must be at least 0.01, got %s", req.Price)
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		return req, invalid("quantity must be positive, got %d", req.Quantity)
	}
	if req.Quantity > MaxOrderQuantity {
		return req, invalid("quantity %d exceeds the %d lot limit", req.Quantity, MaxOrderQuantity)
	}
	if strings.HasSuffix(req.ClientOrderID, closingSuffix) {
		return req, invalid("client order id may not end with %q", closingSuffix)
	}

	return req, nil
}
