package smkproto

import (
	"math"

	"github.com/pkg/errors"
)

const (
	MinPrice    = 1
	MaxPrice    = 9999
	MinQuantity = 1000
	MaxQuantity = math.MaxInt32
)

// ErrInvalidOrder is wrapped by every order validation failure.
var ErrInvalidOrder = errors.New("smkproto: invalid order")

// NewOrderCreate returns a limit order priced in percent odds with a payoff
// currency quantity, immediate-or-cancel unless tif is changed.
func NewOrderCreate(market, contract Uuid128, side Side, quantity, price uint64) *OrderCreate {
	return &OrderCreate{
		Type:         OrderCreateLimit,
		Market:       market,
		Contract:     contract,
		Side:         side,
		QuantityType: QuantityPayoffCurrency,
		Quantity:     quantity,
		PriceType:    PricePercentOdds,
		Price:        price,
		TimeInForce:  ImmediateOrCancel,
	}
}

// Validate checks o as a new instruction.
func (o *OrderCreate) Validate() error {
	switch {
	case o.Price < MinPrice:
		return errors.Wrapf(ErrInvalidOrder, "price must be at least %d", MinPrice)
	case o.Price > MaxPrice:
		return errors.Wrapf(ErrInvalidOrder, "price cannot exceed %d", MaxPrice)
	case o.Quantity < MinQuantity:
		return errors.Wrapf(ErrInvalidOrder, "quantity must be at least %d", MinQuantity)
	case o.Quantity > MaxQuantity:
		return errors.Wrapf(ErrInvalidOrder, "quantity cannot exceed %d", MaxQuantity)
	case o.Side != SideBuy && o.Side != SideSell:
		return errors.Wrap(ErrInvalidOrder, "side must be one of BUY or SELL")
	case o.Market.IsZero():
		return errors.Wrap(ErrInvalidOrder, "market must be set")
	case o.Contract.IsZero():
		return errors.Wrap(ErrInvalidOrder, "contract must be set")
	case o.TimeInForce != 0 && !o.TimeInForce.Valid():
		return errors.Wrapf(ErrInvalidOrder, "unknown time in force %d", o.TimeInForce)
	}
	return nil
}

// CopyTo fills p with o as an order create message.
func (o *OrderCreate) CopyTo(p *Payload) {
	c := *o
	if c.TimeInForce == 0 {
		c.TimeInForce = ImmediateOrCancel
	}
	p.Type = SetoOrderCreate
	p.OrderCreate = &c
}
