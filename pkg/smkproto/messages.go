package smkproto

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// Uuid128 is a 128-bit identifier split into two words.
type Uuid128 struct {
	Low  uint64
	High uint64
}

// IsZero reports whether u is unset.
func (u Uuid128) IsZero() bool {
	return u.Low == 0 && u.High == 0
}

func (u Uuid128) String() string {
	if u.High == 0 {
		return fmt.Sprintf("%x", u.Low)
	}
	return fmt.Sprintf("%x%016x", u.High, u.Low)
}

// ParseUuid128 parses the hex form produced by String.
func ParseUuid128(s string) (Uuid128, error) {
	if s == "" || len(s) > 32 {
		return Uuid128{}, errors.Errorf("smkproto: bad uuid128 %q", s)
	}
	var u Uuid128
	split := max(len(s)-16, 0)
	low, err := strconv.ParseUint(s[split:], 16, 64)
	if err != nil {
		return Uuid128{}, errors.Wrapf(err, "smkproto: bad uuid128 %q", s)
	}
	u.Low = low
	if split > 0 {
		if u.High, err = strconv.ParseUint(s[:split], 16, 64); err != nil {
			return Uuid128{}, errors.Wrapf(err, "smkproto: bad uuid128 %q", s)
		}
	}
	return u, nil
}

func (u Uuid128) marshal() []byte {
	b := appendVarintField(nil, 1, u.Low)
	return appendOptionalVarint(b, 2, u.High)
}

func (u *Uuid128) unmarshal(b []byte) error {
	d := newDecoder(b)
	for d.next() {
		switch d.num {
		case 1:
			u.Low = d.varint()
		case 2:
			u.High = d.varint()
		default:
			d.skip()
		}
	}
	return errors.Wrap(d.err, "uuid128")
}

// Login opens a session. Session and AccountSequence are set when resuming.
type Login struct {
	Username        string
	Password        string
	Session         string
	AccountSequence uint64
}

func (m *Login) marshal() []byte {
	b := appendStringField(nil, 1, m.Username)
	b = appendStringField(b, 2, m.Password)
	b = appendStringField(b, 3, m.Session)
	return appendOptionalVarint(b, 4, m.AccountSequence)
}

func (m *Login) unmarshal(b []byte) error {
	d := newDecoder(b)
	for d.next() {
		switch d.num {
		case 1:
			m.Username = d.string()
		case 2:
			m.Password = d.string()
		case 3:
			m.Session = d.string()
		case 4:
			m.AccountSequence = d.varint()
		default:
			d.skip()
		}
	}
	return errors.Wrap(d.err, "login")
}

// LoginResponse carries the server issued session token and the outgoing
// sequence number the client must continue from.
type LoginResponse struct {
	Session string
	Reset   uint64
}

func (m *LoginResponse) marshal() []byte {
	b := appendStringField(nil, 1, m.Session)
	return appendVarintField(b, 2, m.Reset)
}

func (m *LoginResponse) unmarshal(b []byte) error {
	d := newDecoder(b)
	for d.next() {
		switch d.num {
		case 1:
			m.Session = d.string()
		case 2:
			m.Reset = d.varint()
		default:
			d.skip()
		}
	}
	return errors.Wrap(d.err, "login_response")
}

// Replay asks the peer to resend from Seq.
type Replay struct {
	Seq uint64
}

func (m *Replay) marshal() []byte {
	return appendVarintField(nil, 1, m.Seq)
}

func (m *Replay) unmarshal(b []byte) error {
	d := newDecoder(b)
	for d.next() {
		switch d.num {
		case 1:
			m.Seq = d.varint()
		default:
			d.skip()
		}
	}
	return errors.Wrap(d.err, "replay")
}

type Logout struct {
	Reason LogoutReason
}

func (m *Logout) marshal() []byte {
	return appendVarintField(nil, 1, uint64(m.Reason))
}

func (m *Logout) unmarshal(b []byte) error {
	d := newDecoder(b)
	for d.next() {
		switch d.num {
		case 1:
			m.Reason = LogoutReason(d.int32())
		default:
			d.skip()
		}
	}
	return errors.Wrap(d.err, "logout")
}

// OrderCreate is a new order instruction.
type OrderCreate struct {
	Type         OrderCreateType
	Market       Uuid128
	Contract     Uuid128
	Side         Side
	QuantityType QuantityType
	Quantity     uint64
	PriceType    PriceType
	Price        uint64
	TimeInForce  TimeInForce
	Reference    uint64
}

func (m *OrderCreate) marshal() []byte {
	b := appendVarintField(nil, 1, uint64(m.Type))
	b = appendMessageField(b, 2, m.Market.marshal())
	b = appendMessageField(b, 3, m.Contract.marshal())
	b = appendVarintField(b, 4, uint64(m.Side))
	b = appendVarintField(b, 5, uint64(m.QuantityType))
	b = appendVarintField(b, 6, m.Quantity)
	b = appendVarintField(b, 7, uint64(m.PriceType))
	b = appendVarintField(b, 8, m.Price)
	b = appendOptionalVarint(b, 9, uint64(m.TimeInForce))
	return appendOptionalVarint(b, 10, m.Reference)
}

func (m *OrderCreate) unmarshal(b []byte) error {
	d := newDecoder(b)
	for d.next() {
		switch d.num {
		case 1:
			m.Type = OrderCreateType(d.int32())
		case 2:
			d.message(m.Market.unmarshal)
		case 3:
			d.message(m.Contract.unmarshal)
		case 4:
			m.Side = Side(d.int32())
		case 5:
			m.QuantityType = QuantityType(d.int32())
		case 6:
			m.Quantity = d.varint()
		case 7:
			m.PriceType = PriceType(d.int32())
		case 8:
			m.Price = d.varint()
		case 9:
			m.TimeInForce = TimeInForce(d.int32())
		case 10:
			m.Reference = d.varint()
		default:
			d.skip()
		}
	}
	return errors.Wrap(d.err, "order_create")
}

// OrderAccepted acknowledges the order created with outgoing sequence Seq.
type OrderAccepted struct {
	Seq       uint64
	Order     Uuid128
	Reference uint64
}

func (m *OrderAccepted) marshal() []byte {
	b := appendVarintField(nil, 1, m.Seq)
	b = appendMessageField(b, 2, m.Order.marshal())
	return appendOptionalVarint(b, 3, m.Reference)
}

func (m *OrderAccepted) unmarshal(b []byte) error {
	d := newDecoder(b)
	for d.next() {
		switch d.num {
		case 1:
			m.Seq = d.varint()
		case 2:
			d.message(m.Order.unmarshal)
		case 3:
			m.Reference = d.varint()
		default:
			d.skip()
		}
	}
	return errors.Wrap(d.err, "order_accepted")
}

type OrderRejected struct {
	Seq       uint64
	Reason    OrderRejectedReason
	Reference uint64
}

func (m *OrderRejected) marshal() []byte {
	b := appendVarintField(nil, 1, m.Seq)
	b = appendVarintField(b, 2, uint64(m.Reason))
	return appendOptionalVarint(b, 3, m.Reference)
}

func (m *OrderRejected) unmarshal(b []byte) error {
	d := newDecoder(b)
	for d.next() {
		switch d.num {
		case 1:
			m.Seq = d.varint()
		case 2:
			m.Reason = OrderRejectedReason(d.int32())
		case 3:
			m.Reference = d.varint()
		default:
			d.skip()
		}
	}
	return errors.Wrap(d.err, "order_rejected")
}

// OrderRef is the body of messages that only name an order.
type OrderRef struct {
	Order Uuid128
}

func (m *OrderRef) marshal() []byte {
	return appendMessageField(nil, 1, m.Order.marshal())
}

func (m *OrderRef) unmarshal(b []byte) error {
	d := newDecoder(b)
	for d.next() {
		switch d.num {
		case 1:
			d.message(m.Order.unmarshal)
		default:
			d.skip()
		}
	}
	return errors.Wrap(d.err, "order")
}

type OrderCancelled struct {
	Order  Uuid128
	Reason OrderCancelledReason
}

func (m *OrderCancelled) marshal() []byte {
	b := appendMessageField(nil, 1, m.Order.marshal())
	return appendVarintField(b, 2, uint64(m.Reason))
}

func (m *OrderCancelled) unmarshal(b []byte) error {
	d := newDecoder(b)
	for d.next() {
		switch d.num {
		case 1:
			d.message(m.Order.unmarshal)
		case 2:
			m.Reason = OrderCancelledReason(d.int32())
		default:
			d.skip()
		}
	}
	return errors.Wrap(d.err, "order_cancelled")
}

// MarketRef is the body of messages that only name a market: subscribe,
// unsubscribe and orders-for-market requests.
type MarketRef struct {
	Market Uuid128
}

func (m *MarketRef) marshal() []byte {
	return appendMessageField(nil, 1, m.Market.marshal())
}

func (m *MarketRef) unmarshal(b []byte) error {
	d := newDecoder(b)
	for d.next() {
		switch d.num {
		case 1:
			d.message(m.Market.unmarshal)
		default:
			d.skip()
		}
	}
	return errors.Wrap(d.err, "market")
}
