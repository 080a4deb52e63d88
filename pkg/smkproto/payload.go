package smkproto

import (
	"fmt"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// EtoPayload is the session level envelope every message carries.
type EtoPayload struct {
	Seq           uint64
	Type          EtoType
	IsReplay      bool
	Replay        *Replay
	LoginResponse *LoginResponse
	Logout        *Logout

	unknown []byte
}

// Payload is one application message. Bodies unrelated to Type are nil.
type Payload struct {
	Type SetoType
	Eto  EtoPayload

	Login                  *Login
	OrderCreate            *OrderCreate
	OrderAccepted          *OrderAccepted
	OrderRejected          *OrderRejected
	OrderCancel            *OrderRef
	OrderCancelled         *OrderCancelled
	MarketSubscribe        *MarketRef
	MarketUnsubscribe      *MarketRef
	OrdersForMarketRequest *MarketRef
	EventsRequest          *EventsRequest

	unknown []byte
}

// Reset clears p so it can be filled again.
func (p *Payload) Reset() {
	*p = Payload{}
}

// Name is the dispatch name of p. Session level messages resolve through their
// inner type so handlers can subscribe to e.g. "eto.pong" directly.
func (p *Payload) Name() string {
	if p.Type == SetoEto {
		return p.Eto.Type.Name()
	}
	return p.Type.Name()
}

func (p *Payload) String() string {
	return fmt.Sprintf("%s seq:%d replay:%t", p.Name(), p.Eto.Seq, p.Eto.IsReplay)
}

// Clone returns a deep copy of p. Handlers that keep a message past the
// callback must clone it.
func (p *Payload) Clone() *Payload {
	c := *p
	c.Eto = p.Eto.clone()
	c.Login = clonePtr(p.Login)
	c.OrderCreate = clonePtr(p.OrderCreate)
	c.OrderAccepted = clonePtr(p.OrderAccepted)
	c.OrderRejected = clonePtr(p.OrderRejected)
	c.OrderCancel = clonePtr(p.OrderCancel)
	c.OrderCancelled = clonePtr(p.OrderCancelled)
	c.MarketSubscribe = clonePtr(p.MarketSubscribe)
	c.MarketUnsubscribe = clonePtr(p.MarketUnsubscribe)
	c.OrdersForMarketRequest = clonePtr(p.OrdersForMarketRequest)
	if p.EventsRequest != nil {
		c.EventsRequest = p.EventsRequest.clone()
	}
	c.unknown = append([]byte(nil), p.unknown...)
	return &c
}

func (e EtoPayload) clone() EtoPayload {
	c := e
	c.Replay = clonePtr(e.Replay)
	c.LoginResponse = clonePtr(e.LoginResponse)
	c.Logout = clonePtr(e.Logout)
	c.unknown = append([]byte(nil), e.unknown...)
	return c
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func (e *EtoPayload) marshal() ([]byte, error) {
	if e.Type == 0 {
		return nil, errors.Wrap(ErrMissingField, "eto_payload.type")
	}
	b := appendVarintField(nil, 1, e.Seq)
	b = appendVarintField(b, 2, uint64(e.Type))
	b = appendVarintField(b, 3, protowire.EncodeBool(e.IsReplay))
	if e.Replay != nil {
		b = appendMessageField(b, 4, e.Replay.marshal())
	}
	if e.LoginResponse != nil {
		b = appendMessageField(b, 6, e.LoginResponse.marshal())
	}
	if e.Logout != nil {
		b = appendMessageField(b, 7, e.Logout.marshal())
	}
	return append(b, e.unknown...), nil
}

func (e *EtoPayload) unmarshal(b []byte) error {
	d := newDecoder(b)
	for d.next() {
		switch d.num {
		case 1:
			e.Seq = d.varint()
		case 2:
			e.Type = EtoType(d.int32())
		case 3:
			e.IsReplay = d.bool()
		case 4:
			e.Replay = &Replay{}
			d.message(e.Replay.unmarshal)
		case 6:
			e.LoginResponse = &LoginResponse{}
			d.message(e.LoginResponse.unmarshal)
		case 7:
			e.Logout = &Logout{}
			d.message(e.Logout.unmarshal)
		default:
			e.unknown = append(e.unknown, d.skip()...)
		}
	}
	if d.err != nil {
		return errors.Wrap(d.err, "eto_payload")
	}
	if e.Type == 0 {
		return errors.Wrap(ErrMissingField, "eto_payload.type")
	}
	return nil
}

// Marshal encodes p in protobuf wire format.
func (p *Payload) Marshal() ([]byte, error) {
	if p.Type == 0 {
		return nil, errors.Wrap(ErrMissingField, "payload.type")
	}
	eto, err := p.Eto.marshal()
	if err != nil {
		return nil, err
	}
	b := appendVarintField(nil, 1, uint64(p.Type))
	b = appendMessageField(b, 2, eto)
	if p.Login != nil {
		b = appendMessageField(b, 3, p.Login.marshal())
	}
	if p.OrderCreate != nil {
		b = appendMessageField(b, 4, p.OrderCreate.marshal())
	}
	if p.OrderAccepted != nil {
		b = appendMessageField(b, 5, p.OrderAccepted.marshal())
	}
	if p.OrderRejected != nil {
		b = appendMessageField(b, 6, p.OrderRejected.marshal())
	}
	if p.OrderCancel != nil {
		b = appendMessageField(b, 7, p.OrderCancel.marshal())
	}
	if p.OrderCancelled != nil {
		b = appendMessageField(b, 8, p.OrderCancelled.marshal())
	}
	if p.MarketSubscribe != nil {
		b = appendMessageField(b, 9, p.MarketSubscribe.marshal())
	}
	if p.MarketUnsubscribe != nil {
		b = appendMessageField(b, 10, p.MarketUnsubscribe.marshal())
	}
	if p.OrdersForMarketRequest != nil {
		b = appendMessageField(b, 11, p.OrdersForMarketRequest.marshal())
	}
	if p.EventsRequest != nil {
		b = appendMessageField(b, 12, p.EventsRequest.marshal())
	}
	return append(b, p.unknown...), nil
}

// Unmarshal decodes b into p, replacing its contents. Unknown fields are kept
// and written back by Marshal.
func (p *Payload) Unmarshal(b []byte) error {
	p.Reset()
	var sawEto bool
	d := newDecoder(b)
	for d.next() {
		switch d.num {
		case 1:
			p.Type = SetoType(d.int32())
		case 2:
			sawEto = true
			d.message(p.Eto.unmarshal)
		case 3:
			p.Login = &Login{}
			d.message(p.Login.unmarshal)
		case 4:
			p.OrderCreate = &OrderCreate{}
			d.message(p.OrderCreate.unmarshal)
		case 5:
			p.OrderAccepted = &OrderAccepted{}
			d.message(p.OrderAccepted.unmarshal)
		case 6:
			p.OrderRejected = &OrderRejected{}
			d.message(p.OrderRejected.unmarshal)
		case 7:
			p.OrderCancel = &OrderRef{}
			d.message(p.OrderCancel.unmarshal)
		case 8:
			p.OrderCancelled = &OrderCancelled{}
			d.message(p.OrderCancelled.unmarshal)
		case 9:
			p.MarketSubscribe = &MarketRef{}
			d.message(p.MarketSubscribe.unmarshal)
		case 10:
			p.MarketUnsubscribe = &MarketRef{}
			d.message(p.MarketUnsubscribe.unmarshal)
		case 11:
			p.OrdersForMarketRequest = &MarketRef{}
			d.message(p.OrdersForMarketRequest.unmarshal)
		case 12:
			p.EventsRequest = &EventsRequest{}
			d.message(p.EventsRequest.unmarshal)
		default:
			p.unknown = append(p.unknown, d.skip()...)
		}
	}
	if d.err != nil {
		return errors.Wrap(d.err, "payload")
	}
	if p.Type == 0 {
		return errors.Wrap(ErrMissingField, "payload.type")
	}
	if !sawEto {
		return errors.Wrap(ErrMissingField, "payload.eto_payload")
	}
	return nil
}
