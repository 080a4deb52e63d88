// Package client dispatches messages from a Session to registered handlers
// and wraps the common requests of the streaming API.
package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	pkgerrors "github.com/pkg/errors"
	"github.com/smarkets/smkstream/pkg/monitor"
	"github.com/smarkets/smkstream/pkg/session"
	"github.com/smarkets/smkstream/pkg/smklog"
	"github.com/smarkets/smkstream/pkg/smkproto"
	"github.com/smarkets/smkstream/pkg/transport"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Message is anything that can fill an outgoing payload.
type Message interface {
	CopyTo(p *smkproto.Payload)
}

type Client struct {
	Statistics
	smklog.Log

	session *session.Session
	opts    *Options
	mon     monitor.IMonitor

	mu       sync.RWMutex
	handlers map[string][]handlerEntry
	globals  []globalEntry
	idGen    atomic.Uint64

	refs      *snowflake.Node
	flushKick chan struct{}
}

func New(s *session.Session, opt ...Option) *Client {
	var opts = NewOptions()
	for _, op := range opt {
		if op != nil {
			if err := op(opts); err != nil {
				panic(err)
			}
		}
	}
	refs, err := snowflake.NewNode(opts.NodeID)
	if err != nil {
		panic(err)
	}
	c := &Client{
		Log:       smklog.NewSmkLog("client"),
		session:   s,
		opts:      opts,
		mon:       opts.Monitor,
		handlers:  newRegistry(),
		refs:      refs,
		flushKick: make(chan struct{}, 1),
	}
	if c.mon == nil {
		c.mon = monitor.NewMonitor(false)
	}
	return c
}

func (c *Client) Session() *session.Session {
	return c.session
}

// AddHandler registers fn for messages resolving to name.
func (c *Client) AddHandler(name string, fn Handler) (HandlerID, error) {
	if fn == nil {
		return 0, ErrNilHandler
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	hs, ok := c.handlers[name]
	if !ok {
		return 0, &InvalidCallbackError{Name: name}
	}
	id := HandlerID(c.idGen.Inc())
	c.handlers[name] = append(hs[:len(hs):len(hs)], handlerEntry{id: id, fn: fn})
	return id, nil
}

func (c *Client) RemoveHandler(name string, id HandlerID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	hs, ok := c.handlers[name]
	if !ok {
		return &InvalidCallbackError{Name: name}
	}
	hs, ok = without(hs, id)
	if !ok {
		return ErrHandlerNotRegistered
	}
	c.handlers[name] = hs
	return nil
}

// AddGlobalHandler registers fn for every dispatched message.
func (c *Client) AddGlobalHandler(fn GlobalHandler) (HandlerID, error) {
	if fn == nil {
		return 0, ErrNilHandler
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	id := HandlerID(c.idGen.Inc())
	c.globals = append(c.globals[:len(c.globals):len(c.globals)], globalEntry{id: id, fn: fn})
	return id, nil
}

func (c *Client) RemoveGlobalHandler(id HandlerID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	globals, ok := without(c.globals, id)
	if !ok {
		return ErrHandlerNotRegistered
	}
	c.globals = globals
	return nil
}

// Dispatch runs the handlers registered for msg's type, in registration
// order, then every global handler. The first handler error stops dispatch
// and is returned; handlers already run are not undone.
func (c *Client) Dispatch(msg *smkproto.Payload) error {
	name := msg.Name()
	if name == "" {
		name = msg.Type.String()
		if msg.Type == smkproto.SetoEto {
			name = msg.Eto.Type.String()
		}
	}

	c.mu.RLock()
	hs := c.handlers[name]
	globals := c.globals
	c.mu.RUnlock()

	start := time.Now()
	if len(hs) == 0 {
		c.Unhandled.Inc()
		c.Debug("ignoring unhandled message", zap.String("name", name))
	} else {
		c.Debug("dispatching callback", zap.String("name", name), zap.Int("handlers", len(hs)))
	}
	for _, h := range hs {
		if err := h.fn(msg); err != nil {
			return c.handlerFailed(name, err)
		}
	}
	for _, g := range globals {
		if err := g.fn(name, msg); err != nil {
			return c.handlerFailed(name, err)
		}
	}
	c.Dispatched.Inc()
	c.mon.DispatchObserve(name, time.Since(start))
	return nil
}

func (c *Client) handlerFailed(name string, err error) error {
	c.HandlerErrors.Inc()
	c.mon.HandlerErrorInc(name)
	return pkgerrors.Wrapf(err, "handler for %s", name)
}

// Login connects and logs in. With receive it also reads and dispatches one
// message, normally the login response.
func (c *Client) Login(receive bool) error {
	if err := c.session.Connect(); err != nil {
		return err
	}
	if receive {
		return c.Read(1)
	}
	return nil
}

// Logout sends a logout and disconnects. With receive it first waits for one
// more message, normally the server's logout confirmation.
func (c *Client) Logout(receive bool) error {
	err := c.session.BeginLogout()
	if err == nil && receive {
		err = c.Read(1)
		if errors.Is(err, transport.ErrSocketDisconnected) {
			err = nil
		}
	}
	c.session.Disconnect()
	return err
}

// Read takes n messages off the session, blocking on the socket when nothing
// is queued, and dispatches those that reach the application. Messages the
// session consumes itself still count towards n.
func (c *Client) Read(n int) error {
	for i := 0; i < n; i++ {
		msg, err := c.nextFrame()
		if err != nil {
			return err
		}
		if msg == nil {
			continue
		}
		if err = c.Dispatch(msg); err != nil {
			return err
		}
	}
	return nil
}

// nextFrame blocks until at least one whole frame is queued, then pops it.
func (c *Client) nextFrame() (*smkproto.Payload, error) {
	for c.session.Pending() == 0 {
		if err := c.session.Read(); err != nil {
			return nil, err
		}
	}
	return c.session.NextMessage()
}

func (c *Client) Flush() error {
	return c.session.Flush()
}

// Send builds a payload in place and queues it, flushing when AutoFlush is on.
func (c *Client) Send(build func(p *smkproto.Payload)) error {
	if err := c.session.Send(build); err != nil {
		return err
	}
	if c.opts.AutoFlush {
		return c.session.Flush()
	}
	c.kickFlusher()
	return nil
}

// SendMessage queues m.
func (c *Client) SendMessage(m Message) error {
	return c.Send(m.CopyTo)
}

func (c *Client) Ping() error {
	return c.Send(func(p *smkproto.Payload) {
		p.Type = smkproto.SetoEto
		p.Eto.Type = smkproto.EtoPing
	})
}

func (c *Client) Subscribe(market smkproto.Uuid128) error {
	return c.Send(func(p *smkproto.Payload) {
		p.Type = smkproto.SetoMarketSubscribe
		p.MarketSubscribe = &smkproto.MarketRef{Market: market}
	})
}

func (c *Client) Unsubscribe(market smkproto.Uuid128) error {
	return c.Send(func(p *smkproto.Payload) {
		p.Type = smkproto.SetoMarketUnsubscribe
		p.MarketUnsubscribe = &smkproto.MarketRef{Market: market}
	})
}

func (c *Client) RequestAccountState() error {
	return c.Send(func(p *smkproto.Payload) {
		p.Type = smkproto.SetoAccountStateRequest
	})
}

func (c *Client) RequestOrdersForAccount() error {
	return c.Send(func(p *smkproto.Payload) {
		p.Type = smkproto.SetoOrdersForAccountRequest
	})
}

func (c *Client) RequestOrdersForMarket(market smkproto.Uuid128) error {
	return c.Send(func(p *smkproto.Payload) {
		p.Type = smkproto.SetoOrdersForMarketRequest
		p.OrdersForMarketRequest = &smkproto.MarketRef{Market: market}
	})
}

// RequestEvents asks for an events listing built with
// smkproto.NewEventsRequest or smkproto.NewSportByDate.
func (c *Client) RequestEvents(r *smkproto.EventsRequest) error {
	return c.SendMessage(r)
}

// CreateOrder validates o and queues it. An order without a reference gets
// a generated one, returned so the caller can match the order accepted or
// rejected reply.
func (c *Client) CreateOrder(o *smkproto.OrderCreate) (uint64, error) {
	if err := o.Validate(); err != nil {
		return 0, err
	}
	order := *o
	if order.Reference == 0 {
		order.Reference = uint64(c.refs.Generate().Int64())
	}
	return order.Reference, c.SendMessage(&order)
}

func (c *Client) CancelOrder(order smkproto.Uuid128) error {
	return c.Send(func(p *smkproto.Payload) {
		p.Type = smkproto.SetoOrderCancel
		p.OrderCancel = &smkproto.OrderRef{Order: order}
	})
}

func (c *Client) kickFlusher() {
	select {
	case c.flushKick <- struct{}{}:
	default:
	}
}

// Run reads and dispatches on one goroutine and flushes on another until ctx
// is done or either side fails. The session must already be logged in.
// Cancelling ctx disconnects the transport, which unblocks the reader.
func (c *Client) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		c.session.Disconnect()
		return nil
	})
	g.Go(func() error {
		return c.readLoop(ctx)
	})
	g.Go(func() error {
		return c.flusher(ctx)
	})
	return g.Wait()
}

func (c *Client) readLoop(ctx context.Context) error {
	for {
		msg, err := c.nextFrame()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.Warn("read loop stopped", zap.Error(err))
			return err
		}
		if msg != nil {
			if err = c.Dispatch(msg); err != nil {
				c.Error("dispatch failed", zap.Error(err))
				return err
			}
		}
		// heartbeat and replay replies are queued, not flushed, by the session
		if c.session.Buffered() > 0 {
			c.kickFlusher()
		}
	}
}

func (c *Client) flusher(ctx context.Context) error {
	var tick <-chan time.Time
	if c.opts.FlushInterval > 0 {
		ticker := time.NewTicker(c.opts.FlushInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.flushKick:
		case <-tick:
		}
		if c.session.Buffered() == 0 {
			continue
		}
		if err := c.session.Flush(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.Warn("flush failed", zap.Error(err))
			return err
		}
	}
}
