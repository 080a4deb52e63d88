// Package session runs the sequenced login, heartbeat and replay protocol on
// top of a Transport.
//
// Outbound state (buffer, frame ledger, outseq, pendingOutseq) is guarded so
// one goroutine may read and dispatch while another flushes. The inbound side
// (Read, NextMessage) has a single consumer.
package session

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/smarkets/smkstream/pkg/framing"
	"github.com/smarkets/smkstream/pkg/monitor"
	"github.com/smarkets/smkstream/pkg/smklog"
	"github.com/smarkets/smkstream/pkg/smkproto"
	"github.com/smarkets/smkstream/pkg/transport"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var ErrSessionClosed = errors.New("session: closed")

type Session struct {
	Statistics
	smklog.Log
	flushLog smklog.Log

	settings   Settings
	opts       *Options
	gapPolicy  GapPolicy
	transport  Transport
	serializer smkproto.Serializer
	mon        monitor.IMonitor

	mu            sync.Mutex
	out           *outBuffer
	outPayload    smkproto.Payload
	outseq        atomic.Uint64
	pendingOutseq atomic.Uint64
	buffered      atomic.Int64
	closed        bool

	inseq atomic.Uint64
	in    *inBuffer
	queue [][]byte

	token atomic.String
	state atomic.Int32
}

func New(settings Settings, opt ...Option) (*Session, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	opts := NewOptions()
	for _, op := range opt {
		if op != nil {
			if err := op(opts); err != nil {
				return nil, err
			}
		}
	}
	s := &Session{
		Log:        smklog.NewSmkLog("session"),
		flushLog:   smklog.NewSmkLog("session.flush"),
		settings:   settings,
		opts:       opts,
		gapPolicy:  settings.GapPolicy,
		transport:  opts.Transport,
		serializer: opts.Serializer,
		mon:        opts.Monitor,
		out:        newOutBuffer(),
		in:         newInBuffer(),
	}
	if opts.GapPolicy != nil {
		s.gapPolicy = *opts.GapPolicy
	}
	if s.transport == nil {
		cfg, err := settings.TransportConfig()
		if err != nil {
			return nil, err
		}
		s.transport = transport.New(cfg)
	}
	if s.serializer == nil {
		s.serializer = smkproto.ProtoSerializer{}
	}
	if s.mon == nil {
		s.mon = monitor.NewMonitor(false)
	}
	s.inseq.Store(opts.InSeq)
	s.outseq.Store(opts.OutSeq)
	s.pendingOutseq.Store(opts.OutSeq)
	s.token.Store(settings.ResumeToken)
	return s, nil
}

// Connect opens the transport and sends a login. It does nothing when already
// connected.
func (s *Session) Connect() error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	if s.transport.Connected() {
		s.Debug("connect called, but already connected")
		return nil
	}
	prev := s.State()
	s.setState(CONNECTING)
	ok, err := s.transport.Connect()
	if err != nil {
		s.setState(DISCONNECTED)
		return err
	}
	if !ok {
		// someone else opened the transport in between
		s.setState(prev)
		return nil
	}
	s.mon.ConnectedSet(true)
	s.in.reset()
	s.queue = nil

	s.mu.Lock()
	s.out.reset()
	s.buffered.Store(0)
	s.pendingOutseq.Store(s.outseq.Load())

	login := &s.outPayload
	login.Reset()
	login.Type = smkproto.SetoLogin
	login.Eto.Type = smkproto.EtoLogin
	login.Login = &smkproto.Login{
		Username: s.settings.Username,
		Password: s.settings.Password,
		Session:  s.token.Load(),
	}
	if s.settings.AccountSequence != 0 {
		s.Info("attempting to resume session", zap.Uint64("accountSequence", s.settings.AccountSequence))
		login.Login.AccountSequence = s.settings.AccountSequence
	}
	s.Info("sending login payload", zap.Bool("resume", login.Login.Session != ""))
	err = s.appendLocked(login)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.setState(AWAITING_LOGIN_RESPONSE)
	return s.Flush()
}

// Logout sends a logout, flushes it and closes the transport.
func (s *Session) Logout() error {
	err := s.BeginLogout()
	s.Disconnect()
	return err
}

// BeginLogout sends and flushes a logout but leaves the transport open so the
// caller can read the server's confirmation before calling Disconnect.
func (s *Session) BeginLogout() error {
	s.Info("sending logout payload")
	err := s.Send(func(p *smkproto.Payload) {
		p.Type = smkproto.SetoEto
		p.Eto.Type = smkproto.EtoLogout
		p.Eto.Logout = &smkproto.Logout{Reason: smkproto.LogoutNone}
	})
	if err != nil {
		return err
	}
	s.setState(DISCONNECTING)
	return s.Flush()
}

// Disconnect closes the transport. Queued outbound bytes are kept until the
// next Connect discards them.
func (s *Session) Disconnect() {
	s.transport.Disconnect()
	s.setState(DISCONNECTED)
	s.mon.ConnectedSet(false)
}

// Close disconnects and returns the session buffers to their pool. The
// session cannot be used afterwards.
func (s *Session) Close() {
	s.Disconnect()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	releaseBuffers(s.out, s.in)
	s.queue = nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Send resets the outgoing payload, lets build fill it, stamps it with the
// next outbound sequence number and buffers the frame. Nothing is written
// until Flush.
func (s *Session) Send(build func(p *smkproto.Payload)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.outPayload.Reset()
	build(&s.outPayload)
	return s.appendLocked(&s.outPayload)
}

func (s *Session) appendLocked(p *smkproto.Payload) error {
	seq := s.pendingOutseq.Load()
	p.Eto.Seq = seq
	if p.Eto.Type == 0 {
		p.Eto.Type = smkproto.EtoNone
	}
	data, err := s.serializer.Marshal(p)
	if err != nil {
		return errors.Wrapf(err, "serialize %s", p.Name())
	}
	s.Debug("buffering payload", zap.Uint64("seq", seq), zap.String("type", p.Name()))
	s.buffered.Add(int64(s.out.appendFrame(data)))
	s.pendingOutseq.Inc()
	s.OutMsgs.Inc()
	s.mon.UpstreamMessageInc(p.Name())
	s.mon.OutboundBufferedSet(int(s.buffered.Load()))
	if s.opts.OutboundLog != nil {
		if err := s.opts.OutboundLog.Append(seq, data); err != nil {
			s.Warn("outbound log append failed", zap.Uint64("seq", seq), zap.Error(err))
		}
	}
	return nil
}

// Flush writes the outbound buffer until it is empty, trimming exactly what
// the transport accepted. outseq advances once per fully written frame.
func (s *Session) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.out.len() == 0 {
		return nil
	}
	s.flushLog.Debug("flushing payloads", zap.Int("frames", s.out.frameCount()), zap.Int("bytes", s.out.len()))
	for s.out.len() > 0 {
		n, err := s.transport.Send(s.out.bytes())
		if n > 0 {
			done := s.out.consume(n)
			s.outseq.Add(uint64(done))
			s.buffered.Sub(int64(n))
			s.OutBytes.Add(uint64(n))
			s.mon.UpstreamTrafficAdd(n)
		}
		if err != nil {
			s.mon.OutboundBufferedSet(s.out.len())
			return err
		}
		if n == 0 {
			return transport.ErrSocketDisconnected
		}
	}
	s.mon.OutboundBufferedSet(0)
	s.mon.SeqSet(s.inseq.Load(), s.outseq.Load())
	return nil
}

// Read makes one transport read and queues every complete frame it finished.
func (s *Session) Read() error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	data, err := s.transport.Recv()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	s.InBytes.Add(uint64(len(data)))
	s.mon.DownstreamTrafficAdd(len(data))
	s.in.write(data)
	payloads, rest := s.in.decode()
	s.queue = append(s.queue, payloads...)
	if len(rest) > 0 {
		// a header that can never terminate will never become a frame
		if _, _, err := framing.DecodeVarint(rest); errors.Is(err, framing.ErrVarintOverflow) {
			bad := append([]byte(nil), rest...)
			s.in.reset()
			return &DecodeError{Err: err, Payload: bad}
		}
	}
	return nil
}

// NextMessage pops and checks the oldest decoded payload. It returns nil with
// no error when the queue is empty or the popped message was consumed by the
// protocol: a heartbeat, a gap, a duplicate or an out of order replay.
func (s *Session) NextMessage() (*smkproto.Payload, error) {
	for len(s.queue) > 0 {
		raw := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]

		msg := &smkproto.Payload{}
		if err := s.serializer.Unmarshal(raw, msg); err != nil {
			return nil, &DecodeError{Err: err, Payload: raw}
		}
		s.Debug("received message", zap.String("msg", msg.String()))
		hidden := s.intercept(msg)

		seq, inseq := msg.Eto.Seq, s.inseq.Load()
		switch {
		case seq == inseq:
			s.inseq.Inc()
			s.InMsgs.Inc()
			s.mon.DownstreamMessageInc(msg.Name())
			if hidden {
				continue
			}
			return msg, nil
		case msg.Eto.Type == smkproto.EtoReplay:
			s.Debug("received replay message out of sequence", zap.Uint64("seq", seq), zap.Uint64("expected", inseq))
			return nil, nil
		case seq > inseq:
			s.Gaps.Inc()
			s.mon.GapInc()
			s.Info("sequence gap", zap.Uint64("seq", seq), zap.Uint64("expected", inseq), zap.Stringer("policy", s.gapPolicy))
			if s.gapPolicy == GapReplay {
				if err := s.requestReplay(inseq); err != nil {
					return nil, err
				}
			}
			return nil, nil
		default:
			s.Duplicates.Inc()
			s.mon.DuplicateInc()
			s.Debug("dropping stale message", zap.Uint64("seq", seq), zap.Uint64("expected", inseq))
			return nil, nil
		}
	}
	return nil, nil
}

// intercept handles the protocol messages the session answers itself and
// reports whether msg stays hidden from the application.
func (s *Session) intercept(msg *smkproto.Payload) bool {
	if msg.Type != smkproto.SetoEto {
		return false
	}
	switch msg.Eto.Type {
	case smkproto.EtoLoginResponse:
		resp := msg.Eto.LoginResponse
		if resp == nil {
			resp = &smkproto.LoginResponse{}
		}
		s.mu.Lock()
		s.token.Store(resp.Session)
		s.outseq.Store(resp.Reset)
		s.pendingOutseq.Store(resp.Reset)
		s.out.reset()
		s.buffered.Store(0)
		s.mu.Unlock()
		s.setState(ACTIVE)
		s.Logins.Inc()
		s.mon.LoginInc()
		s.mon.OutboundBufferedSet(0)
		s.Info("received login response", zap.String("session", resp.Session), zap.Uint64("outseq", resp.Reset))
	case smkproto.EtoHeartbeat:
		s.Debug("received heartbeat message, responding")
		s.Heartbeats.Inc()
		s.mon.HeartbeatInc()
		err := s.Send(func(p *smkproto.Payload) {
			p.Type = smkproto.SetoEto
			p.Eto.Type = smkproto.EtoHeartbeat
		})
		if err != nil {
			s.Warn("heartbeat reply failed", zap.Error(err))
		}
		return true
	}
	return false
}

func (s *Session) requestReplay(seq uint64) error {
	return s.Send(func(p *smkproto.Payload) {
		p.Type = smkproto.SetoEto
		p.Eto.Type = smkproto.EtoReplay
		p.Eto.Replay = &smkproto.Replay{Seq: seq}
	})
}

func (s *Session) setState(st State) {
	old := State(s.state.Swap(int32(st)))
	if old != st {
		s.Debug("state changed", zap.Stringer("from", old), zap.Stringer("to", st))
	}
}

// InSeq is the next inbound sequence number expected.
func (s *Session) InSeq() uint64 {
	return s.inseq.Load()
}

// OutSeq is the sequence number of the next frame to be confirmed written.
func (s *Session) OutSeq() uint64 {
	return s.outseq.Load()
}

// PendingOutSeq is the sequence number the next Send will stamp.
func (s *Session) PendingOutSeq() uint64 {
	return s.pendingOutseq.Load()
}

// SessionToken is the token from the last login response, or the configured
// resume token before one arrives.
func (s *Session) SessionToken() string {
	return s.token.Load()
}

func (s *Session) Connected() bool {
	return s.transport.Connected()
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Buffered is the number of outbound bytes not yet written.
func (s *Session) Buffered() int {
	return int(s.buffered.Load())
}

// Pending is the number of decoded payloads waiting for NextMessage.
func (s *Session) Pending() int {
	return len(s.queue)
}

func (s *Session) Settings() Settings {
	return s.settings
}
