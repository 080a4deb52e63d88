package session

import (
	"bytes"
	"errors"
	"testing"

	"github.com/smarkets/smkstream/pkg/framing"
	"github.com/smarkets/smkstream/pkg/smkproto"
	"github.com/smarkets/smkstream/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	connected bool
	connects  int
	sent      []byte
	maxWrite  int
	zeroWrite bool
	chunks    [][]byte
}

func (f *fakeTransport) Connect() (bool, error) {
	if f.connected {
		return false, nil
	}
	f.connected = true
	f.connects++
	return true, nil
}

func (f *fakeTransport) Disconnect() {
	f.connected = false
}

func (f *fakeTransport) Send(data []byte) (int, error) {
	if !f.connected {
		return 0, transport.ErrSocketDisconnected
	}
	if f.zeroWrite {
		return 0, nil
	}
	n := len(data)
	if f.maxWrite > 0 && n > f.maxWrite {
		n = f.maxWrite
	}
	f.sent = append(f.sent, data[:n]...)
	return n, nil
}

func (f *fakeTransport) Recv() ([]byte, error) {
	if !f.connected || len(f.chunks) == 0 {
		return nil, transport.ErrSocketDisconnected
	}
	chunk := f.chunks[0]
	f.chunks = f.chunks[1:]
	return chunk, nil
}

func (f *fakeTransport) Connected() bool {
	return f.connected
}

func (f *fakeTransport) feed(frames ...[]byte) {
	f.chunks = append(f.chunks, bytes.Join(frames, nil))
}

// written decodes everything the session has put on the wire.
func (f *fakeTransport) written(t *testing.T) []*smkproto.Payload {
	payloads, rest := framing.DecodeAll(f.sent)
	require.Empty(t, rest)
	out := make([]*smkproto.Payload, 0, len(payloads))
	for _, data := range payloads {
		p := &smkproto.Payload{}
		require.NoError(t, p.Unmarshal(data))
		out = append(out, p)
	}
	return out
}

func inbound(seq uint64, build func(p *smkproto.Payload)) []byte {
	p := &smkproto.Payload{
		Type: smkproto.SetoEto,
		Eto:  smkproto.EtoPayload{Seq: seq, Type: smkproto.EtoNone},
	}
	if build != nil {
		build(p)
	}
	data, err := p.Marshal()
	if err != nil {
		panic(err)
	}
	return framing.EncodeFrame(data)
}

func loginResponse(seq uint64, token string, reset uint64) []byte {
	return inbound(seq, func(p *smkproto.Payload) {
		p.Eto.Type = smkproto.EtoLoginResponse
		p.Eto.LoginResponse = &smkproto.LoginResponse{Session: token, Reset: reset}
	})
}

func orderAccepted(seq uint64) []byte {
	return inbound(seq, func(p *smkproto.Payload) {
		p.Type = smkproto.SetoOrderAccepted
		p.OrderAccepted = &smkproto.OrderAccepted{Seq: 3, Order: smkproto.Uuid128{Low: 9}}
	})
}

func heartbeat(seq uint64) []byte {
	return inbound(seq, func(p *smkproto.Payload) {
		p.Eto.Type = smkproto.EtoHeartbeat
	})
}

func newTestSession(t *testing.T, opt ...Option) (*Session, *fakeTransport) {
	ft := &fakeTransport{}
	s, err := New(NewSettings("user", "secret"), append([]Option{WithTransport(ft)}, opt...)...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, ft
}

func connected(t *testing.T, opt ...Option) (*Session, *fakeTransport) {
	s, ft := newTestSession(t, opt...)
	require.NoError(t, s.Connect())
	ft.feed(loginResponse(1, "tok", 2))
	require.NoError(t, s.Read())
	msg, err := s.NextMessage()
	require.NoError(t, err)
	require.NotNil(t, msg)
	ft.sent = nil
	return s, ft
}

func TestConnectSendsLogin(t *testing.T) {
	s, ft := newTestSession(t)
	assert.Equal(t, DISCONNECTED, s.State())

	require.NoError(t, s.Connect())
	assert.True(t, s.Connected())
	assert.Equal(t, AWAITING_LOGIN_RESPONSE, s.State())

	sent := ft.written(t)
	require.Len(t, sent, 1)
	login := sent[0]
	assert.Equal(t, smkproto.SetoLogin, login.Type)
	assert.Equal(t, smkproto.EtoLogin, login.Eto.Type)
	assert.Equal(t, uint64(1), login.Eto.Seq)
	require.NotNil(t, login.Login)
	assert.Equal(t, "user", login.Login.Username)
	assert.Equal(t, "secret", login.Login.Password)
	assert.Empty(t, login.Login.Session)

	assert.Equal(t, uint64(2), s.PendingOutSeq())
	assert.Equal(t, uint64(2), s.OutSeq())
	assert.Equal(t, 0, s.Buffered())

	// already connected: nothing more is sent
	require.NoError(t, s.Connect())
	assert.Equal(t, 1, ft.connects)
	assert.Len(t, ft.written(t), 1)
}

func TestConnectWithResumeToken(t *testing.T) {
	ft := &fakeTransport{}
	settings := NewSettings("user", "secret")
	settings.ResumeToken = "resume-me"
	settings.AccountSequence = 17
	s, err := New(settings, WithTransport(ft))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Connect())
	sent := ft.written(t)
	require.Len(t, sent, 1)
	assert.Equal(t, "resume-me", sent[0].Login.Session)
	assert.Equal(t, uint64(17), sent[0].Login.AccountSequence)
}

func TestLoginResponse(t *testing.T) {
	s, ft := newTestSession(t)
	require.NoError(t, s.Connect())

	// queued under the old numbering, must be discarded
	require.NoError(t, s.Send(func(p *smkproto.Payload) {
		p.Type = smkproto.SetoAccountStateRequest
	}))
	assert.NotZero(t, s.Buffered())

	ft.feed(loginResponse(1, "8zysBBGAD6nb95JDIO", 5))
	require.NoError(t, s.Read())
	msg, err := s.NextMessage()
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "eto.login_response", msg.Name())

	assert.Equal(t, ACTIVE, s.State())
	assert.Equal(t, "8zysBBGAD6nb95JDIO", s.SessionToken())
	assert.Equal(t, uint64(2), s.InSeq())
	assert.Equal(t, uint64(5), s.OutSeq())
	assert.Equal(t, uint64(5), s.PendingOutSeq())
	assert.Equal(t, 0, s.Buffered())
	assert.Equal(t, uint64(1), s.Logins.Load())

	ft.sent = nil
	require.NoError(t, s.Send(func(p *smkproto.Payload) {
		p.Type = smkproto.SetoEto
		p.Eto.Type = smkproto.EtoPing
	}))
	require.NoError(t, s.Flush())
	sent := ft.written(t)
	require.Len(t, sent, 1)
	assert.Equal(t, uint64(5), sent[0].Eto.Seq)
}

func TestInSeq(t *testing.T) {
	s, ft := connected(t, WithGapPolicy(GapDrop))
	require.Equal(t, uint64(2), s.InSeq())

	ft.feed(orderAccepted(2), orderAccepted(3))
	require.NoError(t, s.Read())
	assert.Equal(t, 2, s.Pending())
	for _, want := range []uint64{2, 3} {
		msg, err := s.NextMessage()
		require.NoError(t, err)
		require.NotNil(t, msg)
		assert.Equal(t, want, msg.Eto.Seq)
	}
	assert.Equal(t, uint64(4), s.InSeq())

	// stale duplicate
	ft.feed(orderAccepted(3))
	require.NoError(t, s.Read())
	msg, err := s.NextMessage()
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Equal(t, uint64(4), s.InSeq())
	assert.Equal(t, uint64(1), s.Duplicates.Load())

	// gap
	ft.feed(orderAccepted(9))
	require.NoError(t, s.Read())
	msg, err = s.NextMessage()
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Equal(t, uint64(4), s.InSeq())
	assert.Equal(t, uint64(1), s.Gaps.Load())
	assert.Equal(t, 0, s.Buffered())

	// empty queue
	msg, err = s.NextMessage()
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestGapRequestsReplay(t *testing.T) {
	s, ft := connected(t)
	pending := s.PendingOutSeq()

	ft.feed(orderAccepted(5))
	require.NoError(t, s.Read())
	msg, err := s.NextMessage()
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Equal(t, uint64(2), s.InSeq())

	// queued, not written
	assert.Empty(t, ft.sent)
	assert.NotZero(t, s.Buffered())
	assert.Equal(t, pending+1, s.PendingOutSeq())

	require.NoError(t, s.Flush())
	sent := ft.written(t)
	require.Len(t, sent, 1)
	assert.Equal(t, smkproto.EtoReplay, sent[0].Eto.Type)
	require.NotNil(t, sent[0].Eto.Replay)
	assert.Equal(t, uint64(2), sent[0].Eto.Replay.Seq)
	assert.Equal(t, pending, sent[0].Eto.Seq)
}

func TestReplayOutOfSequenceIsDropped(t *testing.T) {
	s, ft := connected(t)
	ft.feed(inbound(7, func(p *smkproto.Payload) {
		p.Eto.Type = smkproto.EtoReplay
		p.Eto.Replay = &smkproto.Replay{Seq: 1}
	}))
	require.NoError(t, s.Read())
	msg, err := s.NextMessage()
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Equal(t, uint64(2), s.InSeq())
	assert.Equal(t, 0, s.Buffered())
}

func TestHeartbeatIsAnswered(t *testing.T) {
	s, ft := connected(t)
	pending := s.PendingOutSeq()

	ft.feed(heartbeat(2), orderAccepted(3))
	require.NoError(t, s.Read())
	msg, err := s.NextMessage()
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "seto.order_accepted", msg.Name())
	assert.Equal(t, uint64(4), s.InSeq())
	assert.Equal(t, uint64(1), s.Heartbeats.Load())

	assert.Empty(t, ft.sent)
	require.NoError(t, s.Flush())
	sent := ft.written(t)
	require.Len(t, sent, 1)
	assert.Equal(t, smkproto.SetoEto, sent[0].Type)
	assert.Equal(t, smkproto.EtoHeartbeat, sent[0].Eto.Type)
	assert.Equal(t, pending, sent[0].Eto.Seq)
}

func TestHeartbeatAloneYieldsNothing(t *testing.T) {
	s, ft := connected(t)
	ft.feed(heartbeat(2))
	require.NoError(t, s.Read())
	msg, err := s.NextMessage()
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Equal(t, uint64(3), s.InSeq())
	assert.NotZero(t, s.Buffered())
}

func TestPendingOutseqIndependentOfFlush(t *testing.T) {
	s, ft := connected(t)
	start := s.PendingOutSeq()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Send(func(p *smkproto.Payload) {
			p.Type = smkproto.SetoOrdersForAccountRequest
		}))
		assert.Equal(t, start+uint64(i)+1, s.PendingOutSeq())
	}
	assert.Equal(t, start, s.OutSeq())
	assert.Empty(t, ft.sent)

	require.NoError(t, s.Flush())
	assert.Equal(t, start+3, s.OutSeq())
	assert.Equal(t, start+3, s.PendingOutSeq())
	sent := ft.written(t)
	require.Len(t, sent, 3)
	for i, p := range sent {
		assert.Equal(t, start+uint64(i), p.Eto.Seq)
	}
}

func TestFlushRetriesPartialWrites(t *testing.T) {
	s, ft := connected(t)
	ft.maxWrite = 3
	start := s.OutSeq()
	for i := 0; i < 4; i++ {
		require.NoError(t, s.Send(func(p *smkproto.Payload) {
			p.Type = smkproto.SetoMarketSubscribe
			p.MarketSubscribe = &smkproto.MarketRef{Market: smkproto.Uuid128{Low: uint64(i + 1)}}
		}))
	}
	buffered := s.Buffered()
	sentBefore := s.OutBytes.Load()
	require.NoError(t, s.Flush())
	assert.Equal(t, 0, s.Buffered())
	assert.Len(t, ft.sent, buffered)
	assert.Equal(t, start+4, s.OutSeq())
	assert.Equal(t, uint64(buffered), s.OutBytes.Load()-sentBefore)

	sent := ft.written(t)
	require.Len(t, sent, 4)
	assert.Equal(t, uint64(4), sent[3].MarketSubscribe.Market.Low)
}

func TestOutBufferCountsFramesAcrossPartialWrites(t *testing.T) {
	o := newOutBuffer()
	defer releaseBuffers(o, newInBuffer())
	o.appendFrame([]byte("a"))     // 4 bytes
	o.appendFrame([]byte("hello")) // 6 bytes
	assert.Equal(t, 10, o.len())
	assert.Equal(t, 0, o.consume(3))
	assert.Equal(t, 1, o.consume(1))
	assert.Equal(t, 0, o.consume(5))
	assert.Equal(t, 1, o.consume(1))
	assert.Equal(t, 0, o.len())
	assert.Equal(t, 0, o.frameCount())
}

func TestFlushZeroWriteIsDisconnect(t *testing.T) {
	s, ft := connected(t)
	require.NoError(t, s.Send(func(p *smkproto.Payload) {
		p.Type = smkproto.SetoAccountStateRequest
	}))
	ft.zeroWrite = true
	err := s.Flush()
	assert.True(t, errors.Is(err, transport.ErrSocketDisconnected))
	assert.NotZero(t, s.Buffered())
}

func TestReadAcrossChunks(t *testing.T) {
	s, ft := connected(t)
	stream := append(orderAccepted(2), orderAccepted(3)...)
	ft.chunks = [][]byte{stream[:3], stream[3 : len(stream)-2], stream[len(stream)-2:]}

	require.NoError(t, s.Read())
	assert.Equal(t, 0, s.Pending())
	require.NoError(t, s.Read())
	assert.Equal(t, 1, s.Pending())
	require.NoError(t, s.Read())
	assert.Equal(t, 2, s.Pending())

	for _, want := range []uint64{2, 3} {
		msg, err := s.NextMessage()
		require.NoError(t, err)
		require.NotNil(t, msg)
		assert.Equal(t, want, msg.Eto.Seq)
	}
}

func TestReadDisconnected(t *testing.T) {
	s, _ := connected(t)
	err := s.Read()
	assert.True(t, errors.Is(err, transport.ErrSocketDisconnected))
}

func TestUndecodablePayload(t *testing.T) {
	s, ft := connected(t)
	ft.feed(framing.EncodeFrame([]byte{0xff, 0xff, 0xff}))
	require.NoError(t, s.Read())
	_, err := s.NextMessage()
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, []byte{0xff, 0xff, 0xff}, de.Payload)
	assert.Equal(t, uint64(2), s.InSeq())
}

func TestOverflowingHeader(t *testing.T) {
	s, ft := connected(t)
	ft.feed(bytes.Repeat([]byte{0xff}, 12))
	err := s.Read()
	var de *DecodeError
	assert.True(t, errors.As(err, &de))
}

func TestReconnectDiscardsQueuedFrames(t *testing.T) {
	s, ft := connected(t)
	confirmed := s.OutSeq()
	require.NoError(t, s.Send(func(p *smkproto.Payload) {
		p.Type = smkproto.SetoAccountStateRequest
	}))
	s.Disconnect()
	assert.Equal(t, DISCONNECTED, s.State())
	assert.False(t, s.Connected())

	ft.sent = nil
	require.NoError(t, s.Connect())
	sent := ft.written(t)
	require.Len(t, sent, 1)
	assert.Equal(t, smkproto.SetoLogin, sent[0].Type)
	assert.Equal(t, confirmed, sent[0].Eto.Seq)
	// the token from the first login is offered for resumption
	assert.Equal(t, "tok", sent[0].Login.Session)
	assert.Equal(t, 0, s.Buffered())
}

func TestReconnectDropsUndeliveredMessages(t *testing.T) {
	s, ft := connected(t)
	ft.feed(orderAccepted(5), orderAccepted(6))
	require.NoError(t, s.Read())
	require.Equal(t, 2, s.Pending())
	s.Disconnect()

	require.NoError(t, s.Connect())
	assert.Equal(t, 0, s.Pending())
	ft.sent = nil
	ft.feed(loginResponse(2, "tok2", 2))
	require.NoError(t, s.Read())
	msg, err := s.NextMessage()
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, smkproto.EtoLoginResponse, msg.Eto.Type)
	assert.Equal(t, ACTIVE, s.State())
	assert.Zero(t, s.Gaps.Load())
	assert.Empty(t, ft.sent)
}

// connectedElsewhere reports itself disconnected, so Connect reaches the
// transport, which then finds the connection already open.
type connectedElsewhere struct {
	*fakeTransport
}

func (c connectedElsewhere) Connected() bool {
	return false
}

func TestConnectWhenTransportAlreadyOpen(t *testing.T) {
	ft := &fakeTransport{}
	s, err := New(NewSettings("user", "secret"), WithTransport(connectedElsewhere{ft}))
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NoError(t, s.Connect())
	assert.Equal(t, AWAITING_LOGIN_RESPONSE, s.State())
	ft.feed(loginResponse(1, "tok", 2))
	require.NoError(t, s.Read())
	_, err = s.NextMessage()
	require.NoError(t, err)
	require.Equal(t, ACTIVE, s.State())

	require.NoError(t, s.Connect())
	assert.Equal(t, ACTIVE, s.State())
	assert.Equal(t, 1, ft.connects)
}

func TestLogout(t *testing.T) {
	s, ft := connected(t)
	require.NoError(t, s.Logout())
	assert.False(t, ft.connected)
	assert.Equal(t, DISCONNECTED, s.State())
	sent := ft.written(t)
	require.Len(t, sent, 1)
	assert.Equal(t, smkproto.EtoLogout, sent[0].Eto.Type)
	require.NotNil(t, sent[0].Eto.Logout)
	assert.Equal(t, smkproto.LogoutNone, sent[0].Eto.Logout.Reason)
}

type memLog struct {
	seqs []uint64
}

func (m *memLog) Append(seq uint64, payload []byte) error {
	m.seqs = append(m.seqs, seq)
	return nil
}

func TestOutboundLog(t *testing.T) {
	ml := &memLog{}
	s, _ := newTestSession(t, WithOutboundLog(ml))
	require.NoError(t, s.Connect())
	require.NoError(t, s.Send(func(p *smkproto.Payload) {
		p.Type = smkproto.SetoAccountStateRequest
	}))
	assert.Equal(t, []uint64{1, 2}, ml.seqs)
}

func TestWithSequences(t *testing.T) {
	s, ft := newTestSession(t, WithSequences(10, 20))
	assert.Equal(t, uint64(10), s.InSeq())
	require.NoError(t, s.Connect())
	assert.Equal(t, uint64(20), ft.written(t)[0].Eto.Seq)

	_, err := New(NewSettings("u", "p"), WithSequences(0, 1))
	assert.True(t, errors.Is(err, ErrInvalidSettings))
}

func TestClosedSession(t *testing.T) {
	s, _ := newTestSession(t)
	s.Close()
	assert.ErrorIs(t, s.Connect(), ErrSessionClosed)
	assert.ErrorIs(t, s.Send(func(p *smkproto.Payload) {}), ErrSessionClosed)
	assert.ErrorIs(t, s.Flush(), ErrSessionClosed)
	s.Close()
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, NewSettings("u", "p").Validate())

	cases := map[string]func(s *Settings){
		"username":   func(s *Settings) { s.Username = "" },
		"password":   func(s *Settings) { s.Password = "" },
		"host":       func(s *Settings) { s.Host = "" },
		"port":       func(s *Settings) { s.Port = 70000 },
		"timeout":    func(s *Settings) { s.SocketTimeout = -1 },
		"chunk size": func(s *Settings) { s.ReadChunkSize = 0 },
		"gap policy": func(s *Settings) { s.GapPolicy = 9 },
	}
	for name, mutate := range cases {
		s := NewSettings("u", "p")
		mutate(&s)
		assert.True(t, errors.Is(s.Validate(), ErrInvalidSettings), name)
	}
}

func TestParseGapPolicy(t *testing.T) {
	g, err := ParseGapPolicy("drop")
	require.NoError(t, err)
	assert.Equal(t, GapDrop, g)
	g, err = ParseGapPolicy("")
	require.NoError(t, err)
	assert.Equal(t, GapReplay, g)
	_, err = ParseGapPolicy("ignore")
	assert.Error(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "AWAITING_LOGIN_RESPONSE", AWAITING_LOGIN_RESPONSE.String())
	assert.Equal(t, "replay", GapReplay.String())
}
