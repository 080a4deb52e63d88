package session

import (
	"github.com/smarkets/smkstream/pkg/monitor"
	"github.com/smarkets/smkstream/pkg/smkproto"
)

// Transport is the byte pipe a Session runs over. *transport.Transport is the
// production implementation.
type Transport interface {
	Connect() (bool, error)
	Disconnect()
	Send(data []byte) (int, error)
	Recv() ([]byte, error)
	Connected() bool
}

// OutboundLog receives every serialized outbound payload with its sequence
// number.
type OutboundLog interface {
	Append(seq uint64, payload []byte) error
}

type Options struct {
	Transport   Transport
	Serializer  smkproto.Serializer
	GapPolicy   *GapPolicy // overrides Settings.GapPolicy
	OutboundLog OutboundLog
	Monitor     monitor.IMonitor
	InSeq       uint64
	OutSeq      uint64
}

func NewOptions() *Options {
	return &Options{
		Serializer: smkproto.ProtoSerializer{},
		InSeq:      1,
		OutSeq:     1,
	}
}

type Option func(*Options) error

func WithTransport(t Transport) Option {
	return func(opts *Options) error {
		opts.Transport = t
		return nil
	}
}

func WithSerializer(s smkproto.Serializer) Option {
	return func(opts *Options) error {
		opts.Serializer = s
		return nil
	}
}

func WithGapPolicy(g GapPolicy) Option {
	return func(opts *Options) error {
		opts.GapPolicy = &g
		return nil
	}
}

func WithOutboundLog(l OutboundLog) Option {
	return func(opts *Options) error {
		opts.OutboundLog = l
		return nil
	}
}

func WithMonitor(m monitor.IMonitor) Option {
	return func(opts *Options) error {
		opts.Monitor = m
		return nil
	}
}

// WithSequences sets the starting inbound and outbound sequence numbers.
func WithSequences(inseq, outseq uint64) Option {
	return func(opts *Options) error {
		if inseq == 0 || outseq == 0 {
			return ErrInvalidSettings
		}
		opts.InSeq = inseq
		opts.OutSeq = outseq
		return nil
	}
}
