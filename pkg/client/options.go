package client

import (
	"time"

	"github.com/smarkets/smkstream/pkg/monitor"
)

// Options Options
type Options struct {
	// AutoFlush writes each request to the socket as soon as it is built.
	// Without it requests wait for Flush or the Run flusher.
	AutoFlush bool

	// FlushInterval is how often Run flushes when nothing kicks it.
	FlushInterval time.Duration

	Monitor monitor.IMonitor

	// NodeID seeds the snowflake generator for order references. Clients
	// trading on one account at the same time need distinct ids.
	NodeID int64
}

// NewOptions returns the defaults
func NewOptions() *Options {
	return &Options{
		AutoFlush:     true,
		FlushInterval: 100 * time.Millisecond,
		NodeID:        1,
	}
}

// Option configures a Client
type Option func(*Options) error

func WithAutoFlush(autoFlush bool) Option {
	return func(opts *Options) error {
		opts.AutoFlush = autoFlush
		return nil
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(opts *Options) error {
		opts.FlushInterval = d
		return nil
	}
}

func WithMonitor(m monitor.IMonitor) Option {
	return func(opts *Options) error {
		opts.Monitor = m
		return nil
	}
}

func WithNodeID(id int64) Option {
	return func(opts *Options) error {
		opts.NodeID = id
		return nil
	}
}
