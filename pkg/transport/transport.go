// Package transport owns the TCP or TLS connection to the streaming API.
// It moves bytes only; framing and sequencing live above it.
package transport

import (
	"crypto/tls"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smarkets/smkstream/pkg/smklog"
	"go.uber.org/zap"
)

const (
	DefaultHost          = "api-sandbox.smarkets.com"
	DefaultPort          = 3701
	DefaultTimeout       = 30 * time.Second
	DefaultReadChunkSize = 65536
)

type Config struct {
	Host      string
	Port      int
	UseTLS    bool
	TLSConfig *tls.Config // nil uses the system roots with Host as server name
	// Timeout bounds connect, each read and each write. Zero disables it.
	Timeout       time.Duration
	NoDelay       bool
	ReadChunkSize int
}

func NewConfig() Config {
	return Config{
		Host:          DefaultHost,
		Port:          DefaultPort,
		UseTLS:        true,
		Timeout:       DefaultTimeout,
		ReadChunkSize: DefaultReadChunkSize,
	}
}

// Transport is a single blocking connection. Send and Recv may be called from
// different goroutines; Connect and Disconnect may race with either.
type Transport struct {
	smklog.Log
	cfg Config

	mu     sync.RWMutex
	conn   net.Conn
	connID string

	readBuf []byte
}

func New(cfg Config) *Transport {
	if cfg.ReadChunkSize <= 0 {
		cfg.ReadChunkSize = DefaultReadChunkSize
	}
	return &Transport{
		Log:     smklog.NewSmkLog("session.socket"),
		cfg:     cfg,
		readBuf: make([]byte, cfg.ReadChunkSize),
	}
}

func (t *Transport) address() string {
	return net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
}

func (t *Transport) connErr(op string, err error) error {
	return &ConnectionError{Op: op, Host: t.cfg.Host, Port: t.cfg.Port, Err: err}
}

// Connect opens the connection. It returns false without error when already
// connected.
func (t *Transport) Connect() (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return false, nil
	}
	t.Info("connecting", zap.String("addr", t.address()), zap.Bool("tls", t.cfg.UseTLS))

	dialer := &net.Dialer{Timeout: t.cfg.Timeout}
	conn, err := dialer.Dial("tcp", t.address())
	if err != nil {
		return false, t.connErr("connect", err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		if err = tcp.SetNoDelay(t.cfg.NoDelay); err != nil {
			conn.Close()
			return false, t.connErr("connect", err)
		}
	}
	if t.cfg.UseTLS {
		tlsCfg := t.cfg.TLSConfig
		if tlsCfg == nil {
			tlsCfg = &tls.Config{ServerName: t.cfg.Host}
		}
		tlsConn := tls.Client(conn, tlsCfg)
		if t.cfg.Timeout > 0 {
			tlsConn.SetDeadline(time.Now().Add(t.cfg.Timeout))
		}
		if err = tlsConn.Handshake(); err != nil {
			conn.Close()
			return false, t.connErr("connect", err)
		}
		tlsConn.SetDeadline(time.Time{})
		conn = tlsConn
	}
	t.conn = conn
	t.connID = strings.ReplaceAll(uuid.NewString(), "-", "")
	t.Info("connected", zap.String("connID", t.connID), zap.String("remote", conn.RemoteAddr().String()))
	return true, nil
}

// Disconnect closes the connection. Close errors are logged and dropped.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	conn, connID := t.conn, t.connID
	t.conn = nil
	t.mu.Unlock()
	if conn == nil {
		return
	}
	t.Info("disconnecting", zap.String("connID", connID))
	if c, ok := conn.(interface{ CloseRead() error }); ok {
		if err := c.CloseRead(); err != nil {
			t.Debug("close read failed", zap.Error(err))
		}
	}
	if err := conn.Close(); err != nil {
		t.Debug("close failed", zap.Error(err))
	}
}

func (t *Transport) current() net.Conn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.conn
}

// Send makes one write attempt and returns how many bytes went out. A write cut
// short by the timeout returns the partial count so the caller can retry the
// rest.
func (t *Transport) Send(data []byte) (int, error) {
	conn := t.current()
	if conn == nil {
		return 0, ErrSocketDisconnected
	}
	if t.cfg.Timeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(t.cfg.Timeout))
	}
	n, err := conn.Write(data)
	if err != nil {
		var ne net.Error
		if n > 0 && errors.As(err, &ne) && ne.Timeout() {
			t.Debug("partial write", zap.Int("sent", n), zap.Int("len", len(data)))
			return n, nil
		}
		if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
			return n, ErrSocketDisconnected
		}
		return n, t.connErr("write", err)
	}
	if n == 0 && len(data) > 0 {
		return 0, ErrSocketDisconnected
	}
	if smklog.WireOn() {
		t.Wire("sent", data[:n], zap.String("connID", t.ConnID()))
	}
	return n, nil
}

// Recv makes one read of at most ReadChunkSize bytes. The returned slice is
// only valid until the next call.
func (t *Transport) Recv() ([]byte, error) {
	conn := t.current()
	if conn == nil {
		return nil, ErrSocketDisconnected
	}
	if t.cfg.Timeout > 0 {
		conn.SetReadDeadline(time.Now().Add(t.cfg.Timeout))
	}
	n, err := conn.Read(t.readBuf)
	if n > 0 {
		if smklog.WireOn() {
			t.Wire("received", t.readBuf[:n], zap.String("connID", t.ConnID()))
		}
		return t.readBuf[:n], nil
	}
	if err == nil {
		return nil, nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return nil, ErrSocketDisconnected
	}
	return nil, t.connErr("read", err)
}

func (t *Transport) Connected() bool {
	return t.current() != nil
}

// ConnID identifies the current connection in logs. Empty before the first
// connect.
func (t *Transport) ConnID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connID
}

func (t *Transport) RemoteAddr() string {
	conn := t.current()
	if conn == nil {
		return ""
	}
	return conn.RemoteAddr().String()
}
