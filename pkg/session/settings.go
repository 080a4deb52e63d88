package session

import (
	"time"

	"github.com/pkg/errors"
	"github.com/smarkets/smkstream/pkg/transport"
)

// Settings are fixed for the life of a Session.
type Settings struct {
	Username string
	Password string
	Host     string
	Port     int
	UseTLS   bool
	TLS      transport.TLSOptions
	// SocketTimeout bounds connect, reads and writes. Zero means no timeout.
	SocketTimeout time.Duration
	ReadChunkSize int
	TCPNoDelay    bool
	// ResumeToken is sent on login to continue an earlier session.
	ResumeToken string
	// AccountSequence is sent on login when non-zero.
	AccountSequence uint64
	GapPolicy       GapPolicy
}

func NewSettings(username, password string) Settings {
	return Settings{
		Username:      username,
		Password:      password,
		Host:          transport.DefaultHost,
		Port:          transport.DefaultPort,
		UseTLS:        true,
		SocketTimeout: transport.DefaultTimeout,
		ReadChunkSize: transport.DefaultReadChunkSize,
		GapPolicy:     GapReplay,
	}
}

func (s Settings) Validate() error {
	switch {
	case s.Username == "":
		return errors.Wrap(ErrInvalidSettings, "username cannot be empty")
	case s.Password == "":
		return errors.Wrap(ErrInvalidSettings, "password cannot be empty")
	case s.Host == "":
		return errors.Wrap(ErrInvalidSettings, "host cannot be empty")
	case s.Port <= 0 || s.Port > 65535:
		return errors.Wrapf(ErrInvalidSettings, "port %d out of range", s.Port)
	case s.SocketTimeout < 0:
		return errors.Wrap(ErrInvalidSettings, "socket timeout must be positive")
	case s.ReadChunkSize <= 0:
		return errors.Wrap(ErrInvalidSettings, "read chunk size must be positive")
	case s.GapPolicy != GapReplay && s.GapPolicy != GapDrop:
		return errors.Wrapf(ErrInvalidSettings, "unknown gap policy %d", s.GapPolicy)
	}
	return nil
}

// TransportConfig builds the socket configuration, loading TLS material when
// TLS is on.
func (s Settings) TransportConfig() (transport.Config, error) {
	cfg := transport.Config{
		Host:          s.Host,
		Port:          s.Port,
		UseTLS:        s.UseTLS,
		Timeout:       s.SocketTimeout,
		NoDelay:       s.TCPNoDelay,
		ReadChunkSize: s.ReadChunkSize,
	}
	if s.UseTLS {
		tlsOpts := s.TLS
		if tlsOpts.ServerName == "" {
			tlsOpts.ServerName = s.Host
		}
		tlsCfg, err := transport.BuildTLSConfig(tlsOpts)
		if err != nil {
			return cfg, err
		}
		cfg.TLSConfig = tlsCfg
	}
	return cfg, nil
}
