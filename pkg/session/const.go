package session

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// State is the lifecycle position of a Session.
type State int32

const (
	DISCONNECTED = State(iota)
	CONNECTING
	AWAITING_LOGIN_RESPONSE
	ACTIVE
	DISCONNECTING
)

func (s State) String() string {
	switch s {
	case DISCONNECTED:
		return "DISCONNECTED"
	case CONNECTING:
		return "CONNECTING"
	case AWAITING_LOGIN_RESPONSE:
		return "AWAITING_LOGIN_RESPONSE"
	case ACTIVE:
		return "ACTIVE"
	case DISCONNECTING:
		return "DISCONNECTING"
	}
	return "unknown state"
}

// GapPolicy decides what happens when an inbound sequence number skips ahead.
type GapPolicy int

const (
	// GapReplay asks the peer to resend from the expected sequence.
	GapReplay GapPolicy = iota
	// GapDrop only logs and leaves recovery to the peer.
	GapDrop
)

func (g GapPolicy) String() string {
	switch g {
	case GapReplay:
		return "replay"
	case GapDrop:
		return "drop"
	}
	return fmt.Sprintf("gap_policy(%d)", int(g))
}

func ParseGapPolicy(s string) (GapPolicy, error) {
	switch s {
	case "", "replay":
		return GapReplay, nil
	case "drop":
		return GapDrop, nil
	}
	return 0, errors.Wrapf(ErrInvalidSettings, "unknown gap policy %q", s)
}

var (
	ErrInvalidSettings = errors.New("session: invalid settings")
)

// DecodeError is a complete frame that could not be turned into a message.
// The stream is out of step once this happens.
type DecodeError struct {
	Err     error
	Payload []byte
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("session: decode %d byte payload: %v", len(e.Payload), e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type Statistics struct {
	InMsgs     atomic.Uint64
	OutMsgs    atomic.Uint64
	InBytes    atomic.Uint64
	OutBytes   atomic.Uint64
	Heartbeats atomic.Uint64
	Gaps       atomic.Uint64
	Duplicates atomic.Uint64
	Logins     atomic.Uint64
}
