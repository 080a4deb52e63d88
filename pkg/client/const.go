package client

import (
	"errors"
	"fmt"

	"go.uber.org/atomic"
)

var (
	ErrNilHandler           = errors.New("client: handler must not be nil")
	ErrHandlerNotRegistered = errors.New("client: handler not registered")
)

// InvalidCallbackError is returned when a handler names a message type the
// protocol does not have.
type InvalidCallbackError struct {
	Name string
}

func (e *InvalidCallbackError) Error() string {
	return fmt.Sprintf("client: invalid callback name %q", e.Name)
}

type Statistics struct {
	Dispatched    atomic.Uint64
	Unhandled     atomic.Uint64
	HandlerErrors atomic.Uint64
}
