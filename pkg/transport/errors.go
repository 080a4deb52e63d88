package transport

import (
	"errors"
	"fmt"
)

// ErrSocketDisconnected is returned when the peer closed the connection or no
// connection is open.
var ErrSocketDisconnected = errors.New("transport: socket disconnected")

// ConnectionError is a connect, read or write failure on the socket.
type ConnectionError struct {
	Op   string
	Host string
	Port int
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("transport: %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
