package client

import (
	"github.com/smarkets/smkstream/pkg/smkproto"
)

// Handler receives every dispatched message of the type it was added for.
type Handler func(msg *smkproto.Payload) error

// GlobalHandler receives every dispatched message with its resolved name.
type GlobalHandler func(name string, msg *smkproto.Payload) error

// HandlerID identifies one registration so it can be removed again.
type HandlerID uint64

type handlerEntry struct {
	id HandlerID
	fn Handler
}

type globalEntry struct {
	id HandlerID
	fn GlobalHandler
}

// newRegistry returns an empty handler set for every known type name. Each
// Client gets its own.
func newRegistry() map[string][]handlerEntry {
	names := smkproto.AllTypeNames()
	reg := make(map[string][]handlerEntry, len(names))
	for _, name := range names {
		reg[name] = nil
	}
	return reg
}

// without returns entries minus id, leaving the input untouched so
// snapshots held by a running dispatch stay valid.
func without[T interface{ entryID() HandlerID }](entries []T, id HandlerID) ([]T, bool) {
	for i, e := range entries {
		if e.entryID() == id {
			out := make([]T, 0, len(entries)-1)
			out = append(out, entries[:i]...)
			return append(out, entries[i+1:]...), true
		}
	}
	return entries, false
}

func (e handlerEntry) entryID() HandlerID { return e.id }
func (e globalEntry) entryID() HandlerID  { return e.id }
