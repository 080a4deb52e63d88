package smkproto

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

var (
	errWireType = errors.New("unexpected wire type")
	// ErrMissingField is returned when a required field is absent.
	ErrMissingField = errors.New("smkproto: missing required field")
)

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendOptionalVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	return appendVarintField(b, num, v)
}

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessageField(b []byte, num protowire.Number, body []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}

// decoder walks the fields of one encoded message.
type decoder struct {
	buf   []byte
	field []byte // start of the current field, tag included
	num   protowire.Number
	typ   protowire.Type
	err   error
}

func newDecoder(b []byte) *decoder {
	return &decoder{buf: b}
}

func (d *decoder) next() bool {
	if d.err != nil || len(d.buf) == 0 {
		return false
	}
	d.field = d.buf
	num, typ, n := protowire.ConsumeTag(d.buf)
	if n < 0 {
		d.err = protowire.ParseError(n)
		return false
	}
	d.num, d.typ = num, typ
	d.buf = d.buf[n:]
	return true
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = errors.Wrapf(err, "field %d", d.num)
	}
}

func (d *decoder) varint() uint64 {
	if d.typ != protowire.VarintType {
		d.fail(errWireType)
		return 0
	}
	v, n := protowire.ConsumeVarint(d.buf)
	if n < 0 {
		d.fail(protowire.ParseError(n))
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

func (d *decoder) bool() bool {
	return d.varint() != 0
}

func (d *decoder) int32() int32 {
	return int32(d.varint())
}

func (d *decoder) bytes() []byte {
	if d.typ != protowire.BytesType {
		d.fail(errWireType)
		return nil
	}
	v, n := protowire.ConsumeBytes(d.buf)
	if n < 0 {
		d.fail(protowire.ParseError(n))
		return nil
	}
	d.buf = d.buf[n:]
	return v
}

func (d *decoder) string() string {
	return string(d.bytes())
}

// message decodes a nested message body with fn.
func (d *decoder) message(fn func([]byte) error) {
	body := d.bytes()
	if d.err != nil {
		return
	}
	if err := fn(body); err != nil {
		d.fail(err)
	}
}

// skip consumes a field this schema does not know and returns its raw encoding so
// it can be preserved on re-marshal.
func (d *decoder) skip() []byte {
	n := protowire.ConsumeFieldValue(d.num, d.typ, d.buf)
	if n < 0 {
		d.fail(protowire.ParseError(n))
		return nil
	}
	d.buf = d.buf[n:]
	return d.field[:len(d.field)-len(d.buf)]
}
