package framing

import (
	"errors"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// MaxVarintLen is the longest ULEB128 encoding of a uint64.
const MaxVarintLen = 10

var (
	// ErrInvalidArgument is returned when a negative value is given to EncodeVarint.
	ErrInvalidArgument = errors.New("framing: value must be nonnegative")
	// ErrIncompleteVarint means the buffer ended before the terminating byte of a varint.
	// More bytes are needed; it is not a protocol error.
	ErrIncompleteVarint = errors.New("framing: incomplete varint")
	// ErrVarintOverflow is returned when a varint does not fit in 64 bits.
	ErrVarintOverflow = errors.New("framing: varint overflows uint64")
)

// EncodeVarint encodes v as ULEB128, least significant group first.
func EncodeVarint(v int64) ([]byte, error) {
	if v < 0 {
		return nil, ErrInvalidArgument
	}
	return AppendUvarint(make([]byte, 0, MaxVarintLen), uint64(v)), nil
}

// AppendUvarint appends the ULEB128 encoding of v to dst. Protobuf varints
// use the same encoding.
func AppendUvarint(dst []byte, v uint64) []byte {
	return protowire.AppendVarint(dst, v)
}

// UvarintLen returns the number of bytes AppendUvarint writes for v.
func UvarintLen(v uint64) int {
	return protowire.SizeVarint(v)
}

// DecodeVarint decodes the ULEB128 value at the start of buf and reports how many
// bytes it used.
func DecodeVarint(buf []byte) (uint64, int, error) {
	v, n := protowire.ConsumeVarint(buf)
	if n < 0 {
		if errors.Is(protowire.ParseError(n), io.ErrUnexpectedEOF) {
			return 0, 0, ErrIncompleteVarint
		}
		return 0, 0, ErrVarintOverflow
	}
	return v, n, nil
}
